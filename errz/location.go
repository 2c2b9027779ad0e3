package errz

import (
	"bytes"
	"fmt"
)

// SourceLocation identifies a point in the original source code.
type SourceLocation struct {
	File   string
	Line   int // 1-indexed
	Column int // 1-indexed
}

// IsZero returns true if the location carries no information.
func (l SourceLocation) IsZero() bool {
	return l.Line == 0 && l.Column == 0 && l.File == ""
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// StackFrame describes one call frame in a stack trace, innermost first.
type StackFrame struct {
	FunctionName string
	Location     SourceLocation
}

// FormatStackTrace renders stack frames in a traceback listing.
func FormatStackTrace(frames []StackFrame) string {
	var buf bytes.Buffer
	buf.WriteString("traceback (most recent call first):\n")
	for _, f := range frames {
		name := f.FunctionName
		if name == "" {
			name = "<script>"
		}
		if f.Location.IsZero() {
			fmt.Fprintf(&buf, "  in %s\n", name)
		} else {
			fmt.Fprintf(&buf, "  in %s at %s\n", name, f.Location)
		}
	}
	return buf.String()
}

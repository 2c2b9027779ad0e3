package errz

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fatih/color"
)

// Colors used for error formatting. color.NoColor disables them globally.
var (
	headerColor   = color.New(color.FgRed, color.Bold)
	locationColor = color.New(color.FgCyan)
	frameColor    = color.New(color.FgHiBlack)
)

// Format renders an error for terminal display. Structured errors are shown
// with their kind, location, and traceback; other errors fall back to their
// plain message.
func Format(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	var buf bytes.Buffer
	headerColor.Fprintf(&buf, "%s:", e.Kind)
	fmt.Fprintf(&buf, " %s\n", e.Message)
	if !e.Location.IsZero() {
		fmt.Fprintf(&buf, "  --> %s\n", locationColor.Sprint(e.Location))
	}
	if len(e.Stack) > 0 {
		buf.WriteString(frameColor.Sprint(FormatStackTrace(e.Stack)))
	}
	return buf.String()
}

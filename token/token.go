// Package token defines source positions used by the syntax tree.
package token

// Position points to a particular location in an input string.
type Position struct {
	Line   int // 0-indexed line
	Column int // 0-indexed column
	File   string
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

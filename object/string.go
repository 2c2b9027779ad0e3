package object

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// String wraps an immutable string and implements the Object interface.
type String struct {
	value string
}

func (s *String) Type() Type {
	return STRING
}

func (s *String) Value() string {
	return s.value
}

func (s *String) Inspect() string {
	return fmt.Sprintf("%q", s.value)
}

func (s *String) String() string {
	return s.value
}

func (s *String) Interface() interface{} {
	return s.value
}

func (s *String) Equals(other Object) bool {
	otherStr, ok := other.(*String)
	return ok && s.value == otherStr.value
}

func (s *String) IsTruthy() bool {
	return s.value != ""
}

// Len returns the number of characters in the string.
func (s *String) Len() int {
	return utf8.RuneCountInString(s.value)
}

// Contains reports whether substr occurs within the string.
func (s *String) Contains(substr string) bool {
	return strings.Contains(s.value, substr)
}

// Iter iterates the string's runes as one-character strings.
func (s *String) Iter() Iterator {
	return &stringIterator{runes: []rune(s.value)}
}

type stringIterator struct {
	runes []rune
	pos   int
}

func (it *stringIterator) Next() (Object, bool) {
	if it.pos >= len(it.runes) {
		return nil, false
	}
	r := it.runes[it.pos]
	it.pos++
	return NewString(string(r)), true
}

func NewString(value string) *String {
	return &String{value: value}
}

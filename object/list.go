package object

import (
	"bytes"
	"strings"
)

// List is a mutable, growable sequence of objects. Lists are heap values:
// bindings share one underlying list, so mutation through one binding is
// visible through all others.
type List struct {
	items []Object
}

func (l *List) Type() Type {
	return LIST
}

func (l *List) Inspect() string {
	var out bytes.Buffer
	items := make([]string, 0, len(l.items))
	for _, item := range l.items {
		items = append(items, item.Inspect())
	}
	out.WriteString("[")
	out.WriteString(strings.Join(items, ", "))
	out.WriteString("]")
	return out.String()
}

func (l *List) String() string {
	return l.Inspect()
}

func (l *List) Interface() interface{} {
	items := make([]any, 0, len(l.items))
	for _, item := range l.items {
		items = append(items, item.Interface())
	}
	return items
}

// Equals compares lists structurally, element by element.
func (l *List) Equals(other Object) bool {
	otherList, ok := other.(*List)
	if !ok {
		return false
	}
	if len(l.items) != len(otherList.items) {
		return false
	}
	for i, item := range l.items {
		if !item.Equals(otherList.items[i]) {
			return false
		}
	}
	return true
}

func (l *List) IsTruthy() bool {
	return len(l.items) > 0
}

// Len returns the number of elements in the list.
func (l *List) Len() int {
	return len(l.items)
}

// Get returns the element at the given index. The index must already be
// resolved to a non-negative position within bounds.
func (l *List) Get(index int) Object {
	return l.items[index]
}

// Set replaces the element at the given index.
func (l *List) Set(index int, value Object) {
	l.items[index] = value
}

// Append adds a value to the end of the list.
func (l *List) Append(value Object) {
	l.items = append(l.items, value)
}

// Pop removes and returns the last element, or false if the list is empty.
func (l *List) Pop() (Object, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	last := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return last, true
}

// Contains reports whether the list holds an element equal to value.
func (l *List) Contains(value Object) bool {
	for _, item := range l.items {
		if item.Equals(value) {
			return true
		}
	}
	return false
}

// Items returns the underlying element slice. The slice is shared, not
// copied.
func (l *List) Items() []Object {
	return l.items
}

// Iter iterates the list's elements in order.
func (l *List) Iter() Iterator {
	return &listIterator{list: l}
}

type listIterator struct {
	list *List
	pos  int
}

func (it *listIterator) Next() (Object, bool) {
	if it.pos >= len(it.list.items) {
		return nil, false
	}
	item := it.list.items[it.pos]
	it.pos++
	return item, true
}

func NewList(items []Object) *List {
	return &List{items: items}
}

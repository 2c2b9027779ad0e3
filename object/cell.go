package object

import "fmt"

// Cell is an implementation detail for closure variable capture. While the
// owning frame is live the cell is "open" and refers to the variable's
// absolute slot on the owning machine's value stack, so mutations by the
// owner and by the closure observe each other, even when the closure runs
// on a different machine. When the owning frame returns the VM closes the
// cell, copying the slot's final value into it.
type Cell struct {
	stack      *[]Object
	stackIndex int
	closed     bool
	value      Object
}

func (c *Cell) Type() Type {
	return CELL
}

func (c *Cell) Inspect() string {
	if c.closed {
		return fmt.Sprintf("cell(%s)", c.value.Inspect())
	}
	return fmt.Sprintf("cell(@%d)", c.stackIndex)
}

func (c *Cell) String() string {
	return c.Inspect()
}

func (c *Cell) Interface() interface{} {
	if v := c.Value(); v != nil {
		return v.Interface()
	}
	return nil
}

func (c *Cell) Equals(other Object) bool {
	return c == other
}

func (c *Cell) IsTruthy() bool {
	return true
}

// IsOpen returns true while the cell still refers to a live stack slot.
func (c *Cell) IsOpen() bool {
	return !c.closed
}

// StackIndex returns the absolute value-stack slot of an open cell.
func (c *Cell) StackIndex() int {
	return c.stackIndex
}

// Value returns the captured variable's current value, reading through to
// the owning stack slot while the cell is open.
func (c *Cell) Value() Object {
	if c.closed {
		return c.value
	}
	return (*c.stack)[c.stackIndex]
}

// Close stores the slot's final value and detaches the cell from the stack.
func (c *Cell) Close(value Object) {
	c.closed = true
	c.value = value
	c.stack = nil
}

// SetValue replaces the captured variable's value, writing through to the
// owning stack slot while the cell is open.
func (c *Cell) SetValue(value Object) {
	if c.closed {
		c.value = value
		return
	}
	(*c.stack)[c.stackIndex] = value
}

// NewStackCell creates an open cell referring to an absolute slot on the
// given value stack. The pointer must stay valid until the cell closes.
func NewStackCell(stack *[]Object, stackIndex int) *Cell {
	return &Cell{stack: stack, stackIndex: stackIndex}
}

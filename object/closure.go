package object

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/neba/bytecode"
)

// Closure is a runtime function instance: an immutable bytecode.Function
// template plus the upvalue cells captured when the closure was created.
type Closure struct {
	fn       *bytecode.Function
	defaults []Object // pre-converted default values, parallel to parameters
	upvalues []*Cell
}

func (c *Closure) Type() Type {
	return FUNCTION
}

// Name returns the function name, or empty string for anonymous functions.
func (c *Closure) Name() string {
	return c.fn.Name()
}

func (c *Closure) Inspect() string {
	parameters := make([]string, 0, c.fn.ParameterCount())
	for i := 0; i < c.fn.ParameterCount(); i++ {
		name := c.fn.Parameter(i)
		if def := c.defaults[i]; def != nil {
			name += "=" + def.Inspect()
		}
		parameters = append(parameters, name)
	}
	name := c.fn.Name()
	if name != "" {
		name = " " + name
	}
	return fmt.Sprintf("fn%s(%s)", name, strings.Join(parameters, ", "))
}

func (c *Closure) String() string {
	return c.Inspect()
}

func (c *Closure) Interface() interface{} {
	return nil
}

func (c *Closure) Equals(other Object) bool {
	return c == other
}

func (c *Closure) IsTruthy() bool {
	return true
}

// Function returns the underlying bytecode.Function template.
func (c *Closure) Function() *bytecode.Function {
	return c.fn
}

// Code returns the compiled body of the function.
func (c *Closure) Code() *bytecode.Code {
	return c.fn.Code()
}

// ParameterCount returns the number of declared parameters.
func (c *Closure) ParameterCount() int {
	return c.fn.ParameterCount()
}

// RequiredCount returns the minimum number of arguments for a call.
func (c *Closure) RequiredCount() int {
	return c.fn.RequiredCount()
}

// Default returns the default value for the parameter at the given index,
// or nil if the parameter is required.
func (c *Closure) Default(index int) Object {
	return c.defaults[index]
}

// UpvalueCount returns the number of captured cells.
func (c *Closure) UpvalueCount() int {
	return len(c.upvalues)
}

// Upvalue returns the captured cell at the given index.
func (c *Closure) Upvalue(index int) *Cell {
	return c.upvalues[index]
}

// NewClosure creates a Closure from a function template and the cells it
// captures. Parameter defaults are converted from constant-pool form.
func NewClosure(fn *bytecode.Function, upvalues []*Cell) *Closure {
	defaults := make([]Object, fn.ParameterCount())
	for i := 0; i < fn.ParameterCount(); i++ {
		if value := fn.Default(i); value != nil {
			defaults[i] = FromGoType(value)
		}
	}
	return &Closure{fn: fn, defaults: defaults, upvalues: upvalues}
}

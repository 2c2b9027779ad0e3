package object

import (
	"context"
	"fmt"
)

// BuiltinFunction is the signature of native functions exposed to scripts.
type BuiltinFunction func(ctx context.Context, args ...Object) (Object, error)

// Builtin wraps a native Go function and implements the Object interface.
// A builtin declares its arity; the VM enforces it before the call, so the
// Go function body can assume the argument count is in range.
type Builtin struct {
	name    string
	fn      BuiltinFunction
	minArgs int
	maxArgs int // -1 for variadic
}

func (b *Builtin) Type() Type {
	return BUILTIN
}

// Name returns the name of this builtin function.
func (b *Builtin) Name() string {
	return b.name
}

func (b *Builtin) Inspect() string {
	return fmt.Sprintf("builtin(%s)", b.name)
}

func (b *Builtin) String() string {
	return b.Inspect()
}

func (b *Builtin) Interface() interface{} {
	return b.fn
}

func (b *Builtin) Equals(other Object) bool {
	return b == other
}

func (b *Builtin) IsTruthy() bool {
	return true
}

// MinArgs returns the minimum number of arguments the builtin accepts.
func (b *Builtin) MinArgs() int {
	return b.minArgs
}

// MaxArgs returns the maximum number of arguments, or -1 if variadic.
func (b *Builtin) MaxArgs() int {
	return b.maxArgs
}

// Call invokes the underlying Go function.
func (b *Builtin) Call(ctx context.Context, args ...Object) (Object, error) {
	return b.fn(ctx, args...)
}

// NewBuiltin creates a Builtin with the given name, implementation, and
// declared arity. Pass maxArgs of -1 for a variadic builtin.
func NewBuiltin(name string, fn BuiltinFunction, minArgs, maxArgs int) *Builtin {
	return &Builtin{name: name, fn: fn, minArgs: minArgs, maxArgs: maxArgs}
}

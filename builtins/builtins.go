// Package builtins defines the default set of native functions available
// to Neba programs. Each builtin declares its arity; the machine checks the
// argument count before the call, so the implementations here only validate
// argument types.
package builtins

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/object"
	"github.com/deepnoodle-ai/neba/op"
)

// Print writes its arguments to the stdout sink, separated by spaces,
// without a trailing newline. Strings print their raw contents.
func Print(ctx context.Context, args ...object.Object) (object.Object, error) {
	fmt.Fprint(object.GetStdout(ctx), joinArgs(args))
	return object.Nil, nil
}

// Println behaves like print and appends a newline.
func Println(ctx context.Context, args ...object.Object) (object.Object, error) {
	fmt.Fprintln(object.GetStdout(ctx), joinArgs(args))
	return object.Nil, nil
}

func joinArgs(args []object.Object) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, object.Stringify(arg))
	}
	return strings.Join(parts, " ")
}

// Input reads one line from the stdin sink, printing the optional prompt
// argument first. The trailing newline is stripped.
func Input(ctx context.Context, args ...object.Object) (object.Object, error) {
	if len(args) == 1 {
		fmt.Fprint(object.GetStdout(ctx), object.Stringify(args[0]))
	}
	reader := bufio.NewReader(object.GetStdin(ctx))
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, errz.Newf(errz.ErrGeneric, "input: %s", err)
	}
	return object.NewString(strings.TrimRight(line, "\r\n")), nil
}

func Len(ctx context.Context, args ...object.Object) (object.Object, error) {
	switch arg := args[0].(type) {
	case *object.List:
		return object.NewInt(int64(arg.Len())), nil
	case *object.String:
		return object.NewInt(int64(arg.Len())), nil
	case *object.Range:
		return object.NewInt(int64(arg.Len())), nil
	default:
		return nil, errz.Newf(errz.ErrType, "len() not supported for %s", args[0].Type())
	}
}

func Str(ctx context.Context, args ...object.Object) (object.Object, error) {
	return object.NewString(object.Stringify(args[0])), nil
}

// Int converts a number, bool, or numeric string to an int. Floats
// truncate toward zero.
func Int(ctx context.Context, args ...object.Object) (object.Object, error) {
	switch arg := args[0].(type) {
	case *object.Int:
		return arg, nil
	case *object.Float:
		return object.NewInt(int64(arg.Value())), nil
	case *object.Bool:
		if arg.Value() {
			return object.NewInt(1), nil
		}
		return object.NewInt(0), nil
	case *object.String:
		n, err := strconv.ParseInt(strings.TrimSpace(arg.Value()), 10, 64)
		if err != nil {
			return nil, errz.Newf(errz.ErrType, "cannot convert %q to int", arg.Value())
		}
		return object.NewInt(n), nil
	default:
		return nil, errz.Newf(errz.ErrType, "cannot convert %s to int", args[0].Type())
	}
}

func Float(ctx context.Context, args ...object.Object) (object.Object, error) {
	switch arg := args[0].(type) {
	case *object.Float:
		return arg, nil
	case *object.Int:
		return object.NewFloat(float64(arg.Value())), nil
	case *object.Bool:
		if arg.Value() {
			return object.NewFloat(1), nil
		}
		return object.NewFloat(0), nil
	case *object.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(arg.Value()), 64)
		if err != nil {
			return nil, errz.Newf(errz.ErrType, "cannot convert %q to float", arg.Value())
		}
		return object.NewFloat(f), nil
	default:
		return nil, errz.Newf(errz.ErrType, "cannot convert %s to float", args[0].Type())
	}
}

func Bool(ctx context.Context, args ...object.Object) (object.Object, error) {
	return object.NewBool(args[0].IsTruthy()), nil
}

// TypeOf returns the type name of its argument as a string.
func TypeOf(ctx context.Context, args ...object.Object) (object.Object, error) {
	return object.NewString(string(args[0].Type())), nil
}

func Abs(ctx context.Context, args ...object.Object) (object.Object, error) {
	switch arg := args[0].(type) {
	case *object.Int:
		if arg.Value() < 0 {
			return object.NewInt(-arg.Value()), nil
		}
		return arg, nil
	case *object.Float:
		return object.NewFloat(math.Abs(arg.Value())), nil
	default:
		return nil, errz.Newf(errz.ErrType, "abs() not supported for %s", args[0].Type())
	}
}

// Min returns the smallest of its arguments. A single list argument
// compares the list's elements instead.
func Min(ctx context.Context, args ...object.Object) (object.Object, error) {
	return extreme("min", op.LessThanOrEqual, args)
}

// Max returns the largest of its arguments. A single list argument
// compares the list's elements instead.
func Max(ctx context.Context, args ...object.Object) (object.Object, error) {
	return extreme("max", op.GreaterThanOrEqual, args)
}

func extreme(name string, keep op.CompareOpType, args []object.Object) (object.Object, error) {
	items := args
	if len(args) == 1 {
		list, ok := args[0].(*object.List)
		if !ok {
			return nil, errz.Newf(errz.ErrType,
				"%s() with a single argument requires a list (%s given)", name, args[0].Type())
		}
		items = list.Items()
		if len(items) == 0 {
			return nil, errz.Newf(errz.ErrGeneric, "%s() of empty list", name)
		}
	}
	best := items[0]
	for _, item := range items[1:] {
		verdict, err := object.Compare(keep, best, item)
		if err != nil {
			return nil, err
		}
		if !verdict.IsTruthy() {
			best = item
		}
	}
	return best, nil
}

// RangeList builds a list of ints. With one argument it counts from zero
// up to the bound, with two from start to stop, and a third argument sets
// the step, which may be negative.
func RangeList(ctx context.Context, args ...object.Object) (object.Object, error) {
	bounds := make([]int64, 0, 3)
	for _, arg := range args {
		n, ok := arg.(*object.Int)
		if !ok {
			return nil, errz.Newf(errz.ErrType,
				"range() requires int arguments (%s given)", arg.Type())
		}
		bounds = append(bounds, n.Value())
	}
	start, stop, step := int64(0), int64(0), int64(1)
	switch len(bounds) {
	case 1:
		stop = bounds[0]
	case 2:
		start, stop = bounds[0], bounds[1]
	case 3:
		start, stop, step = bounds[0], bounds[1], bounds[2]
		if step == 0 {
			return nil, errz.New(errz.ErrGeneric, "range() step cannot be zero")
		}
	}
	var items []object.Object
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		items = append(items, object.NewInt(i))
	}
	return object.NewList(items), nil
}

// Push appends a value to a list in place.
func Push(ctx context.Context, args ...object.Object) (object.Object, error) {
	list, ok := args[0].(*object.List)
	if !ok {
		return nil, errz.Newf(errz.ErrType,
			"push() requires a list (%s given)", args[0].Type())
	}
	list.Append(args[1])
	return object.Nil, nil
}

// Pop removes and returns the last element of a list.
func Pop(ctx context.Context, args ...object.Object) (object.Object, error) {
	list, ok := args[0].(*object.List)
	if !ok {
		return nil, errz.Newf(errz.ErrType,
			"pop() requires a list (%s given)", args[0].Type())
	}
	value, ok := list.Pop()
	if !ok {
		return nil, errz.New(errz.ErrIndexOutOfBounds, "pop() on empty list")
	}
	return value, nil
}

// Assert fails with the optional message argument when its first argument
// is falsy.
func Assert(ctx context.Context, args ...object.Object) (object.Object, error) {
	if args[0].IsTruthy() {
		return object.Nil, nil
	}
	message := "assertion failed"
	if len(args) == 2 {
		message = object.Stringify(args[1])
	}
	return nil, errz.New(errz.ErrGeneric, message)
}

// Builtins returns the default native function table, keyed by the global
// name each function binds to.
func Builtins() map[string]object.Object {
	return map[string]object.Object{
		"abs":     object.NewBuiltin("abs", Abs, 1, 1),
		"assert":  object.NewBuiltin("assert", Assert, 1, 2),
		"bool":    object.NewBuiltin("bool", Bool, 1, 1),
		"float":   object.NewBuiltin("float", Float, 1, 1),
		"input":   object.NewBuiltin("input", Input, 0, 1),
		"int":     object.NewBuiltin("int", Int, 1, 1),
		"len":     object.NewBuiltin("len", Len, 1, 1),
		"max":     object.NewBuiltin("max", Max, 1, -1),
		"min":     object.NewBuiltin("min", Min, 1, -1),
		"pop":     object.NewBuiltin("pop", Pop, 1, 1),
		"print":   object.NewBuiltin("print", Print, 0, -1),
		"println": object.NewBuiltin("println", Println, 0, -1),
		"push":    object.NewBuiltin("push", Push, 2, 2),
		"range":   object.NewBuiltin("range", RangeList, 1, 3),
		"str":     object.NewBuiltin("str", Str, 1, 1),
		"type":    object.NewBuiltin("type", TypeOf, 1, 1),
	}
}

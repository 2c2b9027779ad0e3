// Package neba provides the high level API for compiling and executing
// Neba programs.
//
// A front end produces an *ast.Program, Compile lowers it to bytecode, and
// Run executes the bytecode on a fresh virtual machine:
//
//	result, err := neba.Run(ctx, program)
//
// Compiled code is immutable and safe for concurrent use, so one Compile may
// feed many Run calls.
package neba

import (
	"context"

	"github.com/deepnoodle-ai/neba/ast"
	"github.com/deepnoodle-ai/neba/bytecode"
	"github.com/deepnoodle-ai/neba/compiler"
	"github.com/deepnoodle-ai/neba/object"
	"github.com/deepnoodle-ai/neba/vm"
)

// Compile lowers a program to executable bytecode. The returned Code is
// immutable; multiple goroutines may execute it simultaneously, each on its
// own machine.
func Compile(program *ast.Program, opts ...Option) (*bytecode.Code, error) {
	o := collectOptions(opts...)
	return compiler.Compile(program, o.compilerOpts()...)
}

// Run compiles a program and executes it on a new virtual machine. The
// result is the value of the program's final expression statement, or the
// nil object when the program ends with any other kind of statement.
func Run(ctx context.Context, program *ast.Program, opts ...Option) (object.Object, error) {
	o := collectOptions(opts...)
	code, err := compiler.Compile(program, o.compilerOpts()...)
	if err != nil {
		return nil, err
	}
	return vm.New(o.vmOpts()...).Run(withIO(ctx, o), code)
}

// Eval is a convenience alias for Run.
func Eval(ctx context.Context, program *ast.Program, opts ...Option) (object.Object, error) {
	return Run(ctx, program, opts...)
}

// Execute runs previously compiled code on a new virtual machine.
func Execute(ctx context.Context, code *bytecode.Code, opts ...Option) (object.Object, error) {
	o := collectOptions(opts...)
	return vm.New(o.vmOpts()...).Run(withIO(ctx, o), code)
}

// withIO attaches the configured stdout and stdin streams to the context,
// where the print, println, and input builtins find them.
func withIO(ctx context.Context, o *options) context.Context {
	if o.stdout != nil {
		ctx = object.WithStdout(ctx, o.stdout)
	}
	if o.stdin != nil {
		ctx = object.WithStdin(ctx, o.stdin)
	}
	return ctx
}

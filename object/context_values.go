package object

import (
	"context"
	"io"
	"os"
)

type contextKey string

const (
	stdinKey  = contextKey("neba:stdin")
	stdoutKey = contextKey("neba:stdout")
)

// WithStdout attaches an output sink to the context. Builtins that produce
// output (print, println) write to this sink.
func WithStdout(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey, w)
}

// GetStdout returns the output sink from the context, defaulting to
// os.Stdout.
func GetStdout(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(stdoutKey).(io.Writer); ok {
		return w
	}
	return os.Stdout
}

// WithStdin attaches an input source to the context. The input builtin
// reads from this source.
func WithStdin(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, stdinKey, r)
}

// GetStdin returns the input source from the context, defaulting to
// os.Stdin.
func GetStdin(ctx context.Context) io.Reader {
	if r, ok := ctx.Value(stdinKey).(io.Reader); ok {
		return r
	}
	return os.Stdin
}

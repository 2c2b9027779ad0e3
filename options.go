package neba

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/neba/compiler"
	"github.com/deepnoodle-ai/neba/object"
	"github.com/deepnoodle-ai/neba/vm"
)

// Option configures a Neba compilation or execution.
type Option func(*options)

type options struct {
	filename      string
	stdout        io.Writer
	stdin         io.Reader
	globals       map[string]object.Object
	scheduler     vm.Scheduler
	logger        *zerolog.Logger
	maxStackDepth int
	maxFrameDepth int
}

func collectOptions(opts ...Option) *options {
	o := &options{globals: map[string]object.Object{}}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) compilerOpts() []compiler.Option {
	var opts []compiler.Option
	if o.filename != "" {
		opts = append(opts, compiler.WithFilename(o.filename))
	}
	return opts
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if len(o.globals) > 0 {
		opts = append(opts, vm.WithGlobals(o.globals))
	}
	if o.scheduler != nil {
		opts = append(opts, vm.WithScheduler(o.scheduler))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	if o.maxStackDepth > 0 {
		opts = append(opts, vm.WithMaxStackDepth(o.maxStackDepth))
	}
	if o.maxFrameDepth > 0 {
		opts = append(opts, vm.WithMaxFrameDepth(o.maxFrameDepth))
	}
	return opts
}

// WithFilename sets the filename attached to source locations in error
// messages and stack traces.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithStdout redirects the output of the print and println builtins.
// It defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// WithStdin redirects the source read by the input builtin. It defaults
// to os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// WithGlobals provides host values as immutable globals, made available to
// programs before any user code runs. This option is additive, so multiple
// WithGlobals options may be supplied. If the same name is supplied
// multiple times, the last value wins.
func WithGlobals(globals map[string]object.Object) Option {
	return func(o *options) {
		for name, value := range globals {
			o.globals[name] = value
		}
	}
}

// WithScheduler replaces the default synchronous scheduler used for spawn
// and await expressions.
func WithScheduler(scheduler vm.Scheduler) Option {
	return func(o *options) {
		o.scheduler = scheduler
	}
}

// WithLogger attaches a logger to the virtual machine. At trace level every
// executed instruction is logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithMaxStackDepth caps the virtual machine's value stack size.
func WithMaxStackDepth(depth int) Option {
	return func(o *options) {
		o.maxStackDepth = depth
	}
}

// WithMaxFrameDepth caps the virtual machine's call depth.
func WithMaxFrameDepth(depth int) Option {
	return func(o *options) {
		o.maxFrameDepth = depth
	}
}

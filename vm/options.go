package vm

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/neba/object"
)

// Option is a configuration function for a Machine.
type Option func(*Machine)

// WithMaxStackDepth caps the value stack size.
func WithMaxStackDepth(depth int) Option {
	return func(m *Machine) {
		m.maxStackDepth = depth
	}
}

// WithMaxFrameDepth caps the call depth.
func WithMaxFrameDepth(depth int) Option {
	return func(m *Machine) {
		m.maxFrameDepth = depth
	}
}

// WithScheduler replaces the default synchronous scheduler used for spawn
// and await.
func WithScheduler(scheduler Scheduler) Option {
	return func(m *Machine) {
		m.scheduler = scheduler
	}
}

// WithLogger attaches a logger to the machine. At trace level every
// executed instruction is logged with its offset and the stack depth.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithGlobals installs host-provided values as immutable globals, made
// available to programs before any user code runs.
func WithGlobals(globals map[string]object.Object) Option {
	return func(m *Machine) {
		for name, value := range globals {
			m.globals[name] = &global{value: value}
		}
	}
}

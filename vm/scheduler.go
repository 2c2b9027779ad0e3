package vm

import (
	"context"

	"github.com/gofrs/uuid"

	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/object"
)

// Scheduler runs spawned calls and settles the tasks that represent them.
// The machine calls Spawn for each spawn expression and Await when a task's
// result is demanded.
type Scheduler interface {
	// Spawn starts a call and returns its task. Failures inside the call
	// settle the task rather than erroring here; Spawn itself errors only
	// when the callee cannot be invoked at all.
	Spawn(ctx context.Context, callee object.Object, args []object.Object) (*object.Task, error)

	// Await blocks until the task settles and returns its outcome.
	Await(ctx context.Context, task *object.Task) (object.Object, error)
}

// synchronousScheduler is the default scheduler. It runs the spawned call
// to completion on a forked machine before spawn returns, so every task it
// produces is already settled. The forked machine shares globals with its
// parent, and a spawned closure's open cells keep aliasing the parent's
// stack, matching the single threaded execution model.
type synchronousScheduler struct {
	machine *Machine
}

func (s *synchronousScheduler) Spawn(ctx context.Context, callee object.Object, args []object.Object) (*object.Task, error) {
	switch callee.(type) {
	case *object.Closure, *object.Builtin:
	default:
		return nil, errz.Newf(errz.ErrNotCallable, "cannot spawn %s", callee.Type())
	}
	task := object.NewTask(newTaskID())
	value, err := s.machine.fork().Call(ctx, callee, args)
	task.Settle(value, err)
	return task, nil
}

func (s *synchronousScheduler) Await(ctx context.Context, task *object.Task) (object.Object, error) {
	if !task.IsSettled() {
		return nil, errz.Newf(errz.ErrGeneric, "task %s has not settled", task.ID())
	}
	return task.Result()
}

func newTaskID() string {
	return uuid.Must(uuid.NewV4()).String()
}

package object

import "fmt"

// Task is the value produced by a spawn expression. A task settles exactly
// once, with either a value or an error; awaiting a settled task yields its
// value or re-raises its error. With the default synchronous scheduler a
// task is already settled when spawn returns.
type Task struct {
	id      string
	settled bool
	value   Object
	err     error
}

func (t *Task) Type() Type {
	return TASK
}

// ID returns the unique identifier assigned by the scheduler.
func (t *Task) ID() string {
	return t.id
}

func (t *Task) Inspect() string {
	if !t.settled {
		return fmt.Sprintf("task(%s pending)", t.id)
	}
	if t.err != nil {
		return fmt.Sprintf("task(%s failed)", t.id)
	}
	return fmt.Sprintf("task(%s done)", t.id)
}

func (t *Task) String() string {
	return t.Inspect()
}

func (t *Task) Interface() interface{} {
	if t.settled && t.err == nil && t.value != nil {
		return t.value.Interface()
	}
	return nil
}

func (t *Task) Equals(other Object) bool {
	return t == other
}

func (t *Task) IsTruthy() bool {
	return true
}

// IsSettled returns true once the task has completed.
func (t *Task) IsSettled() bool {
	return t.settled
}

// Result returns the settled value and error of the task.
func (t *Task) Result() (Object, error) {
	return t.value, t.err
}

// Settle records the task's outcome. Settling twice is a scheduler bug.
func (t *Task) Settle(value Object, err error) {
	if t.settled {
		panic("task settled twice")
	}
	t.settled = true
	t.value = value
	t.err = err
}

// NewTask creates an unsettled task with the given identifier.
func NewTask(id string) *Task {
	return &Task{id: id}
}

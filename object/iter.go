package object

import "fmt"

// Iter wraps an active Iterator so that iteration state can be stored in a
// local variable slot like any other value.
type Iter struct {
	iterator Iterator
}

func (i *Iter) Type() Type {
	return ITER
}

func (i *Iter) Inspect() string {
	return fmt.Sprintf("iter(%p)", i.iterator)
}

func (i *Iter) Interface() interface{} {
	return i.iterator
}

func (i *Iter) Equals(other Object) bool {
	return i == other
}

func (i *Iter) IsTruthy() bool {
	return true
}

// Next advances the underlying iterator.
func (i *Iter) Next() (Object, bool) {
	return i.iterator.Next()
}

func NewIter(iterator Iterator) *Iter {
	return &Iter{iterator: iterator}
}

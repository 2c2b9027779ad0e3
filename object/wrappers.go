package object

// Some wraps a value in the present case of an optional. The absent case is
// the shared Nil value.
type Some struct {
	value Object
}

func (s *Some) Type() Type {
	return SOME
}

func (s *Some) Value() Object {
	return s.value
}

func (s *Some) Inspect() string {
	return "Some(" + s.value.Inspect() + ")"
}

func (s *Some) String() string {
	return s.Inspect()
}

func (s *Some) Interface() interface{} {
	return s.value.Interface()
}

func (s *Some) Equals(other Object) bool {
	otherSome, ok := other.(*Some)
	return ok && s.value.Equals(otherSome.value)
}

func (s *Some) IsTruthy() bool {
	return true
}

func NewSome(value Object) *Some {
	return &Some{value: value}
}

// Ok wraps a value in the success case of a result.
type Ok struct {
	value Object
}

func (o *Ok) Type() Type {
	return OK
}

func (o *Ok) Value() Object {
	return o.value
}

func (o *Ok) Inspect() string {
	return "Ok(" + o.value.Inspect() + ")"
}

func (o *Ok) String() string {
	return o.Inspect()
}

func (o *Ok) Interface() interface{} {
	return o.value.Interface()
}

func (o *Ok) Equals(other Object) bool {
	otherOk, ok := other.(*Ok)
	return ok && o.value.Equals(otherOk.value)
}

func (o *Ok) IsTruthy() bool {
	return true
}

func NewOk(value Object) *Ok {
	return &Ok{value: value}
}

// Err wraps a value in the failure case of a result.
type Err struct {
	value Object
}

func (e *Err) Type() Type {
	return ERR
}

func (e *Err) Value() Object {
	return e.value
}

func (e *Err) Inspect() string {
	return "Err(" + e.value.Inspect() + ")"
}

func (e *Err) String() string {
	return e.Inspect()
}

func (e *Err) Interface() interface{} {
	return e.value.Interface()
}

func (e *Err) Equals(other Object) bool {
	otherErr, ok := other.(*Err)
	return ok && e.value.Equals(otherErr.value)
}

func (e *Err) IsTruthy() bool {
	return false
}

func NewErr(value Object) *Err {
	return &Err{value: value}
}

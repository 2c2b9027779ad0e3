// Package object provides the runtime value types of the Neba virtual
// machine.
//
// Callers usually type assert an object.Object to a concrete type:
//
//	switch obj := obj.(type) {
//	case *object.String:
//		// do something with obj.Value()
//	case *object.Float:
//		// do something with obj.Value()
//	}
//
// Heap values (lists, instances, closures) are shared by pointer: bindings
// alias, so a mutation through one binding is visible through all others.
package object

import "fmt"

// Type of an object as a string.
type Type string

// Type constants
const (
	BOOL     Type = "bool"
	BUILTIN  Type = "builtin"
	CELL     Type = "cell"
	CLASS    Type = "class"
	ERR      Type = "err"
	FLOAT    Type = "float"
	FUNCTION Type = "function"
	INSTANCE Type = "instance"
	INT      Type = "int"
	ITER     Type = "iter"
	LIST     Type = "list"
	NIL      Type = "nil"
	OK       Type = "ok"
	RANGE    Type = "range"
	SOME     Type = "some"
	STRING   Type = "string"
	TASK     Type = "task"
)

var (
	Nil   = &NilType{}
	True  = &Bool{value: true}
	False = &Bool{value: false}
)

// Object is the interface that all value types in Neba must implement.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a string representation of the given object.
	Inspect() string

	// Interface converts the given object to a native Go value.
	Interface() interface{}

	// Equals returns true if the given object is equal to this object.
	Equals(other Object) bool

	// IsTruthy returns true if the object is considered "truthy".
	IsTruthy() bool
}

// Iterator produces the elements of an iterable object one at a time.
type Iterator interface {
	// Next returns the next element, or false when the iterator is
	// exhausted. Exhaustion is tested before any element is produced, so
	// an empty source yields no elements at all.
	Next() (Object, bool)
}

// Iterable is implemented by objects that can drive a for loop.
type Iterable interface {
	Iter() Iterator
}

// NewBool returns the shared Bool for the given value.
func NewBool(value bool) *Bool {
	if value {
		return True
	}
	return False
}

// Stringify returns the display form of an object: strings render without
// quotes, everything else uses its Inspect form. This is the conversion
// applied by string interpolation and by the str builtin.
func Stringify(obj Object) string {
	if s, ok := obj.(*String); ok {
		return s.value
	}
	return obj.Inspect()
}

// FromGoType converts a native Go scalar into the corresponding Object.
// It is used to materialize constant-pool entries.
func FromGoType(value any) Object {
	switch value := value.(type) {
	case nil:
		return Nil
	case int64:
		return NewInt(value)
	case int:
		return NewInt(int64(value))
	case float64:
		return NewFloat(value)
	case bool:
		return NewBool(value)
	case string:
		return NewString(value)
	default:
		panic(fmt.Sprintf("unsupported constant type: %T", value))
	}
}

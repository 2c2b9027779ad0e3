package object

import (
	"bytes"
	"fmt"
	"strings"
)

// Class describes a user-defined class: field declarations with their
// default values, a method table, and an optional designated initializer
// named "init". Classes are created by the MakeClass instruction and bound
// as immutable globals; calling a class instantiates it.
type Class struct {
	name       string
	fieldNames []string // declaration order
	defaults   map[string]Object
	methods    map[string]*Closure
	init       *Closure
}

func (c *Class) Type() Type {
	return CLASS
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

func (c *Class) Inspect() string {
	return fmt.Sprintf("class %s", c.name)
}

func (c *Class) String() string {
	return c.Inspect()
}

func (c *Class) Interface() interface{} {
	return nil
}

func (c *Class) Equals(other Object) bool {
	return c == other
}

func (c *Class) IsTruthy() bool {
	return true
}

// FieldNames returns the field names in declaration order.
func (c *Class) FieldNames() []string {
	return c.fieldNames
}

// Default returns the declared default value for a field.
func (c *Class) Default(name string) (Object, bool) {
	value, ok := c.defaults[name]
	return value, ok
}

// Method returns the method with the given name, if any.
func (c *Class) Method(name string) (*Closure, bool) {
	m, ok := c.methods[name]
	return m, ok
}

// Init returns the designated initializer, or nil if the class has none.
func (c *Class) Init() *Closure {
	return c.init
}

// NewClass creates a Class. A method named "init" becomes the designated
// initializer and is not reachable through the method table.
func NewClass(name string, fieldNames []string, defaults map[string]Object, methods map[string]*Closure) *Class {
	init := methods["init"]
	if init != nil {
		rest := make(map[string]*Closure, len(methods)-1)
		for k, v := range methods {
			if k != "init" {
				rest[k] = v
			}
		}
		methods = rest
	}
	return &Class{
		name:       name,
		fieldNames: fieldNames,
		defaults:   defaults,
		methods:    methods,
		init:       init,
	}
}

// Instance is one object created from a Class. Instances are heap values
// compared by identity.
type Instance struct {
	class  *Class
	fields map[string]Object
}

func (i *Instance) Type() Type {
	return INSTANCE
}

// Class returns the class this instance was created from.
func (i *Instance) Class() *Class {
	return i.class
}

func (i *Instance) Inspect() string {
	var out bytes.Buffer
	fields := make([]string, 0, len(i.class.fieldNames))
	for _, name := range i.class.fieldNames {
		fields = append(fields, name+": "+i.fields[name].Inspect())
	}
	out.WriteString(i.class.name)
	out.WriteString("{")
	out.WriteString(strings.Join(fields, ", "))
	out.WriteString("}")
	return out.String()
}

func (i *Instance) String() string {
	return i.Inspect()
}

func (i *Instance) Interface() interface{} {
	fields := make(map[string]any, len(i.fields))
	for name, value := range i.fields {
		fields[name] = value.Interface()
	}
	return fields
}

// Equals compares instances by identity.
func (i *Instance) Equals(other Object) bool {
	return i == other
}

func (i *Instance) IsTruthy() bool {
	return true
}

// GetField returns the field with the given name, if set.
func (i *Instance) GetField(name string) (Object, bool) {
	value, ok := i.fields[name]
	return value, ok
}

// SetField stores a field value. Fields may be added beyond the declared
// set, matching the dynamic nature of instances.
func (i *Instance) SetField(name string, value Object) {
	i.fields[name] = value
}

// NewInstance allocates an instance with every declared field set to its
// default value.
func NewInstance(class *Class) *Instance {
	fields := make(map[string]Object, len(class.fieldNames))
	for _, name := range class.fieldNames {
		if value, ok := class.defaults[name]; ok {
			fields[name] = value
		} else {
			fields[name] = Nil
		}
	}
	return &Instance{class: class, fields: fields}
}

package bytecode

// UpvalueDesc describes how a closure captures one upvalue when it is
// created. FromParent means the capture references a live local slot of the
// enclosing frame; otherwise it references an upvalue of the enclosing
// closure, chaining the capture through intermediate functions.
type UpvalueDesc struct {
	FromParent bool
	Index      uint8
}

// Function represents a compiled function template. It is immutable after
// creation and contains all the static information needed to create
// closures at runtime.
type Function struct {
	id            string
	name          string
	parameters    []string
	defaults      []any // parallel to parameters; nil marks a required parameter
	code          *Code
	upvalues      []UpvalueDesc
	requiredCount int
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	ID         string
	Name       string
	Parameters []string
	Defaults   []any
	Code       *Code
	Upvalues   []UpvalueDesc
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied to ensure immutability.
func NewFunction(params FunctionParams) *Function {
	defaults := copyAny(params.Defaults)
	defaultsWithValue := 0
	for _, d := range defaults {
		if d != nil {
			defaultsWithValue++
		}
	}
	upvalues := make([]UpvalueDesc, len(params.Upvalues))
	copy(upvalues, params.Upvalues)
	return &Function{
		id:            params.ID,
		name:          params.Name,
		parameters:    copyStrings(params.Parameters),
		defaults:      defaults,
		code:          params.Code,
		upvalues:      upvalues,
		requiredCount: len(params.Parameters) - defaultsWithValue,
	}
}

// ID returns the unique identifier for this function.
func (f *Function) ID() string {
	return f.id
}

// Name returns the function name, or empty string for anonymous functions.
func (f *Function) Name() string {
	return f.name
}

// Code returns the compiled bytecode for this function's body.
func (f *Function) Code() *Code {
	return f.code
}

// ParameterCount returns the number of declared parameters.
func (f *Function) ParameterCount() int {
	return len(f.parameters)
}

// Parameter returns the name of the parameter at the given index.
func (f *Function) Parameter(index int) string {
	return f.parameters[index]
}

// Default returns the default constant for the parameter at the given
// index, or nil if the parameter is required.
func (f *Function) Default(index int) any {
	return f.defaults[index]
}

// RequiredCount returns the number of parameters without default values.
func (f *Function) RequiredCount() int {
	return f.requiredCount
}

// UpvalueCount returns the number of upvalues the function captures.
func (f *Function) UpvalueCount() int {
	return len(f.upvalues)
}

// Upvalue returns the capture descriptor at the given index.
func (f *Function) Upvalue(index int) UpvalueDesc {
	return f.upvalues[index]
}

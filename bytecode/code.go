// Package bytecode defines the compiled representation of Neba programs:
// flat byte-encoded instruction streams with constant pools and source maps.
package bytecode

import (
	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/op"
)

// Code represents a compiled code block (the program body or one function
// body). It is immutable after creation and safe for concurrent use.
type Code struct {
	id   string
	name string

	// instructions is the flat encoded instruction stream: opcode bytes
	// followed by their fixed-width operands, two-byte operands in
	// little-endian order.
	instructions []byte

	// constants is the deduplicated constant pool. Entries are int64,
	// float64, string, bool, or *Function.
	constants []any

	// names holds global, attribute, and method names referenced by
	// two-byte name-index operands.
	names []string

	// localNames records local variable names in slot-binding order, for
	// disassembly and debugging only.
	localNames []string

	// locations is the source map: one entry per instruction byte, with
	// operand bytes sharing their opcode's entry.
	locations []errz.SourceLocation
}

// CodeParams contains parameters for creating a new Code.
type CodeParams struct {
	ID           string
	Name         string
	Instructions []byte
	Constants    []any
	Names        []string
	LocalNames   []string
	Locations    []errz.SourceLocation
}

// NewCode creates a new immutable Code from the given parameters.
// Input slices are copied so later mutation by the caller has no effect.
func NewCode(params CodeParams) *Code {
	return &Code{
		id:           params.ID,
		name:         params.Name,
		instructions: copyBytes(params.Instructions),
		constants:    copyAny(params.Constants),
		names:        copyStrings(params.Names),
		localNames:   copyStrings(params.LocalNames),
		locations:    copyLocations(params.Locations),
	}
}

// ID returns the unique identifier for this code block.
func (c *Code) ID() string {
	return c.id
}

// Name returns the name of this code block.
func (c *Code) Name() string {
	return c.name
}

// InstructionCount returns the size of the instruction stream in bytes.
func (c *Code) InstructionCount() int {
	return len(c.instructions)
}

// Instruction returns the instruction byte at the given offset.
func (c *Code) Instruction(offset int) byte {
	return c.instructions[offset]
}

// ReadOperand1 decodes the one-byte operand at the given offset.
func (c *Code) ReadOperand1(offset int) int {
	return int(c.instructions[offset])
}

// ReadOperand2 decodes the two-byte little-endian operand at the given offset.
func (c *Code) ReadOperand2(offset int) int {
	return int(c.instructions[offset]) | int(c.instructions[offset+1])<<8
}

// ConstantCount returns the size of the constant pool.
func (c *Code) ConstantCount() int {
	return len(c.constants)
}

// Constant returns the constant at the given pool index.
func (c *Code) Constant(index int) any {
	return c.constants[index]
}

// NameCount returns the size of the name table.
func (c *Code) NameCount() int {
	return len(c.names)
}

// NameAt returns the name at the given table index.
func (c *Code) NameAt(index int) string {
	return c.names[index]
}

// LocalNames returns local variable names in slot-binding order.
func (c *Code) LocalNames() []string {
	return copyStrings(c.localNames)
}

// LocationAt returns the source location recorded for the instruction byte
// at the given offset.
func (c *Code) LocationAt(offset int) errz.SourceLocation {
	if offset < 0 || offset >= len(c.locations) {
		return errz.SourceLocation{}
	}
	return c.locations[offset]
}

// OpAt decodes the opcode at the given offset and returns its info.
func (c *Code) OpAt(offset int) op.Info {
	return op.GetInfo(op.Code(c.instructions[offset]))
}

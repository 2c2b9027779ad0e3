package bytecode

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/op"
)

func TestCodeImmutability(t *testing.T) {
	instructions := []byte{byte(op.LoadConst), 1, 0, byte(op.Halt)}
	constants := []any{int64(42)}
	code := NewCode(CodeParams{
		Name:         "main",
		Instructions: instructions,
		Constants:    constants,
	})

	// Mutating the inputs must not affect the constructed Code.
	instructions[0] = byte(op.Nop)
	constants[0] = int64(0)

	require.Equal(t, byte(op.LoadConst), code.Instruction(0))
	require.Equal(t, int64(42), code.Constant(0))
}

func TestReadOperand2IsLittleEndian(t *testing.T) {
	// LOAD_CONST with operand 0x0102 encodes as [op, 0x02, 0x01].
	code := NewCode(CodeParams{
		Instructions: []byte{byte(op.LoadConst), 0x02, 0x01},
	})
	require.Equal(t, 0x0102, code.ReadOperand2(1))
}

func TestOpAt(t *testing.T) {
	code := NewCode(CodeParams{
		Instructions: []byte{byte(op.MatchRange), 0, 0, 1, 0, 1, 5, 0},
	})
	info := code.OpAt(0)
	require.Equal(t, "MATCH_RANGE", info.Name)
	require.Equal(t, 8, info.Size())
}

func TestLocationAt(t *testing.T) {
	loc := errz.SourceLocation{Line: 3, Column: 1}
	code := NewCode(CodeParams{
		Instructions: []byte{byte(op.Nil), byte(op.Pop)},
		Locations:    []errz.SourceLocation{loc, loc},
	})
	require.Equal(t, loc, code.LocationAt(1))
	require.True(t, code.LocationAt(99).IsZero())
}

func TestFunctionRequiredCount(t *testing.T) {
	fn := NewFunction(FunctionParams{
		Name:       "greet",
		Parameters: []string{"name", "greeting"},
		Defaults:   []any{nil, "hello"},
	})
	require.Equal(t, 2, fn.ParameterCount())
	require.Equal(t, 1, fn.RequiredCount())
	require.Nil(t, fn.Default(0))
	require.Equal(t, "hello", fn.Default(1))
}

func TestFunctionUpvalues(t *testing.T) {
	fn := NewFunction(FunctionParams{
		Name:     "counter",
		Upvalues: []UpvalueDesc{{FromParent: true, Index: 0}},
	})
	require.Equal(t, 1, fn.UpvalueCount())
	require.Equal(t, UpvalueDesc{FromParent: true, Index: 0}, fn.Upvalue(0))
}

func TestDisassemble(t *testing.T) {
	color.NoColor = true
	code := NewCode(CodeParams{
		Name: "main",
		Instructions: []byte{
			byte(op.LoadConst), 0, 0,
			byte(op.DefineGlobal), 0, 0, 1,
			byte(op.LoadGlobal), 0, 0,
			byte(op.Halt),
		},
		Constants: []any{int64(7)},
		Names:     []string{"x"},
	})
	out := Disassemble(code)
	require.Contains(t, out, "== main ==")
	require.Contains(t, out, "LOAD_CONST")
	require.Contains(t, out, "; 7")
	require.Contains(t, out, "DEFINE_GLOBAL")
	require.Contains(t, out, "; x")
}

// Package op defines opcodes used by the Neba compiler and virtual machine.
//
// An instruction is a single opcode byte followed by zero or more
// fixed-width operands of one or two bytes each. Two-byte operands are
// little-endian. The operand widths recorded here are the single source of
// truth for instruction decoding: the VM and the disassembler both consult
// GetInfo, so the two can never disagree about instruction length.
package op

// Code is a one-byte opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Execution
	Nop         Code = 1
	Halt        Code = 2
	Call        Code = 3
	CallMethod  Code = 4
	ReturnValue Code = 5
	ReturnNil   Code = 6

	// Jump
	JumpBackward          Code = 10
	JumpForward           Code = 11
	PopJumpForwardIfFalse Code = 12
	PopJumpForwardIfTrue  Code = 13

	// Peek variants jump on the top value's truthiness without popping it.
	// They implement value-preserving short-circuit "and" / "or".
	JumpForwardIfFalsePeek Code = 14
	JumpForwardIfTruePeek  Code = 15

	// Load
	LoadConst   Code = 20
	LoadLocal   Code = 21
	LoadUpvalue Code = 22
	LoadGlobal  Code = 23
	LoadAttr    Code = 24

	// Store
	StoreLocal   Code = 30
	StoreUpvalue Code = 31
	StoreGlobal  Code = 32
	StoreAttr    Code = 33
	DefineGlobal Code = 34

	// Operations
	BinaryOp    Code = 40
	CompareOp   Code = 41
	UnaryNegate Code = 42
	UnaryNot    Code = 43
	ContainsOp  Code = 44
	UnaryInvert Code = 45
	Is          Code = 46

	// Build
	BuildList   Code = 50
	BuildString Code = 51
	ToString    Code = 52
	MakeRange   Code = 53

	// Containers
	Index    Code = 60
	SetIndex Code = 61

	// Stack
	Pop  Code = 71
	PopN Code = 72

	// PopUnder removes operand-count values directly below the top of the
	// stack, keeping the top value in place. Block expressions use it to
	// discard their locals while preserving the block's result.
	PopUnder Code = 73

	// Push constants
	Nil   Code = 80
	False Code = 81
	True  Code = 82

	// Iteration
	GetIter Code = 90
	ForIter Code = 91

	// Closures
	MakeClosure Code = 100

	// Classes
	MakeClass Code = 110

	// Wrappers and pattern tests. The Match* opcodes peek at the subject on
	// top of the stack without popping it.
	MakeSome     Code = 120
	MakeOk       Code = 121
	MakeErr      Code = 122
	Unwrap       Code = 123
	MatchLiteral Code = 124
	MatchRange   Code = 125
	MatchCtor    Code = 126

	// Tasks
	Spawn Code = 130
	Await Code = 131
)

// BinaryOpType describes a type of binary operation.
type BinaryOpType uint8

const (
	Add BinaryOpType = iota
	Subtract
	Multiply
	Divide
	FloorDivide
	Modulo
	Power
	BitAnd
	BitOr
	BitXor
	ShiftLeft
	ShiftRight
)

func (bt BinaryOpType) String() string {
	switch bt {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case FloorDivide:
		return "//"
	case Modulo:
		return "%"
	case Power:
		return "**"
	case BitAnd:
		return "&"
	case BitOr:
		return "|"
	case BitXor:
		return "^"
	case ShiftLeft:
		return "<<"
	case ShiftRight:
		return ">>"
	default:
		return ""
	}
}

// CompareOpType describes a type of comparison operation.
type CompareOpType uint8

const (
	Equal CompareOpType = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

func (ct CompareOpType) String() string {
	switch ct {
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return ""
	}
}

// CtorType identifies the wrapper constructor tested by MatchCtor.
type CtorType uint8

const (
	CtorSome CtorType = iota
	CtorNone
	CtorOk
	CtorErr
)

func (ct CtorType) String() string {
	switch ct {
	case CtorSome:
		return "Some"
	case CtorNone:
		return "None"
	case CtorOk:
		return "Ok"
	case CtorErr:
		return "Err"
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string

	// OperandWidths holds the byte width (1 or 2) of each operand, in the
	// order the operands appear in the instruction stream.
	OperandWidths []int
}

// Size returns the total encoded size of the instruction in bytes,
// including the opcode byte.
func (i Info) Size() int {
	size := 1
	for _, w := range i.OperandWidths {
		size += w
	}
	return size
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op     Code
		name   string
		widths []int
	}
	ops := []opInfo{
		{Await, "AWAIT", nil},
		{BinaryOp, "BINARY_OP", []int{1}},
		{BuildList, "BUILD_LIST", []int{2}},
		{BuildString, "BUILD_STRING", []int{2}},
		{Call, "CALL", []int{1}},
		{CallMethod, "CALL_METHOD", []int{2, 1}},
		{CompareOp, "COMPARE_OP", []int{1}},
		{ContainsOp, "CONTAINS_OP", []int{1}},
		{DefineGlobal, "DEFINE_GLOBAL", []int{2, 1}},
		{False, "FALSE", nil},
		{ForIter, "FOR_ITER", []int{1, 2}},
		{GetIter, "GET_ITER", nil},
		{Halt, "HALT", nil},
		{Index, "INDEX", nil},
		{JumpBackward, "JUMP_BACKWARD", []int{2}},
		{JumpForwardIfFalsePeek, "JUMP_FORWARD_IF_FALSE_PEEK", []int{2}},
		{JumpForwardIfTruePeek, "JUMP_FORWARD_IF_TRUE_PEEK", []int{2}},
		{JumpForward, "JUMP_FORWARD", []int{2}},
		{LoadAttr, "LOAD_ATTR", []int{2}},
		{LoadConst, "LOAD_CONST", []int{2}},
		{LoadGlobal, "LOAD_GLOBAL", []int{2}},
		{LoadLocal, "LOAD_LOCAL", []int{1}},
		{LoadUpvalue, "LOAD_UPVALUE", []int{1}},
		{MakeClass, "MAKE_CLASS", []int{2, 1, 1}},
		{MakeClosure, "MAKE_CLOSURE", []int{2}},
		{MakeErr, "MAKE_ERR", nil},
		{MakeOk, "MAKE_OK", nil},
		{MakeRange, "MAKE_RANGE", []int{1}},
		{MakeSome, "MAKE_SOME", nil},
		{MatchCtor, "MATCH_CTOR", []int{1, 2}},
		{MatchLiteral, "MATCH_LITERAL", []int{2, 2}},
		{MatchRange, "MATCH_RANGE", []int{2, 2, 1, 2}},
		{Nil, "NIL", nil},
		{Nop, "NOP", nil},
		{Pop, "POP", nil},
		{PopJumpForwardIfFalse, "POP_JUMP_FORWARD_IF_FALSE", []int{2}},
		{PopJumpForwardIfTrue, "POP_JUMP_FORWARD_IF_TRUE", []int{2}},
		{PopN, "POP_N", []int{1}},
		{PopUnder, "POP_UNDER", []int{1}},
		{ReturnNil, "RETURN_NIL", nil},
		{ReturnValue, "RETURN_VALUE", nil},
		{SetIndex, "SET_INDEX", nil},
		{Spawn, "SPAWN", []int{1}},
		{StoreAttr, "STORE_ATTR", []int{2}},
		{StoreGlobal, "STORE_GLOBAL", []int{2}},
		{StoreLocal, "STORE_LOCAL", []int{1}},
		{StoreUpvalue, "STORE_UPVALUE", []int{1}},
		{ToString, "TO_STRING", nil},
		{True, "TRUE", nil},
		{UnaryInvert, "UNARY_INVERT", nil},
		{Is, "IS", nil},
		{UnaryNegate, "UNARY_NEGATE", nil},
		{UnaryNot, "UNARY_NOT", nil},
		{Unwrap, "UNWRAP", nil},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:          o.op,
			Name:          o.name,
			OperandWidths: o.widths,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

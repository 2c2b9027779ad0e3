package bytecode

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/neba/op"
)

var (
	disOffsetColor  = color.New(color.FgHiBlack)
	disOpcodeColor  = color.New(color.FgCyan)
	disCommentColor = color.New(color.FgGreen)
)

// Disassemble renders a code block as human-readable assembly, one
// instruction per line, recursing into function constants. Output is
// colorized unless color.NoColor is set.
func Disassemble(c *Code) string {
	var buf bytes.Buffer
	disassemble(&buf, c, c.Name())
	return buf.String()
}

func disassemble(buf *bytes.Buffer, c *Code, name string) {
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(buf, "== %s ==\n", name)
	var fns []*Function
	for offset := 0; offset < c.InstructionCount(); {
		offset = disassembleInstruction(buf, c, offset, &fns)
	}
	for _, fn := range fns {
		buf.WriteString("\n")
		disassemble(buf, fn.Code(), fn.Name())
	}
}

func disassembleInstruction(buf *bytes.Buffer, c *Code, offset int, fns *[]*Function) int {
	info := c.OpAt(offset)
	disOffsetColor.Fprintf(buf, "%04d ", offset)
	if info.Name == "" {
		fmt.Fprintf(buf, "UNKNOWN(%d)\n", c.Instruction(offset))
		return offset + 1
	}
	disOpcodeColor.Fprintf(buf, "%-28s", info.Name)

	operands := make([]int, 0, len(info.OperandWidths))
	pos := offset + 1
	for _, width := range info.OperandWidths {
		switch width {
		case 1:
			operands = append(operands, c.ReadOperand1(pos))
		case 2:
			operands = append(operands, c.ReadOperand2(pos))
		}
		pos += width
	}
	for _, operand := range operands {
		fmt.Fprintf(buf, " %d", operand)
	}
	if comment := operandComment(c, info, operands, pos, fns); comment != "" {
		disCommentColor.Fprintf(buf, "  ; %s", comment)
	}
	buf.WriteString("\n")
	return pos
}

// operandComment resolves constant and name operands to a display string.
func operandComment(c *Code, info op.Info, operands []int, end int, fns *[]*Function) string {
	switch info.Code {
	case op.LoadConst, op.MakeClosure, op.MatchLiteral:
		return constantComment(c, operands[0], fns)
	case op.MatchRange:
		lo := constantComment(c, operands[0], fns)
		hi := constantComment(c, operands[1], fns)
		return fmt.Sprintf("%s..%s", lo, hi)
	case op.LoadGlobal, op.StoreGlobal, op.DefineGlobal, op.LoadAttr,
		op.StoreAttr, op.CallMethod, op.MakeClass:
		return c.NameAt(operands[0])
	case op.BinaryOp:
		return op.BinaryOpType(operands[0]).String()
	case op.CompareOp:
		return op.CompareOpType(operands[0]).String()
	case op.MatchCtor:
		return op.CtorType(operands[0]).String()
	case op.JumpForward, op.PopJumpForwardIfFalse, op.PopJumpForwardIfTrue,
		op.JumpForwardIfFalsePeek, op.JumpForwardIfTruePeek:
		return fmt.Sprintf("to %d", end+operands[0])
	case op.JumpBackward:
		return fmt.Sprintf("to %d", end-operands[0])
	case op.ForIter:
		return fmt.Sprintf("exhausted to %d", end+operands[1])
	case op.LoadLocal, op.StoreLocal:
		names := c.LocalNames()
		if operands[0] < len(names) {
			return names[operands[0]]
		}
	}
	return ""
}

func constantComment(c *Code, index int, fns *[]*Function) string {
	constant := c.Constant(index)
	if fn, ok := constant.(*Function); ok {
		*fns = append(*fns, fn)
		name := fn.Name()
		if name == "" {
			name = "<anonymous>"
		}
		return fmt.Sprintf("fn %s", name)
	}
	if s, ok := constant.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", constant)
}

package compiler

import (
	"fmt"

	"github.com/deepnoodle-ai/neba/bytecode"
	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/op"
)

const (
	maxConstants = 65535
	maxNames     = 65535
	maxLocals    = 256
	maxJumpDelta = 65535

	// placeholder operand for forward jumps until the target is known
	placeholder = 0xFFFF
)

// local is a named stack slot in the function currently being compiled.
type local struct {
	name    string
	depth   int
	slot    int
	mutable bool
}

// upvalue describes one captured variable of the function currently being
// compiled. fromParent distinguishes a direct capture of a parent local from
// a transitive capture of one of the parent's own upvalues.
type upvalue struct {
	fromParent bool
	index      int
	mutable    bool
}

// loop tracks the state needed to compile break and continue statements.
// continueTarget is the instruction offset both loop forms jump back to, and
// baseHeight is the simulated stack depth at the top of the loop body, so
// that early exits can discard everything pushed since: body locals, match
// subjects, unwrapped payloads.
type loop struct {
	continueTarget int
	baseHeight     int
	breakPatches   []int
}

// functionCompiler accumulates the bytecode for a single function body. The
// compiler keeps one of these per lexical function, linked through parent so
// that identifier resolution can walk outward and build upvalue chains.
//
// stackHeight simulates the operand stack depth at the current instruction.
// A local's slot is fixed at definition time from the simulated height,
// which keeps slot assignment correct even when a variable is introduced
// while temporaries sit on the stack, as happens in match arm bindings.
type functionCompiler struct {
	parent       *functionCompiler
	name         string
	instructions []byte
	constants    []any
	constIndex   map[any]int
	names        []string
	nameIndex    map[string]int
	locals       []local
	localNames   []string
	upvalues     []upvalue
	locations    []errz.SourceLocation
	curLoc       errz.SourceLocation
	scopeDepth   int
	stackHeight  int
	loops        []*loop
}

func newFunctionCompiler(parent *functionCompiler, name string) *functionCompiler {
	return &functionCompiler{
		parent:     parent,
		name:       name,
		constIndex: map[any]int{},
		nameIndex:  map[string]int{},
	}
}

// emit appends one instruction and its operands, records the source location
// for every emitted byte, and updates the simulated stack height.
func (f *functionCompiler) emit(code op.Code, operands ...int) int {
	info := op.GetInfo(code)
	pos := len(f.instructions)
	f.instructions = append(f.instructions, byte(code))
	for i, operand := range operands {
		width := info.OperandWidths[i]
		switch width {
		case 1:
			f.instructions = append(f.instructions, byte(operand))
		case 2:
			f.instructions = append(f.instructions, byte(operand&0xFF), byte(operand>>8))
		}
	}
	for len(f.locations) < len(f.instructions) {
		f.locations = append(f.locations, f.curLoc)
	}
	f.stackHeight += stackEffect(code, operands)
	return pos
}

// emitJump emits a forward jump with a placeholder delta and returns the
// instruction offset for later patching. Any operands that precede the jump
// delta are passed through unchanged.
func (f *functionCompiler) emitJump(code op.Code, operands ...int) int {
	return f.emit(code, append(operands, placeholder)...)
}

// patchJump rewrites the final operand of the instruction at pos to jump to
// the current end of the instruction stream. The delta is relative to the
// instruction pointer after the full instruction has been decoded.
func (f *functionCompiler) patchJump(pos int) error {
	size := op.GetInfo(op.Code(f.instructions[pos])).Size()
	delta := len(f.instructions) - (pos + size)
	if delta > maxJumpDelta {
		return errz.New(errz.ErrCompile, "jump distance exceeds limit").At(f.locations[pos])
	}
	f.instructions[pos+size-2] = byte(delta & 0xFF)
	f.instructions[pos+size-1] = byte(delta >> 8)
	return nil
}

// emitBackwardJump jumps to an earlier instruction offset.
func (f *functionCompiler) emitBackwardJump(target int) error {
	size := op.GetInfo(op.JumpBackward).Size()
	delta := len(f.instructions) + size - target
	if delta > maxJumpDelta {
		return errz.New(errz.ErrCompile, "jump distance exceeds limit").At(f.curLoc)
	}
	f.emit(op.JumpBackward, delta)
	return nil
}

func (f *functionCompiler) addConstant(value any) (int, error) {
	if idx, ok := f.constIndex[value]; ok {
		return idx, nil
	}
	if len(f.constants) >= maxConstants {
		return 0, errz.New(errz.ErrCompile, "constant pool exceeds limit").At(f.curLoc)
	}
	idx := len(f.constants)
	f.constants = append(f.constants, value)
	f.constIndex[value] = idx
	return idx, nil
}

// addFunctionConstant skips deduplication since functions are never shared.
func (f *functionCompiler) addFunctionConstant(fn *bytecode.Function) (int, error) {
	if len(f.constants) >= maxConstants {
		return 0, errz.New(errz.ErrCompile, "constant pool exceeds limit").At(f.curLoc)
	}
	idx := len(f.constants)
	f.constants = append(f.constants, fn)
	return idx, nil
}

func (f *functionCompiler) addName(name string) (int, error) {
	if idx, ok := f.nameIndex[name]; ok {
		return idx, nil
	}
	if len(f.names) >= maxNames {
		return 0, errz.New(errz.ErrCompile, "name table exceeds limit").At(f.curLoc)
	}
	idx := len(f.names)
	f.names = append(f.names, name)
	f.nameIndex[name] = idx
	return idx, nil
}

// defineLocal binds the value currently on top of the stack as a new local
// variable. The slot is wherever the value already sits, so no move is
// emitted.
func (f *functionCompiler) defineLocal(name string, mutable bool) (int, error) {
	if len(f.locals) >= maxLocals {
		return 0, errz.New(errz.ErrCompile,
			fmt.Sprintf("too many local variables in function %q", f.name)).At(f.curLoc)
	}
	slot := f.stackHeight - 1
	f.locals = append(f.locals, local{
		name:    name,
		depth:   f.scopeDepth,
		slot:    slot,
		mutable: mutable,
	})
	f.localNames = append(f.localNames, name)
	return slot, nil
}

// resolveLocal searches the current function's locals, innermost first.
func (f *functionCompiler) resolveLocal(name string) (*local, bool) {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			return &f.locals[i], true
		}
	}
	return nil, false
}

func (f *functionCompiler) addUpvalue(fromParent bool, index int, mutable bool) (int, error) {
	for i, uv := range f.upvalues {
		if uv.fromParent == fromParent && uv.index == index {
			return i, nil
		}
	}
	if len(f.upvalues) >= maxLocals {
		return 0, errz.New(errz.ErrCompile,
			fmt.Sprintf("too many captured variables in function %q", f.name)).At(f.curLoc)
	}
	f.upvalues = append(f.upvalues, upvalue{fromParent: fromParent, index: index, mutable: mutable})
	return len(f.upvalues) - 1, nil
}

// resolveUpvalue walks the enclosing function chain looking for name. On
// success every intermediate function gains a transitive upvalue so the
// capture reaches all the way down.
func (f *functionCompiler) resolveUpvalue(name string) (int, bool, bool, error) {
	if f.parent == nil {
		return 0, false, false, nil
	}
	if l, ok := f.parent.resolveLocal(name); ok {
		idx, err := f.addUpvalue(true, l.slot, l.mutable)
		return idx, l.mutable, err == nil, err
	}
	idx, mutable, ok, err := f.parent.resolveUpvalue(name)
	if err != nil || !ok {
		return 0, false, false, err
	}
	idx, err = f.addUpvalue(false, idx, mutable)
	return idx, mutable, err == nil, err
}

func (f *functionCompiler) enterScope() {
	f.scopeDepth++
}

// scopeLocalCount reports how many locals belong to the innermost scope.
func (f *functionCompiler) scopeLocalCount() int {
	count := 0
	for i := len(f.locals) - 1; i >= 0 && f.locals[i].depth == f.scopeDepth; i-- {
		count++
	}
	return count
}

// leaveScope discards the innermost scope's locals from the stack. When the
// scope produced a value that must survive, keepTop pops beneath it instead.
func (f *functionCompiler) leaveScope(keepTop bool) {
	count := f.scopeLocalCount()
	f.locals = f.locals[:len(f.locals)-count]
	f.scopeDepth--
	switch {
	case count == 0:
	case keepTop:
		f.emit(op.PopUnder, count)
	case count == 1:
		f.emit(op.Pop)
	default:
		f.emit(op.PopN, count)
	}
}

// discardTo emits pops bringing the runtime stack down to the given depth
// without unbinding locals, used by break and continue which exit the loop
// body early while compilation of the body continues.
func (f *functionCompiler) discardTo(height int) {
	count := f.stackHeight - height
	saved := f.stackHeight
	switch count {
	case 0:
	case 1:
		f.emit(op.Pop)
	default:
		f.emit(op.PopN, count)
	}
	f.stackHeight = saved
}

// stackEffect reports how an instruction changes the operand stack depth.
func stackEffect(code op.Code, operands []int) int {
	switch code {
	case op.LoadConst, op.LoadLocal, op.LoadUpvalue, op.LoadGlobal,
		op.Nil, op.True, op.False, op.MakeClosure, op.Unwrap:
		return 1
	case op.Pop, op.StoreLocal, op.StoreUpvalue, op.StoreGlobal, op.DefineGlobal,
		op.PopJumpForwardIfFalse, op.PopJumpForwardIfTrue,
		op.BinaryOp, op.CompareOp, op.MakeRange, op.Index, op.ReturnValue:
		return -1
	case op.ContainsOp, op.Is:
		return -1
	case op.PopN, op.PopUnder:
		return -operands[0]
	case op.StoreAttr:
		return -2
	case op.SetIndex:
		return -3
	case op.BuildList, op.BuildString:
		return 1 - operands[0]
	case op.Call, op.Spawn:
		return -operands[0]
	case op.CallMethod:
		return -operands[1]
	case op.MakeClass:
		return 1 - 2*(operands[1]+operands[2])
	default:
		return 0
	}
}

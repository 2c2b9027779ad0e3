// Package vm provides a Machine that executes compiled Neba code.
//
// The machine is a stack machine. Local variables live directly on the
// value stack at frame-relative slots, so a call frame is just a code
// reference, an instruction pointer, and a base index. Closures capture
// variables through cells: open cells alias a live stack slot, and the
// machine closes them (copying out the value) when the slot is popped.
package vm

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/neba/builtins"
	"github.com/deepnoodle-ai/neba/bytecode"
	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/object"
	"github.com/deepnoodle-ai/neba/op"
)

const (
	DefaultMaxStackDepth = 4096
	DefaultMaxFrameDepth = 1024

	// contextCheckInterval is the number of instructions between checks
	// of ctx.Done().
	contextCheckInterval = 1000
)

// global is one entry in the machine's global table.
type global struct {
	value   object.Object
	mutable bool
}

// frame is one activation record. base is the absolute stack index of the
// frame's first local; popTo is where the stack pointer returns to when the
// frame pops, which is the callee's slot for plain calls and the receiver's
// slot for method calls.
type frame struct {
	closure      *object.Closure // nil for the program body
	code         *bytecode.Code
	ip           int
	base         int
	popTo        int
	initInstance *object.Instance // set while running a class initializer
}

// Machine executes compiled code. A machine may be reused for sequential
// runs; globals persist between them. It is not safe for concurrent use.
type Machine struct {
	stack         []object.Object
	sp            int
	frames        []frame
	fp            int
	globals       map[string]*global
	openCells     []*object.Cell
	scheduler     Scheduler
	logger        zerolog.Logger
	trace         bool
	maxStackDepth int
	maxFrameDepth int
}

// New creates a Machine with the default builtin functions installed as
// immutable globals.
func New(opts ...Option) *Machine {
	m := &Machine{
		globals:       map[string]*global{},
		logger:        zerolog.Nop(),
		maxStackDepth: DefaultMaxStackDepth,
		maxFrameDepth: DefaultMaxFrameDepth,
	}
	for name, fn := range builtins.Builtins() {
		m.globals[name] = &global{value: fn}
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.scheduler == nil {
		m.scheduler = &synchronousScheduler{machine: m}
	}
	m.trace = m.logger.GetLevel() <= zerolog.TraceLevel
	m.stack = make([]object.Object, 0, 64)
	m.frames = make([]frame, m.maxFrameDepth)
	return m
}

// fork creates a machine sharing this machine's globals and configuration
// but with its own stack, for running spawned calls.
func (m *Machine) fork() *Machine {
	sub := &Machine{
		globals:       m.globals,
		logger:        m.logger,
		trace:         m.trace,
		maxStackDepth: m.maxStackDepth,
		maxFrameDepth: m.maxFrameDepth,
	}
	sub.scheduler = &synchronousScheduler{machine: sub}
	sub.stack = make([]object.Object, 0, 64)
	sub.frames = make([]frame, sub.maxFrameDepth)
	return sub
}

// Run executes a compiled program body and returns the value left on the
// stack when HALT executes.
func (m *Machine) Run(ctx context.Context, code *bytecode.Code) (object.Object, error) {
	m.sp = 0
	m.fp = 0
	m.openCells = nil
	m.frames[0] = frame{code: code}
	return m.eval(ctx)
}

// Call invokes a callable value with the given arguments, outside of any
// running program. Spawned tasks and host code use this entry point.
func (m *Machine) Call(ctx context.Context, callee object.Object, args []object.Object) (object.Object, error) {
	switch fn := callee.(type) {
	case *object.Builtin:
		if err := checkBuiltinArity(fn, len(args)); err != nil {
			return nil, err
		}
		return fn.Call(ctx, args...)
	case *object.Closure:
		m.sp = 0
		m.fp = -1
		m.openCells = nil
		for _, arg := range args {
			if err := m.push(arg); err != nil {
				return nil, err
			}
		}
		if err := m.callClosure(fn, len(args), 0, 0, nil); err != nil {
			return nil, err
		}
		return m.eval(ctx)
	default:
		return nil, errz.Newf(errz.ErrNotCallable, "%s is not callable", callee.Type())
	}
}

func (m *Machine) push(value object.Object) error {
	if m.sp >= m.maxStackDepth {
		return errz.New(errz.ErrStackOverflow, "value stack limit exceeded")
	}
	if m.sp == len(m.stack) {
		m.stack = append(m.stack, value)
	} else {
		m.stack[m.sp] = value
	}
	m.sp++
	return nil
}

func (m *Machine) pop() object.Object {
	m.sp--
	return m.stack[m.sp]
}

func (m *Machine) peek() object.Object {
	return m.stack[m.sp-1]
}

// openCell returns the open cell aliasing the given absolute stack slot,
// creating one if needed. Sharing the cell is what makes two closures that
// capture the same variable observe each other's writes.
func (m *Machine) openCell(index int) *object.Cell {
	for _, cell := range m.openCells {
		if cell.StackIndex() == index {
			return cell
		}
	}
	cell := object.NewStackCell(&m.stack, index)
	m.openCells = append(m.openCells, cell)
	return cell
}

// closeCells closes every open cell at or above the given stack index,
// copying the slot's current value into the cell before the slot dies.
func (m *Machine) closeCells(level int) {
	if len(m.openCells) == 0 {
		return
	}
	kept := m.openCells[:0]
	for _, cell := range m.openCells {
		if cell.StackIndex() >= level {
			cell.Close(m.stack[cell.StackIndex()])
		} else {
			kept = append(kept, cell)
		}
	}
	m.openCells = kept
}

func checkBuiltinArity(fn *object.Builtin, given int) error {
	if given < fn.MinArgs() {
		return errz.Newf(errz.ErrArityMismatch,
			"%s() takes at least %d arguments (%d given)", fn.Name(), fn.MinArgs(), given)
	}
	if fn.MaxArgs() >= 0 && given > fn.MaxArgs() {
		return errz.Newf(errz.ErrArityMismatch,
			"%s() takes at most %d arguments (%d given)", fn.Name(), fn.MaxArgs(), given)
	}
	return nil
}

// callClosure pushes a frame for the closure. given counts the argument
// values already on the stack starting at base; missing optional arguments
// are filled from the closure's defaults.
func (m *Machine) callClosure(closure *object.Closure, given, base, popTo int, initInstance *object.Instance) error {
	count := closure.ParameterCount()
	if given < closure.RequiredCount() || given > count {
		name := closure.Name()
		if name == "" {
			name = "function"
		}
		return errz.Newf(errz.ErrArityMismatch,
			"%s() takes %d arguments (%d given)", name, closure.RequiredCount(), given)
	}
	for i := given; i < count; i++ {
		if err := m.push(closure.Default(i)); err != nil {
			return err
		}
	}
	if m.fp+1 >= m.maxFrameDepth {
		return errz.New(errz.ErrStackOverflow, "maximum call depth exceeded")
	}
	m.fp++
	m.frames[m.fp] = frame{
		closure:      closure,
		code:         closure.Code(),
		base:         base,
		popTo:        popTo,
		initInstance: initInstance,
	}
	return nil
}

// captureStack builds a traceback, innermost frame first.
func (m *Machine) captureStack() []errz.StackFrame {
	frames := make([]errz.StackFrame, 0, m.fp+1)
	for i := m.fp; i >= 0; i-- {
		f := m.frames[i]
		name := ""
		if f.closure != nil {
			name = f.closure.Name()
		}
		frames = append(frames, errz.StackFrame{
			FunctionName: name,
			Location:     f.code.LocationAt(f.ip),
		})
	}
	return frames
}

// fail annotates an error with the current instruction's source location
// and a traceback, preserving any location the error already carries.
func (m *Machine) fail(err error) error {
	return m.failAt(err, m.frames[m.fp].ip)
}

func (m *Machine) failAt(err error, ip int) error {
	var structured *errz.Error
	if !errors.As(err, &structured) {
		structured = errz.New(errz.ErrGeneric, err.Error()).WithCause(err)
	}
	f := m.frames[m.fp]
	return structured.At(f.code.LocationAt(ip)).WithStack(m.captureStack())
}

// eval is the dispatch loop. It runs until the program body halts, the
// bottom frame returns, or an instruction fails.
func (m *Machine) eval(ctx context.Context) (object.Object, error) {
	f := &m.frames[m.fp]
	code := f.code
	steps := 0
	for {
		steps++
		if steps%contextCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		opcode := op.Code(code.Instruction(f.ip))
		if m.trace {
			m.logger.Trace().
				Int("ip", f.ip).
				Str("op", op.GetInfo(opcode).Name).
				Int("sp", m.sp).
				Msg("exec")
		}
		switch opcode {
		case op.Nop:
			f.ip++
		case op.Halt:
			// Program-body locals die here, so closures escaping the run
			// must stop aliasing the stack before it is reused.
			m.closeCells(0)
			if m.sp > 0 {
				return m.pop(), nil
			}
			return object.Nil, nil
		case op.LoadConst:
			value := object.FromGoType(code.Constant(code.ReadOperand2(f.ip + 1)))
			if err := m.push(value); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 3
		case op.Nil:
			if err := m.push(object.Nil); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.True:
			if err := m.push(object.True); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.False:
			if err := m.push(object.False); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.Pop:
			m.sp--
			m.closeCells(m.sp)
			f.ip++
		case op.PopN:
			m.sp -= code.ReadOperand1(f.ip + 1)
			m.closeCells(m.sp)
			f.ip += 2
		case op.PopUnder:
			count := code.ReadOperand1(f.ip + 1)
			top := m.stack[m.sp-1]
			m.sp -= count + 1
			m.closeCells(m.sp)
			m.stack[m.sp] = top
			m.sp++
			f.ip += 2
		case op.LoadLocal:
			if err := m.push(m.stack[f.base+code.ReadOperand1(f.ip+1)]); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.StoreLocal:
			m.stack[f.base+code.ReadOperand1(f.ip+1)] = m.pop()
			f.ip += 2
		case op.LoadUpvalue:
			cell := f.closure.Upvalue(code.ReadOperand1(f.ip + 1))
			if err := m.push(cell.Value()); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.StoreUpvalue:
			cell := f.closure.Upvalue(code.ReadOperand1(f.ip + 1))
			cell.SetValue(m.pop())
			f.ip += 2
		case op.LoadGlobal:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			g, ok := m.globals[name]
			if !ok {
				return nil, m.fail(errz.Newf(errz.ErrUndefinedGlobal, "undefined: %s", name))
			}
			if err := m.push(g.value); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 3
		case op.StoreGlobal:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			g, ok := m.globals[name]
			if !ok {
				return nil, m.fail(errz.Newf(errz.ErrUndefinedGlobal, "undefined: %s", name))
			}
			if !g.mutable {
				return nil, m.fail(errz.Newf(errz.ErrAssign,
					"cannot assign to immutable variable %q", name))
			}
			g.value = m.pop()
			f.ip += 3
		case op.DefineGlobal:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			mutable := code.ReadOperand1(f.ip+3) == 1
			m.globals[name] = &global{value: m.pop(), mutable: mutable}
			f.ip += 4
		case op.LoadAttr:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			obj := m.pop()
			value, err := m.loadAttr(obj, name)
			if err != nil {
				return nil, m.fail(err)
			}
			if err := m.push(value); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 3
		case op.StoreAttr:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			value := m.pop()
			obj := m.pop()
			instance, ok := obj.(*object.Instance)
			if !ok {
				return nil, m.fail(errz.Newf(errz.ErrType,
					"cannot set field %q on %s", name, obj.Type()))
			}
			instance.SetField(name, value)
			f.ip += 3
		case op.BinaryOp:
			right := m.pop()
			left := m.pop()
			result, err := object.BinaryOp(op.BinaryOpType(code.ReadOperand1(f.ip+1)), left, right)
			if err != nil {
				return nil, m.fail(err)
			}
			if err := m.push(result); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.CompareOp:
			right := m.pop()
			left := m.pop()
			result, err := object.Compare(op.CompareOpType(code.ReadOperand1(f.ip+1)), left, right)
			if err != nil {
				return nil, m.fail(err)
			}
			if err := m.push(result); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.ContainsOp:
			container := m.pop()
			item := m.pop()
			found, err := object.Contains(container, item)
			if err != nil {
				return nil, m.fail(err)
			}
			if code.ReadOperand1(f.ip+1) == 1 {
				found = !found
			}
			if err := m.push(object.NewBool(found)); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.Is:
			// Type test: true when both operands are the same kind of
			// value, regardless of their contents.
			right := m.pop()
			left := m.pop()
			if err := m.push(object.NewBool(left.Type() == right.Type())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.UnaryNegate:
			value := m.pop()
			var result object.Object
			switch v := value.(type) {
			case *object.Int:
				result = object.NewInt(-v.Value())
			case *object.Float:
				result = object.NewFloat(-v.Value())
			default:
				return nil, m.fail(errz.Newf(errz.ErrType, "cannot negate %s", value.Type()))
			}
			if err := m.push(result); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.UnaryNot:
			value := m.pop()
			if err := m.push(object.NewBool(!value.IsTruthy())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.UnaryInvert:
			value := m.pop()
			n, ok := value.(*object.Int)
			if !ok {
				return nil, m.fail(errz.Newf(errz.ErrType, "cannot invert %s", value.Type()))
			}
			if err := m.push(object.NewInt(^n.Value())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.JumpForward:
			f.ip += 3 + code.ReadOperand2(f.ip+1)
		case op.JumpBackward:
			f.ip += 3 - code.ReadOperand2(f.ip+1)
		case op.PopJumpForwardIfFalse:
			if m.pop().IsTruthy() {
				f.ip += 3
			} else {
				f.ip += 3 + code.ReadOperand2(f.ip+1)
			}
		case op.PopJumpForwardIfTrue:
			if m.pop().IsTruthy() {
				f.ip += 3 + code.ReadOperand2(f.ip+1)
			} else {
				f.ip += 3
			}
		case op.JumpForwardIfFalsePeek:
			if m.peek().IsTruthy() {
				f.ip += 3
			} else {
				f.ip += 3 + code.ReadOperand2(f.ip+1)
			}
		case op.JumpForwardIfTruePeek:
			if m.peek().IsTruthy() {
				f.ip += 3 + code.ReadOperand2(f.ip+1)
			} else {
				f.ip += 3
			}
		case op.BuildList:
			count := code.ReadOperand2(f.ip + 1)
			items := make([]object.Object, count)
			copy(items, m.stack[m.sp-count:m.sp])
			m.sp -= count
			if err := m.push(object.NewList(items)); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 3
		case op.BuildString:
			count := code.ReadOperand2(f.ip + 1)
			var sb strings.Builder
			for _, part := range m.stack[m.sp-count : m.sp] {
				sb.WriteString(object.Stringify(part))
			}
			m.sp -= count
			if err := m.push(object.NewString(sb.String())); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 3
		case op.ToString:
			value := m.pop()
			if err := m.push(object.NewString(object.Stringify(value))); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.MakeRange:
			inclusive := code.ReadOperand1(f.ip+1) == 1
			stopObj := m.pop()
			startObj := m.pop()
			start, ok1 := startObj.(*object.Int)
			stop, ok2 := stopObj.(*object.Int)
			if !ok1 || !ok2 {
				return nil, m.fail(errz.Newf(errz.ErrType,
					"range bounds must be ints (%s and %s given)", startObj.Type(), stopObj.Type()))
			}
			if err := m.push(object.NewRange(start.Value(), stop.Value(), inclusive)); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.Index:
			index := m.pop()
			container := m.pop()
			value, err := indexValue(container, index)
			if err != nil {
				return nil, m.fail(err)
			}
			if err := m.push(value); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.SetIndex:
			value := m.pop()
			index := m.pop()
			container := m.pop()
			if err := setIndexValue(container, index, value); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.GetIter:
			value := m.pop()
			iterable, ok := value.(object.Iterable)
			if !ok {
				return nil, m.fail(errz.Newf(errz.ErrType, "%s is not iterable", value.Type()))
			}
			if err := m.push(object.NewIter(iterable.Iter())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.ForIter:
			slot := f.base + code.ReadOperand1(f.ip+1)
			iter := m.stack[slot].(*object.Iter)
			if value, ok := iter.Next(); ok {
				m.stack[slot+1] = value
				f.ip += 4
			} else {
				f.ip += 4 + code.ReadOperand2(f.ip+2)
			}
		case op.MakeSome:
			if err := m.push(object.NewSome(m.pop())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.MakeOk:
			if err := m.push(object.NewOk(m.pop())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.MakeErr:
			if err := m.push(object.NewErr(m.pop())); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.Unwrap:
			payload, err := unwrapValue(m.peek())
			if err != nil {
				return nil, m.fail(err)
			}
			if err := m.push(payload); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		case op.MatchLiteral:
			literal := object.FromGoType(code.Constant(code.ReadOperand2(f.ip + 1)))
			if m.peek().Equals(literal) {
				f.ip += 5
			} else {
				f.ip += 5 + code.ReadOperand2(f.ip+3)
			}
		case op.MatchRange:
			lo := object.FromGoType(code.Constant(code.ReadOperand2(f.ip + 1))).(*object.Int)
			hi := object.FromGoType(code.Constant(code.ReadOperand2(f.ip + 3))).(*object.Int)
			inclusive := code.ReadOperand1(f.ip+5) == 1
			matched := false
			if subject, ok := m.peek().(*object.Int); ok {
				n := subject.Value()
				if inclusive {
					matched = n >= lo.Value() && n <= hi.Value()
				} else {
					matched = n >= lo.Value() && n < hi.Value()
				}
			}
			if matched {
				f.ip += 8
			} else {
				f.ip += 8 + code.ReadOperand2(f.ip+6)
			}
		case op.MatchCtor:
			kind := op.CtorType(code.ReadOperand1(f.ip + 1))
			if matchesCtor(m.peek(), kind) {
				f.ip += 4
			} else {
				f.ip += 4 + code.ReadOperand2(f.ip+2)
			}
		case op.MakeClosure:
			fn := code.Constant(code.ReadOperand2(f.ip + 1)).(*bytecode.Function)
			upvalues := make([]*object.Cell, fn.UpvalueCount())
			for i := range upvalues {
				desc := fn.Upvalue(i)
				if desc.FromParent {
					upvalues[i] = m.openCell(f.base + int(desc.Index))
				} else {
					upvalues[i] = f.closure.Upvalue(int(desc.Index))
				}
			}
			if err := m.push(object.NewClosure(fn, upvalues)); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 3
		case op.MakeClass:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			fieldCount := code.ReadOperand1(f.ip + 3)
			methodCount := code.ReadOperand1(f.ip + 4)
			cls, err := m.buildClass(name, fieldCount, methodCount)
			if err != nil {
				return nil, m.fail(err)
			}
			if err := m.push(cls); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 5
		case op.Call:
			argc := code.ReadOperand1(f.ip + 1)
			callIP := f.ip
			f.ip += 2
			if err := m.dispatchCall(ctx, argc); err != nil {
				return nil, m.failAt(err, callIP)
			}
			f = &m.frames[m.fp]
			code = f.code
		case op.CallMethod:
			name := code.NameAt(code.ReadOperand2(f.ip + 1))
			argc := code.ReadOperand1(f.ip + 3)
			callIP := f.ip
			f.ip += 4
			if err := m.dispatchMethod(ctx, name, argc); err != nil {
				return nil, m.failAt(err, callIP)
			}
			f = &m.frames[m.fp]
			code = f.code
		case op.ReturnValue, op.ReturnNil:
			var result object.Object = object.Nil
			if opcode == op.ReturnValue {
				result = m.pop()
			}
			m.closeCells(f.base)
			m.sp = f.popTo
			if f.initInstance != nil {
				result = f.initInstance
			}
			if m.fp == 0 {
				return result, nil
			}
			m.fp--
			f = &m.frames[m.fp]
			code = f.code
			if err := m.push(result); err != nil {
				return nil, m.fail(err)
			}
		case op.Spawn:
			argc := code.ReadOperand1(f.ip + 1)
			callee := m.stack[m.sp-1-argc]
			args := make([]object.Object, argc)
			copy(args, m.stack[m.sp-argc:m.sp])
			task, err := m.scheduler.Spawn(ctx, callee, args)
			if err != nil {
				return nil, m.fail(err)
			}
			m.sp -= argc + 1
			if err := m.push(task); err != nil {
				return nil, m.fail(err)
			}
			f.ip += 2
		case op.Await:
			value := m.pop()
			task, ok := value.(*object.Task)
			if !ok {
				return nil, m.fail(errz.Newf(errz.ErrType, "cannot await %s", value.Type()))
			}
			result, err := m.scheduler.Await(ctx, task)
			if err != nil {
				return nil, m.fail(err)
			}
			if result == nil {
				result = object.Nil
			}
			if err := m.push(result); err != nil {
				return nil, m.fail(err)
			}
			f.ip++
		default:
			return nil, m.fail(errz.Newf(errz.ErrGeneric, "invalid opcode %d", opcode))
		}
	}
}

// dispatchCall invokes the value sitting below argc arguments on the stack.
func (m *Machine) dispatchCall(ctx context.Context, argc int) error {
	calleeSlot := m.sp - 1 - argc
	callee := m.stack[calleeSlot]
	switch fn := callee.(type) {
	case *object.Closure:
		return m.callClosure(fn, argc, calleeSlot+1, calleeSlot, nil)
	case *object.Builtin:
		return m.callBuiltin(ctx, fn, argc, calleeSlot)
	case *object.Class:
		return m.instantiate(fn, argc, calleeSlot)
	default:
		return errz.Newf(errz.ErrNotCallable, "%s is not callable", callee.Type())
	}
}

func (m *Machine) callBuiltin(ctx context.Context, fn *object.Builtin, argc, resultSlot int) error {
	if err := checkBuiltinArity(fn, argc); err != nil {
		return err
	}
	result, err := fn.Call(ctx, m.stack[m.sp-argc:m.sp]...)
	if err != nil {
		return err
	}
	m.sp = resultSlot
	return m.push(result)
}

// instantiate creates an instance of a class. With a designated initializer
// the instance takes the receiver slot and init runs as a method call whose
// return value is discarded in favor of the instance. Without one, the
// arguments fill the declared fields in order.
func (m *Machine) instantiate(cls *object.Class, argc, classSlot int) error {
	instance := object.NewInstance(cls)
	if init := cls.Init(); init != nil {
		m.stack[classSlot] = instance
		return m.callClosure(init, argc+1, classSlot, classSlot, instance)
	}
	fields := cls.FieldNames()
	if argc > len(fields) {
		return errz.Newf(errz.ErrArityMismatch,
			"%s() takes at most %d arguments (%d given)", cls.Name(), len(fields), argc)
	}
	for i := 0; i < argc; i++ {
		instance.SetField(fields[i], m.stack[m.sp-argc+i])
	}
	m.sp = classSlot
	return m.push(instance)
}

// dispatchMethod invokes a named method on the receiver sitting below argc
// arguments. Instance fields shadow class methods, so a field holding a
// closure is called like any other function.
func (m *Machine) dispatchMethod(ctx context.Context, name string, argc int) error {
	recvSlot := m.sp - 1 - argc
	recv := m.stack[recvSlot]
	switch target := recv.(type) {
	case *object.Instance:
		if field, ok := target.GetField(name); ok {
			m.stack[recvSlot] = field
			switch fn := field.(type) {
			case *object.Closure:
				return m.callClosure(fn, argc, recvSlot+1, recvSlot, nil)
			case *object.Builtin:
				return m.callBuiltin(ctx, fn, argc, recvSlot)
			default:
				return errz.Newf(errz.ErrNotCallable, "field %q is not callable", name)
			}
		}
		if method, ok := target.Class().Method(name); ok {
			// The receiver slot doubles as the method's self parameter.
			return m.callClosure(method, argc+1, recvSlot, recvSlot, nil)
		}
		return errz.Newf(errz.ErrUnknownField,
			"%s has no field or method %q", target.Class().Name(), name)
	case *object.List:
		return m.listMethod(target, name, argc, recvSlot)
	default:
		return errz.Newf(errz.ErrUnknownField, "%s has no method %q", recv.Type(), name)
	}
}

// listMethod implements the builtin-backed methods on lists.
func (m *Machine) listMethod(list *object.List, name string, argc, recvSlot int) error {
	var result object.Object
	switch name {
	case "push":
		if argc != 1 {
			return errz.Newf(errz.ErrArityMismatch, "push() takes 1 argument (%d given)", argc)
		}
		list.Append(m.stack[m.sp-1])
		result = object.Nil
	case "pop":
		if argc != 0 {
			return errz.Newf(errz.ErrArityMismatch, "pop() takes 0 arguments (%d given)", argc)
		}
		value, ok := list.Pop()
		if !ok {
			return errz.New(errz.ErrIndexOutOfBounds, "pop() on empty list")
		}
		result = value
	default:
		return errz.Newf(errz.ErrUnknownField, "list has no method %q", name)
	}
	m.sp = recvSlot
	return m.push(result)
}

// buildClass pops the name and value pairs pushed by the compiler, fields
// first and then methods, and assembles the class.
func (m *Machine) buildClass(name string, fieldCount, methodCount int) (*object.Class, error) {
	methods := make(map[string]*object.Closure, methodCount)
	for i := 0; i < methodCount; i++ {
		value := m.pop()
		key := m.pop()
		closure, ok := value.(*object.Closure)
		if !ok {
			return nil, errz.Newf(errz.ErrType, "method value must be a function (%s given)", value.Type())
		}
		methods[key.(*object.String).Value()] = closure
	}
	fieldNames := make([]string, fieldCount)
	defaults := make(map[string]object.Object, fieldCount)
	for i := fieldCount - 1; i >= 0; i-- {
		value := m.pop()
		key := m.pop()
		fieldName := key.(*object.String).Value()
		fieldNames[i] = fieldName
		defaults[fieldName] = value
	}
	return object.NewClass(name, fieldNames, defaults, methods), nil
}

func (m *Machine) loadAttr(obj object.Object, name string) (object.Object, error) {
	instance, ok := obj.(*object.Instance)
	if !ok {
		return nil, errz.Newf(errz.ErrType, "%s has no fields", obj.Type())
	}
	if value, ok := instance.GetField(name); ok {
		return value, nil
	}
	return nil, errz.Newf(errz.ErrUnknownField,
		"%s has no field %q", instance.Class().Name(), name)
}

// indexValue implements subscript reads. Negative indices count from the
// end of lists and strings.
func indexValue(container, index object.Object) (object.Object, error) {
	switch c := container.(type) {
	case *object.List:
		i, err := normalizeIndex(index, c.Len())
		if err != nil {
			return nil, err
		}
		return c.Get(i), nil
	case *object.String:
		runes := []rune(c.Value())
		i, err := normalizeIndex(index, len(runes))
		if err != nil {
			return nil, err
		}
		return object.NewString(string(runes[i])), nil
	case *object.Range:
		i, err := normalizeIndex(index, c.Len())
		if err != nil {
			return nil, err
		}
		return object.NewInt(c.Start() + int64(i)), nil
	default:
		return nil, errz.Newf(errz.ErrType, "%s is not indexable", container.Type())
	}
}

func setIndexValue(container, index, value object.Object) error {
	list, ok := container.(*object.List)
	if !ok {
		return errz.Newf(errz.ErrType, "cannot assign by index into %s", container.Type())
	}
	i, err := normalizeIndex(index, list.Len())
	if err != nil {
		return err
	}
	list.Set(i, value)
	return nil
}

func normalizeIndex(index object.Object, length int) (int, error) {
	n, ok := index.(*object.Int)
	if !ok {
		return 0, errz.Newf(errz.ErrType, "index must be an int (%s given)", index.Type())
	}
	i := n.Value()
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, errz.Newf(errz.ErrIndexOutOfBounds,
			"index %d out of bounds (length %d)", n.Value(), length)
	}
	return int(i), nil
}

func unwrapValue(value object.Object) (object.Object, error) {
	switch v := value.(type) {
	case *object.Some:
		return v.Value(), nil
	case *object.Ok:
		return v.Value(), nil
	case *object.Err:
		return v.Value(), nil
	default:
		return nil, errz.Newf(errz.ErrType, "cannot unwrap %s", value.Type())
	}
}

func matchesCtor(value object.Object, kind op.CtorType) bool {
	switch kind {
	case op.CtorSome:
		_, ok := value.(*object.Some)
		return ok
	case op.CtorNone:
		return value == object.Nil
	case op.CtorOk:
		_, ok := value.(*object.Ok)
		return ok
	case op.CtorErr:
		_, ok := value.(*object.Err)
		return ok
	}
	return false
}

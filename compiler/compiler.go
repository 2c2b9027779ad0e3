// Package compiler lowers a Neba syntax tree to byte-encoded instructions.
//
// Compilation is a single pass over the AST. Each lexical function gets its
// own instruction stream, constant pool, and name table; nested functions
// become *bytecode.Function constants in their parent's pool, instantiated
// at runtime by MAKE_CLOSURE.
//
// Local variables live directly on the value stack of the executing frame.
// The compiler simulates the stack depth of every emitted instruction and
// pins a local to the slot its initial value occupies, so variable access
// compiles to a frame-relative slot index with no separate environment.
package compiler

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/deepnoodle-ai/neba/ast"
	"github.com/deepnoodle-ai/neba/bytecode"
	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/op"
)

// Option is a configuration function for the compiler.
type Option func(*Compiler)

// WithFilename sets the filename recorded in source locations.
func WithFilename(filename string) Option {
	return func(c *Compiler) {
		c.filename = filename
	}
}

// Compiler lowers an *ast.Program to a *bytecode.Code.
type Compiler struct {
	filename string

	// fc is the function currently being compiled. Entering a nested
	// function pushes a new functionCompiler whose parent is the current
	// one; leaving pops back.
	fc *functionCompiler
}

// New creates a new compiler with the given options.
func New(opts ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers a program using a compiler built from the given options.
func Compile(program *ast.Program, opts ...Option) (*bytecode.Code, error) {
	return New(opts...).Compile(program)
}

// Compile lowers the program body to executable code. Each top-level
// statement is compiled independently so that one bad statement does not
// hide errors in the others; all compile errors are returned together.
//
// The value of the final top-level expression statement is left on the
// stack when HALT executes. It becomes the program result.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Code, error) {
	c.fc = newFunctionCompiler(nil, "main")
	var errs *multierror.Error
	for i, stmt := range program.Stmts {
		var err error
		if i == len(program.Stmts)-1 {
			err = c.compileTailStmt(stmt)
		} else {
			err = c.compileStatement(stmt)
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if len(program.Stmts) == 0 {
		c.fc.emit(op.Nil)
	}
	c.fc.emit(op.Halt)
	return bytecode.NewCode(bytecode.CodeParams{
		ID:           newID(),
		Name:         c.fc.name,
		Instructions: c.fc.instructions,
		Constants:    c.fc.constants,
		Names:        c.fc.names,
		LocalNames:   c.fc.localNames,
		Locations:    c.fc.locations,
	}), nil
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func (c *Compiler) errorf(node ast.Node, kind errz.ErrorKind, format string, args ...any) error {
	return errz.Newf(kind, format, args...).At(c.location(node))
}

func (c *Compiler) location(node ast.Node) errz.SourceLocation {
	pos := node.Pos()
	return errz.SourceLocation{
		File:   c.filename,
		Line:   pos.LineNumber(),
		Column: pos.ColumnNumber(),
	}
}

func (c *Compiler) setLocation(node ast.Node) {
	c.fc.curLoc = c.location(node)
}

// atRoot reports whether compilation is at program top level, where let and
// fn bind globals rather than stack locals.
func (c *Compiler) atRoot() bool {
	return c.fc.parent == nil && c.fc.scopeDepth == 0
}

func (c *Compiler) compileStatement(stmt ast.Stmt) error {
	c.setLocation(stmt)
	switch s := stmt.(type) {
	case *ast.Let:
		return c.compileLet(s)
	case *ast.Assign:
		return c.compileAssign(s)
	case *ast.ExprStmt:
		if err := c.compileExpression(s.X); err != nil {
			return err
		}
		c.fc.emit(op.Pop)
		return nil
	case *ast.Return:
		return c.compileReturn(s)
	case *ast.If:
		if err := c.compileIf(s); err != nil {
			return err
		}
		c.fc.emit(op.Pop)
		return nil
	case *ast.Match:
		if err := c.compileMatch(s); err != nil {
			return err
		}
		c.fc.emit(op.Pop)
		return nil
	case *ast.While:
		return c.compileWhile(s)
	case *ast.For:
		return c.compileFor(s)
	case *ast.Break:
		return c.compileBreak(s)
	case *ast.Continue:
		return c.compileContinue(s)
	case *ast.Block:
		return c.compileBlockStmt(s)
	case *ast.FuncStmt:
		return c.compileFuncStmt(s)
	case *ast.Class:
		return c.compileClass(s)
	default:
		return c.errorf(stmt, errz.ErrCompile, "unsupported statement type %T", stmt)
	}
}

// compileTailStmt compiles the final statement of a value-producing block.
// Expression statements keep their value on the stack instead of popping it,
// and if and match in tail position compile as expressions. Any other
// statement form runs for effect and the block produces nil.
func (c *Compiler) compileTailStmt(stmt ast.Stmt) error {
	c.setLocation(stmt)
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return c.compileExpression(s.X)
	case *ast.If:
		return c.compileIf(s)
	case *ast.Match:
		return c.compileMatch(s)
	default:
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
		c.fc.emit(op.Nil)
		return nil
	}
}

func (c *Compiler) compileLet(s *ast.Let) error {
	if err := c.compileExpression(s.Value); err != nil {
		return err
	}
	c.setLocation(s)
	if c.atRoot() {
		idx, err := c.fc.addName(s.Name)
		if err != nil {
			return err
		}
		c.fc.emit(op.DefineGlobal, idx, boolOperand(s.Mutable))
		return nil
	}
	_, err := c.fc.defineLocal(s.Name, s.Mutable)
	return err
}

func (c *Compiler) compileAssign(s *ast.Assign) error {
	switch target := s.Target.(type) {
	case *ast.Ident:
		return c.compileAssignIdent(s, target)
	case *ast.Index:
		return c.compileAssignIndex(s, target)
	case *ast.Attr:
		return c.compileAssignAttr(s, target)
	default:
		return c.errorf(s, errz.ErrCompile, "cannot assign to %s", s.Target.String())
	}
}

func (c *Compiler) compileAssignIdent(s *ast.Assign, target *ast.Ident) error {
	compound := s.Op != "="
	binop := op.Add
	if compound {
		var err error
		binop, err = binaryOpType(s.Op[:len(s.Op)-1])
		if err != nil {
			return c.errorf(s, errz.ErrCompile, "unsupported assignment operator %q", s.Op)
		}
	}
	if l, ok := c.fc.resolveLocal(target.Name); ok {
		if !l.mutable {
			return c.errorf(s, errz.ErrAssign,
				"cannot assign to immutable variable %q", target.Name)
		}
		slot := l.slot
		if compound {
			c.fc.emit(op.LoadLocal, slot)
		}
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.setLocation(s)
		if compound {
			c.fc.emit(op.BinaryOp, int(binop))
		}
		c.fc.emit(op.StoreLocal, slot)
		return nil
	}
	if idx, mutable, ok, err := c.fc.resolveUpvalue(target.Name); err != nil {
		return err
	} else if ok {
		if !mutable {
			return c.errorf(s, errz.ErrAssign,
				"cannot assign to immutable variable %q", target.Name)
		}
		if compound {
			c.fc.emit(op.LoadUpvalue, idx)
		}
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.setLocation(s)
		if compound {
			c.fc.emit(op.BinaryOp, int(binop))
		}
		c.fc.emit(op.StoreUpvalue, idx)
		return nil
	}
	// Globals carry their mutability at runtime, so the check happens in
	// the machine rather than here.
	nameIdx, err := c.fc.addName(target.Name)
	if err != nil {
		return err
	}
	if compound {
		c.fc.emit(op.LoadGlobal, nameIdx)
	}
	if err := c.compileExpression(s.Value); err != nil {
		return err
	}
	c.setLocation(s)
	if compound {
		c.fc.emit(op.BinaryOp, int(binop))
	}
	c.fc.emit(op.StoreGlobal, nameIdx)
	return nil
}

// compileAssignIndex lowers "x[i] = v" and its compound forms. Compound
// assignment evaluates the container and index expressions twice: once to
// read the current element and once for the store.
func (c *Compiler) compileAssignIndex(s *ast.Assign, target *ast.Index) error {
	if err := c.compileExpression(target.X); err != nil {
		return err
	}
	if err := c.compileExpression(target.Index); err != nil {
		return err
	}
	if s.Op != "=" {
		binop, err := binaryOpType(s.Op[:len(s.Op)-1])
		if err != nil {
			return c.errorf(s, errz.ErrCompile, "unsupported assignment operator %q", s.Op)
		}
		if err := c.compileExpression(target.X); err != nil {
			return err
		}
		if err := c.compileExpression(target.Index); err != nil {
			return err
		}
		c.setLocation(s)
		c.fc.emit(op.Index)
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.setLocation(s)
		c.fc.emit(op.BinaryOp, int(binop))
	} else {
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
	}
	c.setLocation(s)
	c.fc.emit(op.SetIndex)
	return nil
}

func (c *Compiler) compileAssignAttr(s *ast.Assign, target *ast.Attr) error {
	nameIdx, err := c.fc.addName(target.Name)
	if err != nil {
		return err
	}
	if err := c.compileExpression(target.X); err != nil {
		return err
	}
	if s.Op != "=" {
		binop, err := binaryOpType(s.Op[:len(s.Op)-1])
		if err != nil {
			return c.errorf(s, errz.ErrCompile, "unsupported assignment operator %q", s.Op)
		}
		if err := c.compileExpression(target.X); err != nil {
			return err
		}
		c.setLocation(s)
		c.fc.emit(op.LoadAttr, nameIdx)
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.setLocation(s)
		c.fc.emit(op.BinaryOp, int(binop))
	} else {
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
	}
	c.setLocation(s)
	c.fc.emit(op.StoreAttr, nameIdx)
	return nil
}

func (c *Compiler) compileReturn(s *ast.Return) error {
	if c.fc.parent == nil {
		return c.errorf(s, errz.ErrCompile, "return outside of a function")
	}
	saved := c.fc.stackHeight
	if s.Value == nil {
		c.fc.emit(op.ReturnNil)
	} else {
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.setLocation(s)
		c.fc.emit(op.ReturnValue)
	}
	// Control never reaches the instruction after a return, so the
	// simulated height resumes from the pre-return depth.
	c.fc.stackHeight = saved
	return nil
}

func (c *Compiler) compileWhile(s *ast.While) error {
	condStart := len(c.fc.instructions)
	if err := c.compileExpression(s.Cond); err != nil {
		return err
	}
	c.setLocation(s)
	exitJump := c.fc.emitJump(op.PopJumpForwardIfFalse)
	l := &loop{continueTarget: condStart, baseHeight: c.fc.stackHeight}
	c.fc.loops = append(c.fc.loops, l)
	if err := c.compileBlockStmt(s.Body); err != nil {
		return err
	}
	c.fc.loops = c.fc.loops[:len(c.fc.loops)-1]
	if err := c.fc.emitBackwardJump(condStart); err != nil {
		return err
	}
	if err := c.fc.patchJump(exitJump); err != nil {
		return err
	}
	for _, pos := range l.breakPatches {
		if err := c.fc.patchJump(pos); err != nil {
			return err
		}
	}
	return nil
}

// compileFor lowers iteration over a list, range, or string. A hidden scope
// holds two locals: the iterator produced by GET_ITER and the loop variable,
// which FOR_ITER refreshes on each pass. FOR_ITER checks for exhaustion
// before the body runs, so an empty iterable skips the body entirely.
func (c *Compiler) compileFor(s *ast.For) error {
	c.fc.enterScope()
	if err := c.compileExpression(s.Iterable); err != nil {
		return err
	}
	c.setLocation(s)
	c.fc.emit(op.GetIter)
	iterSlot, err := c.fc.defineLocal("(iter)", false)
	if err != nil {
		return err
	}
	c.fc.emit(op.Nil)
	if _, err := c.fc.defineLocal(s.Var, true); err != nil {
		return err
	}
	loopStart := len(c.fc.instructions)
	forIter := c.fc.emitJump(op.ForIter, iterSlot)
	l := &loop{continueTarget: loopStart, baseHeight: c.fc.stackHeight}
	c.fc.loops = append(c.fc.loops, l)
	if err := c.compileBlockStmt(s.Body); err != nil {
		return err
	}
	c.fc.loops = c.fc.loops[:len(c.fc.loops)-1]
	if err := c.fc.emitBackwardJump(loopStart); err != nil {
		return err
	}
	if err := c.fc.patchJump(forIter); err != nil {
		return err
	}
	for _, pos := range l.breakPatches {
		if err := c.fc.patchJump(pos); err != nil {
			return err
		}
	}
	c.fc.leaveScope(false)
	return nil
}

func (c *Compiler) compileBreak(s *ast.Break) error {
	if len(c.fc.loops) == 0 {
		return c.errorf(s, errz.ErrCompile, "break outside of a loop")
	}
	l := c.fc.loops[len(c.fc.loops)-1]
	c.fc.discardTo(l.baseHeight)
	l.breakPatches = append(l.breakPatches, c.fc.emitJump(op.JumpForward))
	return nil
}

func (c *Compiler) compileContinue(s *ast.Continue) error {
	if len(c.fc.loops) == 0 {
		return c.errorf(s, errz.ErrCompile, "continue outside of a loop")
	}
	l := c.fc.loops[len(c.fc.loops)-1]
	c.fc.discardTo(l.baseHeight)
	return c.fc.emitBackwardJump(l.continueTarget)
}

// compileBlockStmt compiles a block in statement position. Every statement
// runs for effect and the block's locals are popped on exit.
func (c *Compiler) compileBlockStmt(b *ast.Block) error {
	c.fc.enterScope()
	for _, stmt := range b.Stmts {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.fc.leaveScope(false)
	return nil
}

// compileBlockValue compiles a block in value position. The final
// expression statement provides the block's value; its locals are popped
// from beneath that value on exit.
func (c *Compiler) compileBlockValue(b *ast.Block) error {
	c.fc.enterScope()
	if len(b.Stmts) == 0 {
		c.fc.emit(op.Nil)
	} else {
		for _, stmt := range b.Stmts[:len(b.Stmts)-1] {
			if err := c.compileStatement(stmt); err != nil {
				return err
			}
		}
		if err := c.compileTailStmt(b.Stmts[len(b.Stmts)-1]); err != nil {
			return err
		}
	}
	c.fc.leaveScope(true)
	return nil
}

func (c *Compiler) compileExpression(expr ast.Expr) error {
	c.setLocation(expr)
	switch x := expr.(type) {
	case *ast.Int:
		idx, err := c.fc.addConstant(x.Value)
		if err != nil {
			return err
		}
		c.fc.emit(op.LoadConst, idx)
		return nil
	case *ast.Float:
		idx, err := c.fc.addConstant(x.Value)
		if err != nil {
			return err
		}
		c.fc.emit(op.LoadConst, idx)
		return nil
	case *ast.Bool:
		if x.Value {
			c.fc.emit(op.True)
		} else {
			c.fc.emit(op.False)
		}
		return nil
	case *ast.Nil:
		c.fc.emit(op.Nil)
		return nil
	case *ast.String:
		idx, err := c.fc.addConstant(x.Value)
		if err != nil {
			return err
		}
		c.fc.emit(op.LoadConst, idx)
		return nil
	case *ast.StringTemplate:
		return c.compileStringTemplate(x)
	case *ast.List:
		return c.compileList(x)
	case *ast.Ident:
		return c.compileIdent(x)
	case *ast.Prefix:
		return c.compilePrefix(x)
	case *ast.Infix:
		return c.compileInfix(x)
	case *ast.RangeExpr:
		return c.compileRange(x)
	case *ast.If:
		return c.compileIf(x)
	case *ast.Match:
		return c.compileMatch(x)
	case *ast.Call:
		return c.compileCall(x)
	case *ast.Attr:
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		idx, err := c.fc.addName(x.Name)
		if err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.LoadAttr, idx)
		return nil
	case *ast.Index:
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		if err := c.compileExpression(x.Index); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.Index)
		return nil
	case *ast.Some:
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.MakeSome)
		return nil
	case *ast.Ok:
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.MakeOk)
		return nil
	case *ast.Err:
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.MakeErr)
		return nil
	case *ast.Func:
		return c.compileFunc(x, x.Name)
	case *ast.Spawn:
		return c.compileSpawn(x)
	case *ast.Await:
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.Await)
		return nil
	default:
		return c.errorf(expr, errz.ErrCompile, "unsupported expression type %T", expr)
	}
}

func (c *Compiler) compileIdent(x *ast.Ident) error {
	if l, ok := c.fc.resolveLocal(x.Name); ok {
		c.fc.emit(op.LoadLocal, l.slot)
		return nil
	}
	if idx, _, ok, err := c.fc.resolveUpvalue(x.Name); err != nil {
		return err
	} else if ok {
		c.fc.emit(op.LoadUpvalue, idx)
		return nil
	}
	idx, err := c.fc.addName(x.Name)
	if err != nil {
		return err
	}
	c.fc.emit(op.LoadGlobal, idx)
	return nil
}

func (c *Compiler) compilePrefix(x *ast.Prefix) error {
	if err := c.compileExpression(x.X); err != nil {
		return err
	}
	c.setLocation(x)
	switch x.Op {
	case "-":
		c.fc.emit(op.UnaryNegate)
	case "!", "not":
		c.fc.emit(op.UnaryNot)
	case "~":
		c.fc.emit(op.UnaryInvert)
	default:
		return c.errorf(x, errz.ErrCompile, "unsupported prefix operator %q", x.Op)
	}
	return nil
}

func (c *Compiler) compileInfix(x *ast.Infix) error {
	switch x.Op {
	case "and", "or":
		return c.compileShortCircuit(x)
	case "in", "not in":
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		if err := c.compileExpression(x.Y); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.ContainsOp, boolOperand(x.Op == "not in"))
		return nil
	case "is":
		if err := c.compileExpression(x.X); err != nil {
			return err
		}
		if err := c.compileExpression(x.Y); err != nil {
			return err
		}
		c.setLocation(x)
		c.fc.emit(op.Is)
		return nil
	}
	if err := c.compileExpression(x.X); err != nil {
		return err
	}
	if err := c.compileExpression(x.Y); err != nil {
		return err
	}
	c.setLocation(x)
	if cmp, err := compareOpType(x.Op); err == nil {
		c.fc.emit(op.CompareOp, int(cmp))
		return nil
	}
	bin, err := binaryOpType(x.Op)
	if err != nil {
		return c.errorf(x, errz.ErrCompile, "unsupported infix operator %q", x.Op)
	}
	c.fc.emit(op.BinaryOp, int(bin))
	return nil
}

// compileShortCircuit lowers "and" and "or". The left operand's value is
// the expression result when it decides the outcome, so the jump peeks at
// it rather than popping, and the pop happens only on the fall-through path
// that evaluates the right operand.
func (c *Compiler) compileShortCircuit(x *ast.Infix) error {
	if err := c.compileExpression(x.X); err != nil {
		return err
	}
	c.setLocation(x)
	jumpOp := op.JumpForwardIfFalsePeek
	if x.Op == "or" {
		jumpOp = op.JumpForwardIfTruePeek
	}
	skip := c.fc.emitJump(jumpOp)
	c.fc.emit(op.Pop)
	if err := c.compileExpression(x.Y); err != nil {
		return err
	}
	return c.fc.patchJump(skip)
}

func (c *Compiler) compileRange(x *ast.RangeExpr) error {
	if err := c.compileExpression(x.Start); err != nil {
		return err
	}
	if err := c.compileExpression(x.End); err != nil {
		return err
	}
	c.setLocation(x)
	c.fc.emit(op.MakeRange, boolOperand(x.Inclusive))
	return nil
}

func (c *Compiler) compileStringTemplate(x *ast.StringTemplate) error {
	if len(x.Parts) > maxJumpDelta {
		return c.errorf(x, errz.ErrCompile, "string template exceeds part limit")
	}
	for _, part := range x.Parts {
		if str, ok := part.(*ast.String); ok {
			idx, err := c.fc.addConstant(str.Value)
			if err != nil {
				return err
			}
			c.fc.emit(op.LoadConst, idx)
			continue
		}
		if err := c.compileExpression(part); err != nil {
			return err
		}
		c.setLocation(part)
		c.fc.emit(op.ToString)
	}
	c.setLocation(x)
	c.fc.emit(op.BuildString, len(x.Parts))
	return nil
}

func (c *Compiler) compileList(x *ast.List) error {
	if len(x.Items) > maxJumpDelta {
		return c.errorf(x, errz.ErrCompile, "list literal exceeds element limit")
	}
	for _, item := range x.Items {
		if err := c.compileExpression(item); err != nil {
			return err
		}
	}
	c.setLocation(x)
	c.fc.emit(op.BuildList, len(x.Items))
	return nil
}

// compileIf lowers a conditional in expression position. A missing else
// branch produces nil, and an *ast.If alternative chains directly for
// "else if" without an extra block.
func (c *Compiler) compileIf(x *ast.If) error {
	if err := c.compileExpression(x.Cond); err != nil {
		return err
	}
	c.setLocation(x)
	elseJump := c.fc.emitJump(op.PopJumpForwardIfFalse)
	base := c.fc.stackHeight
	if err := c.compileBlockValue(x.Consequence); err != nil {
		return err
	}
	endJump := c.fc.emitJump(op.JumpForward)
	if err := c.fc.patchJump(elseJump); err != nil {
		return err
	}
	c.fc.stackHeight = base
	switch alt := x.Alternative.(type) {
	case nil:
		c.fc.emit(op.Nil)
	case *ast.Block:
		if err := c.compileBlockValue(alt); err != nil {
			return err
		}
	case *ast.If:
		if err := c.compileIf(alt); err != nil {
			return err
		}
	default:
		return c.errorf(x, errz.ErrCompile, "unsupported else branch type %T", alt)
	}
	if err := c.fc.patchJump(endJump); err != nil {
		return err
	}
	c.fc.stackHeight = base + 1
	return nil
}

// compileMatch lowers a match expression. The subject is evaluated once and
// stays on the stack while arms test it in order with peeking MATCH_*
// instructions; a failed test jumps to the next arm's tests. A matching
// arm's body runs with the subject (and any unwrapped payload) still below
// it as bound locals, then POP_UNDER removes them from beneath the arm's
// value. When no arm matches, the subject is popped and the expression
// produces nil.
func (c *Compiler) compileMatch(x *ast.Match) error {
	if err := c.compileExpression(x.Subject); err != nil {
		return err
	}
	subjectHeight := c.fc.stackHeight
	var endPatches []int
	for _, arm := range x.Arms {
		c.fc.stackHeight = subjectHeight
		c.setLocation(arm.Pattern)
		failPatches, err := c.compilePatternTest(arm.Pattern)
		if err != nil {
			return err
		}
		c.fc.enterScope()
		if err := c.compilePatternBind(arm.Pattern); err != nil {
			return err
		}
		if err := c.compileBlockValue(arm.Body); err != nil {
			return err
		}
		// Unbind the arm's pattern locals without emitting: the single
		// POP_UNDER below removes them and the subject together.
		count := c.fc.scopeLocalCount()
		c.fc.locals = c.fc.locals[:len(c.fc.locals)-count]
		c.fc.scopeDepth--
		c.fc.emit(op.PopUnder, c.fc.stackHeight-subjectHeight)
		endPatches = append(endPatches, c.fc.emitJump(op.JumpForward))
		for _, pos := range failPatches {
			if err := c.fc.patchJump(pos); err != nil {
				return err
			}
		}
	}
	c.fc.stackHeight = subjectHeight
	c.fc.emit(op.Pop)
	c.fc.emit(op.Nil)
	for _, pos := range endPatches {
		if err := c.fc.patchJump(pos); err != nil {
			return err
		}
	}
	return nil
}

// compilePatternTest emits the instructions that test the subject on top of
// the stack against the pattern, returning jump offsets to patch to the
// next arm on failure. Wildcards and bindings always match and emit nothing.
func (c *Compiler) compilePatternTest(p ast.Pattern) ([]int, error) {
	switch pat := p.(type) {
	case *ast.PatternWildcard, *ast.PatternBinding:
		return nil, nil
	case *ast.PatternLiteral:
		value, err := c.literalValue(pat.Value)
		if err != nil {
			return nil, err
		}
		idx, err := c.fc.addConstant(value)
		if err != nil {
			return nil, err
		}
		return []int{c.fc.emitJump(op.MatchLiteral, idx)}, nil
	case *ast.PatternRange:
		lo, err := c.intLiteralValue(pat.Start)
		if err != nil {
			return nil, err
		}
		hi, err := c.intLiteralValue(pat.End)
		if err != nil {
			return nil, err
		}
		loIdx, err := c.fc.addConstant(lo)
		if err != nil {
			return nil, err
		}
		hiIdx, err := c.fc.addConstant(hi)
		if err != nil {
			return nil, err
		}
		return []int{c.fc.emitJump(op.MatchRange, loIdx, hiIdx, boolOperand(pat.Inclusive))}, nil
	case *ast.PatternCtor:
		switch pat.Inner.(type) {
		case nil, *ast.PatternWildcard, *ast.PatternBinding:
		default:
			return nil, c.errorf(pat, errz.ErrCompile,
				"constructor patterns accept only a binding or wildcard payload")
		}
		return []int{c.fc.emitJump(op.MatchCtor, int(ctorType(pat.Kind)))}, nil
	default:
		return nil, c.errorf(p, errz.ErrCompile, "unsupported pattern type %T", p)
	}
}

// compilePatternBind binds pattern variables after the tests have passed.
// A top-level binding adopts the subject's own slot as the new local. A
// constructor payload binding unwraps a copy of the payload above the
// subject and binds that.
func (c *Compiler) compilePatternBind(p ast.Pattern) error {
	switch pat := p.(type) {
	case *ast.PatternBinding:
		_, err := c.fc.defineLocal(pat.Name, false)
		return err
	case *ast.PatternCtor:
		if inner, ok := pat.Inner.(*ast.PatternBinding); ok {
			c.fc.emit(op.Unwrap)
			_, err := c.fc.defineLocal(inner.Name, false)
			return err
		}
		return nil
	default:
		return nil
	}
}

func (c *Compiler) compileCall(x *ast.Call) error {
	if len(x.Args) > 255 {
		return c.errorf(x, errz.ErrCompile, "call exceeds 255 arguments")
	}
	if attr, ok := x.Fn.(*ast.Attr); ok {
		if err := c.compileExpression(attr.X); err != nil {
			return err
		}
		nameIdx, err := c.fc.addName(attr.Name)
		if err != nil {
			return err
		}
		for _, arg := range x.Args {
			if err := c.compileExpression(arg); err != nil {
				return err
			}
		}
		c.setLocation(x)
		c.fc.emit(op.CallMethod, nameIdx, len(x.Args))
		return nil
	}
	if err := c.compileExpression(x.Fn); err != nil {
		return err
	}
	for _, arg := range x.Args {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	c.setLocation(x)
	c.fc.emit(op.Call, len(x.Args))
	return nil
}

func (c *Compiler) compileSpawn(x *ast.Spawn) error {
	call := x.Call
	if len(call.Args) > 255 {
		return c.errorf(x, errz.ErrCompile, "call exceeds 255 arguments")
	}
	if err := c.compileExpression(call.Fn); err != nil {
		return err
	}
	for _, arg := range call.Args {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	c.setLocation(x)
	c.fc.emit(op.Spawn, len(call.Args))
	return nil
}

// compileFunc compiles a function literal into a *bytecode.Function
// constant of the enclosing function and emits MAKE_CLOSURE for it.
func (c *Compiler) compileFunc(fn *ast.Func, name string) error {
	return c.compileFunction(fn, name, false)
}

// compileFunction handles both plain functions and methods. A method gets
// an implicit "self" parameter in slot zero; CALL_METHOD leaves the
// receiver on the stack directly below the arguments, which is exactly
// where the frame expects its first parameter.
func (c *Compiler) compileFunction(fn *ast.Func, name string, method bool) error {
	if len(fn.Params) > 255 {
		return c.errorf(fn, errz.ErrCompile, "function exceeds 255 parameters")
	}
	child := newFunctionCompiler(c.fc, name)
	child.curLoc = c.location(fn)
	paramCount := len(fn.Params)
	if method {
		paramCount++
	}
	params := make([]string, 0, paramCount)
	defaults := make([]any, paramCount)
	if method {
		params = append(params, "self")
		child.stackHeight++
		if _, err := child.defineLocal("self", false); err != nil {
			return err
		}
	}
	sawDefault := false
	for _, p := range fn.Params {
		i := len(params)
		params = append(params, p.Name)
		if p.Default != nil {
			value, err := c.literalValue(p.Default)
			if err != nil {
				return c.errorf(p.Default, errz.ErrCompile,
					"default value for parameter %q must be a literal", p.Name)
			}
			if value == nil {
				return c.errorf(p.Default, errz.ErrCompile,
					"default value for parameter %q must not be nil", p.Name)
			}
			defaults[i] = value
			sawDefault = true
		} else if sawDefault {
			return c.errorf(fn, errz.ErrCompile,
				"required parameter %q follows a parameter with a default", p.Name)
		}
		// Arguments occupy the frame's first slots at call time.
		child.stackHeight++
		if _, err := child.defineLocal(p.Name, true); err != nil {
			return err
		}
	}
	c.fc = child
	var bodyErr error
	if fn.BodyExpr != nil {
		bodyErr = c.compileExpression(fn.BodyExpr)
	} else if fn.Body != nil {
		bodyErr = c.compileBlockValue(fn.Body)
	} else {
		child.emit(op.Nil)
	}
	if bodyErr == nil {
		child.emit(op.ReturnValue)
	}
	c.fc = child.parent
	if bodyErr != nil {
		return bodyErr
	}
	id := newID()
	code := bytecode.NewCode(bytecode.CodeParams{
		ID:           id,
		Name:         name,
		Instructions: child.instructions,
		Constants:    child.constants,
		Names:        child.names,
		LocalNames:   child.localNames,
		Locations:    child.locations,
	})
	upvalues := make([]bytecode.UpvalueDesc, 0, len(child.upvalues))
	for _, uv := range child.upvalues {
		upvalues = append(upvalues, bytecode.UpvalueDesc{
			FromParent: uv.fromParent,
			Index:      uint8(uv.index),
		})
	}
	function := bytecode.NewFunction(bytecode.FunctionParams{
		ID:         id,
		Name:       name,
		Parameters: params,
		Defaults:   defaults,
		Code:       code,
		Upvalues:   upvalues,
	})
	idx, err := c.fc.addFunctionConstant(function)
	if err != nil {
		return err
	}
	c.setLocation(fn)
	c.fc.emit(op.MakeClosure, idx)
	return nil
}

// compileFuncStmt lowers a named function declaration. At top level the
// closure binds to an immutable global, which also gives the body access to
// itself for recursion. Inside a function the local slot is reserved with
// nil before the closure is built, so the body can capture its own binding
// as an upvalue.
func (c *Compiler) compileFuncStmt(s *ast.FuncStmt) error {
	fn := s.Fn
	if c.atRoot() {
		if err := c.compileFunc(fn, fn.Name); err != nil {
			return err
		}
		idx, err := c.fc.addName(fn.Name)
		if err != nil {
			return err
		}
		c.setLocation(s)
		c.fc.emit(op.DefineGlobal, idx, 0)
		return nil
	}
	c.setLocation(s)
	c.fc.emit(op.Nil)
	slot, err := c.fc.defineLocal(fn.Name, false)
	if err != nil {
		return err
	}
	if err := c.compileFunc(fn, fn.Name); err != nil {
		return err
	}
	c.setLocation(s)
	c.fc.emit(op.StoreLocal, slot)
	return nil
}

// compileClass lowers a class declaration. Field name and default value
// pairs are pushed first, then method name and closure pairs, and
// MAKE_CLASS assembles them. Field defaults are ordinary expressions
// evaluated once, when the declaration executes.
func (c *Compiler) compileClass(s *ast.Class) error {
	if len(s.Fields) > 255 || len(s.Methods) > 255 {
		return c.errorf(s, errz.ErrCompile,
			"class %q exceeds 255 fields or methods", s.Name)
	}
	nameIdx, err := c.fc.addName(s.Name)
	if err != nil {
		return err
	}
	for _, field := range s.Fields {
		idx, err := c.fc.addConstant(field.Name)
		if err != nil {
			return err
		}
		c.setLocation(field)
		c.fc.emit(op.LoadConst, idx)
		if field.Default == nil {
			c.fc.emit(op.Nil)
		} else if err := c.compileExpression(field.Default); err != nil {
			return err
		}
	}
	for _, method := range s.Methods {
		idx, err := c.fc.addConstant(method.Name)
		if err != nil {
			return err
		}
		c.setLocation(method)
		c.fc.emit(op.LoadConst, idx)
		if err := c.compileFunction(method, method.Name, true); err != nil {
			return err
		}
	}
	c.setLocation(s)
	c.fc.emit(op.MakeClass, nameIdx, len(s.Fields), len(s.Methods))
	if c.atRoot() {
		idx, err := c.fc.addName(s.Name)
		if err != nil {
			return err
		}
		c.fc.emit(op.DefineGlobal, idx, 0)
		return nil
	}
	_, err = c.fc.defineLocal(s.Name, false)
	return err
}

// literalValue extracts the Go value of a literal expression, for pattern
// constants and parameter defaults.
func (c *Compiler) literalValue(expr ast.Expr) (any, error) {
	switch x := expr.(type) {
	case *ast.Int:
		return x.Value, nil
	case *ast.Float:
		return x.Value, nil
	case *ast.Bool:
		return x.Value, nil
	case *ast.String:
		return x.Value, nil
	case *ast.Nil:
		return nil, nil
	case *ast.Prefix:
		if x.Op == "-" {
			value, err := c.literalValue(x.X)
			if err != nil {
				return nil, err
			}
			switch v := value.(type) {
			case int64:
				return -v, nil
			case float64:
				return -v, nil
			}
		}
	}
	return nil, c.errorf(expr, errz.ErrCompile, "expected a literal value")
}

func (c *Compiler) intLiteralValue(expr ast.Expr) (int64, error) {
	value, err := c.literalValue(expr)
	if err != nil {
		return 0, err
	}
	n, ok := value.(int64)
	if !ok {
		return 0, c.errorf(expr, errz.ErrCompile, "range patterns require integer bounds")
	}
	return n, nil
}

func binaryOpType(operator string) (op.BinaryOpType, error) {
	switch operator {
	case "+":
		return op.Add, nil
	case "-":
		return op.Subtract, nil
	case "*":
		return op.Multiply, nil
	case "/":
		return op.Divide, nil
	case "//":
		return op.FloorDivide, nil
	case "%":
		return op.Modulo, nil
	case "**":
		return op.Power, nil
	case "&":
		return op.BitAnd, nil
	case "|":
		return op.BitOr, nil
	case "^":
		return op.BitXor, nil
	case "<<":
		return op.ShiftLeft, nil
	case ">>":
		return op.ShiftRight, nil
	}
	return 0, fmt.Errorf("unknown binary operator %q", operator)
}

func compareOpType(operator string) (op.CompareOpType, error) {
	switch operator {
	case "==":
		return op.Equal, nil
	case "!=":
		return op.NotEqual, nil
	case "<":
		return op.LessThan, nil
	case "<=":
		return op.LessThanOrEqual, nil
	case ">":
		return op.GreaterThan, nil
	case ">=":
		return op.GreaterThanOrEqual, nil
	}
	return 0, fmt.Errorf("unknown comparison operator %q", operator)
}

func ctorType(kind ast.CtorKind) op.CtorType {
	switch kind {
	case ast.CtorSome:
		return op.CtorSome
	case ast.CtorNone:
		return op.CtorNone
	case ast.CtorOk:
		return op.CtorOk
	}
	return op.CtorErr
}

func boolOperand(b bool) int {
	if b {
		return 1
	}
	return 0
}

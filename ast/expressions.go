package ast

import (
	"bytes"
	"strings"

	"github.com/deepnoodle-ai/neba/token"
)

// Ident is an expression node that refers to a variable by name.
type Ident struct {
	NamePos token.Position // position of identifier
	Name    string         // identifier name
}

func (x *Ident) exprNode() {}

func (x *Ident) Pos() token.Position { return x.NamePos }

func (x *Ident) String() string { return x.Name }

// Prefix is an operator expression where the operator precedes the operand.
// Examples include "!false" and "-x".
type Prefix struct {
	OpPos token.Position // position of operator
	Op    string         // operator: "!", "-", "~", "not"
	X     Expr           // operand
}

func (x *Prefix) exprNode() {}

func (x *Prefix) Pos() token.Position { return x.OpPos }

func (x *Prefix) String() string { return "(" + x.Op + x.X.String() + ")" }

// Infix is an operator expression where the operator is between the operands.
// Examples include "x + y" and "5 - 1".
type Infix struct {
	X     Expr           // left operand
	OpPos token.Position // position of operator
	Op    string         // operator: "+", "-", "*", "/", "//", "%", "**",
	// "&", "|", "^", "<<", ">>",
	// "==", "!=", "<", "<=", ">", ">=", "and", "or", "in", "not in", "is"
	Y Expr // right operand
}

func (x *Infix) exprNode() {}

func (x *Infix) Pos() token.Position { return x.X.Pos() }

func (x *Infix) String() string {
	return "(" + x.X.String() + " " + x.Op + " " + x.Y.String() + ")"
}

// RangeExpr is a numeric range: "start..stop" or inclusive "start..=stop".
type RangeExpr struct {
	Start     Expr
	End       Expr
	Inclusive bool // true for "..=", false for ".."
}

func (x *RangeExpr) exprNode() {}

func (x *RangeExpr) Pos() token.Position { return x.Start.Pos() }

func (x *RangeExpr) String() string {
	op := ".."
	if x.Inclusive {
		op = "..="
	}
	return x.Start.String() + op + x.End.String()
}

// If is a conditional expression with optional elif/else arms. When used in
// statement position any produced value is discarded. A missing else arm
// yields nil.
type If struct {
	IfPos       token.Position
	Cond        Expr
	Consequence *Block
	Alternative Node // *Block, *If (elif chain), or nil
}

func (x *If) exprNode() {}
func (x *If) stmtNode() {}

func (x *If) Pos() token.Position { return x.IfPos }

func (x *If) String() string {
	var out bytes.Buffer
	out.WriteString("if " + x.Cond.String() + " " + x.Consequence.String())
	if x.Alternative != nil {
		out.WriteString(" else " + x.Alternative.String())
	}
	return out.String()
}

// Call is a function or constructor invocation.
type Call struct {
	Fn   Expr // callee: Ident, Attr, or any expression producing a callable
	Args []Expr
}

func (x *Call) exprNode() {}

func (x *Call) Pos() token.Position { return x.Fn.Pos() }

func (x *Call) String() string {
	args := make([]string, 0, len(x.Args))
	for _, arg := range x.Args {
		args = append(args, arg.String())
	}
	return x.Fn.String() + "(" + strings.Join(args, ", ") + ")"
}

// Attr is an attribute access: "x.name".
type Attr struct {
	X    Expr
	Name string
}

func (x *Attr) exprNode() {}

func (x *Attr) Pos() token.Position { return x.X.Pos() }

func (x *Attr) String() string { return x.X.String() + "." + x.Name }

// Index is a subscript expression: "x[i]". Negative integer indices count
// from the end of the sequence.
type Index struct {
	X     Expr
	Index Expr
}

func (x *Index) exprNode() {}

func (x *Index) Pos() token.Position { return x.X.Pos() }

func (x *Index) String() string { return x.X.String() + "[" + x.Index.String() + "]" }

// Some wraps a value in the present case of an optional.
type Some struct {
	SomePos token.Position
	X       Expr
}

func (x *Some) exprNode() {}

func (x *Some) Pos() token.Position { return x.SomePos }

func (x *Some) String() string { return "Some(" + x.X.String() + ")" }

// Ok wraps a value in the success case of a result.
type Ok struct {
	OkPos token.Position
	X     Expr
}

func (x *Ok) exprNode() {}

func (x *Ok) Pos() token.Position { return x.OkPos }

func (x *Ok) String() string { return "Ok(" + x.X.String() + ")" }

// Err wraps a value in the failure case of a result.
type Err struct {
	ErrPos token.Position
	X      Expr
}

func (x *Err) exprNode() {}

func (x *Err) Pos() token.Position { return x.ErrPos }

func (x *Err) String() string { return "Err(" + x.X.String() + ")" }

// Spawn starts a task running the given call and evaluates to the task.
type Spawn struct {
	SpawnPos token.Position
	Call     *Call
}

func (x *Spawn) exprNode() {}

func (x *Spawn) Pos() token.Position { return x.SpawnPos }

func (x *Spawn) String() string { return "spawn " + x.Call.String() }

// Await blocks until a task settles and evaluates to its result.
type Await struct {
	AwaitPos token.Position
	X        Expr
}

func (x *Await) exprNode() {}

func (x *Await) Pos() token.Position { return x.AwaitPos }

func (x *Await) String() string { return "await " + x.X.String() }

// Match selects the first arm whose pattern matches the subject and
// evaluates to that arm's body.
type Match struct {
	MatchPos token.Position
	Subject  Expr
	Arms     []*MatchArm
}

// MatchArm is one "pattern => body" arm of a match expression.
type MatchArm struct {
	Pattern Pattern
	Body    *Block
}

func (x *Match) exprNode() {}
func (x *Match) stmtNode() {}

func (x *Match) Pos() token.Position { return x.MatchPos }

func (x *Match) String() string {
	arms := make([]string, 0, len(x.Arms))
	for _, arm := range x.Arms {
		arms = append(arms, arm.Pattern.String()+" => "+arm.Body.String())
	}
	return "match " + x.Subject.String() + " { " + strings.Join(arms, ", ") + " }"
}

// PatternWildcard matches any subject without binding: "_".
type PatternWildcard struct {
	UnderscorePos token.Position
}

func (p *PatternWildcard) patternNode() {}

func (p *PatternWildcard) Pos() token.Position { return p.UnderscorePos }

func (p *PatternWildcard) String() string { return "_" }

// PatternBinding matches any subject and binds it to a name in the arm body.
type PatternBinding struct {
	NamePos token.Position
	Name    string
}

func (p *PatternBinding) patternNode() {}

func (p *PatternBinding) Pos() token.Position { return p.NamePos }

func (p *PatternBinding) String() string { return p.Name }

// PatternLiteral matches when the subject equals a literal value.
type PatternLiteral struct {
	Value Expr // *Int, *Float, *Bool, *String, or *Nil
}

func (p *PatternLiteral) patternNode() {}

func (p *PatternLiteral) Pos() token.Position { return p.Value.Pos() }

func (p *PatternLiteral) String() string { return p.Value.String() }

// PatternRange matches integer subjects falling within a range. The bounds
// must be integer literals, possibly negated; the compiler rejects anything
// else.
type PatternRange struct {
	Start     Expr
	End       Expr
	Inclusive bool
}

func (p *PatternRange) patternNode() {}

func (p *PatternRange) Pos() token.Position { return p.Start.Pos() }

func (p *PatternRange) String() string {
	op := ".."
	if p.Inclusive {
		op = "..="
	}
	return p.Start.String() + op + p.End.String()
}

// CtorKind identifies the wrapper constructor a PatternCtor tests for.
type CtorKind int

const (
	CtorSome CtorKind = iota
	CtorNone
	CtorOk
	CtorErr
)

func (k CtorKind) String() string {
	switch k {
	case CtorSome:
		return "Some"
	case CtorNone:
		return "None"
	case CtorOk:
		return "Ok"
	case CtorErr:
		return "Err"
	}
	return "?"
}

// PatternCtor matches a wrapper constructor (Some, None, Ok, Err) and
// optionally destructures the wrapped value against an inner pattern.
type PatternCtor struct {
	CtorPos token.Position
	Kind    CtorKind
	Inner   Pattern // nil for None or when the payload is ignored
}

func (p *PatternCtor) patternNode() {}

func (p *PatternCtor) Pos() token.Position { return p.CtorPos }

func (p *PatternCtor) String() string {
	if p.Inner == nil {
		return p.Kind.String()
	}
	return p.Kind.String() + "(" + p.Inner.String() + ")"
}

package ast

import (
	"bytes"
	"strings"

	"github.com/deepnoodle-ai/neba/token"
)

// Let declares a new variable. "let" bindings are immutable; "var" bindings
// (Mutable true) may be reassigned.
type Let struct {
	LetPos  token.Position
	Name    string
	Value   Expr
	Mutable bool // true for "var", false for "let"
}

func (s *Let) stmtNode() {}

func (s *Let) Pos() token.Position { return s.LetPos }

func (s *Let) String() string {
	kw := "let"
	if s.Mutable {
		kw = "var"
	}
	return kw + " " + s.Name + " = " + s.Value.String()
}

// Assign stores a value into an existing binding, list element, or instance
// field. Op is "=" or a compound operator like "+=".
type Assign struct {
	Target Expr // *Ident, *Index, or *Attr
	Op     string
	Value  Expr
}

func (s *Assign) stmtNode() {}

func (s *Assign) Pos() token.Position { return s.Target.Pos() }

func (s *Assign) String() string {
	return s.Target.String() + " " + s.Op + " " + s.Value.String()
}

// ExprStmt is an expression evaluated for its side effects. Its value is
// discarded, except when it is the final statement of a block in value
// position.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) stmtNode() {}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }

func (s *ExprStmt) String() string { return s.X.String() }

// Return exits the enclosing function with an optional value.
type Return struct {
	ReturnPos token.Position
	Value     Expr // nil for a bare "return"
}

func (s *Return) stmtNode() {}

func (s *Return) Pos() token.Position { return s.ReturnPos }

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// While loops as long as its condition is truthy.
type While struct {
	WhilePos token.Position
	Cond     Expr
	Body     *Block
}

func (s *While) stmtNode() {}

func (s *While) Pos() token.Position { return s.WhilePos }

func (s *While) String() string {
	return "while " + s.Cond.String() + " " + s.Body.String()
}

// For iterates over a list, range, or string, binding each element to Var.
type For struct {
	ForPos   token.Position
	Var      string
	Iterable Expr
	Body     *Block
}

func (s *For) stmtNode() {}

func (s *For) Pos() token.Position { return s.ForPos }

func (s *For) String() string {
	return "for " + s.Var + " in " + s.Iterable.String() + " " + s.Body.String()
}

// Break exits the innermost enclosing loop.
type Break struct {
	BreakPos token.Position
}

func (s *Break) stmtNode() {}

func (s *Break) Pos() token.Position { return s.BreakPos }

func (s *Break) String() string { return "break" }

// Continue jumps to the next iteration of the innermost enclosing loop.
type Continue struct {
	ContinuePos token.Position
}

func (s *Continue) stmtNode() {}

func (s *Continue) Pos() token.Position { return s.ContinuePos }

func (s *Continue) String() string { return "continue" }

// Class declares a class: ordered fields with default values, methods, and
// an optional designated initializer named "init".
type Class struct {
	ClassPos token.Position
	Name     string
	Fields   []*Field
	Methods  []*Func // a method named "init" is the designated initializer
}

// Field is one class field declaration with its default value expression.
type Field struct {
	NamePos token.Position
	Name    string
	Default Expr
}

func (f *Field) Pos() token.Position { return f.NamePos }

func (f *Field) String() string { return f.Name + " = " + f.Default.String() }

func (s *Class) stmtNode() {}

func (s *Class) Pos() token.Position { return s.ClassPos }

func (s *Class) String() string {
	var out bytes.Buffer
	out.WriteString("class " + s.Name + " { ")
	parts := make([]string, 0, len(s.Fields)+len(s.Methods))
	for _, f := range s.Fields {
		parts = append(parts, f.Name+" = "+f.Default.String())
	}
	for _, m := range s.Methods {
		parts = append(parts, m.String())
	}
	out.WriteString(strings.Join(parts, "; "))
	out.WriteString(" }")
	return out.String()
}

// FuncStmt declares a named function in the enclosing scope.
type FuncStmt struct {
	Fn *Func
}

func (s *FuncStmt) stmtNode() {}

func (s *FuncStmt) Pos() token.Position { return s.Fn.Pos() }

func (s *FuncStmt) String() string { return s.Fn.String() }

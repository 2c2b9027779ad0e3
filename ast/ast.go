// Package ast defines the abstract syntax tree representation of Neba code.
//
// The tree is the input contract for the compiler: a front end (or a test)
// builds a *Program and hands it to compiler.Compile. All nodes carry
// position information for error reporting.
package ast

import (
	"strings"

	"github.com/deepnoodle-ai/neba/token"
)

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node. Statements cause side effects but
// do not evaluate to a value.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Pattern represents a match arm pattern.
type Pattern interface {
	Node
	patternNode()
}

// Program is the root node: an ordered list of top-level statements.
type Program struct {
	Stmts []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return token.Position{}
}

func (p *Program) String() string {
	parts := make([]string, 0, len(p.Stmts))
	for _, s := range p.Stmts {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, "\n")
}

// Block is a brace-delimited statement list. When a block appears in value
// position (if arms, match arms, function bodies) it evaluates to the value
// of its final expression statement, or nil if there is none.
type Block struct {
	LbracePos token.Position
	Stmts     []Stmt
}

func (b *Block) stmtNode() {}

func (b *Block) Pos() token.Position { return b.LbracePos }

func (b *Block) String() string {
	parts := make([]string, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		parts = append(parts, s.String())
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

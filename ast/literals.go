package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/neba/token"
)

// Int is an expression node that holds an integer literal.
type Int struct {
	ValuePos token.Position // position of the literal
	Value    int64          // the parsed value
}

func (x *Int) exprNode() {}

func (x *Int) Pos() token.Position { return x.ValuePos }

func (x *Int) String() string { return strconv.FormatInt(x.Value, 10) }

// Float is an expression node that holds a floating point literal.
type Float struct {
	ValuePos token.Position // position of the literal
	Value    float64        // the parsed value
}

func (x *Float) exprNode() {}

func (x *Float) Pos() token.Position { return x.ValuePos }

func (x *Float) String() string { return strconv.FormatFloat(x.Value, 'g', -1, 64) }

// Bool is an expression node that holds a boolean literal.
type Bool struct {
	ValuePos token.Position // position of "true" or "false"
	Value    bool
}

func (x *Bool) exprNode() {}

func (x *Bool) Pos() token.Position { return x.ValuePos }

func (x *Bool) String() string {
	if x.Value {
		return "true"
	}
	return "false"
}

// Nil is an expression node that holds a nil literal. Nil doubles as the
// absent case of optional values.
type Nil struct {
	NilPos token.Position // position of "nil" keyword
}

func (x *Nil) exprNode() {}

func (x *Nil) Pos() token.Position { return x.NilPos }

func (x *Nil) String() string { return "nil" }

// String is an expression node that holds a string literal.
type String struct {
	ValuePos token.Position // position of the literal
	Value    string         // the unquoted value
}

func (x *String) exprNode() {}

func (x *String) Pos() token.Position { return x.ValuePos }

func (x *String) String() string { return `"` + x.Value + `"` }

// StringTemplate is an interpolated string literal. Parts alternate freely
// between *String literal segments and arbitrary expressions; each
// non-string part is converted to its string form before the parts are
// concatenated.
type StringTemplate struct {
	ValuePos token.Position
	Parts    []Expr
}

func (x *StringTemplate) exprNode() {}

func (x *StringTemplate) Pos() token.Position { return x.ValuePos }

func (x *StringTemplate) String() string {
	var out bytes.Buffer
	out.WriteString(`f"`)
	for _, part := range x.Parts {
		if lit, ok := part.(*String); ok {
			out.WriteString(lit.Value)
		} else {
			out.WriteString("{" + part.String() + "}")
		}
	}
	out.WriteString(`"`)
	return out.String()
}

// List is an expression node that holds a list literal.
type List struct {
	LbracketPos token.Position
	Items       []Expr
}

func (x *List) exprNode() {}

func (x *List) Pos() token.Position { return x.LbracketPos }

func (x *List) String() string {
	items := make([]string, 0, len(x.Items))
	for _, item := range x.Items {
		items = append(items, item.String())
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// Func is a function literal. A non-empty Name makes the literal a named
// function; in statement position a named function also binds its name in
// the enclosing scope.
type Func struct {
	FnPos    token.Position
	Name     string // empty for anonymous functions
	Params   []*Param
	Body     *Block
	BodyExpr Expr // set instead of Body for single-expression functions
}

// Param is one function parameter, optionally with a constant default value.
type Param struct {
	NamePos token.Position
	Name    string
	Default Expr // nil if the parameter is required
}

func (x *Func) exprNode() {}

func (x *Func) Pos() token.Position { return x.FnPos }

func (x *Func) String() string {
	params := make([]string, 0, len(x.Params))
	for _, p := range x.Params {
		if p.Default != nil {
			params = append(params, p.Name+"="+p.Default.String())
		} else {
			params = append(params, p.Name)
		}
	}
	var out bytes.Buffer
	out.WriteString("fn")
	if x.Name != "" {
		out.WriteString(" " + x.Name)
	}
	out.WriteString("(" + strings.Join(params, ", ") + ") ")
	if x.BodyExpr != nil {
		out.WriteString(x.BodyExpr.String())
	} else {
		out.WriteString(x.Body.String())
	}
	return out.String()
}

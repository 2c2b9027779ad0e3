package vm_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/neba/ast"
	"github.com/deepnoodle-ai/neba/compiler"
	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/object"
	"github.com/deepnoodle-ai/neba/vm"
)

func prog(stmts ...ast.Stmt) *ast.Program {
	return &ast.Program{Stmts: stmts}
}

func block(stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Stmts: stmts}
}

func exprStmt(x ast.Expr) *ast.ExprStmt {
	return &ast.ExprStmt{X: x}
}

func intLit(v int64) *ast.Int {
	return &ast.Int{Value: v}
}

func floatLit(v float64) *ast.Float {
	return &ast.Float{Value: v}
}

func strLit(v string) *ast.String {
	return &ast.String{Value: v}
}

func boolLit(v bool) *ast.Bool {
	return &ast.Bool{Value: v}
}

func ident(name string) *ast.Ident {
	return &ast.Ident{Name: name}
}

func letStmt(name string, value ast.Expr) *ast.Let {
	return &ast.Let{Name: name, Value: value}
}

func varStmt(name string, value ast.Expr) *ast.Let {
	return &ast.Let{Name: name, Value: value, Mutable: true}
}

func assign(target ast.Expr, op string, value ast.Expr) *ast.Assign {
	return &ast.Assign{Target: target, Op: op, Value: value}
}

func infix(x ast.Expr, op string, y ast.Expr) *ast.Infix {
	return &ast.Infix{X: x, Op: op, Y: y}
}

func call(fn ast.Expr, args ...ast.Expr) *ast.Call {
	return &ast.Call{Fn: fn, Args: args}
}

func fnLit(name string, params []*ast.Param, body *ast.Block) *ast.Func {
	return &ast.Func{Name: name, Params: params, Body: body}
}

func param(name string) *ast.Param {
	return &ast.Param{Name: name}
}

func run(t *testing.T, program *ast.Program, opts ...vm.Option) (object.Object, error) {
	t.Helper()
	code, err := compiler.Compile(program)
	require.NoError(t, err)
	return vm.New(opts...).Run(context.Background(), code)
}

func runValue(t *testing.T, program *ast.Program, opts ...vm.Option) object.Object {
	t.Helper()
	result, err := run(t, program, opts...)
	require.NoError(t, err)
	return result
}

func requireInt(t *testing.T, obj object.Object, want int64) {
	t.Helper()
	n, ok := obj.(*object.Int)
	require.True(t, ok, "expected int, got %s (%s)", obj.Type(), obj.Inspect())
	require.Equal(t, want, n.Value())
}

func requireKind(t *testing.T, err error, kind errz.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, &errz.Error{Kind: kind}), "unexpected error: %v", err)
}

func TestArithmetic(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(infix(intLit(2), "+", infix(intLit(3), "*", intLit(4)))),
	))
	requireInt(t, result, 14)
}

func TestMixedNumericPromotion(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(infix(intLit(1), "+", floatLit(2.5))),
	))
	f, ok := result.(*object.Float)
	require.True(t, ok)
	require.Equal(t, 3.5, f.Value())
}

func TestBitwiseOperators(t *testing.T) {
	cases := []struct {
		op   string
		a, b int64
		want int64
	}{
		{"&", 0b1100, 0b1010, 0b1000},
		{"|", 0b1100, 0b1010, 0b1110},
		{"^", 0b1100, 0b1010, 0b0110},
		{"<<", 1, 4, 16},
		{">>", 16, 2, 4},
	}
	for _, tc := range cases {
		result := runValue(t, prog(
			exprStmt(infix(intLit(tc.a), tc.op, intLit(tc.b))),
		))
		requireInt(t, result, tc.want)
	}

	// Bitwise operators require int operands.
	_, err := run(t, prog(
		exprStmt(infix(floatLit(1.5), "&", intLit(1))),
	))
	requireKind(t, err, errz.ErrType)
}

func TestBitwiseInvert(t *testing.T) {
	result := runValue(t, prog(exprStmt(&ast.Prefix{Op: "~", X: intLit(5)})))
	requireInt(t, result, -6)

	_, err := run(t, prog(exprStmt(&ast.Prefix{Op: "~", X: strLit("x")})))
	requireKind(t, err, errz.ErrType)
}

func TestDivisionByZero(t *testing.T) {
	_, err := run(t, prog(
		exprStmt(infix(intLit(1), "/", intLit(0))),
	))
	requireKind(t, err, errz.ErrDivisionByZero)
}

func TestEmptyProgramYieldsNil(t *testing.T) {
	result := runValue(t, prog())
	require.Equal(t, object.Nil, result)
}

func TestGlobalBinding(t *testing.T) {
	result := runValue(t, prog(
		letStmt("x", intLit(10)),
		varStmt("y", intLit(20)),
		assign(ident("y"), "+=", ident("x")),
		exprStmt(ident("y")),
	))
	requireInt(t, result, 30)
}

func TestImmutableGlobalAssignment(t *testing.T) {
	_, err := run(t, prog(
		letStmt("x", intLit(1)),
		assign(ident("x"), "=", intLit(2)),
	))
	requireKind(t, err, errz.ErrAssign)
}

func TestUndefinedGlobal(t *testing.T) {
	_, err := run(t, prog(exprStmt(ident("missing"))))
	requireKind(t, err, errz.ErrUndefinedGlobal)
}

func TestIfExpressionValue(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(&ast.If{
			Cond:        infix(intLit(1), "<", intLit(2)),
			Consequence: block(exprStmt(strLit("yes"))),
			Alternative: block(exprStmt(strLit("no"))),
		}),
	))
	s, ok := result.(*object.String)
	require.True(t, ok)
	require.Equal(t, "yes", s.Value())
}

func TestIfWithoutElseYieldsNil(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(&ast.If{
			Cond:        boolLit(false),
			Consequence: block(exprStmt(intLit(1))),
		}),
	))
	require.Equal(t, object.Nil, result)
}

func TestShortCircuitValues(t *testing.T) {
	// "and" yields the left value when it is falsy, the right otherwise.
	result := runValue(t, prog(
		exprStmt(infix(intLit(0), "and", intLit(5))),
	))
	requireInt(t, result, 0)

	result = runValue(t, prog(
		exprStmt(infix(intLit(1), "or", intLit(5))),
	))
	requireInt(t, result, 1)

	result = runValue(t, prog(
		exprStmt(infix(boolLit(false), "or", strLit("fallback"))),
	))
	require.Equal(t, "fallback", result.(*object.String).Value())
}

func TestWhileLoop(t *testing.T) {
	// var total = 0; var i = 0; while i < 5 { total += i; i += 1 }; total
	result := runValue(t, prog(
		varStmt("total", intLit(0)),
		varStmt("i", intLit(0)),
		&ast.While{
			Cond: infix(ident("i"), "<", intLit(5)),
			Body: block(
				assign(ident("total"), "+=", ident("i")),
				assign(ident("i"), "+=", intLit(1)),
			),
		},
		exprStmt(ident("total")),
	))
	requireInt(t, result, 10)
}

func TestBreakAndContinue(t *testing.T) {
	// Sum odd numbers below 10, stopping at 7.
	result := runValue(t, prog(
		varStmt("total", intLit(0)),
		&ast.For{
			Var:      "i",
			Iterable: &ast.RangeExpr{Start: intLit(0), End: intLit(10)},
			Body: block(
				&ast.If{
					Cond:        infix(infix(ident("i"), "%", intLit(2)), "==", intLit(0)),
					Consequence: block(&ast.Continue{}),
				},
				&ast.If{
					Cond:        infix(ident("i"), ">", intLit(6)),
					Consequence: block(&ast.Break{}),
				},
				assign(ident("total"), "+=", ident("i")),
			),
		},
		exprStmt(ident("total")),
	))
	requireInt(t, result, 9) // 1 + 3 + 5
}

func TestForOverRange(t *testing.T) {
	result := runValue(t, prog(
		varStmt("total", intLit(0)),
		&ast.For{
			Var:      "i",
			Iterable: &ast.RangeExpr{Start: intLit(1), End: intLit(4), Inclusive: true},
			Body:     block(assign(ident("total"), "+=", ident("i"))),
		},
		exprStmt(ident("total")),
	))
	requireInt(t, result, 10)
}

func TestForOverList(t *testing.T) {
	result := runValue(t, prog(
		varStmt("total", intLit(0)),
		&ast.For{
			Var:      "x",
			Iterable: &ast.List{Items: []ast.Expr{intLit(2), intLit(4), intLit(6)}},
			Body:     block(assign(ident("total"), "+=", ident("x"))),
		},
		exprStmt(ident("total")),
	))
	requireInt(t, result, 12)
}

func TestForOverEmptyList(t *testing.T) {
	// A loop whose source is empty runs its body zero times and leaves
	// no residue on the stack, so the trailing expression still works.
	result := runValue(t, prog(
		varStmt("ran", boolLit(false)),
		&ast.For{
			Var:      "x",
			Iterable: &ast.List{},
			Body:     block(assign(ident("ran"), "=", boolLit(true))),
		},
		exprStmt(&ast.If{
			Cond:        ident("ran"),
			Consequence: block(exprStmt(intLit(1))),
			Alternative: block(exprStmt(intLit(2))),
		}),
	))
	requireInt(t, result, 2)
}

func TestForOverString(t *testing.T) {
	// Characters iterate one at a time, including multi-byte ones.
	result := runValue(t, prog(
		varStmt("out", strLit("")),
		&ast.For{
			Var:      "ch",
			Iterable: strLit("héllo"),
			Body: block(
				assign(ident("out"), "+=", ident("ch")),
				assign(ident("out"), "+=", strLit("-")),
			),
		},
		exprStmt(ident("out")),
	))
	require.Equal(t, "h-é-l-l-o-", result.(*object.String).Value())
}

func TestFunctionCall(t *testing.T) {
	// fn add(a, b) { a + b }; add(2, 3)
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("add", []*ast.Param{param("a"), param("b")},
			block(exprStmt(infix(ident("a"), "+", ident("b")))))},
		exprStmt(call(ident("add"), intLit(2), intLit(3))),
	))
	requireInt(t, result, 5)
}

func TestParameterDefaults(t *testing.T) {
	fn := fnLit("greet", []*ast.Param{
		param("name"),
		{Name: "suffix", Default: strLit("!")},
	}, block(exprStmt(infix(ident("name"), "+", ident("suffix")))))

	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fn},
		exprStmt(call(ident("greet"), strLit("hi"))),
	))
	require.Equal(t, "hi!", result.(*object.String).Value())

	result = runValue(t, prog(
		&ast.FuncStmt{Fn: fn},
		exprStmt(call(ident("greet"), strLit("hi"), strLit("?"))),
	))
	require.Equal(t, "hi?", result.(*object.String).Value())
}

func TestArityMismatch(t *testing.T) {
	_, err := run(t, prog(
		&ast.FuncStmt{Fn: fnLit("f", []*ast.Param{param("a")},
			block(exprStmt(ident("a"))))},
		exprStmt(call(ident("f"))),
	))
	requireKind(t, err, errz.ErrArityMismatch)
}

func TestRecursionFactorial(t *testing.T) {
	// fn fact(n) { if n <= 1 { 1 } else { n * fact(n - 1) } }
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("fact", []*ast.Param{param("n")}, block(
			exprStmt(&ast.If{
				Cond:        infix(ident("n"), "<=", intLit(1)),
				Consequence: block(exprStmt(intLit(1))),
				Alternative: block(exprStmt(infix(ident("n"), "*",
					call(ident("fact"), infix(ident("n"), "-", intLit(1)))))),
			}),
		))},
		exprStmt(infix(
			call(ident("fact"), intLit(5)), "+",
			call(ident("fact"), intLit(10)))),
	))
	requireInt(t, result, 120+3628800)
}

func TestStackOverflow(t *testing.T) {
	_, err := run(t, prog(
		&ast.FuncStmt{Fn: fnLit("loop", nil, block(
			exprStmt(call(ident("loop"))),
		))},
		exprStmt(call(ident("loop"))),
	), vm.WithMaxFrameDepth(64))
	requireKind(t, err, errz.ErrStackOverflow)
}

func TestReturnStatement(t *testing.T) {
	// fn f(n) { if n > 0 { return "pos" }; "other" }
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("f", []*ast.Param{param("n")}, block(
			&ast.If{
				Cond:        infix(ident("n"), ">", intLit(0)),
				Consequence: block(&ast.Return{Value: strLit("pos")}),
			},
			exprStmt(strLit("other")),
		))},
		exprStmt(call(ident("f"), intLit(1))),
	))
	require.Equal(t, "pos", result.(*object.String).Value())
}

func TestClosureCountersAreIndependent(t *testing.T) {
	// fn counter() { var n = 0; fn() { n += 1; n } }
	counter := fnLit("counter", nil, block(
		varStmt("n", intLit(0)),
		exprStmt(fnLit("", nil, block(
			assign(ident("n"), "+=", intLit(1)),
			exprStmt(ident("n")),
		))),
	))
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: counter},
		letStmt("a", call(ident("counter"))),
		letStmt("b", call(ident("counter"))),
		exprStmt(call(ident("a"))),
		exprStmt(call(ident("a"))),
		exprStmt(&ast.List{Items: []ast.Expr{
			call(ident("a")),
			call(ident("b")),
		}}),
	))
	list, ok := result.(*object.List)
	require.True(t, ok)
	requireInt(t, list.Get(0), 3)
	requireInt(t, list.Get(1), 1)
}

func TestSharedUpvalueMutation(t *testing.T) {
	// Two closures over the same variable observe each other's writes.
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("make", nil, block(
			varStmt("n", intLit(0)),
			letStmt("inc", fnLit("", nil, block(
				assign(ident("n"), "+=", intLit(1)),
			))),
			letStmt("get", fnLit("", nil, block(
				exprStmt(ident("n")),
			))),
			exprStmt(&ast.List{Items: []ast.Expr{ident("inc"), ident("get")}}),
		))},
		letStmt("pair", call(ident("make"))),
		exprStmt(call(&ast.Index{X: ident("pair"), Index: intLit(0)})),
		exprStmt(call(&ast.Index{X: ident("pair"), Index: intLit(0)})),
		exprStmt(call(&ast.Index{X: ident("pair"), Index: intLit(1)})),
	))
	requireInt(t, result, 2)
}

func TestListIndexing(t *testing.T) {
	list := &ast.List{Items: []ast.Expr{intLit(10), intLit(20), intLit(30)}}

	result := runValue(t, prog(exprStmt(&ast.Index{X: list, Index: intLit(1)})))
	requireInt(t, result, 20)

	result = runValue(t, prog(exprStmt(&ast.Index{X: list, Index: intLit(-1)})))
	requireInt(t, result, 30)

	_, err := run(t, prog(exprStmt(&ast.Index{X: list, Index: intLit(3)})))
	requireKind(t, err, errz.ErrIndexOutOfBounds)

	_, err = run(t, prog(exprStmt(&ast.Index{X: list, Index: intLit(-4)})))
	requireKind(t, err, errz.ErrIndexOutOfBounds)
}

func TestListElementAssignment(t *testing.T) {
	result := runValue(t, prog(
		letStmt("xs", &ast.List{Items: []ast.Expr{intLit(1), intLit(2)}}),
		assign(&ast.Index{X: ident("xs"), Index: intLit(0)}, "+=", intLit(10)),
		exprStmt(&ast.Index{X: ident("xs"), Index: intLit(0)}),
	))
	requireInt(t, result, 11)
}

func TestListPushPopMethods(t *testing.T) {
	result := runValue(t, prog(
		letStmt("xs", &ast.List{Items: []ast.Expr{intLit(1)}}),
		exprStmt(call(&ast.Attr{X: ident("xs"), Name: "push"}, intLit(2))),
		exprStmt(call(&ast.Attr{X: ident("xs"), Name: "pop"})),
	))
	requireInt(t, result, 2)

	_, err := run(t, prog(
		letStmt("xs", &ast.List{}),
		exprStmt(call(&ast.Attr{X: ident("xs"), Name: "pop"})),
	))
	requireKind(t, err, errz.ErrIndexOutOfBounds)
}

func TestStringIndexing(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(&ast.Index{X: strLit("héllo"), Index: intLit(1)}),
	))
	require.Equal(t, "é", result.(*object.String).Value())

	result = runValue(t, prog(
		exprStmt(&ast.Index{X: strLit("abc"), Index: intLit(-1)}),
	))
	require.Equal(t, "c", result.(*object.String).Value())
}

func TestStringTemplate(t *testing.T) {
	// f"x = {1 + 2}!"
	result := runValue(t, prog(
		exprStmt(&ast.StringTemplate{Parts: []ast.Expr{
			strLit("x = "),
			infix(intLit(1), "+", intLit(2)),
			strLit("!"),
		}}),
	))
	require.Equal(t, "x = 3!", result.(*object.String).Value())
}

func TestMembershipOperator(t *testing.T) {
	list := &ast.List{Items: []ast.Expr{intLit(1), intLit(2)}}

	result := runValue(t, prog(exprStmt(infix(intLit(2), "in", list))))
	require.Equal(t, object.True, result)

	result = runValue(t, prog(exprStmt(infix(intLit(3), "not in", list))))
	require.Equal(t, object.True, result)
}

func TestIsOperator(t *testing.T) {
	// "is" compares value kinds, not contents.
	result := runValue(t, prog(exprStmt(infix(intLit(1), "is", intLit(2)))))
	require.Equal(t, object.True, result)

	result = runValue(t, prog(exprStmt(infix(intLit(1), "is", floatLit(1.0)))))
	require.Equal(t, object.False, result)

	result = runValue(t, prog(exprStmt(infix(strLit("a"), "is", strLit("b")))))
	require.Equal(t, object.True, result)

	result = runValue(t, prog(exprStmt(infix(
		&ast.Some{X: intLit(1)}, "is", &ast.Ok{X: intLit(1)}))))
	require.Equal(t, object.False, result)
}

func TestRangeValue(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(&ast.Index{
			X:     &ast.RangeExpr{Start: intLit(5), End: intLit(10)},
			Index: intLit(2),
		}),
	))
	requireInt(t, result, 7)

	_, err := run(t, prog(
		exprStmt(&ast.RangeExpr{Start: strLit("a"), End: intLit(3)}),
	))
	requireKind(t, err, errz.ErrType)
}

func TestMatchLiteral(t *testing.T) {
	match := func(subject ast.Expr) *ast.Match {
		return &ast.Match{
			Subject: subject,
			Arms: []*ast.MatchArm{
				{Pattern: &ast.PatternLiteral{Value: intLit(1)},
					Body: block(exprStmt(strLit("one")))},
				{Pattern: &ast.PatternLiteral{Value: intLit(2)},
					Body: block(exprStmt(strLit("two")))},
				{Pattern: &ast.PatternWildcard{},
					Body: block(exprStmt(strLit("many")))},
			},
		}
	}
	result := runValue(t, prog(exprStmt(match(intLit(2)))))
	require.Equal(t, "two", result.(*object.String).Value())

	result = runValue(t, prog(exprStmt(match(intLit(9)))))
	require.Equal(t, "many", result.(*object.String).Value())
}

func TestMatchNoArmYieldsNil(t *testing.T) {
	result := runValue(t, prog(exprStmt(&ast.Match{
		Subject: intLit(5),
		Arms: []*ast.MatchArm{
			{Pattern: &ast.PatternLiteral{Value: intLit(1)},
				Body: block(exprStmt(strLit("one")))},
		},
	})))
	require.Equal(t, object.Nil, result)
}

func TestMatchRangePattern(t *testing.T) {
	match := func(subject ast.Expr) *ast.Match {
		return &ast.Match{
			Subject: subject,
			Arms: []*ast.MatchArm{
				{Pattern: &ast.PatternRange{Start: intLit(0), End: intLit(10)},
					Body: block(exprStmt(strLit("low")))},
				{Pattern: &ast.PatternRange{Start: intLit(10), End: intLit(20), Inclusive: true},
					Body: block(exprStmt(strLit("high")))},
				{Pattern: &ast.PatternWildcard{},
					Body: block(exprStmt(strLit("out")))},
			},
		}
	}
	result := runValue(t, prog(exprStmt(match(intLit(5)))))
	require.Equal(t, "low", result.(*object.String).Value())

	// 10 is excluded from the half-open first arm.
	result = runValue(t, prog(exprStmt(match(intLit(10)))))
	require.Equal(t, "high", result.(*object.String).Value())

	result = runValue(t, prog(exprStmt(match(intLit(20)))))
	require.Equal(t, "high", result.(*object.String).Value())

	result = runValue(t, prog(exprStmt(match(intLit(21)))))
	require.Equal(t, "out", result.(*object.String).Value())
}

func TestMatchBindingPattern(t *testing.T) {
	result := runValue(t, prog(exprStmt(&ast.Match{
		Subject: intLit(7),
		Arms: []*ast.MatchArm{
			{Pattern: &ast.PatternBinding{Name: "n"},
				Body: block(exprStmt(infix(ident("n"), "*", intLit(2))))},
		},
	})))
	requireInt(t, result, 14)
}

func TestMatchCtorPatterns(t *testing.T) {
	match := func(subject ast.Expr) *ast.Match {
		return &ast.Match{
			Subject: subject,
			Arms: []*ast.MatchArm{
				{Pattern: &ast.PatternCtor{Kind: ast.CtorOk, Inner: &ast.PatternBinding{Name: "v"}},
					Body: block(exprStmt(ident("v")))},
				{Pattern: &ast.PatternCtor{Kind: ast.CtorErr, Inner: &ast.PatternBinding{Name: "e"}},
					Body: block(exprStmt(ident("e")))},
				{Pattern: &ast.PatternCtor{Kind: ast.CtorNone},
					Body: block(exprStmt(strLit("none")))},
				{Pattern: &ast.PatternCtor{Kind: ast.CtorSome, Inner: &ast.PatternBinding{Name: "x"}},
					Body: block(exprStmt(ident("x")))},
			},
		}
	}
	result := runValue(t, prog(exprStmt(match(&ast.Ok{X: intLit(42)}))))
	requireInt(t, result, 42)

	result = runValue(t, prog(exprStmt(match(&ast.Err{X: strLit("boom")}))))
	require.Equal(t, "boom", result.(*object.String).Value())

	result = runValue(t, prog(exprStmt(match(&ast.Nil{}))))
	require.Equal(t, "none", result.(*object.String).Value())

	result = runValue(t, prog(exprStmt(match(&ast.Some{X: intLit(3)}))))
	requireInt(t, result, 3)
}

func TestWrapperTruthiness(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(infix(&ast.Err{X: strLit("x")}, "or", strLit("fallback"))),
	))
	require.Equal(t, "fallback", result.(*object.String).Value())
}

func TestClassWithPositionalFields(t *testing.T) {
	// class Point { x = 0; y = 0 }; let p = Point(3, 4); p.x + p.y
	result := runValue(t, prog(
		&ast.Class{Name: "Point", Fields: []*ast.Field{
			{Name: "x", Default: intLit(0)},
			{Name: "y", Default: intLit(0)},
		}},
		letStmt("p", call(ident("Point"), intLit(3), intLit(4))),
		exprStmt(infix(&ast.Attr{X: ident("p"), Name: "x"}, "+",
			&ast.Attr{X: ident("p"), Name: "y"})),
	))
	requireInt(t, result, 7)
}

func TestClassFieldDefaults(t *testing.T) {
	result := runValue(t, prog(
		&ast.Class{Name: "Point", Fields: []*ast.Field{
			{Name: "x", Default: intLit(1)},
			{Name: "y", Default: intLit(2)},
		}},
		letStmt("p", call(ident("Point"))),
		exprStmt(&ast.Attr{X: ident("p"), Name: "y"}),
	))
	requireInt(t, result, 2)
}

func TestClassInitializer(t *testing.T) {
	// class Rect { w = 0; h = 0; fn init(w, h) { self.w = w; self.h = h * 2 } }
	result := runValue(t, prog(
		&ast.Class{
			Name: "Rect",
			Fields: []*ast.Field{
				{Name: "w", Default: intLit(0)},
				{Name: "h", Default: intLit(0)},
			},
			Methods: []*ast.Func{
				fnLit("init", []*ast.Param{param("w"), param("h")}, block(
					assign(&ast.Attr{X: ident("self"), Name: "w"}, "=", ident("w")),
					assign(&ast.Attr{X: ident("self"), Name: "h"}, "=",
						infix(ident("h"), "*", intLit(2))),
				)),
			},
		},
		letStmt("r", call(ident("Rect"), intLit(3), intLit(4))),
		exprStmt(infix(&ast.Attr{X: ident("r"), Name: "w"}, "+",
			&ast.Attr{X: ident("r"), Name: "h"})),
	))
	requireInt(t, result, 11)
}

func TestMethodCall(t *testing.T) {
	// class Counter { n = 0; fn bump(by) { self.n += by; self.n } }
	result := runValue(t, prog(
		&ast.Class{
			Name:   "Counter",
			Fields: []*ast.Field{{Name: "n", Default: intLit(0)}},
			Methods: []*ast.Func{
				fnLit("bump", []*ast.Param{param("by")}, block(
					assign(&ast.Attr{X: ident("self"), Name: "n"}, "+=", ident("by")),
					exprStmt(&ast.Attr{X: ident("self"), Name: "n"}),
				)),
			},
		},
		letStmt("c", call(ident("Counter"))),
		exprStmt(call(&ast.Attr{X: ident("c"), Name: "bump"}, intLit(5))),
		exprStmt(call(&ast.Attr{X: ident("c"), Name: "bump"}, intLit(2))),
	))
	requireInt(t, result, 7)
}

func TestUnknownField(t *testing.T) {
	_, err := run(t, prog(
		&ast.Class{Name: "Empty"},
		letStmt("e", call(ident("Empty"))),
		exprStmt(&ast.Attr{X: ident("e"), Name: "missing"}),
	))
	requireKind(t, err, errz.ErrUnknownField)
}

func TestCallableFieldShadowsMethod(t *testing.T) {
	// A field holding a closure is invoked like a method, without a self
	// parameter.
	result := runValue(t, prog(
		&ast.Class{
			Name:   "Box",
			Fields: []*ast.Field{{Name: "f", Default: &ast.Nil{}}},
		},
		letStmt("b", call(ident("Box"))),
		assign(&ast.Attr{X: ident("b"), Name: "f"}, "=",
			fnLit("", []*ast.Param{param("x")},
				block(exprStmt(infix(ident("x"), "*", intLit(10)))))),
		exprStmt(call(&ast.Attr{X: ident("b"), Name: "f"}, intLit(4))),
	))
	requireInt(t, result, 40)
}

func TestNotCallable(t *testing.T) {
	_, err := run(t, prog(exprStmt(call(intLit(5)))))
	requireKind(t, err, errz.ErrNotCallable)
}

func TestBuiltinOutput(t *testing.T) {
	var buf bytes.Buffer
	code, err := compiler.Compile(prog(
		exprStmt(call(ident("println"), strLit("hello"), intLit(42))),
	))
	require.NoError(t, err)
	ctx := object.WithStdout(context.Background(), &buf)
	_, err = vm.New().Run(ctx, code)
	require.NoError(t, err)
	require.Equal(t, "hello 42\n", buf.String())
}

func TestBuiltinLen(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(call(ident("len"), strLit("héllo"))),
	))
	requireInt(t, result, 5)
}

func TestHostGlobals(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(infix(ident("answer"), "+", intLit(1))),
	), vm.WithGlobals(map[string]object.Object{
		"answer": object.NewInt(41),
	}))
	requireInt(t, result, 42)

	// Host globals are immutable.
	_, err := run(t, prog(
		assign(ident("answer"), "=", intLit(0)),
	), vm.WithGlobals(map[string]object.Object{
		"answer": object.NewInt(41),
	}))
	requireKind(t, err, errz.ErrAssign)
}

func TestSpawnAwait(t *testing.T) {
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("double", []*ast.Param{param("n")},
			block(exprStmt(infix(ident("n"), "*", intLit(2)))))},
		letStmt("task", &ast.Spawn{Call: call(ident("double"), intLit(21))}),
		exprStmt(&ast.Await{X: ident("task")}),
	))
	requireInt(t, result, 42)
}

func TestSpawnWithCapturedLocal(t *testing.T) {
	// The spawned closure reads a local that is still live on the
	// spawning frame's stack.
	// fn outer() { let x = 41; let t = spawn (fn() { x + 1 })(); await t }
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("outer", nil, block(
			letStmt("x", intLit(41)),
			letStmt("t", &ast.Spawn{Call: call(
				fnLit("", nil, block(
					exprStmt(infix(ident("x"), "+", intLit(1))))))}),
			exprStmt(&ast.Await{X: ident("t")}),
		))},
		exprStmt(call(ident("outer"))),
	))
	requireInt(t, result, 42)
}

func TestSpawnMutatesCapturedLocal(t *testing.T) {
	// Writes from the spawned task land in the spawner's still-live slot.
	// fn outer() { var x = 1; await spawn (fn() { x = x + 10 })(); x }
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("outer", nil, block(
			varStmt("x", intLit(1)),
			exprStmt(&ast.Await{X: &ast.Spawn{Call: call(
				fnLit("", nil, block(
					assign(ident("x"), "=", infix(ident("x"), "+", intLit(10))))))}}),
			exprStmt(ident("x")),
		))},
		exprStmt(call(ident("outer"))),
	))
	requireInt(t, result, 11)
}

func TestSpawnNotCallable(t *testing.T) {
	_, err := run(t, prog(
		exprStmt(&ast.Spawn{Call: call(intLit(1))}),
	))
	requireKind(t, err, errz.ErrNotCallable)
}

func TestAwaitNonTask(t *testing.T) {
	_, err := run(t, prog(
		exprStmt(&ast.Await{X: intLit(1)}),
	))
	requireKind(t, err, errz.ErrType)
}

func TestSpawnedErrorSurfacesOnAwait(t *testing.T) {
	_, err := run(t, prog(
		&ast.FuncStmt{Fn: fnLit("bad", nil,
			block(exprStmt(infix(intLit(1), "/", intLit(0)))))},
		exprStmt(&ast.Await{X: &ast.Spawn{Call: call(ident("bad"))}}),
	))
	requireKind(t, err, errz.ErrDivisionByZero)
}

func TestRuntimeErrorTraceback(t *testing.T) {
	_, err := run(t, prog(
		&ast.FuncStmt{Fn: fnLit("inner", nil,
			block(exprStmt(infix(intLit(1), "/", intLit(0)))))},
		&ast.FuncStmt{Fn: fnLit("outer", nil,
			block(exprStmt(call(ident("inner")))))},
		exprStmt(call(ident("outer"))),
	))
	requireKind(t, err, errz.ErrDivisionByZero)
	var structured *errz.Error
	require.True(t, errors.As(err, &structured))
	require.Len(t, structured.Stack, 3)
	require.Equal(t, "inner", structured.Stack[0].FunctionName)
	require.Equal(t, "outer", structured.Stack[1].FunctionName)
	require.Equal(t, "", structured.Stack[2].FunctionName)
}

func TestContextCancellation(t *testing.T) {
	code, err := compiler.Compile(prog(
		&ast.While{Cond: boolLit(true), Body: block()},
	))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = vm.New().Run(ctx, code)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMachineReuse(t *testing.T) {
	m := vm.New()
	ctx := context.Background()

	code, err := compiler.Compile(prog(letStmt("x", intLit(10))))
	require.NoError(t, err)
	_, err = m.Run(ctx, code)
	require.NoError(t, err)

	// Globals persist across runs on the same machine.
	code, err = compiler.Compile(prog(exprStmt(infix(ident("x"), "+", intLit(1)))))
	require.NoError(t, err)
	result, err := m.Run(ctx, code)
	require.NoError(t, err)
	requireInt(t, result, 11)
}

func TestCallEntryPoint(t *testing.T) {
	m := vm.New()
	ctx := context.Background()
	code, err := compiler.Compile(prog(
		exprStmt(fnLit("", []*ast.Param{param("a"), param("b")},
			block(exprStmt(infix(ident("a"), "-", ident("b")))))),
	))
	require.NoError(t, err)
	fn, err := m.Run(ctx, code)
	require.NoError(t, err)

	result, err := m.Call(ctx, fn, []object.Object{object.NewInt(10), object.NewInt(4)})
	require.NoError(t, err)
	requireInt(t, result, 6)
}

func TestNegation(t *testing.T) {
	result := runValue(t, prog(
		exprStmt(&ast.Prefix{Op: "-", X: ident("x")}),
		// x bound below to make the prefix operate on a non-constant
	), vm.WithGlobals(map[string]object.Object{"x": object.NewInt(3)}))
	requireInt(t, result, -3)

	_, err := run(t, prog(exprStmt(&ast.Prefix{Op: "-", X: strLit("a")})))
	requireKind(t, err, errz.ErrType)
}

func TestNotOperator(t *testing.T) {
	result := runValue(t, prog(exprStmt(&ast.Prefix{Op: "!", X: intLit(0)})))
	require.Equal(t, object.True, result)
}

func TestBlockExpressionLocals(t *testing.T) {
	// A function body with locals returns its final expression and leaves
	// nothing extra on the stack.
	result := runValue(t, prog(
		&ast.FuncStmt{Fn: fnLit("f", nil, block(
			letStmt("a", intLit(1)),
			letStmt("b", intLit(2)),
			exprStmt(infix(ident("a"), "+", ident("b"))),
		))},
		exprStmt(infix(call(ident("f")), "+", call(ident("f")))),
	))
	requireInt(t, result, 6)
}

func TestMatchInsideLoopWithBreak(t *testing.T) {
	// Breaking out of a match arm discards the match subject.
	result := runValue(t, prog(
		varStmt("found", intLit(-1)),
		&ast.For{
			Var:      "i",
			Iterable: &ast.RangeExpr{Start: intLit(0), End: intLit(10)},
			Body: block(
				&ast.Match{
					Subject: ident("i"),
					Arms: []*ast.MatchArm{
						{Pattern: &ast.PatternLiteral{Value: intLit(3)},
							Body: block(
								assign(ident("found"), "=", ident("i")),
								&ast.Break{},
							)},
						{Pattern: &ast.PatternWildcard{}, Body: block()},
					},
				},
			),
		},
		exprStmt(ident("found")),
	))
	requireInt(t, result, 3)
}

package object

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/op"
)

func TestIntArithmeticStaysInt(t *testing.T) {
	tests := []struct {
		opType op.BinaryOpType
		a, b   int64
		want   int64
	}{
		{op.Add, 2, 3, 5},
		{op.Subtract, 10, 4, 6},
		{op.Multiply, 6, 7, 42},
		{op.FloorDivide, 7, 2, 3},
		{op.FloorDivide, -7, 2, -4},
		{op.Modulo, 10, 3, 1},
		{op.Modulo, -10, 3, -1},
		{op.Power, 2, 8, 256},
		{op.Power, 3, 0, 1},
		{op.BitAnd, 0b1100, 0b1010, 0b1000},
		{op.BitOr, 0b1100, 0b1010, 0b1110},
		{op.BitXor, 0b1100, 0b1010, 0b0110},
		{op.ShiftLeft, 1, 4, 16},
		{op.ShiftRight, -16, 2, -4},
	}
	for _, tt := range tests {
		t.Run(tt.opType.String(), func(t *testing.T) {
			result, err := BinaryOp(tt.opType, NewInt(tt.a), NewInt(tt.b))
			require.NoError(t, err)
			require.Equal(t, NewInt(tt.want), result)
		})
	}
}

func TestBitwiseRequiresInts(t *testing.T) {
	_, err := BinaryOp(op.BitAnd, NewFloat(1.5), NewInt(1))
	require.True(t, errors.Is(err, &errz.Error{Kind: errz.ErrType}))

	_, err = BinaryOp(op.ShiftLeft, NewInt(1), NewInt(-1))
	require.True(t, errors.Is(err, &errz.Error{Kind: errz.ErrType}))
}

func TestTrueDivisionAlwaysFloat(t *testing.T) {
	result, err := BinaryOp(op.Divide, NewInt(7), NewInt(2))
	require.NoError(t, err)
	require.Equal(t, NewFloat(3.5), result)

	result, err = BinaryOp(op.Divide, NewInt(8), NewInt(2))
	require.NoError(t, err)
	require.Equal(t, NewFloat(4.0), result)
}

func TestMixedOperandsPromoteToFloat(t *testing.T) {
	result, err := BinaryOp(op.Add, NewInt(1), NewFloat(2.5))
	require.NoError(t, err)
	require.Equal(t, NewFloat(3.5), result)

	result, err = BinaryOp(op.Multiply, NewFloat(1.5), NewInt(4))
	require.NoError(t, err)
	require.Equal(t, NewFloat(6.0), result)
}

func TestDivisionByZero(t *testing.T) {
	for _, opType := range []op.BinaryOpType{op.Divide, op.FloorDivide, op.Modulo} {
		_, err := BinaryOp(opType, NewInt(1), NewInt(0))
		require.Error(t, err)
		require.True(t, errors.Is(err, &errz.Error{Kind: errz.ErrDivisionByZero}))
	}
}

func TestFloatDivisionByZeroIsInf(t *testing.T) {
	result, err := BinaryOp(op.Divide, NewFloat(1), NewFloat(0))
	require.NoError(t, err)
	f, ok := result.(*Float)
	require.True(t, ok)
	require.True(t, f.Value() > 0 && f.Value() > 1e308)
}

func TestNegativePowerIsFloat(t *testing.T) {
	result, err := BinaryOp(op.Power, NewInt(2), NewInt(-1))
	require.NoError(t, err)
	require.Equal(t, NewFloat(0.5), result)
}

func TestStringConcatAndRepeat(t *testing.T) {
	result, err := BinaryOp(op.Add, NewString("foo"), NewString("bar"))
	require.NoError(t, err)
	require.Equal(t, NewString("foobar"), result)

	result, err = BinaryOp(op.Multiply, NewString("ab"), NewInt(3))
	require.NoError(t, err)
	require.Equal(t, NewString("ababab"), result)

	_, err = BinaryOp(op.Multiply, NewString("ab"), NewInt(-1))
	require.Error(t, err)
	require.True(t, errors.Is(err, &errz.Error{Kind: errz.ErrType}))
}

func TestListConcat(t *testing.T) {
	a := NewList([]Object{NewInt(1)})
	b := NewList([]Object{NewInt(2), NewInt(3)})
	result, err := BinaryOp(op.Add, a, b)
	require.NoError(t, err)
	list, ok := result.(*List)
	require.True(t, ok)
	require.Equal(t, 3, list.Len())
	require.Equal(t, 1, a.Len()) // inputs unchanged
}

func TestUnsupportedOperands(t *testing.T) {
	_, err := BinaryOp(op.Subtract, NewString("a"), NewInt(1))
	require.Error(t, err)
	require.True(t, errors.Is(err, &errz.Error{Kind: errz.ErrType}))
}

func TestCompareNumericAcrossTypes(t *testing.T) {
	result, err := Compare(op.LessThan, NewInt(1), NewFloat(1.5))
	require.NoError(t, err)
	require.Equal(t, True, result)

	result, err = Compare(op.Equal, NewInt(2), NewFloat(2.0))
	require.NoError(t, err)
	require.Equal(t, True, result)

	result, err = Compare(op.GreaterThanOrEqual, NewFloat(3.0), NewInt(3))
	require.NoError(t, err)
	require.Equal(t, True, result)
}

func TestCompareStrings(t *testing.T) {
	result, err := Compare(op.LessThan, NewString("apple"), NewString("banana"))
	require.NoError(t, err)
	require.Equal(t, True, result)
}

func TestCompareUnorderedTypes(t *testing.T) {
	_, err := Compare(op.LessThan, True, False)
	require.Error(t, err)
	require.True(t, errors.Is(err, &errz.Error{Kind: errz.ErrType}))

	// Equality still works for any pair of types.
	result, err := Compare(op.NotEqual, True, NewInt(1))
	require.NoError(t, err)
	require.Equal(t, True, result)
}

func TestContains(t *testing.T) {
	list := NewList([]Object{NewInt(1), NewString("x")})
	found, err := Contains(list, NewString("x"))
	require.NoError(t, err)
	require.True(t, found)

	found, err = Contains(NewRange(0, 5, false), NewInt(4))
	require.NoError(t, err)
	require.True(t, found)

	found, err = Contains(NewRange(0, 5, false), NewInt(5))
	require.NoError(t, err)
	require.False(t, found)

	found, err = Contains(NewString("hello"), NewString("ell"))
	require.NoError(t, err)
	require.True(t, found)

	_, err = Contains(NewInt(5), NewInt(1))
	require.Error(t, err)
}

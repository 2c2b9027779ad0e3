package object

import (
	"math"
	"strings"

	"github.com/deepnoodle-ai/neba/errz"
	"github.com/deepnoodle-ai/neba/op"
)

// BinaryOp performs an arithmetic binary operation on two objects.
//
// Integer operands stay integers except for "/" which always yields a
// float. Any float operand promotes the operation to float, except the
// bitwise and shift operators which require two ints. "+" also
// concatenates strings and lists, and "*" repeats a string by a
// non-negative integer count.
func BinaryOp(opType op.BinaryOpType, a, b Object) (Object, error) {
	switch a := a.(type) {
	case *Int:
		switch b := b.(type) {
		case *Int:
			return intBinaryOp(opType, a.value, b.value)
		case *Float:
			return floatBinaryOp(opType, float64(a.value), b.value)
		}
	case *Float:
		switch b := b.(type) {
		case *Int:
			return floatBinaryOp(opType, a.value, float64(b.value))
		case *Float:
			return floatBinaryOp(opType, a.value, b.value)
		}
	case *String:
		switch b := b.(type) {
		case *String:
			if opType == op.Add {
				return NewString(a.value + b.value), nil
			}
		case *Int:
			if opType == op.Multiply {
				if b.value < 0 {
					return nil, errz.New(errz.ErrType,
						"negative repeat count for string")
				}
				return NewString(strings.Repeat(a.value, int(b.value))), nil
			}
		}
	case *List:
		if b, ok := b.(*List); ok && opType == op.Add {
			items := make([]Object, 0, a.Len()+b.Len())
			items = append(items, a.items...)
			items = append(items, b.items...)
			return NewList(items), nil
		}
	}
	return nil, errz.Newf(errz.ErrType,
		"unsupported operand types for %s: %s and %s",
		opType, a.Type(), b.Type())
}

func intBinaryOp(opType op.BinaryOpType, a, b int64) (Object, error) {
	switch opType {
	case op.BitAnd:
		return NewInt(a & b), nil
	case op.BitOr:
		return NewInt(a | b), nil
	case op.BitXor:
		return NewInt(a ^ b), nil
	case op.ShiftLeft, op.ShiftRight:
		if b < 0 {
			return nil, errz.New(errz.ErrType, "negative shift count")
		}
		if opType == op.ShiftLeft {
			return NewInt(a << uint64(b)), nil
		}
		return NewInt(a >> uint64(b)), nil
	case op.Add:
		return NewInt(a + b), nil
	case op.Subtract:
		return NewInt(a - b), nil
	case op.Multiply:
		return NewInt(a * b), nil
	case op.Divide:
		// True division always yields a float.
		if b == 0 {
			return nil, errz.New(errz.ErrDivisionByZero, "division by zero")
		}
		return NewFloat(float64(a) / float64(b)), nil
	case op.FloorDivide:
		if b == 0 {
			return nil, errz.New(errz.ErrDivisionByZero, "integer division by zero")
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return NewInt(q), nil
	case op.Modulo:
		if b == 0 {
			return nil, errz.New(errz.ErrDivisionByZero, "integer modulo by zero")
		}
		return NewInt(a % b), nil
	case op.Power:
		if b >= 0 {
			return NewInt(intPow(a, b)), nil
		}
		return NewFloat(math.Pow(float64(a), float64(b))), nil
	}
	return nil, errz.Newf(errz.ErrType, "unknown binary operator: %d", opType)
}

func floatBinaryOp(opType op.BinaryOpType, a, b float64) (Object, error) {
	switch opType {
	case op.BitAnd, op.BitOr, op.BitXor, op.ShiftLeft, op.ShiftRight:
		return nil, errz.Newf(errz.ErrType, "%q requires int operands", opType.String())
	case op.Add:
		return NewFloat(a + b), nil
	case op.Subtract:
		return NewFloat(a - b), nil
	case op.Multiply:
		return NewFloat(a * b), nil
	case op.Divide:
		return NewFloat(a / b), nil
	case op.FloorDivide:
		return NewFloat(math.Floor(a / b)), nil
	case op.Modulo:
		return NewFloat(math.Mod(a, b)), nil
	case op.Power:
		return NewFloat(math.Pow(a, b)), nil
	}
	return nil, errz.Newf(errz.ErrType, "unknown binary operator: %d", opType)
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// Compare applies a comparison operator to two objects. Equality works for
// any pair of types; ordering is defined for numbers (across int and float)
// and for strings (lexicographic).
func Compare(opType op.CompareOpType, a, b Object) (Object, error) {
	switch opType {
	case op.Equal:
		return NewBool(a.Equals(b)), nil
	case op.NotEqual:
		return NewBool(!a.Equals(b)), nil
	}
	cmp, err := order(a, b)
	if err != nil {
		return nil, err
	}
	switch opType {
	case op.LessThan:
		return NewBool(cmp < 0), nil
	case op.LessThanOrEqual:
		return NewBool(cmp <= 0), nil
	case op.GreaterThan:
		return NewBool(cmp > 0), nil
	case op.GreaterThanOrEqual:
		return NewBool(cmp >= 0), nil
	}
	return nil, errz.Newf(errz.ErrType, "unknown comparison operator: %d", opType)
}

func order(a, b Object) (int, error) {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(*String); ok {
		if y, ok := b.(*String); ok {
			return strings.Compare(x.value, y.value), nil
		}
	}
	return 0, errz.Newf(errz.ErrType, "cannot order %s and %s", a.Type(), b.Type())
}

func numeric(obj Object) (float64, bool) {
	switch obj := obj.(type) {
	case *Int:
		return float64(obj.value), true
	case *Float:
		return obj.value, true
	}
	return 0, false
}

// Contains implements the "in" operator: element membership for lists and
// ranges, substring tests for strings.
func Contains(container, item Object) (bool, error) {
	switch container := container.(type) {
	case *List:
		return container.Contains(item), nil
	case *Range:
		return container.Contains(item), nil
	case *String:
		s, ok := item.(*String)
		if !ok {
			return false, errz.Newf(errz.ErrType,
				"'in' on a string requires a string operand, got %s", item.Type())
		}
		return container.Contains(s.value), nil
	}
	return false, errz.Newf(errz.ErrType, "type %s is not a container", container.Type())
}

package vm

import (
	"math"
	"math/big"
)

// ---------------------------------------------------------------------------
// Integer arithmetic with transparent big-integer promotion
// ---------------------------------------------------------------------------

// IntAdd returns a+b, promoting to a big integer on overflow.
func IntAdd(a, b Value) Value {
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		s := x + y
		if (x >= 0) == (y >= 0) && (s >= 0) != (x >= 0) {
			return FromBigInt(new(big.Int).Add(big.NewInt(x), big.NewInt(y)))
		}
		return FromSmallInt(s)
	}
	return FromBigInt(new(big.Int).Add(a.BigInt(), b.BigInt()))
}

// IntSub returns a-b, promoting to a big integer on overflow.
func IntSub(a, b Value) Value {
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		d := x - y
		if (x >= 0) != (y >= 0) && (d >= 0) != (x >= 0) {
			return FromBigInt(new(big.Int).Sub(big.NewInt(x), big.NewInt(y)))
		}
		return FromSmallInt(d)
	}
	return FromBigInt(new(big.Int).Sub(a.BigInt(), b.BigInt()))
}

// IntMul returns a*b, promoting to a big integer on overflow.
func IntMul(a, b Value) Value {
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		if x == 0 || y == 0 {
			return FromSmallInt(0)
		}
		p := x * y
		overflow := p/y != x ||
			(x == -1 && y == math.MinInt64) ||
			(y == -1 && x == math.MinInt64)
		if !overflow {
			return FromSmallInt(p)
		}
	}
	return FromBigInt(new(big.Int).Mul(a.BigInt(), b.BigInt()))
}

// IntNeg returns -a.
func IntNeg(a Value) Value {
	if a.IsSmallInt() && a.SmallInt() != math.MinInt64 {
		return FromSmallInt(-a.SmallInt())
	}
	return FromBigInt(new(big.Int).Neg(a.BigInt()))
}

// IntDiv returns the floored quotient a/b.
func IntDiv(a, b Value) (Value, error) {
	q, _, err := intDivMod(a, b)
	return q, err
}

// IntMod returns the floored modulus a%b; the result takes the sign of b.
func IntMod(a, b Value) (Value, error) {
	_, m, err := intDivMod(a, b)
	return m, err
}

func intDivMod(a, b Value) (Value, Value, error) {
	if b.IsSmallInt() && b.SmallInt() == 0 {
		return Nil, Nil, NewRuntimeError(ZeroDivisionError, "divided by 0")
	}
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		if !(x == math.MinInt64 && y == -1) {
			q, r := x/y, x%y
			if r != 0 && (r < 0) != (y < 0) {
				q--
				r += y
			}
			return FromSmallInt(q), FromSmallInt(r), nil
		}
	}
	x, y := a.BigInt(), b.BigInt()
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, y)
	}
	return FromBigInt(q), FromBigInt(r), nil
}

// IntPow returns a**b for a non-negative exponent.
func IntPow(a, b Value) (Value, error) {
	if b.IsBigInt() || b.SmallInt() < 0 {
		return Nil, NewRuntimeError(ArgumentError, "negative or oversized exponent")
	}
	return FromBigInt(new(big.Int).Exp(a.BigInt(), b.BigInt(), nil)), nil
}

// IntCompare returns -1, 0 or 1.
func IntCompare(a, b Value) int {
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return a.BigInt().Cmp(b.BigInt())
}

// IntString formats an integer in base 10.
func IntString(a Value) string {
	if a.IsBigInt() {
		return a.ref.(*big.Int).String()
	}
	return big.NewInt(a.SmallInt()).String()
}

// ParseInt parses a base-10 integer literal of any size.
func ParseInt(s string) (Value, bool) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Nil, false
	}
	return FromBigInt(n), true
}

// FloatCompare compares two numeric values as floats.
// ok is false when either side is NaN.
func FloatCompare(a, b Value) (int, bool) {
	x, y := a.Float64(), b.Float64()
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// NumericCompare compares integers and floats with each other.
func NumericCompare(a, b Value) (int, bool) {
	if a.IsInt() && b.IsInt() {
		return IntCompare(a, b), true
	}
	return FloatCompare(a, b)
}

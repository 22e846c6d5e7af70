package vm

import (
	"math"
	"math/big"
)

// ---------------------------------------------------------------------------
// Numeric and Integer Primitives
// ---------------------------------------------------------------------------

// arithOp is one binary arithmetic operator over both numeric kinds.
type arithOp struct {
	name string
	ints func(a, b Value) (Value, error)
	flts func(x, y float64) float64
}

var arithOps = []arithOp{
	{"+", func(a, b Value) (Value, error) { return IntAdd(a, b), nil }, func(x, y float64) float64 { return x + y }},
	{"-", func(a, b Value) (Value, error) { return IntSub(a, b), nil }, func(x, y float64) float64 { return x - y }},
	{"*", func(a, b Value) (Value, error) { return IntMul(a, b), nil }, func(x, y float64) float64 { return x * y }},
	{"/", IntDiv, func(x, y float64) float64 { return x / y }},
	{"%", IntMod, floatMod},
	{"modulo", IntMod, floatMod},
	{"**", intPow, math.Pow},
}

func floatMod(x, y float64) float64 {
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m
}

// intPow raises to a negative power through floats.
func intPow(a, b Value) (Value, error) {
	if b.IsSmallInt() && b.SmallInt() < 0 {
		return FromFloat64(math.Pow(a.Float64(), b.Float64())), nil
	}
	return IntPow(a, b)
}

// floatToInt truncates f toward zero, failing for NaN and infinities.
func floatToInt(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Nil, Errorf(FloatDomainError, "%s", FormatFloat(f))
	}
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return FromSmallInt(int64(f)), nil
	}
	n, _ := new(big.Float).SetFloat64(math.Trunc(f)).Int(nil)
	return FromBigInt(n), nil
}

func (vm *VM) coerceError(recv, arg Value) error {
	return Errorf(TypeError, "%s can't be coerced into %s", vm.ClassOf(arg).FullName(), vm.ClassOf(recv).FullName())
}

func (vm *VM) registerNumericPrimitives() {
	sel := vm.Selectors
	num := vm.NumericClass
	i := vm.IntegerClass

	num.AddMethod0(sel, "integer?", func(*VM, Value) (Value, error) { return False, nil })
	num.AddMethod0(sel, "+@", func(_ *VM, recv Value) (Value, error) { return recv, nil })

	// Arithmetic shared by Integer and Float: int op int stays integral,
	// anything involving a float is computed in floating point.
	for _, op := range arithOps {
		op := op
		num.AddMethod1(sel, op.name, func(vm *VM, recv, arg Value) (Value, error) {
			if !arg.IsNumeric() || !recv.IsNumeric() {
				return Nil, vm.coerceError(recv, arg)
			}
			if recv.IsInt() && arg.IsInt() {
				return op.ints(recv, arg)
			}
			return FromFloat64(op.flts(recv.Float64(), arg.Float64())), nil
		})
	}

	// <=> - nil when the argument is not numeric
	num.AddMethod1(sel, "<=>", func(_ *VM, recv, arg Value) (Value, error) {
		if !arg.IsNumeric() {
			return Nil, nil
		}
		c, ok := NumericCompare(recv, arg)
		if !ok {
			return Nil, nil
		}
		return FromSmallInt(int64(c)), nil
	})

	// == - numeric equality across kinds
	num.AddMethod1(sel, "==", func(_ *VM, recv, arg Value) (Value, error) {
		if !arg.IsNumeric() {
			return False, nil
		}
		c, ok := NumericCompare(recv, arg)
		return FromBool(ok && c == 0), nil
	})

	// eql? - equal and of the same class
	num.AddMethod1(sel, "eql?", func(_ *VM, recv, arg Value) (Value, error) {
		if recv.Kind() != arg.Kind() {
			return False, nil
		}
		c, ok := NumericCompare(recv, arg)
		return FromBool(ok && c == 0), nil
	})

	num.AddMethod1(sel, "fdiv", func(vm *VM, recv, arg Value) (Value, error) {
		if !arg.IsNumeric() {
			return Nil, vm.coerceError(recv, arg)
		}
		return FromFloat64(recv.Float64() / arg.Float64()), nil
	})

	// div, divmod - floored integer division
	num.AddMethod1(sel, "div", func(vm *VM, recv, arg Value) (Value, error) {
		if !arg.IsNumeric() {
			return Nil, vm.coerceError(recv, arg)
		}
		if recv.IsInt() && arg.IsInt() {
			return IntDiv(recv, arg)
		}
		if arg.Float64() == 0 {
			return Nil, NewRuntimeError(ZeroDivisionError, "divided by 0")
		}
		return floatToInt(math.Floor(recv.Float64() / arg.Float64()))
	})
	num.AddMethod1(sel, "divmod", func(vm *VM, recv, arg Value) (Value, error) {
		if !arg.IsNumeric() {
			return Nil, vm.coerceError(recv, arg)
		}
		if recv.IsInt() && arg.IsInt() {
			q, m, err := intDivMod(recv, arg)
			if err != nil {
				return Nil, err
			}
			return NewArrayValue(q, m), nil
		}
		x, y := recv.Float64(), arg.Float64()
		if y == 0 {
			return Nil, NewRuntimeError(ZeroDivisionError, "divided by 0")
		}
		q, err := floatToInt(math.Floor(x / y))
		if err != nil {
			return Nil, err
		}
		return NewArrayValue(q, FromFloat64(floatMod(x, y))), nil
	})

	num.AddMethod0(sel, "hash", func(_ *VM, recv Value) (Value, error) {
		if recv.IsBigInt() {
			return FromSmallInt(recv.BigInt().Int64()), nil
		}
		return FromSmallInt(int64(recv.bits >> 1)), nil
	})

	// Integer
	i.AddMethod0(sel, "integer?", func(*VM, Value) (Value, error) { return True, nil })
	i.AddMethod0(sel, "-@", func(_ *VM, recv Value) (Value, error) { return IntNeg(recv), nil })
	i.AddMethod0(sel, "~", func(_ *VM, recv Value) (Value, error) {
		return FromBigInt(new(big.Int).Not(recv.BigInt())), nil
	})

	bitOp := func(name string, fn func(z, x, y *big.Int) *big.Int) {
		i.AddMethod1(sel, name, func(vm *VM, recv, arg Value) (Value, error) {
			if !arg.IsInt() {
				return Nil, vm.coerceError(recv, arg)
			}
			return FromBigInt(fn(new(big.Int), recv.BigInt(), arg.BigInt())), nil
		})
	}
	bitOp("&", (*big.Int).And)
	bitOp("|", (*big.Int).Or)
	bitOp("^", (*big.Int).Xor)

	shift := func(name string, left bool) {
		i.AddMethod1(sel, name, func(vm *VM, recv, arg Value) (Value, error) {
			n, err := vm.argInt(arg)
			if err != nil {
				return Nil, err
			}
			l := left
			if n < 0 {
				n, l = -n, !l
			}
			if l {
				return FromBigInt(new(big.Int).Lsh(recv.BigInt(), uint(n))), nil
			}
			return FromBigInt(new(big.Int).Rsh(recv.BigInt(), uint(n))), nil
		})
	}
	shift("<<", true)
	shift(">>", false)

	// to_s(base = 10), inspect
	i.AddPrimitiveMethod(sel, "to_s", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 1); err != nil {
			return Nil, err
		}
		base := 10
		if len(args) == 1 {
			b, err := vm.argInt(args[0])
			if err != nil {
				return Nil, err
			}
			if b < 2 || b > 36 {
				return Nil, Errorf(ArgumentError, "invalid radix %d", b)
			}
			base = b
		}
		return NewString(recv.BigInt().Text(base)), nil
	})
	i.AddMethod0(sel, "inspect", func(_ *VM, recv Value) (Value, error) {
		return NewString(IntString(recv)), nil
	})

	self := func(_ *VM, recv Value) (Value, error) { return recv, nil }
	for _, name := range []string{"to_i", "to_int", "floor", "ceil", "round", "truncate"} {
		i.AddMethod0(sel, name, self)
	}
	i.AddMethod0(sel, "to_f", func(_ *VM, recv Value) (Value, error) {
		return FromFloat64(recv.Float64()), nil
	})

	succ := func(_ *VM, recv Value) (Value, error) { return IntAdd(recv, FromSmallInt(1)), nil }
	i.AddMethod0(sel, "succ", succ)
	i.AddMethod0(sel, "next", succ)
	i.AddMethod0(sel, "pred", func(_ *VM, recv Value) (Value, error) { return IntSub(recv, FromSmallInt(1)), nil })
	i.AddMethod0(sel, "even?", func(_ *VM, recv Value) (Value, error) {
		return FromBool(recv.BigInt().Bit(0) == 0), nil
	})
	i.AddMethod0(sel, "odd?", func(_ *VM, recv Value) (Value, error) {
		return FromBool(recv.BigInt().Bit(0) == 1), nil
	})

	// chr - the single-byte string for a code point
	i.AddMethod0(sel, "chr", func(_ *VM, recv Value) (Value, error) {
		if !recv.IsSmallInt() || recv.SmallInt() < 0 || recv.SmallInt() > 255 {
			return Nil, Errorf(RangeError, "%s out of char range", IntString(recv))
		}
		return NewString(string([]byte{byte(recv.SmallInt())})), nil
	})

	vm.registerFloatPrimitives()
}

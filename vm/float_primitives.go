package vm

import "math"

// ---------------------------------------------------------------------------
// Float Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerFloatPrimitives() {
	sel := vm.Selectors
	f := vm.FloatClass

	f.AddMethod0(sel, "-@", func(_ *VM, recv Value) (Value, error) {
		return FromFloat64(-recv.Float64()), nil
	})

	toS := func(_ *VM, recv Value) (Value, error) {
		return NewString(FormatFloat(recv.Float64())), nil
	}
	f.AddMethod0(sel, "to_s", toS)
	f.AddMethod0(sel, "inspect", toS)
	f.AddMethod0(sel, "to_f", func(_ *VM, recv Value) (Value, error) { return recv, nil })

	rounding := func(name string, fn func(float64) float64) {
		f.AddMethod0(sel, name, func(_ *VM, recv Value) (Value, error) {
			return floatToInt(fn(recv.Float64()))
		})
	}
	rounding("to_i", math.Trunc)
	rounding("to_int", math.Trunc)
	rounding("truncate", math.Trunc)
	rounding("floor", math.Floor)
	rounding("ceil", math.Ceil)
	rounding("round", math.Round)

	f.AddMethod0(sel, "nan?", func(_ *VM, recv Value) (Value, error) {
		return FromBool(math.IsNaN(recv.Float64())), nil
	})
	f.AddMethod0(sel, "finite?", func(_ *VM, recv Value) (Value, error) {
		x := recv.Float64()
		return FromBool(!math.IsNaN(x) && !math.IsInf(x, 0)), nil
	})

	// infinite? - 1 or -1 for infinities, nil otherwise
	f.AddMethod0(sel, "infinite?", func(_ *VM, recv Value) (Value, error) {
		x := recv.Float64()
		switch {
		case math.IsInf(x, 1):
			return FromSmallInt(1), nil
		case math.IsInf(x, -1):
			return FromSmallInt(-1), nil
		}
		return Nil, nil
	})
}

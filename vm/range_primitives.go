package vm

// ---------------------------------------------------------------------------
// Range Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerRangePrimitives() {
	sel := vm.Selectors
	c := vm.RangeClass
	rng := func(v Value) *Range { return v.AsRange() }

	// Range.new(begin, end, exclude_end = false)
	vm.metaclassOf(c).AddPrimitiveMethod(sel, "new", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 2, 3); err != nil {
			return Nil, err
		}
		if _, ok, err := vm.Spaceship().Compare(args[0], args[1]); err != nil || !ok {
			if err == nil {
				err = Errorf(ArgumentError, "bad value for range")
			}
			return Nil, err
		}
		excl := len(args) == 3 && args[2].IsTruthy()
		return FromRange(NewRange(args[0], args[1], excl)), nil
	})

	first := func(_ *VM, recv Value) (Value, error) { return rng(recv).Begin, nil }
	c.AddMethod0(sel, "begin", first)
	c.AddMethod0(sel, "first", first)
	last := func(_ *VM, recv Value) (Value, error) { return rng(recv).End, nil }
	c.AddMethod0(sel, "end", last)
	c.AddMethod0(sel, "last", last)
	c.AddMethod0(sel, "exclude_end?", func(_ *VM, recv Value) (Value, error) {
		return FromBool(rng(recv).ExcludeEnd), nil
	})

	// include?, member?, cover?, === - begin <= v and v <(=) end via <=>
	cover := func(vm *VM, recv, arg Value) (Value, error) {
		ok, err := vm.RangeCover(rng(recv), arg)
		return FromBool(ok), err
	}
	for _, name := range []string{"include?", "member?", "cover?", "==="} {
		c.AddMethod1(sel, name, cover)
	}

	// each - integers step directly, anything else through succ and <=>
	c.AddPrimitiveMethod(sel, "each", func(vm *VM, recv Value, _ []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return Nil, Errorf(LocalJumpError, "no block given (yield)")
		}
		return recv, vm.rangeEach(rng(recv), func(v Value) error {
			_, err := blk.Call(vm, v)
			return err
		})
	})

	c.AddMethod0(sel, "size", func(vm *VM, recv Value) (Value, error) {
		r := rng(recv)
		if !r.Begin.IsSmallInt() {
			return Nil, Errorf(TypeError, "can't iterate from %s", vm.ClassOf(r.Begin).FullName())
		}
		if !r.End.IsSmallInt() {
			return Nil, nil
		}
		n := r.End.SmallInt() - r.Begin.SmallInt()
		if !r.ExcludeEnd {
			n++
		}
		if n < 0 {
			n = 0
		}
		return FromSmallInt(n), nil
	})

	c.AddMethod1(sel, "==", func(vm *VM, recv, arg Value) (Value, error) {
		a, b := rng(recv), arg.AsRange()
		if b == nil || a.ExcludeEnd != b.ExcludeEnd {
			return False, nil
		}
		eq, err := vm.Equal(a.Begin, b.Begin)
		if err != nil || !eq {
			return False, err
		}
		eq, err = vm.Equal(a.End, b.End)
		return FromBool(eq), err
	})

	render := func(conv func(Value) (string, error)) Method0Func {
		return func(_ *VM, recv Value) (Value, error) {
			r := rng(recv)
			lo, err := conv(r.Begin)
			if err != nil {
				return Nil, err
			}
			hi, err := conv(r.End)
			if err != nil {
				return Nil, err
			}
			dots := ".."
			if r.ExcludeEnd {
				dots = "..."
			}
			return NewString(lo + dots + hi), nil
		}
	}
	c.AddMethod0(sel, "inspect", render(vm.Inspect))
	c.AddMethod0(sel, "to_s", render(vm.ToS))
}

// rangeEach calls fn for every element of r in order.
func (vm *VM) rangeEach(r *Range, fn func(Value) error) error {
	if r.Begin.IsSmallInt() && (r.End.IsSmallInt() || r.End.IsFloat()) {
		lo := r.Begin.SmallInt()
		for i := lo; ; i++ {
			v := FromSmallInt(i)
			c, _ := NumericCompare(v, r.End)
			if c > 0 || c == 0 && r.ExcludeEnd {
				return nil
			}
			if err := fn(v); err != nil {
				return err
			}
		}
	}

	if !vm.RespondTo(r.Begin, "succ", false) {
		return Errorf(TypeError, "can't iterate from %s", vm.ClassOf(r.Begin).FullName())
	}
	cmp := vm.Spaceship()
	for v := r.Begin; ; {
		c, ok, err := cmp.Compare(v, r.End)
		if err != nil {
			return err
		}
		if !ok || c > 0 || c == 0 && r.ExcludeEnd {
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
		if c == 0 {
			return nil
		}
		if v, err = vm.Send(v, "succ"); err != nil {
			return err
		}
	}
}

package vm

// ---------------------------------------------------------------------------
// Proc Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerProcPrimitives() {
	sel := vm.Selectors
	c := vm.ProcClass

	// Proc.new { ... }
	vm.metaclassOf(c).AddPrimitiveMethod(sel, "new", func(_ *VM, _ Value, args []Value, blk *Proc) (Value, error) {
		if err := checkArgs(args, 0, 0); err != nil {
			return Nil, err
		}
		if blk == nil {
			return Nil, Errorf(ArgumentError, "tried to create Proc object without a block")
		}
		return FromProc(blk), nil
	})

	// call, (), [], yield, === - invoke with the given arguments
	call := func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		return recv.AsProc().CallWithBlock(vm, args, blk)
	}
	for _, name := range []string{"call", "()", "[]", "yield", "==="} {
		c.AddPrimitiveMethod(sel, name, call)
	}

	c.AddMethod0(sel, "to_proc", func(_ *VM, recv Value) (Value, error) { return recv, nil })

	c.AddMethod0(sel, "arity", func(_ *VM, recv Value) (Value, error) {
		return FromSmallInt(int64(recv.AsProc().Arity)), nil
	})

	c.AddMethod0(sel, "lambda?", func(_ *VM, recv Value) (Value, error) {
		return FromBool(recv.AsProc().Lambda), nil
	})

	c.AddMethod0(sel, "parameters", func(vm *VM, recv Value) (Value, error) {
		p := recv.AsProc()
		out := NewArray()
		for _, name := range p.Params {
			out.Push(vm.Symbol(name))
		}
		return FromArray(out), nil
	})

	inspect := func(vm *VM, recv Value) (Value, error) {
		if recv.AsProc().Lambda {
			return NewString("#<Proc:(lambda)>"), nil
		}
		return NewString("#<Proc>"), nil
	}
	c.AddMethod0(sel, "inspect", inspect)
	c.AddMethod0(sel, "to_s", inspect)
}

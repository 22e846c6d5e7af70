package vm

// ---------------------------------------------------------------------------
// Hash Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerHashPrimitives() {
	sel := vm.Selectors
	c := vm.HashClass
	hash := func(v Value) *Hash { return v.AsHash() }

	// Hash.new(default = nil)
	vm.metaclassOf(c).AddPrimitiveMethod(sel, "new", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 1); err != nil {
			return Nil, err
		}
		h := NewHash()
		if len(args) == 1 {
			h.Default = args[0]
		}
		return FromHash(h), nil
	})

	// [] - value for key, or the default
	c.AddMethod1(sel, "[]", func(_ *VM, recv, key Value) (Value, error) {
		if v, ok := hash(recv).Get(key); ok {
			return v, nil
		}
		return hash(recv).Default, nil
	})

	store := func(_ *VM, recv, key, val Value) (Value, error) {
		hash(recv).Set(key, val)
		return val, nil
	}
	c.AddMethod2(sel, "[]=", store)
	c.AddMethod2(sel, "store", store)

	// fetch(key, default) { |key| } - KeyError when missing
	c.AddPrimitiveMethod(sel, "fetch", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		if v, ok := hash(recv).Get(args[0]); ok {
			return v, nil
		}
		switch {
		case blk != nil:
			return blk.Call(vm, args[0])
		case len(args) == 2:
			return args[1], nil
		}
		k, err := vm.Inspect(args[0])
		if err != nil {
			return Nil, err
		}
		return Nil, Errorf(KeyError, "key not found: %s", k)
	})

	hasKey := func(_ *VM, recv, key Value) (Value, error) {
		_, ok := hash(recv).Get(key)
		return FromBool(ok), nil
	}
	for _, name := range []string{"key?", "has_key?", "include?", "member?"} {
		c.AddMethod1(sel, name, hasKey)
	}

	c.AddMethod1(sel, "value?", func(vm *VM, recv, val Value) (Value, error) {
		for _, v := range hash(recv).Values() {
			eq, err := vm.Equal(v, val)
			if err != nil || eq {
				return FromBool(eq), err
			}
		}
		return False, nil
	})

	// delete(key) - removed value or nil
	c.AddMethod1(sel, "delete", func(_ *VM, recv, key Value) (Value, error) {
		v, _ := hash(recv).Delete(key)
		return v, nil
	})

	c.AddMethod0(sel, "keys", func(_ *VM, recv Value) (Value, error) {
		return NewArrayValue(hash(recv).Keys()...), nil
	})
	c.AddMethod0(sel, "values", func(_ *VM, recv Value) (Value, error) {
		return NewArrayValue(hash(recv).Values()...), nil
	})
	c.AddPrimitiveMethod(sel, "values_at", func(_ *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		h := hash(recv)
		out := NewArray()
		for _, k := range args {
			v, ok := h.Get(k)
			if !ok {
				v = h.Default
			}
			out.Push(v)
		}
		return FromArray(out), nil
	})

	size := func(_ *VM, recv Value) (Value, error) { return FromSmallInt(int64(hash(recv).Len())), nil }
	c.AddMethod0(sel, "size", size)
	c.AddMethod0(sel, "length", size)
	c.AddMethod0(sel, "empty?", func(_ *VM, recv Value) (Value, error) {
		return FromBool(hash(recv).Len() == 0), nil
	})

	// each, each_pair - yield [key, value] pairs in insertion order
	each := func(vm *VM, recv Value, _ []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return Nil, Errorf(LocalJumpError, "no block given (yield)")
		}
		err := hash(recv).Each(func(k, v Value) error {
			_, err := blk.Call(vm, NewArrayValue(k, v))
			return err
		})
		return recv, err
	}
	c.AddPrimitiveMethod(sel, "each", each)
	c.AddPrimitiveMethod(sel, "each_pair", each)

	// inspect, to_s - {k=>v, ...}
	inspect := func(vm *VM, recv Value) (Value, error) {
		done, seen := vm.enterInspect(recv)
		if seen {
			return NewString("{...}"), nil
		}
		defer done()
		h := hash(recv)
		parts := make([]Value, 0, h.Len())
		err := h.Each(func(k, v Value) error {
			ks, err := vm.Inspect(k)
			if err != nil {
				return err
			}
			vs, err := vm.Inspect(v)
			if err != nil {
				return err
			}
			parts = append(parts, NewString(ks+"=>"+vs))
			return nil
		})
		if err != nil {
			return Nil, err
		}
		s, err := vm.join(NewArray(parts...), ", ")
		return NewString("{" + s + "}"), err
	}
	c.AddMethod0(sel, "inspect", inspect)
	c.AddMethod0(sel, "to_s", inspect)

	c.AddMethod0(sel, "to_h", func(_ *VM, recv Value) (Value, error) { return recv, nil })

	// == - same keys with equal values, order ignored
	c.AddMethod1(sel, "==", func(vm *VM, recv, arg Value) (Value, error) {
		a, b := hash(recv), arg.AsHash()
		if b == nil || a.Len() != b.Len() {
			return False, nil
		}
		for i, k := range a.keys {
			w, ok := b.Get(k)
			if !ok {
				return False, nil
			}
			eq, err := vm.Equal(a.vals[i], w)
			if err != nil || !eq {
				return False, err
			}
		}
		return True, nil
	})

	// merge, update, merge! - later keys win; a block resolves conflicts
	merge := func(vm *VM, into *Hash, args []Value, blk *Proc) error {
		for _, arg := range args {
			other := arg.AsHash()
			if other == nil {
				return Errorf(TypeError, "no implicit conversion of %s into Hash", vm.ClassOf(arg).FullName())
			}
			err := other.Each(func(k, v Value) error {
				if old, ok := into.Get(k); ok && blk != nil {
					merged, err := blk.Call(vm, k, old, v)
					if err != nil {
						return err
					}
					v = merged
				}
				into.Set(k, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	c.AddPrimitiveMethod(sel, "merge", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		out := hash(recv).Dup()
		return FromHash(out), merge(vm, out, args, blk)
	})
	update := func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		return recv, merge(vm, hash(recv), args, blk)
	}
	c.AddPrimitiveMethod(sel, "update", update)
	c.AddPrimitiveMethod(sel, "merge!", update)

	c.AddMethod0(sel, "default", func(_ *VM, recv Value) (Value, error) { return hash(recv).Default, nil })
	c.AddMethod1(sel, "default=", func(_ *VM, recv, arg Value) (Value, error) {
		hash(recv).Default = arg
		return arg, nil
	})

	c.AddMethod0(sel, "clear", func(_ *VM, recv Value) (Value, error) {
		hash(recv).Clear()
		return recv, nil
	})

	c.AddMethod0(sel, "dup", func(_ *VM, recv Value) (Value, error) {
		return FromHash(hash(recv).Dup()), nil
	})
}

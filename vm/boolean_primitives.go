package vm

// ---------------------------------------------------------------------------
// Boolean Primitives (TrueClass, FalseClass, NilClass)
// ---------------------------------------------------------------------------

func (vm *VM) registerBooleanPrimitives() {
	sel := vm.Selectors

	// TrueClass
	t := vm.TrueClass
	t.AddMethod0(sel, "to_s", func(*VM, Value) (Value, error) { return NewString("true"), nil })
	t.AddMethod0(sel, "inspect", func(*VM, Value) (Value, error) { return NewString("true"), nil })
	t.AddMethod1(sel, "&", func(_ *VM, _, arg Value) (Value, error) { return FromBool(arg.IsTruthy()), nil })
	t.AddMethod1(sel, "|", func(*VM, Value, Value) (Value, error) { return True, nil })
	t.AddMethod1(sel, "^", func(_ *VM, _, arg Value) (Value, error) { return FromBool(arg.IsFalsy()), nil })

	// FalseClass
	f := vm.FalseClass
	f.AddMethod0(sel, "to_s", func(*VM, Value) (Value, error) { return NewString("false"), nil })
	f.AddMethod0(sel, "inspect", func(*VM, Value) (Value, error) { return NewString("false"), nil })
	f.AddMethod1(sel, "&", func(*VM, Value, Value) (Value, error) { return False, nil })
	f.AddMethod1(sel, "|", func(_ *VM, _, arg Value) (Value, error) { return FromBool(arg.IsTruthy()), nil })
	f.AddMethod1(sel, "^", func(_ *VM, _, arg Value) (Value, error) { return FromBool(arg.IsTruthy()), nil })

	// NilClass
	n := vm.NilClass
	n.AddMethod0(sel, "nil?", func(*VM, Value) (Value, error) { return True, nil })
	n.AddMethod0(sel, "to_s", func(*VM, Value) (Value, error) { return NewString(""), nil })
	n.AddMethod0(sel, "inspect", func(*VM, Value) (Value, error) { return NewString("nil"), nil })
	n.AddMethod0(sel, "to_a", func(*VM, Value) (Value, error) { return NewArrayValue(), nil })
	n.AddMethod0(sel, "to_i", func(*VM, Value) (Value, error) { return FromSmallInt(0), nil })
	n.AddMethod1(sel, "&", func(*VM, Value, Value) (Value, error) { return False, nil })
	n.AddMethod1(sel, "|", func(_ *VM, _, arg Value) (Value, error) { return FromBool(arg.IsTruthy()), nil })

	// ==, equal? for the immediates: identity
	for _, c := range []*Class{t, f, n} {
		c.AddMethod1(sel, "==", func(_ *VM, recv, arg Value) (Value, error) {
			return FromBool(Identical(recv, arg)), nil
		})
	}
}

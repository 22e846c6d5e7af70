package vm

// ---------------------------------------------------------------------------
// Comparable: relational operators derived from a three-way comparison
// ---------------------------------------------------------------------------

// Comparer is a three-way comparison. ok is false when a and b are not
// comparable; the result is only meaningful by its sign.
type Comparer interface {
	Compare(a, b Value) (result int, ok bool, err error)
}

// ComparerFunc adapts a function to Comparer.
type ComparerFunc func(a, b Value) (int, bool, error)

func (f ComparerFunc) Compare(a, b Value) (int, bool, error) { return f(a, b) }

// Relational derives the relational operators from a Comparer. Every query
// calls Compare exactly once; Between issues two queries.
type Relational struct {
	Comparer Comparer

	// Fail builds the error returned when an ordering query meets an
	// incomparable pair. Nil means a plain ArgumentError.
	Fail func(a, b Value) error
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func (r Relational) query(a, b Value) (int, error) {
	c, ok, err := r.Comparer.Compare(a, b)
	if err != nil {
		return 0, err
	}
	if !ok {
		if r.Fail != nil {
			return 0, r.Fail(a, b)
		}
		return 0, Errorf(ArgumentError, "comparison failed")
	}
	return sign(c), nil
}

// Less reports a < b.
func (r Relational) Less(a, b Value) (bool, error) {
	c, err := r.query(a, b)
	return c == -1, err
}

// Greater reports a > b.
func (r Relational) Greater(a, b Value) (bool, error) {
	c, err := r.query(a, b)
	return c == 1, err
}

// LessEqual reports a <= b.
func (r Relational) LessEqual(a, b Value) (bool, error) {
	c, err := r.query(a, b)
	return err == nil && c != 1, err
}

// GreaterEqual reports a >= b.
func (r Relational) GreaterEqual(a, b Value) (bool, error) {
	c, err := r.query(a, b)
	return err == nil && c != -1, err
}

// Equal reports a == b. An incomparable pair is unequal, not an error.
func (r Relational) Equal(a, b Value) (bool, error) {
	c, ok, err := r.Comparer.Compare(a, b)
	if err != nil || !ok {
		return false, err
	}
	return c == 0, nil
}

// Between reports lo <= x && x <= hi.
func (r Relational) Between(x, lo, hi Value) (bool, error) {
	ge, err := r.GreaterEqual(x, lo)
	if err != nil || !ge {
		return false, err
	}
	return r.LessEqual(x, hi)
}

// Clamp returns lo when x < lo, hi when x > hi, and x otherwise.
func (r Relational) Clamp(x, lo, hi Value) (Value, error) {
	bad, err := r.Greater(lo, hi)
	if err != nil {
		return Nil, err
	}
	if bad {
		return Nil, Errorf(ArgumentError, "min argument must be less than or equal to max argument")
	}
	if less, err := r.Less(x, lo); err != nil || less {
		return lo, err
	}
	if greater, err := r.Greater(x, hi); err != nil || greater {
		return hi, err
	}
	return x, nil
}

// ---------------------------------------------------------------------------
// <=> through dispatch
// ---------------------------------------------------------------------------

// Spaceship returns a Comparer that dispatches <=> on its left operand.
// A nil or non-numeric result means "not comparable".
func (vm *VM) Spaceship() Comparer {
	return ComparerFunc(func(a, b Value) (int, bool, error) {
		r, err := vm.Send(a, "<=>", b)
		if err != nil {
			return 0, false, err
		}
		switch {
		case r.IsSmallInt():
			return sign(int(r.SmallInt())), true, nil
		case r.IsBigInt():
			return r.BigInt().Sign(), true, nil
		case r.IsFloat():
			f := r.Float64()
			if f < 0 {
				return -1, true, nil
			} else if f > 0 {
				return 1, true, nil
			}
			return 0, true, nil
		}
		return 0, false, nil
	})
}

// Relational returns the relational operators over <=>.
func (vm *VM) Relational() Relational {
	return Relational{Comparer: vm.Spaceship(), Fail: vm.comparisonFailed}
}

func (vm *VM) comparisonFailed(a, b Value) error {
	return Errorf(ArgumentError, "comparison of %s with %s failed", vm.ClassOf(a).FullName(), vm.compareOperand(b))
}

// compareOperand names the right operand the way comparison errors do:
// literals by value, everything else by class.
func (vm *VM) compareOperand(v Value) string {
	switch v.kind {
	case KindNil, KindBool, KindInt, KindFloat:
		return formatImmediate(v)
	}
	return vm.ClassOf(v).FullName()
}

// RangeCover reports whether v lies within r, comparing with <=>. An
// incomparable endpoint yields false.
func (vm *VM) RangeCover(r *Range, v Value) (bool, error) {
	cmp := vm.Spaceship()
	lo, ok, err := cmp.Compare(r.Begin, v)
	if err != nil || !ok || lo > 0 {
		return false, err
	}
	hi, ok, err := cmp.Compare(v, r.End)
	if err != nil || !ok {
		return false, err
	}
	if r.ExcludeEnd {
		return hi < 0, nil
	}
	return hi <= 0, nil
}

func (vm *VM) registerComparablePrimitives() {
	c := vm.ComparableModule
	rel := vm.Relational()

	relop := func(name string, op func(a, b Value) (bool, error)) {
		c.AddMethod1(vm.Selectors, name, func(_ *VM, self, other Value) (Value, error) {
			ok, err := op(self, other)
			return FromBool(ok), err
		})
	}
	relop("<", rel.Less)
	relop(">", rel.Greater)
	relop("<=", rel.LessEqual)
	relop(">=", rel.GreaterEqual)
	relop("==", rel.Equal)

	c.AddMethod2(vm.Selectors, "between?", func(_ *VM, self, lo, hi Value) (Value, error) {
		ok, err := rel.Between(self, lo, hi)
		return FromBool(ok), err
	})
	c.AddMethod2(vm.Selectors, "clamp", func(_ *VM, self, lo, hi Value) (Value, error) {
		return rel.Clamp(self, lo, hi)
	})
}

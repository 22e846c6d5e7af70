package vm

import (
	"math/rand"
	"testing"
)

// countingComparer compares small integers and counts its calls.
type countingComparer struct{ calls int }

func (c *countingComparer) Compare(a, b Value) (int, bool, error) {
	c.calls++
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return 0, false, nil
	}
	return IntCompare(a, b) * 7, true, nil
}

func TestRelationalOneCallPerQuery(t *testing.T) {
	cmp := &countingComparer{}
	r := Relational{Comparer: cmp}
	a, b := FromSmallInt(1), FromSmallInt(2)

	ops := []struct {
		name string
		fn   func(a, b Value) (bool, error)
		want bool
	}{
		{"<", r.Less, true},
		{">", r.Greater, false},
		{"<=", r.LessEqual, true},
		{">=", r.GreaterEqual, false},
		{"==", r.Equal, false},
	}
	for _, op := range ops {
		cmp.calls = 0
		got, err := op.fn(a, b)
		if err != nil {
			t.Fatalf("%s: %v", op.name, err)
		}
		if got != op.want {
			t.Errorf("1 %s 2 = %v, want %v", op.name, got, op.want)
		}
		if cmp.calls != 1 {
			t.Errorf("%s called Compare %d times, want 1", op.name, cmp.calls)
		}
	}

	cmp.calls = 0
	if _, err := r.Between(a, a, b); err != nil {
		t.Fatal(err)
	}
	if cmp.calls != 2 {
		t.Errorf("between? called Compare %d times, want 2", cmp.calls)
	}
}

func TestRelationalReflexiveStillCompares(t *testing.T) {
	cmp := &countingComparer{}
	r := Relational{Comparer: cmp}
	x := FromSmallInt(5)
	if eq, _ := r.Equal(x, x); !eq {
		t.Error("x == x should hold")
	}
	if cmp.calls != 1 {
		t.Errorf("Equal on the same value called Compare %d times, want 1", cmp.calls)
	}
}

func TestRelationalTrichotomyAndBetween(t *testing.T) {
	r := Relational{Comparer: &countingComparer{}}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		a := FromSmallInt(int64(rng.Intn(7)))
		b := FromSmallInt(int64(rng.Intn(7)))
		lt, _ := r.Less(a, b)
		gt, _ := r.Greater(a, b)
		eq, _ := r.Equal(a, b)
		n := 0
		for _, x := range []bool{lt, gt, eq} {
			if x {
				n++
			}
		}
		if n != 1 {
			t.Errorf("%d vs %d: lt=%v gt=%v eq=%v", a.SmallInt(), b.SmallInt(), lt, gt, eq)
		}

		lo := FromSmallInt(int64(rng.Intn(7)))
		hi := lo
		if i%3 != 0 {
			hi = FromSmallInt(int64(rng.Intn(7)))
		}
		between, _ := r.Between(a, lo, hi)
		ge, _ := r.GreaterEqual(a, lo)
		le, _ := r.LessEqual(a, hi)
		if between != (ge && le) {
			t.Errorf("between?(%d, %d, %d) = %v, want %v",
				a.SmallInt(), lo.SmallInt(), hi.SmallInt(), between, ge && le)
		}
	}
}

func TestRelationalIncomparable(t *testing.T) {
	r := Relational{Comparer: &countingComparer{}}
	a, b := FromSmallInt(1), NewString("x")

	if _, err := r.Less(a, b); !IsKind(err, ArgumentError) {
		t.Errorf("< on incomparable values should be an ArgumentError, got %v", err)
	}
	eq, err := r.Equal(a, b)
	if err != nil || eq {
		t.Errorf("== on incomparable values should be false, got %v, %v", eq, err)
	}
}

// ---------------------------------------------------------------------------
// Comparable module through dispatch
// ---------------------------------------------------------------------------

// newVersionClass defines a class holding @n whose <=> counts its calls.
func newVersionClass(t *testing.T, vm *VM, calls *int) *Class {
	t.Helper()
	c := mustDefineClass(t, vm, "Version", nil)
	mustIncludeT(t, c, vm.ComparableModule)
	mustDefine(t, vm, c, "<=>", NewMethod1("<=>", func(vm *VM, self, other Value) (Value, error) {
		*calls++
		o := other.AsObject()
		if o == nil {
			return Nil, nil
		}
		return vm.Send(self.AsObject().GetIvar("@n"), "<=>", o.GetIvar("@n"))
	}), Public)
	return c
}

func newVersion(c *Class, n int64) Value {
	obj := NewObject(c)
	obj.SetIvar("@n", FromSmallInt(n))
	return FromObject(obj)
}

func TestComparableModuleDispatch(t *testing.T) {
	vm := NewVM()
	calls := 0
	c := newVersionClass(t, vm, &calls)
	v1, v2, v3 := newVersion(c, 1), newVersion(c, 2), newVersion(c, 3)

	tests := []struct {
		op   string
		a, b Value
		want bool
	}{
		{"<", v1, v2, true},
		{">", v1, v2, false},
		{"<=", v2, v2, true},
		{">=", v1, v2, false},
		{"==", v3, newVersion(c, 3), true},
	}
	for _, tt := range tests {
		calls = 0
		got := send(t, vm, tt.a, tt.op, tt.b)
		if got.IsTrue() != tt.want {
			t.Errorf("%s: got %v, want %v", tt.op, got.IsTrue(), tt.want)
		}
		if calls != 1 {
			t.Errorf("%s dispatched <=> %d times, want 1", tt.op, calls)
		}
	}

	calls = 0
	if got := send(t, vm, v2, "between?", v1, v3); !got.IsTrue() {
		t.Error("2.between?(1, 3) should be true")
	}
	if calls != 2 {
		t.Errorf("between? dispatched <=> %d times, want 2", calls)
	}

	if got := send(t, vm, v3, "clamp", v1, v2); got.AsObject().GetIvar("@n").SmallInt() != 2 {
		t.Error("clamp should return the upper bound")
	}
}

func TestComparableNilResult(t *testing.T) {
	vm := NewVM()
	calls := 0
	c := newVersionClass(t, vm, &calls)
	v := newVersion(c, 1)

	_, err := vm.Send(v, "<", FromSmallInt(3))
	if !IsKind(err, ArgumentError) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
	if want := "ArgumentError: comparison of Version with 3 failed"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if got := send(t, vm, v, "==", NewString("x")); !got.IsFalse() {
		t.Error("== with an incomparable value should be false")
	}
}

func TestRangeCoverUsesSpaceship(t *testing.T) {
	vm := NewVM()
	calls := 0
	c := newVersionClass(t, vm, &calls)
	r := NewRange(newVersion(c, 1), newVersion(c, 3), false)

	tests := []struct {
		n    int64
		excl bool
		want bool
	}{
		{0, false, false},
		{1, false, true},
		{3, false, true},
		{3, true, false},
		{4, false, false},
	}
	for _, tt := range tests {
		r.ExcludeEnd = tt.excl
		got, err := vm.RangeCover(r, newVersion(c, tt.n))
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("cover?(%d) excl=%v = %v, want %v", tt.n, tt.excl, got, tt.want)
		}
	}

	got, err := vm.RangeCover(r, NewString("nope"))
	if err != nil || got {
		t.Errorf("incomparable value should not be covered: %v, %v", got, err)
	}
}

func TestRangeEachIntegers(t *testing.T) {
	vm := NewVM()
	r := FromRange(NewRange(FromSmallInt(-1), FromSmallInt(2), false))
	var seen []int64
	blk := &Proc{Body: func(vm *VM, inv Invocation) (Value, error) {
		seen = append(seen, inv.Args[0].SmallInt())
		return Nil, nil
	}}
	if _, err := vm.SendWithBlock(r, "each", blk); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 4 || seen[0] != -1 || seen[3] != 2 {
		t.Errorf("each yielded %v", seen)
	}
}

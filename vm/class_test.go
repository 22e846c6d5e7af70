package vm

import (
	"errors"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// Class creation
// ---------------------------------------------------------------------------

func TestNewClass(t *testing.T) {
	object := NewClass("Object", nil)
	point := NewClass("Point", object)

	if point.Superclass != object {
		t.Error("superclass should be Object")
	}
	if point.IsModule() {
		t.Error("a class is not a module")
	}
	if got := point.Superclasses(); len(got) != 1 || got[0] != object {
		t.Errorf("Superclasses() = %v", got)
	}
}

func TestNewModule(t *testing.T) {
	m := NewModule("Walkable")
	if !m.IsModule() {
		t.Error("NewModule should create a module")
	}
	if m.Superclass != nil {
		t.Error("modules have no superclass")
	}
}

func TestNamespacedFullName(t *testing.T) {
	c := NewClassInNamespace("Outer", "Inner", nil)
	if got := c.FullName(); got != "Outer::Inner" {
		t.Errorf("FullName() = %q, want %q", got, "Outer::Inner")
	}
}

// ---------------------------------------------------------------------------
// Linearization
// ---------------------------------------------------------------------------

func names(cs []*Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestLinearizeLastIncludeWins(t *testing.T) {
	object := NewClass("Object", nil)
	m1 := NewModule("M1")
	m2 := NewModule("M2")
	c := NewClass("C", object)

	mustIncludeT(t, c, m1)
	mustIncludeT(t, c, m2)

	want := []string{"C", "M2", "M1", "Object"}
	if got := names(c.Ancestors()); !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestLinearizeNestedModules(t *testing.T) {
	object := NewClass("Object", nil)
	inner := NewModule("Inner")
	outer := NewModule("Outer")
	mustIncludeT(t, outer, inner)

	c := NewClass("C", object)
	mustIncludeT(t, c, outer)

	want := []string{"C", "Outer", "Inner", "Object"}
	if got := names(c.Ancestors()); !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestLinearizeSkipsDuplicates(t *testing.T) {
	object := NewClass("Object", nil)
	shared := NewModule("Shared")
	a := NewModule("A")
	b := NewModule("B")
	mustIncludeT(t, a, shared)
	mustIncludeT(t, b, shared)

	base := NewClass("Base", object)
	mustIncludeT(t, base, shared)
	c := NewClass("C", base)
	mustIncludeT(t, c, a)
	mustIncludeT(t, c, b)

	want := []string{"C", "B", "Shared", "A", "Base", "Object"}
	if got := names(c.Ancestors()); !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestIncludeSameModuleTwiceIsNoop(t *testing.T) {
	c := NewClass("C", nil)
	m := NewModule("M")
	added, err := c.Include(m)
	if err != nil || !added {
		t.Fatalf("first include: added=%v err=%v", added, err)
	}
	v := c.Version()
	added, err = c.Include(m)
	if err != nil || added {
		t.Fatalf("second include: added=%v err=%v", added, err)
	}
	if c.Version() != v {
		t.Error("a no-op include should not bump the version")
	}
}

func TestIncludeClassIsTypeError(t *testing.T) {
	c := NewClass("C", nil)
	d := NewClass("D", nil)
	if _, err := c.Include(d); !IsKind(err, TypeError) {
		t.Errorf("including a class should be a TypeError, got %v", err)
	}
}

func TestIncludeCycle(t *testing.T) {
	a := NewModule("A")
	b := NewModule("B")
	mustIncludeT(t, b, a)

	before := names(a.Ancestors())
	beforeB := names(b.Ancestors())
	va, vb := a.Version(), b.Version()

	_, err := a.Include(b)
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if cycle.Target != a || cycle.Module != b {
		t.Errorf("CycleError = %+v", cycle)
	}

	if a.Version() != va || b.Version() != vb {
		t.Error("a failed include should not bump versions")
	}
	if got := names(a.Ancestors()); !reflect.DeepEqual(got, before) {
		t.Errorf("A ancestors changed to %v", got)
	}
	if got := names(b.Ancestors()); !reflect.DeepEqual(got, beforeB) {
		t.Errorf("B ancestors changed to %v", got)
	}
}

func TestIncludeSelfIsCycle(t *testing.T) {
	m := NewModule("M")
	var cycle *CycleError
	if _, err := m.Include(m); !errors.As(err, &cycle) {
		t.Errorf("including a module into itself should be a CycleError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Cache invalidation
// ---------------------------------------------------------------------------

func TestIncludeInvalidatesDescendants(t *testing.T) {
	object := NewClass("Object", nil)
	base := NewClass("Base", object)
	sub := NewClass("Sub", base)
	leaf := NewClass("Leaf", sub)

	_ = leaf.Ancestors()
	m := NewModule("M")
	mustIncludeT(t, base, m)

	want := []string{"Leaf", "Sub", "Base", "M", "Object"}
	if got := names(leaf.Ancestors()); !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestModuleIncludeInvalidatesIncluders(t *testing.T) {
	object := NewClass("Object", nil)
	m := NewModule("M")
	c := NewClass("C", object)
	mustIncludeT(t, c, m)
	_ = c.Ancestors()

	n := NewModule("N")
	mustIncludeT(t, m, n)

	want := []string{"C", "M", "N", "Object"}
	if got := names(c.Ancestors()); !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestDefineMethodVisibleThroughCache(t *testing.T) {
	sel := NewSelectorTable()
	object := NewClass("Object", nil)
	m := NewModule("M")
	c := NewClass("C", object)
	mustIncludeT(t, c, m)

	if c.LookupMethod(sel, "greet") != nil {
		t.Fatal("greet should not resolve yet")
	}
	m.AddMethod0(sel, "greet", func(*VM, Value) (Value, error) { return NewString("hi"), nil })
	e := c.LookupMethod(sel, "greet")
	if e == nil || e.Owner != m {
		t.Fatalf("greet should resolve to M after definition, got %v", e)
	}

	object.AddMethod0(sel, "greet", func(*VM, Value) (Value, error) { return Nil, nil })
	if e := c.LookupMethod(sel, "greet"); e.Owner != m {
		t.Errorf("M should still win over Object, got %s", e.Owner.Name)
	}

	c.AddMethod0(sel, "greet", func(*VM, Value) (Value, error) { return Nil, nil })
	if e := c.LookupMethod(sel, "greet"); e.Owner != c {
		t.Errorf("C's own definition should win, got %s", e.Owner.Name)
	}
}

func TestUndefStopsLookup(t *testing.T) {
	sel := NewSelectorTable()
	base := NewClass("Base", nil)
	sub := NewClass("Sub", base)
	base.AddMethod0(sel, "x", func(*VM, Value) (Value, error) { return Nil, nil })

	if err := sub.UndefMethod(sel, "x"); err != nil {
		t.Fatal(err)
	}
	if sub.LookupMethod(sel, "x") != nil {
		t.Error("undef should hide the inherited method")
	}
	if base.LookupMethod(sel, "x") == nil {
		t.Error("undef should not affect the superclass")
	}
}

func TestRemoveMethodRevealsInherited(t *testing.T) {
	sel := NewSelectorTable()
	base := NewClass("Base", nil)
	sub := NewClass("Sub", base)
	base.AddMethod0(sel, "x", func(*VM, Value) (Value, error) { return Nil, nil })
	sub.AddMethod0(sel, "x", func(*VM, Value) (Value, error) { return Nil, nil })

	if err := sub.RemoveMethod(sel, "x"); err != nil {
		t.Fatal(err)
	}
	if e := sub.LookupMethod(sel, "x"); e == nil || e.Owner != base {
		t.Error("remove_method should reveal the inherited definition")
	}
	if err := sub.RemoveMethod(sel, "x"); !IsKind(err, NameError) {
		t.Errorf("removing a missing method should be a NameError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Class variables
// ---------------------------------------------------------------------------

func TestClassVarsInherited(t *testing.T) {
	base := NewClass("Base", nil)
	sub := NewClass("Sub", base)
	base.SetClassVar("@@count", FromSmallInt(1))

	v, err := sub.GetClassVar("@@count")
	if err != nil || v.SmallInt() != 1 {
		t.Fatalf("GetClassVar = %v, %v", v, err)
	}
	sub.SetClassVar("@@count", FromSmallInt(2))
	if v, _ := base.GetClassVar("@@count"); v.SmallInt() != 2 {
		t.Error("assignment through a subclass should update the owner")
	}
	if _, err := base.GetClassVar("@@missing"); !IsKind(err, NameError) {
		t.Errorf("missing class variable should be a NameError, got %v", err)
	}
}

func mustIncludeT(t *testing.T, c, m *Class) {
	t.Helper()
	if _, err := c.Include(m); err != nil {
		t.Fatalf("include %s into %s: %v", m.Name, c.Name, err)
	}
}

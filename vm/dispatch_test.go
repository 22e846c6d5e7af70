package vm

import (
	"errors"
	"testing"
)

func constMethod(name string, v Value) Method {
	return NewMethod0(name, func(*VM, Value) (Value, error) { return v, nil })
}

func mustDefineClass(t *testing.T, vm *VM, name string, super *Class) *Class {
	t.Helper()
	c, err := vm.DefineClass(name, super, nil)
	if err != nil {
		t.Fatalf("DefineClass(%s): %v", name, err)
	}
	return c
}

func mustDefine(t *testing.T, vm *VM, c *Class, name string, m Method, vis Visibility) {
	t.Helper()
	if _, err := vm.DefineMethod(c, name, m, vis); err != nil {
		t.Fatalf("DefineMethod(%s#%s): %v", c.Name, name, err)
	}
}

func send(t *testing.T, vm *VM, recv Value, name string, args ...Value) Value {
	t.Helper()
	v, err := vm.Send(recv, name, args...)
	if err != nil {
		t.Fatalf("send %s: %v", name, err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

func TestResolveClosestAncestorWins(t *testing.T) {
	vm := NewVM()
	base := mustDefineClass(t, vm, "Base", nil)
	mod, _ := vm.DefineModule("Mixin", nil)
	sub := mustDefineClass(t, vm, "Sub", base)
	mustIncludeT(t, sub, mod)

	mustDefine(t, vm, base, "who", constMethod("who", NewString("base")), Public)
	mustDefine(t, vm, mod, "who", constMethod("who", NewString("mixin")), Public)

	obj := FromObject(NewObject(sub))
	e, ok := vm.Resolve(obj, "who")
	if !ok || e.Owner != mod {
		t.Fatalf("who should resolve to Mixin, got %v", e)
	}

	mustDefine(t, vm, sub, "who", constMethod("who", NewString("sub")), Public)
	if got := send(t, vm, obj, "who"); got.AsString().String() != "sub" {
		t.Errorf("who = %q, want sub", got.AsString().String())
	}
}

func TestReopenVisibleToExistingInstances(t *testing.T) {
	vm := NewVM()
	base := mustDefineClass(t, vm, "Animal", nil)
	sub := mustDefineClass(t, vm, "Dog", base)
	a := FromObject(NewObject(base))
	d := FromObject(NewObject(sub))

	if _, err := vm.Send(d, "speak"); err == nil {
		t.Fatal("speak should not resolve before it is defined")
	}

	again, err := vm.DefineClass("Animal", nil, nil)
	if err != nil || again != base {
		t.Fatalf("reopening should return the same class, got %v, %v", again, err)
	}
	mustDefine(t, vm, again, "speak", constMethod("speak", NewString("...")), Public)

	for _, recv := range []Value{a, d} {
		if got := send(t, vm, recv, "speak"); got.AsString().String() != "..." {
			t.Errorf("speak = %q", got.AsString().String())
		}
	}
}

func TestRedefineDuringExecution(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Counter", nil)
	mustDefine(t, vm, c, "step", NewMethod0("step", func(vm *VM, self Value) (Value, error) {
		_, err := vm.DefineMethod(c, "step", constMethod("step", FromSmallInt(2)), Public)
		return FromSmallInt(1), err
	}), Public)

	obj := FromObject(NewObject(c))
	if got := send(t, vm, obj, "step"); got.SmallInt() != 1 {
		t.Errorf("first call = %d, want 1", got.SmallInt())
	}
	if got := send(t, vm, obj, "step"); got.SmallInt() != 2 {
		t.Errorf("second call = %d, want 2", got.SmallInt())
	}
}

func TestSuperclassMismatch(t *testing.T) {
	vm := NewVM()
	a := mustDefineClass(t, vm, "A", nil)
	mustDefineClass(t, vm, "B", a)
	if _, err := vm.DefineClass("B", vm.StringClass, nil); !IsKind(err, TypeError) {
		t.Errorf("expected TypeError for superclass mismatch, got %v", err)
	}
	vm.DefineModule("M", nil)
	if _, err := vm.DefineClass("M", nil, nil); !IsKind(err, TypeError) {
		t.Errorf("reopening a module as a class should be a TypeError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Visibility
// ---------------------------------------------------------------------------

func TestPrivateMethodRequiresSelf(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Secret", nil)
	mustDefine(t, vm, c, "hidden", constMethod("hidden", True), Private)
	obj := FromObject(NewObject(c))

	_, err := vm.Send(obj, "hidden")
	var vis *VisibilityError
	if !errors.As(err, &vis) {
		t.Fatalf("expected VisibilityError, got %v", err)
	}
	if vis.Visibility != Private || vis.Name != "hidden" {
		t.Errorf("VisibilityError = %+v", vis)
	}

	v, err := vm.SendSelf(obj, "hidden")
	if err != nil || !v.IsTrue() {
		t.Errorf("self call should reach the private method: %v, %v", v, err)
	}
}

func TestProtectedMethodFromSameFamily(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Account", nil)
	sub := mustDefineClass(t, vm, "Savings", c)
	other := mustDefineClass(t, vm, "Stranger", nil)
	mustDefine(t, vm, c, "balance", constMethod("balance", FromSmallInt(10)), Protected)

	target := FromObject(NewObject(c))
	call := func(caller Value) error {
		_, err := vm.Dispatch(Call{Receiver: target, Name: "balance", Caller: caller})
		return err
	}

	if err := call(FromObject(NewObject(sub))); err != nil {
		t.Errorf("subclass caller should reach a protected method: %v", err)
	}
	var vis *VisibilityError
	if err := call(FromObject(NewObject(other))); !errors.As(err, &vis) {
		t.Errorf("unrelated caller should get VisibilityError, got %v", err)
	}
}

func TestInitializeIsAlwaysPrivate(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Thing", nil)
	e, err := vm.DefineMethod(c, "initialize", constMethod("initialize", Nil), Public)
	if err != nil {
		t.Fatal(err)
	}
	if e.Visibility != Private {
		t.Errorf("initialize visibility = %s, want private", e.Visibility)
	}
}

func TestVisibilityErrorLeavesRegistryAlone(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Box", nil)
	mustDefine(t, vm, c, "inner", constMethod("inner", Nil), Private)
	v := c.Version()
	vm.Send(FromObject(NewObject(c)), "inner")
	if c.Version() != v {
		t.Error("a rejected call should not change the class")
	}
}

// ---------------------------------------------------------------------------
// method_missing
// ---------------------------------------------------------------------------

func TestNotFoundWithoutOverride(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Plain", nil)
	_, err := vm.Send(FromObject(NewObject(c)), "nope")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Name != "nope" || nf.Super {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestMethodMissingOverride(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Ghost", nil)
	var gotName string
	var gotArgs int
	mustDefine(t, vm, c, "method_missing", NewPrimitiveMethod("method_missing",
		func(vm *VM, self Value, args []Value, _ *Proc) (Value, error) {
			gotName = vm.SymbolName(args[0])
			gotArgs = len(args) - 1
			return NewString("handled"), nil
		}), Private)

	v, err := vm.Send(FromObject(NewObject(c)), "anything", FromSmallInt(1), FromSmallInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if v.AsString().String() != "handled" || gotName != "anything" || gotArgs != 2 {
		t.Errorf("method_missing saw %q with %d args, returned %v", gotName, gotArgs, v)
	}

	// Instances of other classes keep the default behaviour.
	plain := mustDefineClass(t, vm, "Plain", nil)
	var nf *NotFoundError
	if _, err := vm.Send(FromObject(NewObject(plain)), "anything"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError for a class without override, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// super
// ---------------------------------------------------------------------------

func TestCallSuperFollowsAncestorOrder(t *testing.T) {
	vm := NewVM()
	base := mustDefineClass(t, vm, "Base", nil)
	mod, _ := vm.DefineModule("Loud", nil)
	sub := mustDefineClass(t, vm, "Sub", base)
	mustIncludeT(t, sub, mod)

	mustDefine(t, vm, base, "say", constMethod("say", NewString("base")), Public)
	mustDefine(t, vm, mod, "say", NewMethod0("say", func(vm *VM, self Value) (Value, error) {
		v, err := vm.CallSuper(self, mod, "say", nil, nil)
		if err != nil {
			return Nil, err
		}
		return NewString("loud " + v.AsString().String()), nil
	}), Public)
	mustDefine(t, vm, sub, "say", NewMethod0("say", func(vm *VM, self Value) (Value, error) {
		v, err := vm.CallSuper(self, sub, "say", nil, nil)
		if err != nil {
			return Nil, err
		}
		return NewString("sub " + v.AsString().String()), nil
	}), Public)

	got := send(t, vm, FromObject(NewObject(sub)), "say")
	if got.AsString().String() != "sub loud base" {
		t.Errorf("say = %q", got.AsString().String())
	}
}

func TestCallSuperMissing(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Lonely", nil)
	_, err := vm.CallSuper(FromObject(NewObject(c)), c, "solo", nil, nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) || !nf.Super {
		t.Errorf("expected super NotFoundError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Singletons and metaclasses
// ---------------------------------------------------------------------------

func TestSingletonMethodOnlyOnOneObject(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Person", nil)
	alice := FromObject(NewObject(c))
	bob := FromObject(NewObject(c))

	s, err := vm.SingletonClassOf(alice)
	if err != nil {
		t.Fatal(err)
	}
	mustDefine(t, vm, s, "name", constMethod("name", NewString("alice")), Public)

	if got := send(t, vm, alice, "name"); got.AsString().String() != "alice" {
		t.Errorf("alice.name = %v", got)
	}
	if _, err := vm.Send(bob, "name"); err == nil {
		t.Error("bob should not see alice's singleton method")
	}
	if vm.ClassOf(alice) != c {
		t.Error("class should skip the singleton class")
	}
}

func TestSingletonOfImmediateIsTypeError(t *testing.T) {
	vm := NewVM()
	if _, err := vm.SingletonClassOf(FromSmallInt(1)); !IsKind(err, TypeError) {
		t.Errorf("expected TypeError, got %v", err)
	}
}

func TestClassMethodsInherited(t *testing.T) {
	vm := NewVM()
	base := mustDefineClass(t, vm, "Model", nil)
	sub := mustDefineClass(t, vm, "User", base)

	meta, err := vm.SingletonClassOf(FromClass(base))
	if err != nil {
		t.Fatal(err)
	}
	mustDefine(t, vm, meta, "table", constMethod("table", NewString("models")), Public)

	if got := send(t, vm, FromClass(sub), "table"); got.AsString().String() != "models" {
		t.Errorf("User.table = %v", got)
	}
	if !vm.IsA(FromClass(sub), vm.ClassClass) {
		t.Error("a class should be a Class")
	}
}

func TestSingletonMethodAddedHook(t *testing.T) {
	vm := NewVM()
	c := mustDefineClass(t, vm, "Watched", nil)
	obj := FromObject(NewObject(c))

	var added []string
	s, _ := vm.SingletonClassOf(obj)
	mustDefine(t, vm, s, "singleton_method_added", NewMethod1("singleton_method_added",
		func(vm *VM, _ Value, name Value) (Value, error) {
			added = append(added, vm.SymbolName(name))
			return Nil, nil
		}), Private)
	mustDefine(t, vm, s, "ping", constMethod("ping", Nil), Public)

	if len(added) < 1 || added[len(added)-1] != "ping" {
		t.Errorf("singleton_method_added saw %v", added)
	}
}

// ---------------------------------------------------------------------------
// Core class wiring
// ---------------------------------------------------------------------------

func TestCoreAncestors(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		class *Class
		want  []string
	}{
		{vm.IntegerClass, []string{"Integer", "Numeric", "Comparable", "Object", "Kernel"}},
		{vm.StringClass, []string{"String", "Comparable", "Object", "Kernel"}},
		{vm.ArrayClass, []string{"Array", "Enumerable", "Object", "Kernel"}},
		{vm.ClassClass, []string{"Class", "Module", "Object", "Kernel"}},
	}
	for _, tt := range tests {
		got := tt.class.AncestorNames()
		if len(got) != len(tt.want) {
			t.Errorf("%s ancestors = %v, want %v", tt.class.Name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s ancestors = %v, want %v", tt.class.Name, got, tt.want)
				break
			}
		}
	}
}

func TestPrimitiveSends(t *testing.T) {
	vm := NewVM()
	tests := []struct {
		recv Value
		name string
		args []Value
		want string
	}{
		{FromSmallInt(2), "+", []Value{FromSmallInt(3)}, "5"},
		{FromSmallInt(7), "/", []Value{FromSmallInt(2)}, "3"},
		{FromSmallInt(7), "fdiv", []Value{FromSmallInt(2)}, "3.5"},
		{FromSmallInt(2), "**", []Value{FromSmallInt(100)}, "1267650600228229401496703205376"},
		{NewString("abc"), "upcase", nil, `"ABC"`},
		{NewArrayValue(FromSmallInt(3), FromSmallInt(1), FromSmallInt(2)), "sort", nil, "[1, 2, 3]"},
		{FromRange(NewRange(FromSmallInt(1), FromSmallInt(5), true)), "inspect", nil, `"1...5"`},
		{Nil, "to_a", nil, "[]"},
	}
	for _, tt := range tests {
		v := send(t, vm, tt.recv, tt.name, tt.args...)
		got, err := vm.Inspect(v)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestLookupConstant(t *testing.T) {
	vm := NewVM()
	outer, _ := vm.DefineModule("Outer", nil)
	inner, err := vm.DefineClass("Inner", nil, outer)
	if err != nil {
		t.Fatal(err)
	}
	outer.SetConst("LIMIT", FromSmallInt(3))

	v, err := vm.LookupConstant([]*Class{outer, inner}, "LIMIT")
	if err != nil || v.SmallInt() != 3 {
		t.Errorf("lexical lookup = %v, %v", v, err)
	}
	v, err = vm.LookupConstant([]*Class{inner}, "String")
	if err != nil || v.AsClass() != vm.StringClass {
		t.Errorf("Object fallback = %v, %v", v, err)
	}
	if _, err := vm.LookupConstant(nil, "Nope"); !IsKind(err, NameError) {
		t.Errorf("expected NameError, got %v", err)
	}
	if inner.FullName() != "Outer::Inner" {
		t.Errorf("FullName = %q", inner.FullName())
	}
}

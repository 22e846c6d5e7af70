package vm

import "fmt"

// ---------------------------------------------------------------------------
// Receiver classes
// ---------------------------------------------------------------------------

// ClassOf returns the class a value reports as its class. Singleton classes
// are skipped.
func (vm *VM) ClassOf(v Value) *Class {
	switch v.kind {
	case KindNil:
		return vm.NilClass
	case KindBool:
		if v.bits == 1 {
			return vm.TrueClass
		}
		return vm.FalseClass
	case KindInt:
		return vm.IntegerClass
	case KindFloat:
		return vm.FloatClass
	case KindSymbol:
		return vm.SymbolClass
	case KindString:
		return vm.StringClass
	case KindArray:
		return vm.ArrayClass
	case KindHash:
		return vm.HashClass
	case KindRange:
		return vm.RangeClass
	case KindProc:
		return vm.ProcClass
	case KindObject:
		return v.AsObject().Class()
	case KindClass:
		if v.AsClass().IsModule() {
			return vm.ModuleClass
		}
		return vm.ClassClass
	}
	return vm.ObjectClass
}

// DispatchClassOf returns the class method lookup starts from: the
// singleton class when the value has one, the metaclass for class values,
// and ClassOf otherwise.
func (vm *VM) DispatchClassOf(v Value) *Class {
	switch v.kind {
	case KindObject:
		return v.AsObject().dispatchClass()
	case KindClass:
		return vm.metaclassOf(v.AsClass())
	}
	return vm.ClassOf(v)
}

// metaclassOf returns (creating on first use) the class that holds the
// singleton methods of c. Its superclass is the metaclass of c's superclass,
// so class methods are inherited; the chain ends at Class for classes and
// at Module for modules.
func (vm *VM) metaclassOf(c *Class) *Class {
	if c.meta != nil {
		return c.meta
	}
	if c.singleton {
		return vm.ClassClass
	}

	var super *Class
	switch {
	case c.IsModule():
		super = vm.ModuleClass
	case c.Superclass != nil:
		super = vm.metaclassOf(c.Superclass)
	default:
		super = vm.ClassClass
	}

	meta := NewClass("#<Class:"+c.FullName()+">", super)
	meta.singleton = true
	meta.attached = FromClass(c)
	c.meta = meta
	return meta
}

// SingletonClassOf returns the singleton class of v, creating it if needed.
// Only objects and classes can carry singleton methods.
func (vm *VM) SingletonClassOf(v Value) (*Class, error) {
	switch v.kind {
	case KindClass:
		return vm.metaclassOf(v.AsClass()), nil
	case KindObject:
		obj := v.AsObject()
		if obj.singleton == nil {
			s := NewClass("#<Class:"+vm.describe(v)+">", obj.class)
			s.singleton = true
			s.attached = v
			obj.singleton = s
		}
		return obj.singleton, nil
	}
	return nil, Errorf(TypeError, "can't define singleton for %s", vm.ClassOf(v).FullName())
}

// IsA reports whether c appears in the ancestor order of v's dispatch class.
func (vm *VM) IsA(v Value, c *Class) bool {
	return vm.DispatchClassOf(v).HasAncestor(c)
}

// ---------------------------------------------------------------------------
// Resolution and invocation
// ---------------------------------------------------------------------------

// Call describes one message send.
type Call struct {
	Receiver Value
	Name     string
	Args     []Value
	Block    *Proc

	// Self is set when the receiver was implicit or written as self: private
	// methods are callable only this way.
	Self bool

	// Caller is the self of the sending frame, used for protected checks.
	Caller Value
}

// Resolve finds the entry that handles name for recv, without checking
// visibility.
func (vm *VM) Resolve(recv Value, name string) (*MethodEntry, bool) {
	e := vm.DispatchClassOf(recv).Lookup(vm.Selectors.Lookup(name))
	if e == nil {
		log.Debugf("resolve miss: %s on %s", name, vm.ClassOf(recv).FullName())
		return nil, false
	}
	return e, true
}

// Dispatch resolves and invokes a call. A resolution miss is handed to the
// receiver's method_missing before it becomes an error.
func (vm *VM) Dispatch(call Call) (Value, error) {
	e, ok := vm.Resolve(call.Receiver, call.Name)
	if !ok {
		return vm.methodMissing(call, false)
	}
	if err := vm.checkVisibility(e, call); err != nil {
		return Nil, err
	}
	return e.Method.Invoke(vm, call.Receiver, call.Args, call.Block)
}

func (vm *VM) checkVisibility(e *MethodEntry, call Call) error {
	switch e.Visibility {
	case Private:
		if call.Self {
			return nil
		}
	case Protected:
		if call.Self || vm.IsA(call.Caller, e.Owner.NonSingleton()) {
			return nil
		}
	default:
		return nil
	}
	return &VisibilityError{Name: call.Name, Visibility: e.Visibility, Receiver: vm.describe(call.Receiver)}
}

// methodMissing routes a failed lookup through the receiver's
// method_missing. The built-in fallback is not invoked; the NotFoundError
// it would produce is returned directly.
func (vm *VM) methodMissing(call Call, super bool) (Value, error) {
	notFound := &NotFoundError{Name: call.Name, Receiver: vm.describe(call.Receiver), Super: super}

	e, ok := vm.Resolve(call.Receiver, "method_missing")
	if !ok || e.Owner == vm.KernelModule && IsPrimitive(e.Method) {
		return Nil, notFound
	}
	args := make([]Value, 0, len(call.Args)+1)
	args = append(args, vm.Symbol(call.Name))
	args = append(args, call.Args...)
	return e.Method.Invoke(vm, call.Receiver, args, call.Block)
}

// Send calls a public method on recv.
func (vm *VM) Send(recv Value, name string, args ...Value) (Value, error) {
	return vm.Dispatch(Call{Receiver: recv, Name: name, Args: args})
}

// SendSelf calls name on recv as if from inside recv, so private methods
// are reachable.
func (vm *VM) SendSelf(recv Value, name string, args ...Value) (Value, error) {
	return vm.Dispatch(Call{Receiver: recv, Name: name, Args: args, Self: true, Caller: recv})
}

// SendWithBlock calls a public method on recv passing a block.
func (vm *VM) SendWithBlock(recv Value, name string, blk *Proc, args ...Value) (Value, error) {
	return vm.Dispatch(Call{Receiver: recv, Name: name, Args: args, Block: blk})
}

// CallSuper invokes the entry that follows owner in the ancestor order of
// self's dispatch class.
func (vm *VM) CallSuper(self Value, owner *Class, name string, args []Value, blk *Proc) (Value, error) {
	cls := vm.DispatchClassOf(self)
	e := cls.LookupAfter(owner, vm.Selectors.Lookup(name))
	if e == nil {
		return vm.methodMissing(Call{Receiver: self, Name: name, Args: args, Block: blk, Self: true}, true)
	}
	return e.Method.Invoke(vm, self, args, blk)
}

// RespondTo reports whether v resolves name, counting private methods only
// when includePrivate is set.
func (vm *VM) RespondTo(v Value, name string, includePrivate bool) bool {
	return vm.DispatchClassOf(v).RespondsTo(vm.Selectors, name, includePrivate)
}

// ---------------------------------------------------------------------------
// Definition
// ---------------------------------------------------------------------------

// DefineMethod installs m on target and fires the definition hook:
// singleton_method_added on the attached object for singleton classes,
// method_added on the class otherwise. initialize is always private.
func (vm *VM) DefineMethod(target *Class, name string, m Method, vis Visibility) (*MethodEntry, error) {
	if name == "initialize" {
		vis = Private
	}
	e := target.DefineMethod(vm.Selectors, name, m, vis)
	log.Debugf("defined %s#%s (%s)", target.FullName(), name, vis)

	if target.IsSingleton() {
		_, err := vm.SendSelf(target.Attached(), "singleton_method_added", vm.Symbol(name))
		return e, err
	}
	_, err := vm.SendSelf(FromClass(target), "method_added", vm.Symbol(name))
	return e, err
}

// RemoveMethod deletes target's own entry for name and fires
// method_removed (singleton_method_removed for singleton classes).
func (vm *VM) RemoveMethod(target *Class, name string) error {
	if err := target.RemoveMethod(vm.Selectors, name); err != nil {
		return err
	}
	log.Debugf("removed %s#%s", target.FullName(), name)
	return vm.fireMethodHook(target, "method_removed", name)
}

// UndefMethod stops lookup of name at target and fires method_undefined
// (singleton_method_undefined for singleton classes).
func (vm *VM) UndefMethod(target *Class, name string) error {
	if err := target.UndefMethod(vm.Selectors, name); err != nil {
		return err
	}
	log.Debugf("undefined %s#%s", target.FullName(), name)
	return vm.fireMethodHook(target, "method_undefined", name)
}

func (vm *VM) fireMethodHook(target *Class, hook, name string) error {
	var err error
	if target.IsSingleton() {
		_, err = vm.SendSelf(target.Attached(), "singleton_"+hook, vm.Symbol(name))
	} else {
		_, err = vm.SendSelf(FromClass(target), hook, vm.Symbol(name))
	}
	return err
}

// ---------------------------------------------------------------------------
// Conversions through dispatch
// ---------------------------------------------------------------------------

// Equal dispatches == on a.
func (vm *VM) Equal(a, b Value) (bool, error) {
	r, err := vm.Send(a, "==", b)
	if err != nil {
		return false, err
	}
	return r.IsTruthy(), nil
}

// Inspect returns the result of v.inspect as a Go string.
func (vm *VM) Inspect(v Value) (string, error) {
	return vm.stringVia(v, "inspect")
}

// ToS returns the result of v.to_s as a Go string.
func (vm *VM) ToS(v Value) (string, error) {
	return vm.stringVia(v, "to_s")
}

func (vm *VM) stringVia(v Value, name string) (string, error) {
	if s := v.AsString(); s != nil && name == "to_s" {
		return s.String(), nil
	}
	r, err := vm.SendSelf(v, name)
	if err != nil {
		return "", err
	}
	if s := r.AsString(); s != nil {
		return s.String(), nil
	}
	return vm.describe(r), nil
}

// describe renders a receiver for error messages without dispatching.
func (vm *VM) describe(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil:NilClass"
	case KindBool:
		if v.bits == 1 {
			return "true:TrueClass"
		}
		return "false:FalseClass"
	case KindClass:
		c := v.AsClass()
		return c.FullName() + ":" + vm.ClassOf(v).Name
	case KindObject:
		if Identical(v, vm.Main) {
			return "main:Object"
		}
		return fmt.Sprintf("#<%s>", v.AsObject().ClassName())
	}
	return "an instance of " + vm.ClassOf(v).FullName()
}

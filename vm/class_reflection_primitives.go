package vm

import "strings"

// ---------------------------------------------------------------------------
// Module Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerModulePrimitives() {
	m := vm.ModuleClass
	sel := vm.Selectors

	// name, to_s, inspect - the qualified name
	name := func(_ *VM, recv Value) (Value, error) {
		return NewString(recv.AsClass().FullName()), nil
	}
	m.AddMethod0(sel, "name", name)
	m.AddMethod0(sel, "to_s", name)
	m.AddMethod0(sel, "inspect", name)

	// === - instance test for case/when
	m.AddMethod1(sel, "===", func(vm *VM, recv, arg Value) (Value, error) {
		return FromBool(vm.IsA(arg, recv.AsClass())), nil
	})

	// <, <=, >, >= - ancestry ordering; nil for unrelated types
	m.AddMethod1(sel, "<", func(vm *VM, recv, arg Value) (Value, error) {
		return vm.moduleRelation(recv, arg, true)
	})
	m.AddMethod1(sel, "<=", func(vm *VM, recv, arg Value) (Value, error) {
		return vm.moduleRelation(recv, arg, false)
	})
	m.AddMethod1(sel, ">", func(vm *VM, recv, arg Value) (Value, error) {
		return vm.moduleRelation(arg, recv, true)
	})
	m.AddMethod1(sel, ">=", func(vm *VM, recv, arg Value) (Value, error) {
		return vm.moduleRelation(arg, recv, false)
	})

	// include(*modules) - last argument is included first, so the first
	// argument ends up nearest to the receiver
	m.AddPrivateMethod(sel, "include", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, -1); err != nil {
			return Nil, err
		}
		if err := vm.includeAll(recv.AsClass(), args); err != nil {
			return Nil, err
		}
		return recv, nil
	})

	// included, extended, method_added, method_removed, method_undefined
	// - hooks, no-ops by default
	for _, hook := range []string{"included", "extended", "method_added", "method_removed", "method_undefined"} {
		m.AddPrivateMethod(sel, hook, func(*VM, Value, []Value, *Proc) (Value, error) {
			return Nil, nil
		})
	}

	// include?(module)
	m.AddMethod1(sel, "include?", func(vm *VM, recv, arg Value) (Value, error) {
		mod, err := vm.argClass(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(recv.AsClass().IncludesModule(mod)), nil
	})

	// ancestors - the linearized lookup order
	m.AddMethod0(sel, "ancestors", func(_ *VM, recv Value) (Value, error) {
		anc := recv.AsClass().Ancestors()
		out := make([]Value, len(anc))
		for i, a := range anc {
			out[i] = FromClass(a)
		}
		return NewArrayValue(out...), nil
	})

	// included_modules - the modules among the ancestors
	m.AddMethod0(sel, "included_modules", func(_ *VM, recv Value) (Value, error) {
		out := NewArray()
		for _, a := range recv.AsClass().Ancestors() {
			if a.IsModule() {
				out.Push(FromClass(a))
			}
		}
		return FromArray(out), nil
	})

	// instance_methods(inherited = true), public_instance_methods,
	// private_instance_methods, protected_instance_methods
	listing := func(keep func(*MethodEntry) bool) PrimitiveFunc {
		return func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
			if err := checkArgs(args, 0, 1); err != nil {
				return Nil, err
			}
			inherited := len(args) == 0 || args[0].IsTruthy()
			return vm.methodNames(recv.AsClass(), inherited, keep), nil
		}
	}
	m.AddPrimitiveMethod(sel, "instance_methods", listing(func(e *MethodEntry) bool { return e.Visibility != Private }))
	m.AddPrimitiveMethod(sel, "public_instance_methods", listing(func(e *MethodEntry) bool { return e.Visibility == Public }))
	m.AddPrimitiveMethod(sel, "private_instance_methods", listing(func(e *MethodEntry) bool { return e.Visibility == Private }))
	m.AddPrimitiveMethod(sel, "protected_instance_methods", listing(func(e *MethodEntry) bool { return e.Visibility == Protected }))

	// method_defined?, public_method_defined?, private_method_defined?,
	// protected_method_defined?
	defined := func(test func(*MethodEntry) bool) Method1Func {
		return func(vm *VM, recv, arg Value) (Value, error) {
			n, err := vm.argName(arg)
			if err != nil {
				return Nil, err
			}
			e := recv.AsClass().LookupMethod(vm.Selectors, n)
			return FromBool(e != nil && test(e)), nil
		}
	}
	m.AddMethod1(sel, "method_defined?", defined(func(e *MethodEntry) bool { return e.Visibility != Private }))
	m.AddMethod1(sel, "public_method_defined?", defined(func(e *MethodEntry) bool { return e.Visibility == Public }))
	m.AddMethod1(sel, "private_method_defined?", defined(func(e *MethodEntry) bool { return e.Visibility == Private }))
	m.AddMethod1(sel, "protected_method_defined?", defined(func(e *MethodEntry) bool { return e.Visibility == Protected }))

	// public, private, protected - with names, change those methods; bare,
	// change the default for following definitions in the current body
	for _, vis := range []Visibility{Public, Private, Protected} {
		vis := vis
		m.AddPrivateMethod(sel, vis.String(), func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
			return vm.setVisibility(recv.AsClass(), vis, args)
		})
	}

	// module_function(*names) - copy to the singleton, make the instance
	// method private
	m.AddPrivateMethod(sel, "module_function", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		c := recv.AsClass()
		if len(args) == 0 {
			return vm.setVisibility(c, Private, nil)
		}
		meta := vm.metaclassOf(c)
		for _, a := range args {
			n, err := vm.argName(a)
			if err != nil {
				return Nil, err
			}
			e := c.LookupMethod(vm.Selectors, n)
			if e == nil {
				return Nil, Errorf(NameError, "undefined method `%s' for module `%s'", n, c.FullName())
			}
			meta.DefineMethod(vm.Selectors, n, e.Method, Public)
			if err := c.SetVisibility(vm.Selectors, n, Private); err != nil {
				return Nil, err
			}
		}
		return Nil, nil
	})

	// alias_method(new, old)
	m.AddMethod2(sel, "alias_method", func(vm *VM, recv, newName, oldName Value) (Value, error) {
		nn, err := vm.argName(newName)
		if err != nil {
			return Nil, err
		}
		on, err := vm.argName(oldName)
		if err != nil {
			return Nil, err
		}
		if err := vm.Alias(recv.AsClass(), nn, on); err != nil {
			return Nil, err
		}
		return recv, nil
	})

	// undef_method(*names), remove_method(*names)
	m.AddPrivateMethod(sel, "undef_method", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		for _, a := range args {
			n, err := vm.argName(a)
			if err != nil {
				return Nil, err
			}
			if err := vm.UndefMethod(recv.AsClass(), n); err != nil {
				return Nil, err
			}
		}
		return recv, nil
	})
	m.AddPrivateMethod(sel, "remove_method", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		for _, a := range args {
			n, err := vm.argName(a)
			if err != nil {
				return Nil, err
			}
			if err := vm.RemoveMethod(recv.AsClass(), n); err != nil {
				return Nil, err
			}
		}
		return recv, nil
	})

	// define_method(name, proc = nil, &block)
	m.AddPrivateMethod(sel, "define_method", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		n, err := vm.argName(args[0])
		if err != nil {
			return Nil, err
		}
		body := blk
		if len(args) == 2 {
			body = args[1].AsProc()
		}
		if body == nil {
			return Nil, Errorf(ArgumentError, "tried to create Proc object without a block")
		}
		c := recv.AsClass()
		vis := Public
		if b := vm.CurrentBinding(); b != nil && b.Target == c {
			vis = b.Visibility
		}
		if _, err := vm.DefineMethod(c, n, NewProcMethod(n, body), vis); err != nil {
			return Nil, err
		}
		return vm.Symbol(n), nil
	})

	// attr_reader, attr_writer, attr_accessor, attr
	m.AddPrivateMethod(sel, "attr_reader", vm.attrDefiner(true, false))
	m.AddPrivateMethod(sel, "attr", vm.attrDefiner(true, false))
	m.AddPrivateMethod(sel, "attr_writer", vm.attrDefiner(false, true))
	m.AddPrivateMethod(sel, "attr_accessor", vm.attrDefiner(true, true))

	// const_get, const_set, const_defined?, constants
	m.AddMethod1(sel, "const_get", func(vm *VM, recv, arg Value) (Value, error) {
		n, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		cur := recv.AsClass()
		parts := strings.Split(n, "::")
		var v Value
		for i, part := range parts {
			var ok bool
			if v, ok = cur.LookupConst(part); !ok && i == 0 {
				v, ok = vm.ObjectClass.LookupConst(part)
			}
			if !ok {
				return Nil, Errorf(NameError, "uninitialized constant %s::%s", cur.FullName(), part)
			}
			if i < len(parts)-1 {
				if cur = v.AsClass(); cur == nil {
					return Nil, Errorf(TypeError, "%s is not a class/module", part)
				}
			}
		}
		return v, nil
	})
	m.AddMethod2(sel, "const_set", func(vm *VM, recv, arg, val Value) (Value, error) {
		n, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		if n == "" || n[0] < 'A' || n[0] > 'Z' {
			return Nil, Errorf(NameError, "wrong constant name %s", n)
		}
		recv.AsClass().SetConst(n, val)
		return val, nil
	})
	m.AddMethod1(sel, "const_defined?", func(vm *VM, recv, arg Value) (Value, error) {
		n, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		_, ok := recv.AsClass().LookupConst(n)
		return FromBool(ok), nil
	})
	m.AddMethod0(sel, "constants", func(vm *VM, recv Value) (Value, error) {
		out := NewArray()
		for _, n := range sortedKeys(recv.AsClass().Constants) {
			out.Push(vm.Symbol(n))
		}
		return FromArray(out), nil
	})

	// class_variable_get, class_variable_set, class_variable_defined?,
	// class_variables
	m.AddMethod1(sel, "class_variable_get", func(vm *VM, recv, arg Value) (Value, error) {
		n, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		return recv.AsClass().GetClassVar(n)
	})
	m.AddMethod2(sel, "class_variable_set", func(vm *VM, recv, arg, val Value) (Value, error) {
		n, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		recv.AsClass().SetClassVar(n, val)
		return val, nil
	})
	m.AddMethod1(sel, "class_variable_defined?", func(vm *VM, recv, arg Value) (Value, error) {
		n, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(recv.AsClass().HasClassVar(n)), nil
	})
	m.AddMethod0(sel, "class_variables", func(vm *VM, recv Value) (Value, error) {
		out := NewArray()
		for _, n := range recv.AsClass().AllClassVarNames() {
			out.Push(vm.Symbol(n))
		}
		return FromArray(out), nil
	})

	// class_eval, module_eval - run a block with self and the def target
	// bound to the receiver
	classEval := func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if blk == nil {
			if len(args) == 1 && args[0].IsString() {
				b := vm.TopBinding("(eval)")
				b.Self = recv
				b.Target = recv.AsClass()
				b.Cref = append(b.Cref, recv.AsClass())
				b.Visibility = Public
				return vm.EvalIn(args[0].AsString().String(), b)
			}
			return Nil, Errorf(ArgumentError, "block not supplied")
		}
		return blk.CallAs(vm, recv, recv.AsClass(), recv)
	}
	m.AddPrimitiveMethod(sel, "class_eval", classEval)
	m.AddPrimitiveMethod(sel, "module_eval", classEval)
}

// ---------------------------------------------------------------------------
// Class Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerClassPrimitives() {
	c := vm.ClassClass
	sel := vm.Selectors

	// inherited(subclass) - hook sent when a subclass is created, no-op by default
	c.AddPrivateMethod(sel, "inherited", func(*VM, Value, []Value, *Proc) (Value, error) {
		return Nil, nil
	})

	// allocate - a fresh instance without running initialize
	c.AddMethod0(sel, "allocate", func(vm *VM, recv Value) (Value, error) {
		return vm.allocate(recv.AsClass())
	})

	// new(*args, &block) - allocate and send initialize
	c.AddPrimitiveMethod(sel, "new", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		obj, err := vm.allocate(recv.AsClass())
		if err != nil {
			return Nil, err
		}
		_, err = vm.Dispatch(Call{Receiver: obj, Name: "initialize", Args: args, Block: blk, Self: true, Caller: obj})
		return obj, err
	})

	// superclass - nil for the root class
	c.AddMethod0(sel, "superclass", func(_ *VM, recv Value) (Value, error) {
		s := recv.AsClass().Superclass
		if s == nil {
			return Nil, nil
		}
		return FromClass(s), nil
	})

	// initialize - accepts and ignores arguments on Object
	vm.ObjectClass.DefineMethod(sel, "initialize", NewPrimitiveMethod("initialize", func(*VM, Value, []Value, *Proc) (Value, error) {
		return Nil, nil
	}), Private)
}

// allocate creates an uninitialised instance of c. Core value classes
// cannot be allocated this way.
func (vm *VM) allocate(c *Class) (Value, error) {
	if c.IsModule() {
		return Nil, &NotFoundError{Name: "new", Receiver: c.FullName() + ":Module"}
	}
	if c.IsSingleton() {
		return Nil, Errorf(TypeError, "can't create instance of singleton class")
	}
	for k := c; k != nil; k = k.Superclass {
		switch k {
		case vm.ObjectClass:
			return FromObject(NewObject(c)), nil
		case vm.NilClass, vm.TrueClass, vm.FalseClass, vm.IntegerClass, vm.FloatClass, vm.SymbolClass,
			vm.StringClass, vm.ArrayClass, vm.HashClass, vm.RangeClass, vm.ProcClass, vm.ModuleClass:
			return Nil, Errorf(TypeError, "allocator undefined for %s", c.FullName())
		}
	}
	return FromObject(NewObject(c)), nil
}

// ---------------------------------------------------------------------------
// Top-level self
// ---------------------------------------------------------------------------

func (vm *VM) registerMainPrimitives() {
	s, _ := vm.SingletonClassOf(vm.Main)
	sel := vm.Selectors

	s.AddMethod0(sel, "to_s", func(*VM, Value) (Value, error) { return NewString("main"), nil })
	s.AddMethod0(sel, "inspect", func(*VM, Value) (Value, error) { return NewString("main"), nil })

	// include at top level mixes into Object
	s.AddPrivateMethod(sel, "include", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, -1); err != nil {
			return Nil, err
		}
		if err := vm.includeAll(vm.ObjectClass, args); err != nil {
			return Nil, err
		}
		return FromClass(vm.ObjectClass), nil
	})

	// public, private at top level act on Object
	s.AddPrivateMethod(sel, "public", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		return vm.setVisibility(vm.ObjectClass, Public, args)
	})
	s.AddPrivateMethod(sel, "private", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		return vm.setVisibility(vm.ObjectClass, Private, args)
	})

	// define_method at top level defines on Object
	s.AddPrivateMethod(sel, "define_method", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		return vm.Dispatch(Call{Receiver: FromClass(vm.ObjectClass), Name: "define_method", Args: args, Block: blk, Self: true})
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// includeAll includes modules into c, last argument first, firing each
// module's included hook.
func (vm *VM) includeAll(c *Class, args []Value) error {
	mods := make([]*Class, len(args))
	for i, a := range args {
		m, err := vm.argClass(a)
		if err != nil {
			return err
		}
		if !m.IsModule() {
			return Errorf(TypeError, "wrong argument type %s (expected module)", m.FullName())
		}
		mods[i] = m
	}
	for i := len(mods) - 1; i >= 0; i-- {
		added, err := c.Include(mods[i])
		if err != nil {
			return err
		}
		if added {
			log.Debugf("included %s into %s", mods[i].FullName(), c.FullName())
		}
		if _, err := vm.SendSelf(FromClass(mods[i]), "included", FromClass(c)); err != nil {
			return err
		}
	}
	return nil
}

// setVisibility implements public/private/protected. With no names it
// changes the default visibility of the innermost body that defines into c.
func (vm *VM) setVisibility(c *Class, vis Visibility, args []Value) (Value, error) {
	if len(args) == 0 {
		if b := vm.CurrentBinding(); b != nil && b.Target == c {
			b.Visibility = vis
		}
		return Nil, nil
	}
	for _, a := range args {
		names := []Value{a}
		if arr := a.AsArray(); arr != nil {
			names = arr.Elements
		}
		for _, nv := range names {
			n, err := vm.argName(nv)
			if err != nil {
				return Nil, err
			}
			if err := c.SetVisibility(vm.Selectors, n, vis); err != nil {
				return Nil, err
			}
		}
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return NewArrayValue(args...), nil
}

// Alias copies the entry oldName resolves to in c under newName.
func (vm *VM) Alias(c *Class, newName, oldName string) error {
	if err := c.AliasMethod(vm.Selectors, newName, oldName); err != nil {
		return err
	}
	if c.IsSingleton() {
		_, err := vm.SendSelf(c.Attached(), "singleton_method_added", vm.Symbol(newName))
		return err
	}
	_, err := vm.SendSelf(FromClass(c), "method_added", vm.Symbol(newName))
	return err
}

// moduleRelation answers sub < super (strict) or sub <= super, and nil when
// neither is an ancestor of the other.
func (vm *VM) moduleRelation(sub, super Value, strict bool) (Value, error) {
	a, b := sub.AsClass(), super.AsClass()
	if a == nil || b == nil {
		return Nil, Errorf(TypeError, "compared with non class/module")
	}
	if a == b {
		return FromBool(!strict), nil
	}
	if a.HasAncestor(b) {
		return True, nil
	}
	if b.HasAncestor(a) {
		return False, nil
	}
	return Nil, nil
}

// attrDefiner builds attr_reader/attr_writer/attr_accessor.
func (vm *VM) attrDefiner(reader, writer bool) PrimitiveFunc {
	return func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		c := recv.AsClass()
		vis := Public
		if b := vm.CurrentBinding(); b != nil && b.Target == c {
			vis = b.Visibility
		}
		for _, a := range args {
			n, err := vm.argName(a)
			if err != nil {
				return Nil, err
			}
			ivar := "@" + n
			if reader {
				m := NewMethod0(n, func(_ *VM, self Value) (Value, error) {
					if obj := self.AsObject(); obj != nil {
						return obj.GetIvar(ivar), nil
					}
					return Nil, nil
				})
				if _, err := vm.DefineMethod(c, n, m, vis); err != nil {
					return Nil, err
				}
			}
			if writer {
				m := NewMethod1(n+"=", func(vm *VM, self, val Value) (Value, error) {
					obj := self.AsObject()
					if obj == nil {
						return Nil, Errorf(TypeError, "can't modify instance variables of %s", vm.ClassOf(self).FullName())
					}
					obj.SetIvar(ivar, val)
					return val, nil
				})
				if _, err := vm.DefineMethod(c, n+"=", m, vis); err != nil {
					return Nil, err
				}
			}
		}
		return Nil, nil
	}
}

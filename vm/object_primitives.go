package vm

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Kernel Primitives (mixed into Object)
// ---------------------------------------------------------------------------

func (vm *VM) registerKernelPrimitives() {
	k := vm.KernelModule
	sel := vm.Selectors

	// class - the receiver's class, skipping singleton classes
	k.AddMethod0(sel, "class", func(vm *VM, recv Value) (Value, error) {
		return FromClass(vm.ClassOf(recv)), nil
	})

	// singleton_class - the receiver's singleton class, created on demand
	k.AddMethod0(sel, "singleton_class", func(vm *VM, recv Value) (Value, error) {
		s, err := vm.SingletonClassOf(recv)
		if err != nil {
			return Nil, err
		}
		return FromClass(s), nil
	})

	// ==, equal?, eql? - identity by default
	identity := func(_ *VM, recv, arg Value) (Value, error) {
		return FromBool(Identical(recv, arg)), nil
	}
	k.AddMethod1(sel, "==", identity)
	k.AddMethod1(sel, "equal?", identity)
	k.AddMethod1(sel, "eql?", func(_ *VM, recv, arg Value) (Value, error) {
		return FromBool(keyOf(recv) == keyOf(arg)), nil
	})

	// <=> - 0 for the same object, nil otherwise
	k.AddMethod1(sel, "<=>", func(_ *VM, recv, arg Value) (Value, error) {
		if Identical(recv, arg) {
			return FromSmallInt(0), nil
		}
		return Nil, nil
	})

	// != - negation of ==
	k.AddMethod1(sel, "!=", func(vm *VM, recv, arg Value) (Value, error) {
		eq, err := vm.Equal(recv, arg)
		return FromBool(!eq), err
	})

	// === - case equality, == unless overridden
	k.AddMethod1(sel, "===", func(vm *VM, recv, arg Value) (Value, error) {
		eq, err := vm.Equal(recv, arg)
		return FromBool(eq), err
	})

	// ! - logical negation
	k.AddMethod0(sel, "!", func(_ *VM, recv Value) (Value, error) {
		return FromBool(recv.IsFalsy()), nil
	})

	k.AddMethod0(sel, "nil?", func(_ *VM, recv Value) (Value, error) {
		return False, nil
	})

	// is_a?, kind_of? - ancestry test including singleton extensions
	isA := func(vm *VM, recv, arg Value) (Value, error) {
		c, err := vm.argClass(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(vm.IsA(recv, c)), nil
	}
	k.AddMethod1(sel, "is_a?", isA)
	k.AddMethod1(sel, "kind_of?", isA)

	// instance_of? - exact class test
	k.AddMethod1(sel, "instance_of?", func(vm *VM, recv, arg Value) (Value, error) {
		c, err := vm.argClass(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(vm.ClassOf(recv) == c), nil
	})

	// respond_to?(name, include_private = false)
	k.AddPrimitiveMethod(sel, "respond_to?", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		name, err := vm.argName(args[0])
		if err != nil {
			return Nil, err
		}
		priv := len(args) == 2 && args[1].IsTruthy()
		return FromBool(vm.RespondTo(recv, name, priv)), nil
	})

	// send, __send__ - dispatch by name, private methods included
	send := func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if len(args) == 0 {
			return Nil, Errorf(ArgumentError, "no method name given")
		}
		name, err := vm.argName(args[0])
		if err != nil {
			return Nil, err
		}
		return vm.Dispatch(Call{Receiver: recv, Name: name, Args: args[1:], Block: blk, Self: true, Caller: recv})
	}
	k.AddPrimitiveMethod(sel, "send", send)
	k.AddPrimitiveMethod(sel, "__send__", send)

	// public_send - dispatch by name, public methods only
	k.AddPrimitiveMethod(sel, "public_send", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if len(args) == 0 {
			return Nil, Errorf(ArgumentError, "no method name given")
		}
		name, err := vm.argName(args[0])
		if err != nil {
			return Nil, err
		}
		return vm.Dispatch(Call{Receiver: recv, Name: name, Args: args[1:], Block: blk})
	})

	// method_missing - the fallback at the end of every failed lookup
	k.AddPrivateMethod(sel, "method_missing", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if len(args) == 0 {
			return Nil, Errorf(ArgumentError, "no method name given")
		}
		name, err := vm.argName(args[0])
		if err != nil {
			return Nil, err
		}
		return Nil, &NotFoundError{Name: name, Receiver: vm.describe(recv)}
	})

	// singleton_method_added, singleton_method_removed,
	// singleton_method_undefined - hooks, no-ops by default
	for _, hook := range []string{"singleton_method_added", "singleton_method_removed", "singleton_method_undefined"} {
		k.AddPrivateMethod(sel, hook, func(*VM, Value, []Value, *Proc) (Value, error) {
			return Nil, nil
		})
	}

	// to_s - #<ClassName>
	k.AddMethod0(sel, "to_s", func(vm *VM, recv Value) (Value, error) {
		return NewString(vm.defaultToS(recv)), nil
	})

	// inspect - lists instance variables, otherwise falls back to to_s
	k.AddMethod0(sel, "inspect", func(vm *VM, recv Value) (Value, error) {
		obj := recv.AsObject()
		if obj == nil || len(obj.names) == 0 {
			s, err := vm.ToS(recv)
			return NewString(s), err
		}
		parts := make([]string, len(obj.names))
		for i, n := range obj.names {
			s, err := vm.Inspect(obj.ivars[n])
			if err != nil {
				return Nil, err
			}
			parts[i] = n + "=" + s
		}
		return NewString(fmt.Sprintf("#<%s %s>", obj.ClassName(), strings.Join(parts, ", "))), nil
	})

	// object_id, __id__, hash
	objectID := func(vm *VM, recv Value) (Value, error) {
		return FromSmallInt(vm.ObjectID(recv)), nil
	}
	k.AddMethod0(sel, "object_id", objectID)
	k.AddMethod0(sel, "__id__", objectID)
	k.AddMethod0(sel, "hash", objectID)

	// instance_variable_get, instance_variable_set, instance_variables
	k.AddMethod1(sel, "instance_variable_get", func(vm *VM, recv, arg Value) (Value, error) {
		name, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		if obj := vm.IvarTable(recv); obj != nil {
			return obj.GetIvar(name), nil
		}
		return Nil, nil
	})
	k.AddMethod2(sel, "instance_variable_set", func(vm *VM, recv, arg, val Value) (Value, error) {
		name, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		obj := vm.IvarTable(recv)
		if obj == nil {
			return Nil, Errorf(TypeError, "can't modify instance variables of %s", vm.ClassOf(recv).FullName())
		}
		obj.SetIvar(name, val)
		return val, nil
	})
	k.AddMethod1(sel, "instance_variable_defined?", func(vm *VM, recv, arg Value) (Value, error) {
		name, err := vm.argName(arg)
		if err != nil {
			return Nil, err
		}
		obj := vm.IvarTable(recv)
		return FromBool(obj != nil && obj.HasIvar(name)), nil
	})
	k.AddMethod0(sel, "instance_variables", func(vm *VM, recv Value) (Value, error) {
		out := NewArray()
		if obj := vm.IvarTable(recv); obj != nil {
			for _, n := range obj.IvarNames() {
				out.Push(vm.Symbol(n))
			}
		}
		return FromArray(out), nil
	})

	// extend(*modules) - include into the singleton class, last first
	k.AddPrimitiveMethod(sel, "extend", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, -1); err != nil {
			return Nil, err
		}
		s, err := vm.SingletonClassOf(recv)
		if err != nil {
			return Nil, err
		}
		for i := len(args) - 1; i >= 0; i-- {
			m, err := vm.argClass(args[i])
			if err != nil {
				return Nil, err
			}
			if _, err := s.Include(m); err != nil {
				return Nil, err
			}
			if _, err := vm.SendSelf(args[i], "extended", recv); err != nil {
				return Nil, err
			}
		}
		return recv, nil
	})

	// methods - public and protected method names visible on the receiver
	k.AddMethod0(sel, "methods", func(vm *VM, recv Value) (Value, error) {
		return vm.methodNames(vm.DispatchClassOf(recv), true, func(e *MethodEntry) bool {
			return e.Visibility != Private
		}), nil
	})

	// singleton_methods - methods held by the receiver's singleton class
	k.AddMethod0(sel, "singleton_methods", func(vm *VM, recv Value) (Value, error) {
		c := vm.DispatchClassOf(recv)
		if !c.IsSingleton() {
			return NewArrayValue(), nil
		}
		return vm.methodNames(c, false, func(e *MethodEntry) bool {
			return e.Visibility != Private
		}), nil
	})

	// dup, clone - shallow copy
	dup := func(vm *VM, recv Value) (Value, error) {
		return vm.shallowCopy(recv), nil
	}
	k.AddMethod0(sel, "dup", dup)
	k.AddMethod0(sel, "clone", dup)

	// tap - yield self, return self
	k.AddPrimitiveMethod(sel, "tap", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if _, err := vm.Yield(blk, recv); err != nil {
			return Nil, err
		}
		return recv, nil
	})

	// instance_eval - run a block with self bound to the receiver
	k.AddPrimitiveMethod(sel, "instance_eval", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return Nil, Errorf(ArgumentError, "block not supplied")
		}
		var target *Class
		if s, err := vm.SingletonClassOf(recv); err == nil {
			target = s
		}
		return blk.CallAs(vm, recv, target, recv)
	})

	vm.registerKernelFunctions()
}

// registerKernelFunctions registers the private module functions of Kernel.
func (vm *VM) registerKernelFunctions() {
	k := vm.KernelModule
	sel := vm.Selectors

	// puts(*args) - to_s each argument on its own line; arrays are flattened
	k.AddPrivateMethod(sel, "puts", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if len(args) == 0 {
			_, err := fmt.Fprintln(vm.Stdout)
			return Nil, err
		}
		var lines []string
		if err := vm.putsLines(args, &lines, 0); err != nil {
			return Nil, err
		}
		for _, line := range lines {
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			if _, err := fmt.Fprint(vm.Stdout, line); err != nil {
				return Nil, err
			}
		}
		return Nil, nil
	})

	// print(*args) - to_s each argument, no separators
	k.AddPrivateMethod(sel, "print", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		for _, a := range args {
			s, err := vm.ToS(a)
			if err != nil {
				return Nil, err
			}
			if _, err := fmt.Fprint(vm.Stdout, s); err != nil {
				return Nil, err
			}
		}
		return Nil, nil
	})

	// p(*args) - inspect each argument on its own line
	k.AddPrivateMethod(sel, "p", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		for _, a := range args {
			s, err := vm.Inspect(a)
			if err != nil {
				return Nil, err
			}
			if _, err := fmt.Fprintln(vm.Stdout, s); err != nil {
				return Nil, err
			}
		}
		switch len(args) {
		case 0:
			return Nil, nil
		case 1:
			return args[0], nil
		}
		return NewArrayValue(args...), nil
	})

	// require(path) - evaluate a library once
	k.AddPrivateMethod(sel, "require", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 1); err != nil {
			return Nil, err
		}
		path, err := vm.argString(args[0])
		if err != nil {
			return Nil, err
		}
		loaded, err := vm.Loader.Require(path)
		return FromBool(loaded), err
	})

	// load(path) - evaluate a file every time
	k.AddPrivateMethod(sel, "load", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		path, err := vm.argString(args[0])
		if err != nil {
			return Nil, err
		}
		ok, err := vm.Loader.Load(path)
		return FromBool(ok), err
	})

	// eval(source) - evaluate in a fresh top-level binding
	k.AddPrivateMethod(sel, "eval", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 4); err != nil {
			return Nil, err
		}
		src, err := vm.argString(args[0])
		if err != nil {
			return Nil, err
		}
		file := "(eval)"
		if len(args) >= 3 {
			if f := args[2].AsString(); f != nil {
				file = f.String()
			}
		}
		return vm.EvalString(src, file)
	})

	// raise([kind,] message) - abort with a RuntimeError
	k.AddPrivateMethod(sel, "raise", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		switch len(args) {
		case 0:
			return Nil, NewRuntimeError(StandardError, "unhandled exception")
		case 1:
			if c := args[0].AsClass(); c != nil {
				return Nil, NewRuntimeError(c.FullName(), c.FullName())
			}
			msg, err := vm.ToS(args[0])
			if err != nil {
				return Nil, err
			}
			return Nil, NewRuntimeError(StandardError, msg)
		}
		kind := StandardError
		if c := args[0].AsClass(); c != nil {
			kind = c.FullName()
		}
		msg, err := vm.ToS(args[1])
		if err != nil {
			return Nil, err
		}
		return Nil, NewRuntimeError(kind, msg)
	})

	// proc, lambda - capture the block
	k.AddPrivateMethod(sel, "proc", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return Nil, Errorf(ArgumentError, "tried to create Proc object without a block")
		}
		return FromProc(blk), nil
	})
	k.AddPrivateMethod(sel, "lambda", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if blk == nil {
			return Nil, Errorf(ArgumentError, "tried to create Proc object without a block")
		}
		return FromProc(blk.AsLambda()), nil
	})

	// loop - call the block until it breaks
	k.AddPrivateMethod(sel, "loop", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		for {
			if _, err := vm.Yield(blk); err != nil {
				return Nil, err
			}
		}
	})

	// Integer(x), String(x), Array(x) - conversions
	k.AddPrivateMethod(sel, "Integer", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 1); err != nil {
			return Nil, err
		}
		switch a := args[0]; {
		case a.IsInt():
			return a, nil
		case a.IsFloat():
			return floatToInt(a.Float64())
		case a.IsString():
			if n, ok := ParseInt(strings.ReplaceAll(strings.TrimSpace(a.AsString().String()), "_", "")); ok {
				return n, nil
			}
			return Nil, Errorf(ArgumentError, "invalid value for Integer(): %s", inspectString(a.AsString().String()))
		}
		return vm.Send(args[0], "to_i")
	})
	k.AddPrivateMethod(sel, "String", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 1); err != nil {
			return Nil, err
		}
		s, err := vm.ToS(args[0])
		return NewString(s), err
	})
	k.AddPrivateMethod(sel, "Array", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 1); err != nil {
			return Nil, err
		}
		switch a := args[0]; {
		case a.IsArray():
			return a, nil
		case a.IsNil():
			return NewArrayValue(), nil
		case vm.RespondTo(a, "to_a", false):
			return vm.Send(a, "to_a")
		}
		return NewArrayValue(args[0]), nil
	})
}

// defaultToS renders #<ClassName> for plain objects and the natural text
// for everything else.
func (vm *VM) defaultToS(v Value) string {
	switch v.kind {
	case KindObject:
		return fmt.Sprintf("#<%s>", vm.ClassOf(v).FullName())
	case KindClass:
		return v.AsClass().FullName()
	}
	return vm.describe(v)
}

func (vm *VM) putsLines(args []Value, lines *[]string, depth int) error {
	for _, a := range args {
		if arr := a.AsArray(); arr != nil {
			if depth > 64 {
				*lines = append(*lines, "[...]")
				continue
			}
			if err := vm.putsLines(arr.Elements, lines, depth+1); err != nil {
				return err
			}
			continue
		}
		s, err := vm.ToS(a)
		if err != nil {
			return err
		}
		*lines = append(*lines, s)
	}
	return nil
}

// methodNames collects method names from c's ancestors (or c alone) as
// symbols, sorted.
func (vm *VM) methodNames(c *Class, inherited bool, keep func(*MethodEntry) bool) Value {
	classes := []*Class{c}
	if inherited {
		classes = c.Ancestors()
	}
	seen := make(map[string]bool)
	var names []string
	for _, a := range classes {
		for id, e := range a.methods {
			name := vm.Selectors.Name(id)
			if seen[name] {
				continue
			}
			seen[name] = true
			if e.Undefined || !keep(e) {
				continue
			}
			// The visible entry is the one resolved from c.
			if r := c.Lookup(id); r == nil || !keep(r) {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := NewArray()
	for _, n := range names {
		out.Push(vm.Symbol(n))
	}
	return FromArray(out)
}

// shallowCopy duplicates a heap value one level deep.
func (vm *VM) shallowCopy(v Value) Value {
	switch v.kind {
	case KindString:
		return FromString(v.AsString().Dup())
	case KindArray:
		return FromArray(NewArray(v.AsArray().Elements...))
	case KindHash:
		return FromHash(v.AsHash().Dup())
	case KindObject:
		src := v.AsObject()
		obj := NewObject(src.class)
		for _, n := range src.names {
			obj.SetIvar(n, src.ivars[n])
		}
		return FromObject(obj)
	}
	return v
}

package compiler

import (
	"github.com/chazu/rubric/vm"
)

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func (f *frame) evalIf(n *If) (vm.Value, error) {
	c, err := f.eval(n.Cond)
	if err != nil {
		return vm.Nil, err
	}
	if c.IsTruthy() {
		return f.evalSeq(n.Then)
	}
	if n.Else == nil {
		return vm.Nil, nil
	}
	return f.eval(n.Else)
}

func (f *frame) evalWhile(n *While) (vm.Value, error) {
	f.loops++
	defer func() { f.loops-- }()

	for first := true; ; first = false {
		if !(n.DoWhile && first) {
			c, err := f.eval(n.Cond)
			if err != nil {
				return vm.Nil, err
			}
			if c.IsTruthy() == n.Until {
				return vm.Nil, nil
			}
		}
		if _, err := f.evalSeq(n.Body); err != nil {
			switch sig := err.(type) {
			case *breakSignal:
				if sig.tag == nil {
					return sig.value, nil
				}
			case *nextSignal:
				continue
			}
			return vm.Nil, err
		}
	}
}

// evalFor runs the body through the iterable's each, assigning the loop
// variables in the enclosing scope.
func (f *frame) evalFor(n *For) (vm.Value, error) {
	iter, err := f.eval(n.Iter)
	if err != nil {
		return vm.Nil, err
	}

	f.loops++
	defer func() { f.loops-- }()

	body := &vm.Proc{Arity: -1, Self: f.Self, Scope: f.Scope}
	body.Body = func(_ *vm.VM, inv vm.Invocation) (vm.Value, error) {
		val := vm.Nil
		switch len(inv.Args) {
		case 0:
		case 1:
			val = inv.Args[0]
		default:
			val = vm.NewArrayValue(inv.Args...)
		}
		if len(n.Vars) == 1 {
			f.Scope.Set(n.Vars[0], val)
		} else {
			vals := []vm.Value{val}
			if arr := val.AsArray(); arr != nil {
				vals = arr.Elements
			}
			for i, name := range n.Vars {
				v := vm.Nil
				if i < len(vals) {
					v = vals[i]
				}
				f.Scope.Set(name, v)
			}
		}
		v, err := f.evalSeq(n.Body)
		if ns, ok := err.(*nextSignal); ok {
			return ns.value, nil
		}
		return v, err
	}

	if _, err := f.send(n, iter, "each", nil, body, false); err != nil {
		if bs, ok := err.(*breakSignal); ok && bs.tag == nil {
			return bs.value, nil
		}
		return vm.Nil, err
	}
	return iter, nil
}

func (f *frame) evalCase(n *Case) (vm.Value, error) {
	var subject vm.Value
	if n.Subject != nil {
		var err error
		if subject, err = f.eval(n.Subject); err != nil {
			return vm.Nil, err
		}
	}
	for _, w := range n.Whens {
		for _, cond := range w.Conds {
			var tests []vm.Value
			if sp, ok := cond.(*Splat); ok {
				v, err := f.eval(sp.Expr)
				if err != nil {
					return vm.Nil, err
				}
				if tests, err = f.splat(sp, v); err != nil {
					return vm.Nil, err
				}
			} else {
				v, err := f.eval(cond)
				if err != nil {
					return vm.Nil, err
				}
				tests = []vm.Value{v}
			}
			for _, t := range tests {
				hit := t
				if n.Subject != nil {
					var err error
					if hit, err = f.send(cond, t, "===", []vm.Value{subject}, nil, false); err != nil {
						return vm.Nil, err
					}
				}
				if hit.IsTruthy() {
					return f.evalSeq(w.Body)
				}
			}
		}
	}
	return f.evalSeq(n.Else)
}

func (f *frame) jumpValue(n Node) (vm.Value, error) {
	if n == nil {
		return vm.Nil, nil
	}
	return f.eval(n)
}

func (f *frame) evalBreak(n *Break) (vm.Value, error) {
	v, err := f.jumpValue(n.Value)
	if err != nil {
		return vm.Nil, err
	}
	switch {
	case f.loops > 0:
		return vm.Nil, &breakSignal{value: v}
	case f.proc != nil:
		return vm.Nil, &breakSignal{tag: f.proc, value: v}
	}
	return vm.Nil, located(f.File, n.Start.Line,
		vm.NewRuntimeError(vm.LocalJumpError, "break from proc-closure"))
}

func (f *frame) evalNext(n *Next) (vm.Value, error) {
	v, err := f.jumpValue(n.Value)
	if err != nil {
		return vm.Nil, err
	}
	if f.loops == 0 && f.proc == nil {
		return vm.Nil, located(f.File, n.Start.Line,
			vm.NewRuntimeError(vm.LocalJumpError, "next used outside of block"))
	}
	return vm.Nil, &nextSignal{value: v}
}

func (f *frame) evalReturn(n *Return) (vm.Value, error) {
	v, err := f.jumpValue(n.Value)
	if err != nil {
		return vm.Nil, err
	}
	if f.home == nil {
		return vm.Nil, located(f.File, n.Start.Line,
			vm.NewRuntimeError(vm.LocalJumpError, "unexpected return"))
	}
	return vm.Nil, &returnSignal{home: f.home, value: v}
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (f *frame) evalDef(n *Def) (vm.Value, error) {
	target, vis := f.Target, f.Visibility
	if n.Singleton != nil {
		recv, err := f.eval(n.Singleton)
		if err != nil {
			return vm.Nil, err
		}
		if target, err = f.vm.SingletonClassOf(recv); err != nil {
			return vm.Nil, located(f.File, n.Start.Line, err)
		}
		vis = vm.Public
	}
	if target == nil {
		return vm.Nil, located(f.File, n.Start.Line,
			vm.Errorf(vm.TypeError, "no class to define method %s on", n.Name))
	}

	m := &method{
		name:   n.Name,
		params: n.Params,
		body:   n.Body,
		owner:  target,
		cref:   f.Cref,
		file:   f.File,
		line:   n.Start.Line,
	}
	if len(m.cref) == 0 {
		m.cref = []*vm.Class{f.vm.ObjectClass}
	}
	if _, err := f.vm.DefineMethod(target, n.Name, m, vis); err != nil {
		return vm.Nil, located(f.File, n.Start.Line, err)
	}
	return f.vm.Symbol(n.Name), nil
}

// namespaceFor returns the class or module a class or module definition
// registers its constant in.
func (f *frame) namespaceFor(path *Const) (*vm.Class, error) {
	if path.Scope == nil && !path.Top {
		return f.crefTop(), nil
	}
	return f.constScope(path)
}

func (f *frame) evalClassDef(n *ClassDef) (vm.Value, error) {
	ns, err := f.namespaceFor(n.Path)
	if err != nil {
		return vm.Nil, err
	}
	var super *vm.Class
	if n.Super != nil {
		sv, err := f.eval(n.Super)
		if err != nil {
			return vm.Nil, err
		}
		if super = sv.AsClass(); super == nil || super.IsModule() {
			s, _ := f.vm.Inspect(sv)
			return vm.Nil, located(f.File, n.Start.Line,
				vm.Errorf(vm.TypeError, "superclass must be a Class (%s given)", s))
		}
	}
	c, err := f.vm.DefineClass(n.Path.Name, super, ns)
	if err != nil {
		return vm.Nil, located(f.File, n.Start.Line, err)
	}
	return f.evalBody(c, n.Body)
}

func (f *frame) evalModuleDef(n *ModuleDef) (vm.Value, error) {
	ns, err := f.namespaceFor(n.Path)
	if err != nil {
		return vm.Nil, err
	}
	m, err := f.vm.DefineModule(n.Path.Name, ns)
	if err != nil {
		return vm.Nil, located(f.File, n.Start.Line, err)
	}
	return f.evalBody(m, n.Body)
}

func (f *frame) evalSClass(n *SClass) (vm.Value, error) {
	v, err := f.eval(n.Target)
	if err != nil {
		return vm.Nil, err
	}
	sc, err := f.vm.SingletonClassOf(v)
	if err != nil {
		return vm.Nil, located(f.File, n.Start.Line, err)
	}
	return f.evalBody(sc, n.Body)
}

// evalBody runs a class, module or singleton class body with c as self,
// as the target of def and as the innermost lexical scope.
func (f *frame) evalBody(c *vm.Class, body *Seq) (vm.Value, error) {
	cref := make([]*vm.Class, len(f.Cref), len(f.Cref)+1)
	copy(cref, f.Cref)

	b := &vm.Binding{
		Self:       vm.FromClass(c),
		Scope:      vm.NewScope(nil),
		Target:     c,
		Cref:       append(cref, c),
		File:       f.File,
		Visibility: vm.Public,
	}
	bf := &frame{Binding: b, vm: f.vm}

	f.vm.PushBinding(b)
	defer f.vm.PopBinding()
	return bf.evalSeq(body)
}

package compiler

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/rubric/vm"
)

var log = commonlog.GetLogger("rubric.compiler")

// frame is the evaluation state of one file, method body, block body or
// class body.
type frame struct {
	*vm.Binding
	vm *vm.VM

	// home is the frame a return unwinds to; nil inside class bodies.
	home *frame

	// The enclosing method, for super, yield and block_given?.
	owner      *vm.Class
	methodName string
	args       []vm.Value
	block      *vm.Proc

	proc  *vm.Proc // the running block, nil outside block frames
	loops int      // while, until and for loops open in this frame
}

// Eval parses source and evaluates it in b. It is the vm.EvalFunc this
// package installs.
func Eval(v *vm.VM, source string, b *vm.Binding) (vm.Value, error) {
	prog, err := Parse(source, b.File, b.Scope.Names()...)
	if err != nil {
		return vm.Nil, err
	}
	log.Debugf("evaluating %s (%d statements)", prog.File, len(prog.Body.Stmts))
	return Run(v, prog, b)
}

// Run evaluates a parsed program in b.
func Run(v *vm.VM, prog *Program, b *vm.Binding) (vm.Value, error) {
	f := &frame{Binding: b, vm: v}
	f.home = f

	v.PushBinding(b)
	defer v.PopBinding()

	val, err := f.evalSeq(prog.Body)
	if err != nil {
		if rs, ok := err.(*returnSignal); ok && rs.home == f {
			return rs.value, nil
		}
		return vm.Nil, localJump(err)
	}
	return val, nil
}

func (f *frame) evalSeq(s *Seq) (vm.Value, error) {
	if s == nil {
		return vm.Nil, nil
	}
	val := vm.Nil
	for _, stmt := range s.Stmts {
		v, err := f.eval(stmt)
		if err != nil {
			return vm.Nil, located(f.File, stmt.Pos().Line, err)
		}
		val = v
	}
	return val, nil
}

func (f *frame) eval(n Node) (vm.Value, error) {
	switch n := n.(type) {
	case *Seq:
		return f.evalSeq(n)
	case *Begin:
		return f.evalSeq(n.Body)
	case *NilLit:
		return vm.Nil, nil
	case *TrueLit:
		return vm.True, nil
	case *FalseLit:
		return vm.False, nil
	case *SelfExpr:
		return f.Self, nil
	case *FileExpr:
		return vm.NewString(f.File), nil
	case *LineExpr:
		return vm.FromSmallInt(int64(n.Start.Line)), nil
	case *IntLit:
		return n.Value, nil
	case *FloatLit:
		return vm.FromFloat64(n.Value), nil
	case *StrLit:
		return vm.NewString(n.Value), nil
	case *DStr:
		return f.evalDStr(n)
	case *SymLit:
		return f.vm.Symbol(n.Name), nil
	case *ArrayLit:
		elems, err := f.evalArgs(n.Elems)
		if err != nil {
			return vm.Nil, err
		}
		return vm.NewArrayValue(elems...), nil
	case *HashLit:
		return f.evalHash(n)
	case *RangeLit:
		return f.evalRange(n)

	case *LocalVar:
		v, _ := f.Scope.Lookup(n.Name)
		return v, nil
	case *IVar:
		return f.getIvar(n.Name), nil
	case *CVar:
		v, err := f.cvarBase().GetClassVar(n.Name)
		return v, located(f.File, n.Start.Line, err)
	case *GVar:
		v, ok := f.vm.LookupGlobal(n.Name)
		if !ok {
			return vm.Nil, nil
		}
		return v, nil
	case *Const:
		return f.evalConst(n)

	case *Assign:
		v, err := f.eval(n.Value)
		if err != nil {
			return vm.Nil, err
		}
		return v, f.assign(n.Target, v)
	case *MultiAssign:
		return f.evalMultiAssign(n)
	case *OpAssign:
		return f.evalOpAssign(n)

	case *And:
		l, err := f.eval(n.Left)
		if err != nil || l.IsFalsy() {
			return l, err
		}
		return f.eval(n.Right)
	case *Or:
		l, err := f.eval(n.Left)
		if err != nil || l.IsTruthy() {
			return l, err
		}
		return f.eval(n.Right)
	case *Not:
		v, err := f.eval(n.Expr)
		if err != nil {
			return vm.Nil, err
		}
		return vm.FromBool(v.IsFalsy()), nil
	case *Defined:
		return f.evalDefined(n)

	case *Call:
		return f.evalCall(n)
	case *Yield:
		return f.evalYield(n)
	case *Super:
		return f.evalSuper(n)

	case *If:
		return f.evalIf(n)
	case *While:
		return f.evalWhile(n)
	case *For:
		return f.evalFor(n)
	case *Case:
		return f.evalCase(n)
	case *Break:
		return f.evalBreak(n)
	case *Next:
		return f.evalNext(n)
	case *Return:
		return f.evalReturn(n)

	case *Def:
		return f.evalDef(n)
	case *ClassDef:
		return f.evalClassDef(n)
	case *SClass:
		return f.evalSClass(n)
	case *ModuleDef:
		return f.evalModuleDef(n)
	case *Alias:
		return vm.Nil, located(f.File, n.Start.Line, f.vm.Alias(f.Target, n.New, n.Old))
	case *Undef:
		for _, name := range n.Names {
			if err := f.vm.UndefMethod(f.Target, name); err != nil {
				return vm.Nil, located(f.File, n.Start.Line, err)
			}
		}
		return vm.Nil, nil
	}
	return vm.Nil, fmt.Errorf("%s:%d: cannot evaluate %T", f.File, n.Pos().Line, n)
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

func (f *frame) evalDStr(n *DStr) (vm.Value, error) {
	var sb strings.Builder
	for _, part := range n.Parts {
		if lit, ok := part.(*StrLit); ok {
			sb.WriteString(lit.Value)
			continue
		}
		v, err := f.eval(part)
		if err != nil {
			return vm.Nil, err
		}
		s, err := f.vm.ToS(v)
		if err != nil {
			return vm.Nil, located(f.File, part.Pos().Line, err)
		}
		sb.WriteString(s)
	}
	return vm.NewString(sb.String()), nil
}

func (f *frame) evalHash(n *HashLit) (vm.Value, error) {
	h := vm.NewHash()
	for i := range n.Keys {
		k, err := f.eval(n.Keys[i])
		if err != nil {
			return vm.Nil, err
		}
		v, err := f.eval(n.Values[i])
		if err != nil {
			return vm.Nil, err
		}
		h.Set(k, v)
	}
	return vm.FromHash(h), nil
}

func (f *frame) evalRange(n *RangeLit) (vm.Value, error) {
	begin, end := vm.Nil, vm.Nil
	var err error
	if n.Begin != nil {
		if begin, err = f.eval(n.Begin); err != nil {
			return vm.Nil, err
		}
	}
	if n.End != nil {
		if end, err = f.eval(n.End); err != nil {
			return vm.Nil, err
		}
	}
	if (begin.IsNil() || begin.IsInt()) && (end.IsNil() || end.IsInt()) {
		return vm.FromRange(vm.NewRange(begin, end, n.Exclusive)), nil
	}
	v, err := f.vm.Send(vm.FromClass(f.vm.RangeClass), "new", begin, end, vm.FromBool(n.Exclusive))
	return v, located(f.File, n.Start.Line, err)
}

// ---------------------------------------------------------------------------
// Variables and constants
// ---------------------------------------------------------------------------

func (f *frame) getIvar(name string) vm.Value {
	if obj := f.vm.IvarTable(f.Self); obj != nil {
		return obj.GetIvar(name)
	}
	return vm.Nil
}

func (f *frame) setIvar(name string, v vm.Value) error {
	obj := f.vm.IvarTable(f.Self)
	if obj == nil {
		return vm.Errorf(vm.TypeError, "can't modify instance variables of %s", f.vm.ClassOf(f.Self).Name)
	}
	obj.SetIvar(name, v)
	return nil
}

// cvarBase is the class whose class variables @@x refers to: the innermost
// lexical class, seen through singleton classes.
func (f *frame) cvarBase() *vm.Class {
	c := f.crefTop()
	if c.IsSingleton() {
		if attached := c.Attached().AsClass(); attached != nil {
			return attached
		}
	}
	return c
}

func (f *frame) crefTop() *vm.Class {
	if len(f.Cref) == 0 {
		return f.vm.ObjectClass
	}
	return f.Cref[len(f.Cref)-1]
}

func (f *frame) evalConst(n *Const) (vm.Value, error) {
	if n.Scope == nil && !n.Top {
		v, err := f.vm.LookupConstant(f.Cref, n.Name)
		return v, located(f.File, n.Start.Line, err)
	}
	scope, err := f.constScope(n)
	if err != nil {
		return vm.Nil, err
	}
	v, ok := scope.LookupConst(n.Name)
	if !ok {
		if n.Top {
			return vm.Nil, located(f.File, n.Start.Line,
				vm.Errorf(vm.NameError, "uninitialized constant %s", n.Name))
		}
		return vm.Nil, located(f.File, n.Start.Line,
			vm.Errorf(vm.NameError, "uninitialized constant %s::%s", scope.Name, n.Name))
	}
	return v, nil
}

// constScope returns the class a constant path names its constant in.
func (f *frame) constScope(n *Const) (*vm.Class, error) {
	switch {
	case n.Top:
		return f.vm.ObjectClass, nil
	case n.Scope != nil:
		sv, err := f.eval(n.Scope)
		if err != nil {
			return nil, err
		}
		c := sv.AsClass()
		if c == nil {
			s, _ := f.vm.Inspect(sv)
			return nil, located(f.File, n.Start.Line,
				vm.Errorf(vm.TypeError, "%s is not a class/module", s))
		}
		return c, nil
	default:
		return f.crefTop(), nil
	}
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

func (f *frame) assign(target Node, v vm.Value) error {
	switch t := target.(type) {
	case *LocalVar:
		f.Scope.Set(t.Name, v)
	case *IVar:
		return located(f.File, t.Start.Line, f.setIvar(t.Name, v))
	case *CVar:
		f.cvarBase().SetClassVar(t.Name, v)
	case *GVar:
		return located(f.File, t.Start.Line, f.vm.SetGlobal(t.Name, v))
	case *Const:
		scope, err := f.constScope(t)
		if err != nil {
			return err
		}
		scope.SetConst(t.Name, v)
	case *Call:
		recv, args, self, err := f.callTarget(t)
		if err != nil {
			return err
		}
		_, err = f.send(t, recv, writerName(t), append(args, v), nil, self)
		return err
	case *Splat:
		return f.assign(t.Expr, v)
	default:
		return fmt.Errorf("%s:%d: cannot assign to %s", f.File, target.Pos().Line, describeNode(target))
	}
	return nil
}

// callTarget evaluates the receiver and index arguments of an assignable
// call such as obj.attr or list[i].
func (f *frame) callTarget(t *Call) (recv vm.Value, args []vm.Value, self bool, err error) {
	recv, self = f.Self, true
	if t.Recv != nil {
		if recv, err = f.eval(t.Recv); err != nil {
			return
		}
		_, self = t.Recv.(*SelfExpr)
	}
	args, err = f.evalArgs(t.Args)
	return
}

func writerName(t *Call) string {
	if t.Name == "[]" {
		return "[]="
	}
	return t.Name + "="
}

func (f *frame) evalMultiAssign(n *MultiAssign) (vm.Value, error) {
	val, err := f.eval(n.Value)
	if err != nil {
		return vm.Nil, err
	}
	vals := []vm.Value{val}
	if arr := val.AsArray(); arr != nil {
		vals = append([]vm.Value(nil), arr.Elements...)
	}
	return val, f.destructure(n.Targets, n.Splat, vals)
}

func (f *frame) destructure(targets []Node, splat int, vals []vm.Value) error {
	at := func(i int) vm.Value {
		if i >= 0 && i < len(vals) {
			return vals[i]
		}
		return vm.Nil
	}
	if splat < 0 {
		for i, t := range targets {
			if err := f.assign(t, at(i)); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i < splat; i++ {
		if err := f.assign(targets[i], at(i)); err != nil {
			return err
		}
	}
	after := len(targets) - splat - 1
	restEnd := len(vals) - after
	if restEnd < splat {
		restEnd = splat
	}
	var rest []vm.Value
	if splat < len(vals) && splat < restEnd {
		rest = append(rest, vals[splat:restEnd]...)
	}
	if err := f.assign(targets[splat], vm.NewArrayValue(rest...)); err != nil {
		return err
	}
	for j := 0; j < after; j++ {
		if err := f.assign(targets[splat+1+j], at(restEnd+j)); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) evalOpAssign(n *OpAssign) (vm.Value, error) {
	var (
		read  func() (vm.Value, error)
		write func(vm.Value) error
	)
	switch t := n.Target.(type) {
	case *Call:
		recv, args, self, err := f.callTarget(t)
		if err != nil {
			return vm.Nil, err
		}
		read = func() (vm.Value, error) {
			return f.send(t, recv, t.Name, args, nil, self)
		}
		write = func(v vm.Value) error {
			wargs := append(append([]vm.Value(nil), args...), v)
			_, err := f.send(t, recv, writerName(t), wargs, nil, self)
			return err
		}
	case *CVar:
		read = func() (vm.Value, error) {
			base := f.cvarBase()
			if !base.HasClassVar(t.Name) && (n.Op == "||" || n.Op == "&&") {
				return vm.Nil, nil
			}
			v, err := base.GetClassVar(t.Name)
			return v, located(f.File, t.Start.Line, err)
		}
	case *Const:
		read = func() (vm.Value, error) {
			v, err := f.evalConst(t)
			if err != nil && n.Op == "||" && vm.IsKind(err, vm.NameError) {
				return vm.Nil, nil
			}
			return v, err
		}
	default:
		read = func() (vm.Value, error) { return f.eval(t) }
	}
	if write == nil {
		write = func(v vm.Value) error { return f.assign(n.Target, v) }
	}

	cur, err := read()
	if err != nil {
		return vm.Nil, err
	}
	switch n.Op {
	case "||":
		if cur.IsTruthy() {
			return cur, nil
		}
	case "&&":
		if cur.IsFalsy() {
			return cur, nil
		}
	}
	rhs, err := f.eval(n.Value)
	if err != nil {
		return vm.Nil, err
	}
	result := rhs
	if n.Op != "||" && n.Op != "&&" {
		if result, err = f.send(n, cur, n.Op, []vm.Value{rhs}, nil, false); err != nil {
			return vm.Nil, err
		}
	}
	return result, write(result)
}

// ---------------------------------------------------------------------------
// defined?
// ---------------------------------------------------------------------------

func (f *frame) evalDefined(n *Defined) (vm.Value, error) {
	what := ""
	switch e := n.Expr.(type) {
	case *LocalVar:
		what = "local-variable"
	case *IVar:
		if obj := f.vm.IvarTable(f.Self); obj != nil && obj.HasIvar(e.Name) {
			what = "instance-variable"
		}
	case *GVar:
		if _, ok := f.vm.LookupGlobal(e.Name); ok {
			what = "global-variable"
		}
	case *CVar:
		if f.cvarBase().HasClassVar(e.Name) {
			what = "class variable"
		}
	case *Const:
		if _, err := f.evalConst(e); err == nil {
			what = "constant"
		}
	case *Call:
		recv, self := f.Self, true
		if e.Recv != nil {
			v, err := f.eval(e.Recv)
			if err != nil {
				return vm.Nil, nil
			}
			recv = v
			_, explicit := e.Recv.(*SelfExpr)
			self = explicit && isSetterName(e.Name)
		}
		if f.vm.RespondTo(recv, e.Name, self) {
			what = "method"
		}
	case *SelfExpr:
		what = "self"
	case *NilLit:
		what = "expression"
	case *Assign, *OpAssign, *MultiAssign:
		what = "assignment"
	case *Yield:
		if f.block != nil {
			what = "yield"
		}
	case *Super:
		if f.owner != nil {
			sel := f.vm.Selectors.Lookup(f.methodName)
			if f.vm.DispatchClassOf(f.Self).LookupAfter(f.owner, sel) != nil {
				what = "super"
			}
		}
	default:
		what = "expression"
	}
	if what == "" {
		return vm.Nil, nil
	}
	return vm.NewString(what), nil
}

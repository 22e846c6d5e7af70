package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/rubric/vm"
)

// ---------------------------------------------------------------------------
// Methods defined in source
// ---------------------------------------------------------------------------

// method is a method defined with def. It implements vm.Method.
type method struct {
	name   string
	params *ParamList
	body   *Seq
	owner  *vm.Class
	cref   []*vm.Class
	file   string
	line   int
}

func (m *method) Name() string { return m.name }
func (m *method) Arity() int   { return m.params.Arity() }

// Location reports where the method was defined.
func (m *method) Location() (string, int) { return m.file, m.line }

func (m *method) Invoke(v *vm.VM, self vm.Value, args []vm.Value, blk *vm.Proc) (vm.Value, error) {
	b := &vm.Binding{
		Self:       self,
		Scope:      vm.NewScope(nil),
		Target:     m.cref[len(m.cref)-1],
		Cref:       m.cref,
		File:       m.file,
		Visibility: vm.Public,
	}
	f := &frame{Binding: b, vm: v, owner: m.owner, methodName: m.name, args: args, block: blk}
	f.home = f

	v.PushBinding(b)
	defer v.PopBinding()

	if err := f.bindParams(m.params, args, blk, true); err != nil {
		return vm.Nil, located(m.file, m.line, err)
	}
	val, err := f.evalSeq(m.body)
	if err != nil {
		if rs, ok := err.(*returnSignal); ok && rs.home == f {
			return rs.value, nil
		}
		return vm.Nil, err
	}
	return val, nil
}

// ---------------------------------------------------------------------------
// Parameter binding
// ---------------------------------------------------------------------------

// bindParams defines ps in the frame's scope. Strict binding (methods and
// lambdas) rejects a wrong argument count; loose binding (procs) pads with
// nil and drops extras.
func (f *frame) bindParams(ps *ParamList, args []vm.Value, blk *vm.Proc, strict bool) error {
	if ps == nil {
		if strict && len(args) > 0 {
			return arityError(len(args), 0, 0, false)
		}
		return nil
	}

	required := len(ps.Required) + len(ps.Post)
	if strict && (len(args) < required || ps.Rest == "" && len(args) > required+len(ps.Optional)) {
		return arityError(len(args), required, len(ps.Optional), ps.Rest != "")
	}

	at := func(i int) vm.Value {
		if i < len(args) {
			return args[i]
		}
		return vm.Nil
	}

	i := 0
	for pos, name := range ps.Required {
		if nested, ok := ps.Destructure[pos]; ok {
			f.bindNested(nested, at(i))
		} else {
			f.Scope.Define(name, at(i))
		}
		i++
	}

	spare := len(args) - required
	for _, opt := range ps.Optional {
		if spare > 0 {
			f.Scope.Define(opt.Name, args[i])
			i++
			spare--
			continue
		}
		v, err := f.eval(opt.Default)
		if err != nil {
			return err
		}
		f.Scope.Define(opt.Name, v)
	}

	if ps.Rest != "" {
		var rest []vm.Value
		if n := len(args) - i - len(ps.Post); n > 0 {
			rest = append(rest, args[i:i+n]...)
			i += n
		}
		if ps.Rest != "*" {
			f.Scope.Define(ps.Rest, vm.NewArrayValue(rest...))
		}
	}

	for _, name := range ps.Post {
		f.Scope.Define(name, at(i))
		i++
	}

	if ps.Block != "" {
		bv := vm.Nil
		if blk != nil {
			bv = vm.FromProc(blk)
		}
		f.Scope.Define(ps.Block, bv)
	}
	return nil
}

// bindNested binds |(a, b)| style names from an array argument.
func (f *frame) bindNested(names []string, v vm.Value) {
	vals := []vm.Value{v}
	if arr := v.AsArray(); arr != nil {
		vals = arr.Elements
	}
	for i, name := range names {
		if i < len(vals) {
			f.Scope.Define(name, vals[i])
		} else {
			f.Scope.Define(name, vm.Nil)
		}
	}
}

// autoSplat spreads a lone array argument across a proc's parameters when
// it takes more than one.
func autoSplat(ps *ParamList, args []vm.Value) []vm.Value {
	if ps == nil || len(args) != 1 {
		return args
	}
	arr := args[0].AsArray()
	if arr == nil {
		return args
	}
	positional := len(ps.Required) + len(ps.Optional) + len(ps.Post)
	if positional > 1 || positional > 0 && ps.Rest != "" {
		return arr.Elements
	}
	return args
}

func arityError(given, required, optional int, rest bool) error {
	expected := strconv.Itoa(required)
	switch {
	case rest:
		expected += "+"
	case optional > 0:
		expected = fmt.Sprintf("%d..%d", required, required+optional)
	}
	return vm.Errorf(vm.ArgumentError, "wrong number of arguments (given %d, expected %s)", given, expected)
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// makeBlock closes b over the current frame.
func (f *frame) makeBlock(b *BlockExpr) *vm.Proc {
	p := &vm.Proc{
		Params: b.Params.Names(),
		Arity:  b.Params.Arity(),
		Self:   f.Self,
		Scope:  f.Scope,
	}
	p.Body = func(_ *vm.VM, inv vm.Invocation) (vm.Value, error) {
		return f.callBlock(b, inv)
	}
	return p
}

func (f *frame) callBlock(b *BlockExpr, inv vm.Invocation) (vm.Value, error) {
	lambda := inv.Proc != nil && inv.Proc.Lambda

	bind := &vm.Binding{
		Self:       inv.Self,
		Scope:      vm.NewScope(f.Scope),
		Target:     f.Target,
		Cref:       f.Cref,
		File:       f.File,
		Visibility: f.Visibility,
	}
	if inv.Target != nil {
		bind.Target = inv.Target
		bind.Visibility = vm.Public
	}
	bf := &frame{
		Binding:    bind,
		vm:         f.vm,
		home:       f.home,
		owner:      f.owner,
		methodName: f.methodName,
		args:       f.args,
		block:      f.block,
		proc:       inv.Proc,
	}
	if lambda {
		bf.home = bf
	}

	f.vm.PushBinding(bind)
	defer f.vm.PopBinding()

	args := inv.Args
	if !lambda {
		args = autoSplat(b.Params, args)
	}
	if err := bf.bindParams(b.Params, args, inv.Block, lambda); err != nil {
		return vm.Nil, located(f.File, b.Start.Line, err)
	}

	val, err := bf.evalSeq(b.Body)
	if err == nil {
		return val, nil
	}
	switch sig := err.(type) {
	case *nextSignal:
		return sig.value, nil
	case *returnSignal:
		if lambda && sig.home == bf {
			return sig.value, nil
		}
	case *breakSignal:
		if lambda && sig.tag == inv.Proc {
			return sig.value, nil
		}
	}
	return vm.Nil, err
}

// blockFor resolves the block of a call: a literal block or a &arg. lit is
// the literal block, the target of a break inside it.
func (f *frame) blockFor(lit *BlockExpr, arg Node) (blk *vm.Proc, literal *vm.Proc, err error) {
	if lit != nil {
		p := f.makeBlock(lit)
		return p, p, nil
	}
	if arg == nil {
		return nil, nil, nil
	}
	v, err := f.eval(arg)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case v.IsNil():
		return nil, nil, nil
	case v.IsProc():
		return v.AsProc(), nil, nil
	case v.IsSymbol():
		return f.vm.SymbolProc(f.vm.SymbolName(v)), nil, nil
	}
	conv, err := f.vm.Send(v, "to_proc")
	if err != nil {
		return nil, nil, located(f.File, arg.Pos().Line, err)
	}
	if !conv.IsProc() {
		return nil, nil, located(f.File, arg.Pos().Line,
			vm.Errorf(vm.TypeError, "wrong argument type %s (expected Proc)", f.vm.ClassOf(v).Name))
	}
	return conv.AsProc(), nil, nil
}

// ---------------------------------------------------------------------------
// Sends
// ---------------------------------------------------------------------------

func (f *frame) send(at Node, recv vm.Value, name string, args []vm.Value, blk *vm.Proc, self bool) (vm.Value, error) {
	v, err := f.vm.Dispatch(vm.Call{
		Receiver: recv,
		Name:     name,
		Args:     args,
		Block:    blk,
		Self:     self,
		Caller:   f.Self,
	})
	if err != nil {
		return vm.Nil, located(f.File, at.Pos().Line, err)
	}
	return v, nil
}

// evalArgs evaluates an argument list, expanding *splats.
func (f *frame) evalArgs(nodes []Node) ([]vm.Value, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	args := make([]vm.Value, 0, len(nodes))
	for _, n := range nodes {
		sp, ok := n.(*Splat)
		if !ok {
			v, err := f.eval(n)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			continue
		}
		v, err := f.eval(sp.Expr)
		if err != nil {
			return nil, err
		}
		spread, err := f.splat(sp, v)
		if err != nil {
			return nil, err
		}
		args = append(args, spread...)
	}
	return args, nil
}

func (f *frame) splat(at Node, v vm.Value) ([]vm.Value, error) {
	switch {
	case v.IsNil():
		return nil, nil
	case v.IsArray():
		return v.AsArray().Elements, nil
	case f.vm.RespondTo(v, "to_a", false):
		conv, err := f.send(at, v, "to_a", nil, nil, false)
		if err != nil {
			return nil, err
		}
		if arr := conv.AsArray(); arr != nil {
			return arr.Elements, nil
		}
	}
	return []vm.Value{v}, nil
}

func (f *frame) evalCall(n *Call) (vm.Value, error) {
	if n.Recv == nil && len(n.Args) == 0 && n.Block == nil && n.BlockArg == nil {
		switch n.Name {
		case "block_given?":
			return vm.FromBool(f.block != nil), nil
		case "__method__":
			if f.methodName == "" {
				return vm.Nil, nil
			}
			return f.vm.Symbol(f.methodName), nil
		}
	}

	recv, self := f.Self, true
	if n.Recv != nil {
		v, err := f.eval(n.Recv)
		if err != nil {
			return vm.Nil, err
		}
		if n.SafeNav && v.IsNil() {
			return vm.Nil, nil
		}
		recv = v
		// An explicit self receiver reaches private methods only for setters.
		_, explicit := n.Recv.(*SelfExpr)
		self = explicit && isSetterName(n.Name)
	}

	args, err := f.evalArgs(n.Args)
	if err != nil {
		return vm.Nil, err
	}
	blk, literal, err := f.blockFor(n.Block, n.BlockArg)
	if err != nil {
		return vm.Nil, err
	}

	v, err := f.send(n, recv, n.Name, args, blk, self)
	if err != nil {
		return catchBreak(literal, err)
	}
	return v, nil
}

func isSetterName(name string) bool {
	switch name {
	case "==", "!=", "<=", ">=", "===":
		return false
	}
	return strings.HasSuffix(name, "=")
}

// catchBreak ends a call whose literal block executed break.
func catchBreak(literal *vm.Proc, err error) (vm.Value, error) {
	if bs, ok := err.(*breakSignal); ok && literal != nil && bs.tag == literal {
		return bs.value, nil
	}
	return vm.Nil, err
}

func (f *frame) evalYield(n *Yield) (vm.Value, error) {
	if f.block == nil {
		return vm.Nil, located(f.File, n.Start.Line,
			vm.NewRuntimeError(vm.LocalJumpError, "no block given (yield)"))
	}
	args, err := f.evalArgs(n.Args)
	if err != nil {
		return vm.Nil, err
	}
	v, err := f.block.Call(f.vm, args...)
	return v, located(f.File, n.Start.Line, err)
}

func (f *frame) evalSuper(n *Super) (vm.Value, error) {
	if f.owner == nil {
		return vm.Nil, located(f.File, n.Start.Line,
			vm.Errorf(vm.StandardError, "super called outside of method"))
	}
	args := f.args
	if n.HasArgs {
		var err error
		if args, err = f.evalArgs(n.Args); err != nil {
			return vm.Nil, err
		}
	}
	blk, literal := f.block, (*vm.Proc)(nil)
	if n.Block != nil || n.BlockArg != nil {
		var err error
		if blk, literal, err = f.blockFor(n.Block, n.BlockArg); err != nil {
			return vm.Nil, err
		}
	}
	v, err := f.vm.CallSuper(f.Self, f.owner, f.methodName, args, blk)
	if err != nil {
		return catchBreak(literal, located(f.File, n.Start.Line, err))
	}
	return v, nil
}

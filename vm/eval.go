package vm

import "fmt"

// EvalFunc evaluates source text against a binding and returns the value of
// the last expression. It is installed by the compiler package
// (compiler.Install) so that vm does not import its own front end.
type EvalFunc func(v *VM, source string, b *Binding) (Value, error)

// SetEvalFunc sets the function used to evaluate source text.
func (vm *VM) SetEvalFunc(fn EvalFunc) {
	vm.evalFunc = fn
}

// HasEvaluator reports whether an EvalFunc has been installed.
func (vm *VM) HasEvaluator() bool {
	return vm.evalFunc != nil
}

// EvalIn evaluates source in an existing binding.
func (vm *VM) EvalIn(source string, b *Binding) (Value, error) {
	if vm.evalFunc == nil {
		return Nil, fmt.Errorf("eval: evaluator not available (evalFunc not set)")
	}
	return vm.evalFunc(vm, source, b)
}

// EvalString evaluates source in a fresh top-level binding. file names the
// source in diagnostics and in __FILE__.
func (vm *VM) EvalString(source, file string) (Value, error) {
	return vm.EvalIn(source, vm.TopBinding(file))
}

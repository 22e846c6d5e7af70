package compiler

import "github.com/chazu/rubric/vm"

// Install makes v evaluate source text with this package: eval, require,
// load and the prelude all go through Eval afterwards.
func Install(v *vm.VM) {
	v.SetEvalFunc(Eval)
}

// NewVM returns a VM with the evaluator installed.
func NewVM() *vm.VM {
	v := vm.NewVM()
	Install(v)
	return v
}

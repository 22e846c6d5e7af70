package vm

import "sort"

// Scope is a chain of local variable frames. Blocks create child scopes
// that see and update their parent's variables.
type Scope struct {
	parent *Scope
	vars   map[string]Value
}

// NewScope creates a scope nested in parent (nil for a fresh top frame).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]Value)}
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Lookup finds a variable in this scope or any enclosing one.
func (s *Scope) Lookup(name string) (Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// Set assigns to an existing variable in the chain, or defines it here.
func (s *Scope) Set(name string, v Value) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

// Define creates or overwrites a variable in this scope only.
func (s *Scope) Define(name string, v Value) {
	s.vars[name] = v
}

// Names returns every visible variable name, sorted.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for sc := s; sc != nil; sc = sc.parent {
		for n := range sc.vars {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Binding is the evaluation context handed to an EvalFunc: the value of
// self, the local scope, the class that receives `def`, the lexical class
// nesting used for constant lookup, and the default visibility of new
// methods.
type Binding struct {
	Self       Value
	Scope      *Scope
	Target     *Class
	Cref       []*Class
	File       string
	Visibility Visibility
}

// TopBinding returns a fresh top-level binding: self is main, methods land
// privately on Object, and locals start empty.
func (vm *VM) TopBinding(file string) *Binding {
	return &Binding{
		Self:       vm.Main,
		Scope:      NewScope(nil),
		Target:     vm.ObjectClass,
		Cref:       []*Class{vm.ObjectClass},
		File:       file,
		Visibility: Private,
	}
}

// PushBinding makes b the active binding. The evaluator pushes one for each
// method body, class body, block and top-level evaluation it enters.
func (vm *VM) PushBinding(b *Binding) {
	vm.bindings = append(vm.bindings, b)
}

// PopBinding deactivates the innermost binding.
func (vm *VM) PopBinding() {
	if n := len(vm.bindings); n > 0 {
		vm.bindings[n-1] = nil
		vm.bindings = vm.bindings[:n-1]
	}
}

// CurrentBinding returns the innermost active binding, or nil outside any
// evaluation.
func (vm *VM) CurrentBinding() *Binding {
	if n := len(vm.bindings); n > 0 {
		return vm.bindings[n-1]
	}
	return nil
}

package vm

import (
	"io"
	"os"
)

// ---------------------------------------------------------------------------
// VM: The Rubric runtime
// ---------------------------------------------------------------------------

// VM owns the class registry, the interned names, the global variables and
// the load manager. It is single-threaded: one call runs at a time, and
// nested require/load/eval re-enter on the same goroutine.
type VM struct {
	// Global tables
	Selectors *SelectorTable // method name -> ID
	Symbols   *SymbolTable   // symbol name -> ID
	Classes   *ClassTable    // full name -> Class
	Globals   map[string]Value

	// Well-known classes (for fast-path checks and bootstrapping)
	ObjectClass      *Class
	ModuleClass      *Class
	ClassClass       *Class
	KernelModule     *Class
	ComparableModule *Class
	EnumerableModule *Class
	NilClass         *Class
	TrueClass        *Class
	FalseClass       *Class
	NumericClass     *Class
	IntegerClass     *Class
	FloatClass       *Class
	StringClass      *Class
	SymbolClass      *Class
	ArrayClass       *Class
	HashClass        *Class
	RangeClass       *Class
	ProcClass        *Class

	// Main is the top-level self.
	Main Value

	// Stdout receives puts, print and p.
	Stdout io.Writer

	// Loader resolves and evaluates require/load.
	Loader *Loader

	evalFunc EvalFunc
	bindings []*Binding

	objectIDs map[interface{}]int64
	nextID    int64

	inspecting map[interface{}]bool
}

// NewVM creates and bootstraps a new VM with the default search path.
func NewVM() *VM {
	vm := &VM{
		Selectors: NewSelectorTable(),
		Symbols:   NewSymbolTable(),
		Classes:   NewClassTable(),
		Globals:   make(map[string]Value),
		Stdout:    os.Stdout,
		objectIDs: make(map[interface{}]int64),
		nextID:    8,
	}

	vm.bootstrap()
	vm.Loader = NewLoader(vm, OSFileSystem{})

	return vm
}

// ---------------------------------------------------------------------------
// Bootstrap: Create core classes
// ---------------------------------------------------------------------------

func (vm *VM) bootstrap() {
	// Phase 1: Object, Module and Class refer to each other through their
	// metaclasses, which are created lazily, so plain construction suffices.
	vm.ObjectClass = vm.createClass("Object", nil)
	vm.ModuleClass = vm.createClass("Module", vm.ObjectClass)
	vm.ClassClass = vm.createClass("Class", vm.ModuleClass)

	// Phase 2: Core modules
	vm.KernelModule = vm.createModule("Kernel")
	vm.ComparableModule = vm.createModule("Comparable")
	vm.EnumerableModule = vm.createModule("Enumerable")
	vm.mustInclude(vm.ObjectClass, vm.KernelModule)

	// Phase 3: Value classes
	vm.NilClass = vm.createClass("NilClass", vm.ObjectClass)
	vm.TrueClass = vm.createClass("TrueClass", vm.ObjectClass)
	vm.FalseClass = vm.createClass("FalseClass", vm.ObjectClass)
	vm.NumericClass = vm.createClass("Numeric", vm.ObjectClass)
	vm.IntegerClass = vm.createClass("Integer", vm.NumericClass)
	vm.FloatClass = vm.createClass("Float", vm.NumericClass)
	vm.StringClass = vm.createClass("String", vm.ObjectClass)
	vm.SymbolClass = vm.createClass("Symbol", vm.ObjectClass)
	vm.ArrayClass = vm.createClass("Array", vm.ObjectClass)
	vm.HashClass = vm.createClass("Hash", vm.ObjectClass)
	vm.RangeClass = vm.createClass("Range", vm.ObjectClass)
	vm.ProcClass = vm.createClass("Proc", vm.ObjectClass)

	vm.mustInclude(vm.NumericClass, vm.ComparableModule)
	vm.mustInclude(vm.StringClass, vm.ComparableModule)
	vm.mustInclude(vm.ArrayClass, vm.EnumerableModule)
	vm.mustInclude(vm.HashClass, vm.EnumerableModule)
	vm.mustInclude(vm.RangeClass, vm.EnumerableModule)

	// Phase 4: Top-level self
	vm.Main = FromObject(NewObject(vm.ObjectClass))

	// Phase 5: Register primitives on core classes
	vm.registerKernelPrimitives()
	vm.registerModulePrimitives()
	vm.registerClassPrimitives()
	vm.registerMainPrimitives()
	vm.registerBooleanPrimitives()
	vm.registerComparablePrimitives()
	vm.registerNumericPrimitives()
	vm.registerStringPrimitives()
	vm.registerSymbolPrimitives()
	vm.registerArrayPrimitives()
	vm.registerHashPrimitives()
	vm.registerRangePrimitives()
	vm.registerProcPrimitives()
}

// createClass creates a top-level class and binds its constant.
func (vm *VM) createClass(name string, superclass *Class) *Class {
	c := NewClass(name, superclass)
	vm.Classes.Register(c)
	if vm.ObjectClass != nil {
		vm.ObjectClass.SetConst(name, FromClass(c))
	} else {
		c.SetConst(name, FromClass(c))
	}
	return c
}

// createModule creates a top-level module and binds its constant.
func (vm *VM) createModule(name string) *Class {
	m := NewModule(name)
	vm.Classes.Register(m)
	vm.ObjectClass.SetConst(name, FromClass(m))
	return m
}

func (vm *VM) mustInclude(c, m *Class) {
	if _, err := c.Include(m); err != nil {
		panic("bootstrap: " + err.Error())
	}
}

// ---------------------------------------------------------------------------
// Defining types
// ---------------------------------------------------------------------------

// DefineClass creates the class name inside ns (Object when nil), or
// reopens it when it already exists. A nil superclass means Object for a
// new class and "unchanged" for a reopened one. Creating a class sends
// inherited to its superclass; reopening does not.
func (vm *VM) DefineClass(name string, superclass *Class, ns *Class) (*Class, error) {
	if ns == nil {
		ns = vm.ObjectClass
	}
	if v, ok := ns.Constants[name]; ok {
		c := v.AsClass()
		if c == nil || c.IsModule() {
			return nil, Errorf(TypeError, "%s is not a class", name)
		}
		if superclass != nil && c.Superclass != superclass {
			return nil, Errorf(TypeError, "superclass mismatch for class %s", name)
		}
		return c, nil
	}
	if superclass == nil {
		superclass = vm.ObjectClass
	}
	if superclass.IsModule() || superclass.IsSingleton() {
		return nil, Errorf(TypeError, "superclass must be a Class")
	}

	c := NewClass(name, superclass)
	if ns != vm.ObjectClass {
		c.Namespace = ns.FullName()
	}
	vm.Classes.Register(c)
	ns.SetConst(name, FromClass(c))
	log.Debugf("defined class %s < %s", c.FullName(), superclass.FullName())
	if _, err := vm.SendSelf(FromClass(superclass), "inherited", FromClass(c)); err != nil {
		return c, err
	}
	return c, nil
}

// DefineModule creates the module name inside ns (Object when nil), or
// reopens it when it already exists.
func (vm *VM) DefineModule(name string, ns *Class) (*Class, error) {
	if ns == nil {
		ns = vm.ObjectClass
	}
	if v, ok := ns.Constants[name]; ok {
		m := v.AsClass()
		if m == nil || !m.IsModule() {
			return nil, Errorf(TypeError, "%s is not a module", name)
		}
		return m, nil
	}

	m := NewModule(name)
	if ns != vm.ObjectClass {
		m.Namespace = ns.FullName()
	}
	vm.Classes.Register(m)
	ns.SetConst(name, FromClass(m))
	log.Debugf("defined module %s", m.FullName())
	return m, nil
}

// LookupClass finds a registered class or module by full name.
func (vm *VM) LookupClass(name string) *Class {
	return vm.Classes.Lookup(name)
}

// LookupConstant resolves name lexically through cref (innermost last),
// then through the ancestors of the innermost class, then through Object.
func (vm *VM) LookupConstant(cref []*Class, name string) (Value, error) {
	for i := len(cref) - 1; i >= 0; i-- {
		if v, ok := cref[i].Constants[name]; ok {
			return v, nil
		}
	}
	if len(cref) > 0 {
		if v, ok := cref[len(cref)-1].LookupConst(name); ok {
			return v, nil
		}
	}
	if v, ok := vm.ObjectClass.LookupConst(name); ok {
		return v, nil
	}
	return Nil, Errorf(NameError, "uninitialized constant %s", name)
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

// LookupGlobal returns a global variable. The load path and loaded
// features globals are views of the loader's state.
func (vm *VM) LookupGlobal(name string) (Value, bool) {
	switch name {
	case "$:", "$LOAD_PATH":
		return FromArray(vm.Loader.path), true
	case `$"`, "$LOADED_FEATURES":
		return FromArray(vm.Loader.features), true
	}
	v, ok := vm.Globals[name]
	return v, ok
}

// SetGlobal assigns a global variable.
func (vm *VM) SetGlobal(name string, value Value) error {
	switch name {
	case "$:", "$LOAD_PATH", `$"`, "$LOADED_FEATURES":
		return Errorf(NameError, "%s is a read-only variable", name)
	}
	vm.Globals[name] = value
	return nil
}

// ObjectID returns a stable identifier for v.
func (vm *VM) ObjectID(v Value) int64 {
	switch v.kind {
	case KindNil:
		return 4
	case KindBool:
		return int64(v.bits) * 2
	case KindInt:
		if v.IsSmallInt() {
			return 2*v.SmallInt() + 1
		}
	case KindSymbol:
		return int64(v.bits)*8 + 6
	}
	key := v.ref
	if key == nil {
		key = v.bits
	}
	if id, ok := vm.objectIDs[key]; ok {
		return id
	}
	vm.nextID += 8
	vm.objectIDs[key] = vm.nextID
	return vm.nextID
}

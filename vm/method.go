package vm

// Method represents a callable method in the Rubric VM.
//
// Primitives are Go functions wrapped by the arity-specialised types below;
// methods defined in source are supplied by the compiler package. Both go
// through the same method tables and the same dispatch path.
type Method interface {
	Invoke(vm *VM, self Value, args []Value, blk *Proc) (Value, error)
}

// Visibility controls who may call a method.
type Visibility uint8

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	}
	return "public"
}

// MethodEntry is one row of a class's method table.
type MethodEntry struct {
	Name       string
	Method     Method
	Visibility Visibility
	Owner      *Class // the class or module whose table holds the entry

	// Undefined marks an undef_method entry: lookup stops here and reports
	// the method as missing.
	Undefined bool
}

// copyTo returns a copy of the entry, renamed and owned by c.
func (e *MethodEntry) copyTo(c *Class, name string, vis Visibility) *MethodEntry {
	return &MethodEntry{Name: name, Method: e.Method, Visibility: vis, Owner: c}
}

// PrimitiveFunc is a Go function that implements a variable-arity primitive.
type PrimitiveFunc func(vm *VM, self Value, args []Value, blk *Proc) (Value, error)

// Method0Func is a primitive taking no arguments.
type Method0Func func(vm *VM, self Value) (Value, error)

// Method1Func is a primitive taking one argument.
type Method1Func func(vm *VM, self Value, arg Value) (Value, error)

// Method2Func is a primitive taking two arguments.
type Method2Func func(vm *VM, self Value, arg1, arg2 Value) (Value, error)

// ---------------------------------------------------------------------------
// Arity-specialized method wrappers
// ---------------------------------------------------------------------------

// PrimitiveMethod wraps a general PrimitiveFunc as a Method.
type PrimitiveMethod struct {
	name string
	fn   PrimitiveFunc
}

func (m *PrimitiveMethod) Invoke(vm *VM, self Value, args []Value, blk *Proc) (Value, error) {
	return m.fn(vm, self, args, blk)
}

func (m *PrimitiveMethod) Name() string { return m.name }
func (m *PrimitiveMethod) Arity() int   { return -1 }

// Method0 wraps a zero-argument primitive.
type Method0 struct {
	name string
	fn   Method0Func
}

func (m *Method0) Invoke(vm *VM, self Value, args []Value, blk *Proc) (Value, error) {
	if len(args) != 0 {
		return Nil, argCountError(len(args), 0)
	}
	return m.fn(vm, self)
}

func (m *Method0) Name() string { return m.name }
func (m *Method0) Arity() int   { return 0 }

// Method1 wraps a one-argument primitive.
type Method1 struct {
	name string
	fn   Method1Func
}

func (m *Method1) Invoke(vm *VM, self Value, args []Value, blk *Proc) (Value, error) {
	if len(args) != 1 {
		return Nil, argCountError(len(args), 1)
	}
	return m.fn(vm, self, args[0])
}

func (m *Method1) Name() string { return m.name }
func (m *Method1) Arity() int   { return 1 }

// Method2 wraps a two-argument primitive.
type Method2 struct {
	name string
	fn   Method2Func
}

func (m *Method2) Invoke(vm *VM, self Value, args []Value, blk *Proc) (Value, error) {
	if len(args) != 2 {
		return Nil, argCountError(len(args), 2)
	}
	return m.fn(vm, self, args[0], args[1])
}

func (m *Method2) Name() string { return m.name }
func (m *Method2) Arity() int   { return 2 }

// ---------------------------------------------------------------------------
// Factory functions
// ---------------------------------------------------------------------------

// NewPrimitiveMethod creates a new primitive method with variable arity.
func NewPrimitiveMethod(name string, fn PrimitiveFunc) Method {
	return &PrimitiveMethod{name: name, fn: fn}
}

// NewMethod0 creates a new zero-argument primitive method.
func NewMethod0(name string, fn Method0Func) Method {
	return &Method0{name: name, fn: fn}
}

// NewMethod1 creates a new one-argument primitive method.
func NewMethod1(name string, fn Method1Func) Method {
	return &Method1{name: name, fn: fn}
}

// NewMethod2 creates a new two-argument primitive method.
func NewMethod2(name string, fn Method2Func) Method {
	return &Method2{name: name, fn: fn}
}

// ---------------------------------------------------------------------------
// Method metadata interface (optional)
// ---------------------------------------------------------------------------

// NamedMethod is implemented by methods that have a name.
type NamedMethod interface {
	Method
	Name() string
}

// ArityMethod is implemented by methods that have a fixed arity.
type ArityMethod interface {
	Method
	Arity() int
}

// LocatedMethod is implemented by methods defined from source text.
type LocatedMethod interface {
	Method
	Location() (file string, line int)
}

// MethodName returns the name of a method if it implements NamedMethod.
func MethodName(m Method) string {
	if nm, ok := m.(NamedMethod); ok {
		return nm.Name()
	}
	return "<anonymous>"
}

// MethodArity returns the arity of a method if it implements ArityMethod.
// Returns -1 for variable arity methods.
func MethodArity(m Method) int {
	if am, ok := m.(ArityMethod); ok {
		return am.Arity()
	}
	return -1
}

// IsPrimitive reports whether m is one of the Go-implemented wrappers.
func IsPrimitive(m Method) bool {
	switch m.(type) {
	case *PrimitiveMethod, *Method0, *Method1, *Method2:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Proc-backed methods (define_method)
// ---------------------------------------------------------------------------

// ProcMethod runs a proc as a method body with self bound to the receiver.
type ProcMethod struct {
	name string
	proc *Proc
}

// NewProcMethod wraps p as a method. The proc gets lambda semantics, so
// return inside it returns from the method.
func NewProcMethod(name string, p *Proc) Method {
	return &ProcMethod{name: name, proc: p.AsLambda()}
}

func (m *ProcMethod) Invoke(vm *VM, self Value, args []Value, blk *Proc) (Value, error) {
	return m.proc.Body(vm, Invocation{Proc: m.proc, Self: self, Args: args, Block: blk})
}

func (m *ProcMethod) Name() string { return m.name }
func (m *ProcMethod) Arity() int   { return m.proc.Arity }

// Proc returns the wrapped proc.
func (m *ProcMethod) Proc() *Proc { return m.proc }

package vm

import (
	"sort"
	"sync"
)

// ---------------------------------------------------------------------------
// Class: type descriptor for classes and modules
// ---------------------------------------------------------------------------

// TypeKind distinguishes classes from modules.
type TypeKind uint8

const (
	ClassKind TypeKind = iota
	ModuleKind
)

func (k TypeKind) String() string {
	if k == ModuleKind {
		return "module"
	}
	return "class"
}

// Class represents a Rubric class or module.
//
// Classes are open: methods, constants and inclusions may be added at any
// time and are visible to existing instances on the next lookup. Every
// structural change bumps the version of the class and of every known
// descendant, which drops their cached ancestor order and resolution cache.
type Class struct {
	Name       string            // Class name
	Namespace  string            // Full name of the enclosing class (empty at top level)
	Kind       TypeKind          // class or module
	Superclass *Class            // Parent class (nil for Object and for modules)
	Includes   []*Class          // Included modules, in inclusion order
	Constants  map[string]Value  // Constants defined in this class body
	ClassVars  map[string]Value  // Class variables (@@name) owned by this class
	methods    map[int]*MethodEntry

	version          uint64
	ancestors        []*Class
	ancestorsVersion uint64
	cache            map[int]*MethodEntry
	cacheVersion     uint64

	// dependents are the direct subclasses and the types that include this
	// module; they inherit every structural change.
	dependents []*Class

	meta      *Class // metaclass of a class value, created on demand
	singleton bool
	attached  Value // the object a singleton class belongs to

	state *Object // class-level instance variables, created on demand
}

// NewClass creates a new class with the given name and superclass.
func NewClass(name string, superclass *Class) *Class {
	c := &Class{
		Name:       name,
		Kind:       ClassKind,
		Superclass: superclass,
		Constants:  make(map[string]Value),
		ClassVars:  make(map[string]Value),
		methods:    make(map[int]*MethodEntry),
		version:    1,
	}
	if superclass != nil {
		superclass.addDependent(c)
	}
	return c
}

// NewModule creates a new, empty module.
func NewModule(name string) *Class {
	c := NewClass(name, nil)
	c.Kind = ModuleKind
	return c
}

// NewClassInNamespace creates a new class in a specific namespace.
func NewClassInNamespace(namespace, name string, superclass *Class) *Class {
	c := NewClass(name, superclass)
	c.Namespace = namespace
	return c
}

func (c *Class) addDependent(d *Class) {
	for _, x := range c.dependents {
		if x == d {
			return
		}
	}
	c.dependents = append(c.dependents, d)
}

// IsModule returns true for modules.
func (c *Class) IsModule() bool { return c.Kind == ModuleKind }

// IsSingleton returns true for metaclasses and per-object singleton classes.
func (c *Class) IsSingleton() bool { return c.singleton }

// Attached returns the object a singleton class belongs to.
func (c *Class) Attached() Value { return c.attached }

// Metaclass returns c's metaclass, or nil if none has been created yet.
func (c *Class) Metaclass() *Class { return c.meta }

// Version returns the structural version. It changes whenever this class or
// any of its ancestors gains a method, an inclusion or a visibility change.
func (c *Class) Version() uint64 { return c.version }

// invalidate bumps the version of c and of every transitive dependent.
func (c *Class) invalidate() {
	seen := make(map[*Class]bool)
	var walk func(k *Class)
	walk = func(k *Class) {
		if seen[k] {
			return
		}
		seen[k] = true
		k.version++
		k.ancestors = nil
		k.cache = nil
		for _, d := range k.dependents {
			walk(d)
		}
	}
	walk(c)
}

// NonSingleton returns the first non-singleton class in the superclass
// chain: the class an instance reports as its class.
func (c *Class) NonSingleton() *Class {
	k := c
	for k != nil && k.singleton {
		k = k.Superclass
	}
	return k
}

// ---------------------------------------------------------------------------
// Full qualified name helpers
// ---------------------------------------------------------------------------

// FullName returns the fully qualified class name (namespace::name or just name).
func (c *Class) FullName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + "::" + c.Name
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.FullName()
}

// ---------------------------------------------------------------------------
// Class hierarchy helpers
// ---------------------------------------------------------------------------

// HasAncestor returns true if a appears in c's linearized ancestor order.
func (c *Class) HasAncestor(a *Class) bool {
	for _, x := range c.Ancestors() {
		if x == a {
			return true
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Superclass; current != nil; current = current.Superclass {
		result = append(result, current)
	}
	return result
}

// ---------------------------------------------------------------------------
// Module inclusion
// ---------------------------------------------------------------------------

// Include appends module m to c's inclusion list.
//
// Including a module that c already includes directly is a no-op and
// returns false. Including a class is a TypeError. Including a module that
// is c, or that has c among its own ancestors, is a CycleError. On any
// error c is left untouched.
func (c *Class) Include(m *Class) (bool, error) {
	if !m.IsModule() {
		return false, Errorf(TypeError, "wrong argument type %s (expected module)", m.FullName())
	}
	if m == c || m.HasAncestor(c) {
		return false, &CycleError{Target: c, Module: m}
	}
	for _, x := range c.Includes {
		if x == m {
			return false, nil
		}
	}
	c.Includes = append(c.Includes, m)
	m.addDependent(c)
	c.invalidate()
	return true, nil
}

// IncludesModule returns true if m is among c's ancestors as a module.
func (c *Class) IncludesModule(m *Class) bool {
	return m.IsModule() && m != c && c.HasAncestor(m)
}

// ---------------------------------------------------------------------------
// Method registration
// ---------------------------------------------------------------------------

// DefineMethod adds or replaces a method in c's own table.
// The selector will be interned in the given SelectorTable.
func (c *Class) DefineMethod(selectors *SelectorTable, name string, method Method, vis Visibility) *MethodEntry {
	e := &MethodEntry{Name: name, Method: method, Visibility: vis, Owner: c}
	c.methods[selectors.Intern(name)] = e
	c.invalidate()
	return e
}

// AddMethod registers a public method on this class.
func (c *Class) AddMethod(selectors *SelectorTable, name string, method Method) {
	c.DefineMethod(selectors, name, method, Public)
}

// AddMethod0 registers a zero-argument method on this class.
func (c *Class) AddMethod0(selectors *SelectorTable, name string, fn Method0Func) {
	c.AddMethod(selectors, name, NewMethod0(name, fn))
}

// AddMethod1 registers a one-argument method on this class.
func (c *Class) AddMethod1(selectors *SelectorTable, name string, fn Method1Func) {
	c.AddMethod(selectors, name, NewMethod1(name, fn))
}

// AddMethod2 registers a two-argument method on this class.
func (c *Class) AddMethod2(selectors *SelectorTable, name string, fn Method2Func) {
	c.AddMethod(selectors, name, NewMethod2(name, fn))
}

// AddPrimitiveMethod registers a variable-arity primitive method on this class.
func (c *Class) AddPrimitiveMethod(selectors *SelectorTable, name string, fn PrimitiveFunc) {
	c.AddMethod(selectors, name, NewPrimitiveMethod(name, fn))
}

// AddPrivateMethod registers a variable-arity private primitive.
func (c *Class) AddPrivateMethod(selectors *SelectorTable, name string, fn PrimitiveFunc) {
	c.DefineMethod(selectors, name, NewPrimitiveMethod(name, fn), Private)
}

// LocalMethod returns the entry held in c's own table, or nil.
func (c *Class) LocalMethod(selector int) *MethodEntry {
	return c.methods[selector]
}

// LocalMethods returns the entries of c's own table sorted by name,
// undefined markers excluded.
func (c *Class) LocalMethods() []*MethodEntry {
	result := make([]*MethodEntry, 0, len(c.methods))
	for _, e := range c.methods {
		if !e.Undefined {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// MethodCount returns the number of methods in c's own table.
func (c *Class) MethodCount() int {
	return len(c.LocalMethods())
}

// RemoveMethod deletes c's own entry for name, exposing any inherited one.
func (c *Class) RemoveMethod(selectors *SelectorTable, name string) error {
	id := selectors.Lookup(name)
	if e, ok := c.methods[id]; id < 0 || !ok || e.Undefined {
		return Errorf(NameError, "method `%s' not defined in %s", name, c.FullName())
	}
	delete(c.methods, id)
	c.invalidate()
	return nil
}

// UndefMethod installs a marker that stops lookup for name at c.
func (c *Class) UndefMethod(selectors *SelectorTable, name string) error {
	id := selectors.Intern(name)
	if c.Lookup(id) == nil {
		return Errorf(NameError, "undefined method `%s' for class `%s'", name, c.FullName())
	}
	c.methods[id] = &MethodEntry{Name: name, Owner: c, Undefined: true}
	c.invalidate()
	return nil
}

// SetVisibility changes the visibility of name as seen through c.
// An inherited method is copied into c's table with the new visibility so
// the ancestor is unaffected.
func (c *Class) SetVisibility(selectors *SelectorTable, name string, vis Visibility) error {
	id := selectors.Intern(name)
	e := c.Lookup(id)
	if e == nil {
		return Errorf(NameError, "undefined method `%s' for class `%s'", name, c.FullName())
	}
	if e.Visibility == vis && e.Owner == c {
		return nil
	}
	c.methods[id] = e.copyTo(c, name, vis)
	c.invalidate()
	return nil
}

// AliasMethod copies the entry currently resolved for oldName into c under
// newName. Later redefinition of oldName does not affect the alias.
func (c *Class) AliasMethod(selectors *SelectorTable, newName, oldName string) error {
	e := c.Lookup(selectors.Intern(oldName))
	if e == nil {
		return Errorf(NameError, "undefined method `%s' for class `%s'", oldName, c.FullName())
	}
	c.methods[selectors.Intern(newName)] = e.copyTo(c, newName, e.Visibility)
	c.invalidate()
	return nil
}

// ---------------------------------------------------------------------------
// Class Variables
// ---------------------------------------------------------------------------

// findClassVarOwner finds the ancestor that holds the named class variable.
func (c *Class) findClassVarOwner(name string) *Class {
	for _, a := range c.Ancestors() {
		if _, ok := a.ClassVars[name]; ok {
			return a
		}
	}
	return nil
}

// HasClassVar returns true if this class or any ancestor holds the variable.
func (c *Class) HasClassVar(name string) bool {
	return c.findClassVarOwner(name) != nil
}

// GetClassVar returns the value of a class variable, walking the ancestors.
func (c *Class) GetClassVar(name string) (Value, error) {
	owner := c.findClassVarOwner(name)
	if owner == nil {
		return Nil, Errorf(NameError, "uninitialized class variable %s in %s", name, c.FullName())
	}
	return owner.ClassVars[name], nil
}

// SetClassVar assigns a class variable on the ancestor that already holds
// it, or on c when none does.
func (c *Class) SetClassVar(name string, value Value) {
	owner := c.findClassVarOwner(name)
	if owner == nil {
		owner = c
	}
	owner.ClassVars[name] = value
}

// AllClassVarNames returns all class variable names visible from c, sorted.
func (c *Class) AllClassVarNames() []string {
	seen := make(map[string]bool)
	var result []string
	for _, a := range c.Ancestors() {
		for name := range a.ClassVars {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	sort.Strings(result)
	return result
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// SetConst defines or overwrites a constant in c.
func (c *Class) SetConst(name string, v Value) {
	c.Constants[name] = v
}

// LookupConst finds a constant in c or its ancestors.
func (c *Class) LookupConst(name string) (Value, bool) {
	for _, a := range c.Ancestors() {
		if v, ok := a.Constants[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// ---------------------------------------------------------------------------
// ClassTable: Global class registry
// ---------------------------------------------------------------------------

// ClassTable holds every registered class and module by full name, in
// registration order. It is safe for concurrent use.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
	order   []*Class
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	key := c.FullName()
	old := ct.classes[key]
	ct.classes[key] = c
	if old == nil {
		ct.order = append(ct.order, c)
	}
	return old
}

// Lookup finds a class by full name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// All returns all registered classes in registration order.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*Class, 0, len(ct.order))
	for _, c := range ct.order {
		if ct.classes[c.FullName()] == c {
			result = append(result, c)
		}
	}
	return result
}

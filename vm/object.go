package vm

// Object represents a heap-allocated instance of a user or core class.
//
// Instance variables live in a map keyed by name (including the leading
// '@'); names keeps their first-assignment order for introspection.
type Object struct {
	class     *Class
	singleton *Class
	ivars     map[string]Value
	names     []string
}

// NewObject creates an instance of c with no instance variables set.
func NewObject(c *Class) *Object {
	return &Object{class: c}
}

// Class returns the object's class, ignoring any singleton class.
func (obj *Object) Class() *Class { return obj.class }

// Singleton returns the object's singleton class, or nil.
func (obj *Object) Singleton() *Class { return obj.singleton }

// dispatchClass returns the class method lookup starts from.
func (obj *Object) dispatchClass() *Class {
	if obj.singleton != nil {
		return obj.singleton
	}
	return obj.class
}

// GetIvar returns an instance variable, or Nil when unset.
func (obj *Object) GetIvar(name string) Value {
	if v, ok := obj.ivars[name]; ok {
		return v
	}
	return Nil
}

// HasIvar reports whether the instance variable has been assigned.
func (obj *Object) HasIvar(name string) bool {
	_, ok := obj.ivars[name]
	return ok
}

// SetIvar assigns an instance variable.
func (obj *Object) SetIvar(name string, v Value) {
	if obj.ivars == nil {
		obj.ivars = make(map[string]Value)
	}
	if _, ok := obj.ivars[name]; !ok {
		obj.names = append(obj.names, name)
	}
	obj.ivars[name] = v
}

// IvarNames returns instance variable names in assignment order.
func (obj *Object) IvarNames() []string {
	return append([]string(nil), obj.names...)
}

// ClassName returns the name of the object's class, or "?" if unset.
func (obj *Object) ClassName() string {
	if obj.class == nil {
		return "?"
	}
	return obj.class.FullName()
}

// IvarTable returns the object holding v's instance variables: objects
// hold their own, classes and modules get a table on first use. Other
// values carry none and return nil.
func (vm *VM) IvarTable(v Value) *Object {
	if obj := v.AsObject(); obj != nil {
		return obj
	}
	if c := v.AsClass(); c != nil {
		if c.state == nil {
			c.state = NewObject(vm.ClassOf(v))
		}
		return c.state
	}
	return nil
}

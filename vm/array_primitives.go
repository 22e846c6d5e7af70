package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() {
	sel := vm.Selectors
	c := vm.ArrayClass
	arr := func(v Value) *Array { return v.AsArray() }

	// Array.new(size = 0, fill = nil) { |i| ... }
	vm.metaclassOf(c).AddPrimitiveMethod(sel, "new", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if err := checkArgs(args, 0, 2); err != nil {
			return Nil, err
		}
		out := NewArray()
		if len(args) == 0 {
			return FromArray(out), nil
		}
		if a := args[0].AsArray(); a != nil && len(args) == 1 {
			return FromArray(NewArray(a.Elements...)), nil
		}
		n, err := vm.argInt(args[0])
		if err != nil {
			return Nil, err
		}
		if n < 0 {
			return Nil, Errorf(ArgumentError, "negative array size")
		}
		fill := Nil
		if len(args) == 2 {
			fill = args[1]
		}
		for i := 0; i < n; i++ {
			v := fill
			if blk != nil {
				if v, err = blk.Call(vm, FromSmallInt(int64(i))); err != nil {
					return Nil, err
				}
			}
			out.Push(v)
		}
		return FromArray(out), nil
	})

	// [], slice - index, start+length or range
	index := func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		return vm.arrayIndex(arr(recv), args)
	}
	c.AddPrimitiveMethod(sel, "[]", index)
	c.AddPrimitiveMethod(sel, "slice", index)

	c.AddMethod1(sel, "at", func(vm *VM, recv, arg Value) (Value, error) {
		i, err := vm.argInt(arg)
		if err != nil {
			return Nil, err
		}
		return arr(recv).At(i), nil
	})

	// fetch(index, default) - IndexError when out of range and no default
	c.AddPrimitiveMethod(sel, "fetch", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		i, err := vm.argInt(args[0])
		if err != nil {
			return Nil, err
		}
		a := arr(recv)
		if j := i; j >= -a.Len() && j < a.Len() {
			return a.At(j), nil
		}
		switch {
		case blk != nil:
			return blk.Call(vm, args[0])
		case len(args) == 2:
			return args[1], nil
		}
		return Nil, Errorf(IndexError, "index %d outside of array bounds: %d...%d", i, -a.Len(), a.Len())
	})

	// []= - store at index, span or range
	c.AddPrimitiveMethod(sel, "[]=", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 2, 3); err != nil {
			return Nil, err
		}
		val := args[len(args)-1]
		if err := vm.arrayStore(arr(recv), args[:len(args)-1], val); err != nil {
			return Nil, err
		}
		return val, nil
	})

	// <<, push, append - add at the end
	c.AddMethod1(sel, "<<", func(_ *VM, recv, arg Value) (Value, error) {
		arr(recv).Push(arg)
		return recv, nil
	})
	push := func(_ *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		arr(recv).Push(args...)
		return recv, nil
	}
	c.AddPrimitiveMethod(sel, "push", push)
	c.AddPrimitiveMethod(sel, "append", push)

	// unshift, prepend - add at the front
	unshift := func(_ *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		arr(recv).Unshift(args...)
		return recv, nil
	}
	c.AddPrimitiveMethod(sel, "unshift", unshift)
	c.AddPrimitiveMethod(sel, "prepend", unshift)

	// insert(index, *values)
	c.AddPrimitiveMethod(sel, "insert", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, -1); err != nil {
			return Nil, err
		}
		i, err := vm.argInt(args[0])
		if err != nil {
			return Nil, err
		}
		return recv, arr(recv).Insert(i, args[1:]...)
	})

	c.AddMethod0(sel, "pop", func(_ *VM, recv Value) (Value, error) { return arr(recv).Pop(), nil })
	c.AddMethod0(sel, "shift", func(_ *VM, recv Value) (Value, error) { return arr(recv).Shift(), nil })

	length := func(_ *VM, recv Value) (Value, error) { return FromSmallInt(int64(arr(recv).Len())), nil }
	c.AddMethod0(sel, "length", length)
	c.AddMethod0(sel, "size", length)

	// each - yield every element; elements appended during iteration are
	// visited too
	c.AddPrimitiveMethod(sel, "each", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		a := arr(recv)
		for i := 0; i < a.Len(); i++ {
			if _, err := vm.Yield(blk, a.Elements[i]); err != nil {
				return Nil, err
			}
		}
		return recv, nil
	})

	// ==, eql? - elementwise equality
	c.AddMethod1(sel, "==", func(vm *VM, recv, arg Value) (Value, error) {
		other := arg.AsArray()
		if other == nil {
			return False, nil
		}
		eq, err := vm.elementsEqual(arr(recv).Elements, other.Elements)
		return FromBool(eq), err
	})
	c.AddMethod1(sel, "eql?", func(_ *VM, recv, arg Value) (Value, error) {
		return FromBool(arg.IsArray() && keyOf(recv) == keyOf(arg)), nil
	})

	// <=>(other) - element by element, then by length; nil when a pair
	// does not compare
	c.AddMethod1(sel, "<=>", func(vm *VM, recv, arg Value) (Value, error) {
		other := arg.AsArray()
		if other == nil {
			return Nil, nil
		}
		self := arr(recv)
		cmp := vm.Spaceship()
		for i := 0; i < self.Len() && i < other.Len(); i++ {
			r, ok, err := cmp.Compare(self.Elements[i], other.Elements[i])
			if err != nil || !ok {
				return Nil, err
			}
			if r != 0 {
				return FromSmallInt(int64(r)), nil
			}
		}
		return FromSmallInt(int64(sign(self.Len() - other.Len()))), nil
	})

	// inspect, to_s - [a, b, c]
	inspect := func(vm *VM, recv Value) (Value, error) {
		done, seen := vm.enterInspect(recv)
		if seen {
			return NewString("[...]"), nil
		}
		defer done()
		s, err := vm.joinInspect(arr(recv).Elements, ", ")
		return NewString("[" + s + "]"), err
	}
	c.AddMethod0(sel, "inspect", inspect)
	c.AddMethod0(sel, "to_s", inspect)

	c.AddMethod0(sel, "to_a", func(_ *VM, recv Value) (Value, error) { return recv, nil })
	c.AddMethod0(sel, "to_ary", func(_ *VM, recv Value) (Value, error) { return recv, nil })

	// + - concatenation into a new array
	c.AddMethod1(sel, "+", func(vm *VM, recv, arg Value) (Value, error) {
		other := arg.AsArray()
		if other == nil {
			return Nil, Errorf(TypeError, "no implicit conversion of %s into Array", vm.ClassOf(arg).FullName())
		}
		out := NewArray(arr(recv).Elements...)
		out.Push(other.Elements...)
		return FromArray(out), nil
	})

	// concat - append another array in place
	c.AddMethod1(sel, "concat", func(vm *VM, recv, arg Value) (Value, error) {
		other := arg.AsArray()
		if other == nil {
			return Nil, Errorf(TypeError, "no implicit conversion of %s into Array", vm.ClassOf(arg).FullName())
		}
		arr(recv).Push(append([]Value(nil), other.Elements...)...)
		return recv, nil
	})

	// -, &, | - set operations by hash-key equality, order preserved
	setOp := func(name string, keep func(inOther bool) bool, union bool) {
		c.AddMethod1(sel, name, func(vm *VM, recv, arg Value) (Value, error) {
			other := arg.AsArray()
			if other == nil {
				return Nil, Errorf(TypeError, "no implicit conversion of %s into Array", vm.ClassOf(arg).FullName())
			}
			inOther := make(map[hashKey]bool, other.Len())
			for _, v := range other.Elements {
				inOther[keyOf(v)] = true
			}
			out := NewArray()
			seen := make(map[hashKey]bool)
			for _, v := range arr(recv).Elements {
				k := keyOf(v)
				if keep(inOther[k]) && (name == "-" || !seen[k]) {
					seen[k] = true
					out.Push(v)
				}
			}
			if union {
				for _, v := range other.Elements {
					if k := keyOf(v); !seen[k] {
						seen[k] = true
						out.Push(v)
					}
				}
			}
			return FromArray(out), nil
		})
	}
	setOp("-", func(in bool) bool { return !in }, false)
	setOp("&", func(in bool) bool { return in }, false)
	setOp("|", func(bool) bool { return true }, true)

	// * - repetition, or join with a string
	c.AddMethod1(sel, "*", func(vm *VM, recv, arg Value) (Value, error) {
		if arg.IsString() {
			s, err := vm.join(arr(recv), arg.AsString().String())
			return NewString(s), err
		}
		n, err := vm.argInt(arg)
		if err != nil {
			return Nil, err
		}
		if n < 0 {
			return Nil, Errorf(ArgumentError, "negative argument")
		}
		out := NewArray()
		for i := 0; i < n; i++ {
			out.Push(arr(recv).Elements...)
		}
		return FromArray(out), nil
	})

	// join(sep = "")
	c.AddPrimitiveMethod(sel, "join", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 1); err != nil {
			return Nil, err
		}
		sep := ""
		if len(args) == 1 && !args[0].IsNil() {
			var err error
			if sep, err = vm.argString(args[0]); err != nil {
				return Nil, err
			}
		}
		s, err := vm.join(arr(recv), sep)
		return NewString(s), err
	})

	// delete(value) - remove every equal element, return it or nil
	c.AddMethod1(sel, "delete", func(vm *VM, recv, arg Value) (Value, error) {
		a := arr(recv)
		kept := a.Elements[:0]
		found := Nil
		for _, v := range a.Elements {
			eq, err := vm.Equal(v, arg)
			if err != nil {
				return Nil, err
			}
			if eq {
				found = v
				continue
			}
			kept = append(kept, v)
		}
		a.Elements = kept
		return found, nil
	})

	c.AddMethod1(sel, "delete_at", func(vm *VM, recv, arg Value) (Value, error) {
		i, err := vm.argInt(arg)
		if err != nil {
			return Nil, err
		}
		a := arr(recv)
		if i < 0 {
			i += a.Len()
		}
		if i < 0 || i >= a.Len() {
			return Nil, nil
		}
		v := a.Elements[i]
		a.Elements = append(a.Elements[:i], a.Elements[i+1:]...)
		return v, nil
	})

	// include?, index - search with ==
	c.AddMethod1(sel, "include?", func(vm *VM, recv, arg Value) (Value, error) {
		i, err := vm.arrayFind(arr(recv), arg)
		return FromBool(i >= 0), err
	})
	c.AddMethod1(sel, "index", func(vm *VM, recv, arg Value) (Value, error) {
		i, err := vm.arrayFind(arr(recv), arg)
		if err != nil || i < 0 {
			return Nil, err
		}
		return FromSmallInt(int64(i)), nil
	})

	c.AddMethod0(sel, "compact", func(_ *VM, recv Value) (Value, error) {
		out := NewArray()
		for _, v := range arr(recv).Elements {
			if !v.IsNil() {
				out.Push(v)
			}
		}
		return FromArray(out), nil
	})

	c.AddPrimitiveMethod(sel, "flatten", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 1); err != nil {
			return Nil, err
		}
		depth := -1
		if len(args) == 1 {
			d, err := vm.argInt(args[0])
			if err != nil {
				return Nil, err
			}
			depth = d
		}
		out := NewArray()
		flatten(out, arr(recv), depth, 0)
		return FromArray(out), nil
	})

	c.AddMethod0(sel, "uniq", func(_ *VM, recv Value) (Value, error) {
		out := NewArray()
		seen := make(map[hashKey]bool)
		for _, v := range arr(recv).Elements {
			if k := keyOf(v); !seen[k] {
				seen[k] = true
				out.Push(v)
			}
		}
		return FromArray(out), nil
	})

	// sort, sort! - by <=>, or by the block's result
	c.AddPrimitiveMethod(sel, "sort", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		out := NewArray(arr(recv).Elements...)
		return FromArray(out), vm.sortValues(out.Elements, blk)
	})
	c.AddPrimitiveMethod(sel, "sort!", func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
		return recv, vm.sortValues(arr(recv).Elements, blk)
	})

	c.AddMethod0(sel, "clear", func(_ *VM, recv Value) (Value, error) {
		arr(recv).Elements = nil
		return recv, nil
	})
	c.AddMethod1(sel, "replace", func(vm *VM, recv, arg Value) (Value, error) {
		other := arg.AsArray()
		if other == nil {
			return Nil, Errorf(TypeError, "no implicit conversion of %s into Array", vm.ClassOf(arg).FullName())
		}
		arr(recv).Elements = append([]Value(nil), other.Elements...)
		return recv, nil
	})

	c.AddMethod0(sel, "hash", func(_ *VM, recv Value) (Value, error) {
		var h int64 = 7
		for _, r := range keyOf(recv).text {
			h = h*31 + int64(r)
		}
		return FromSmallInt(h), nil
	})
}

// arrayIndex implements Array#[].
func (vm *VM) arrayIndex(a *Array, args []Value) (Value, error) {
	if len(args) == 2 {
		start, err := vm.argInt(args[0])
		if err != nil {
			return Nil, err
		}
		n, err := vm.argInt(args[1])
		if err != nil {
			return Nil, err
		}
		sub, ok := a.Slice(start, n)
		if !ok {
			return Nil, nil
		}
		return FromArray(sub), nil
	}
	if r := args[0].AsRange(); r != nil {
		start, n, ok, err := vm.rangeSpan(r, a.Len())
		if err != nil || !ok {
			return Nil, err
		}
		sub, _ := a.Slice(start, n)
		return FromArray(sub), nil
	}
	i, err := vm.argInt(args[0])
	if err != nil {
		return Nil, err
	}
	return a.At(i), nil
}

// arrayStore implements Array#[]=.
func (vm *VM) arrayStore(a *Array, idx []Value, val Value) error {
	var start, n int
	switch {
	case len(idx) == 2:
		var err error
		if start, err = vm.argInt(idx[0]); err != nil {
			return err
		}
		if n, err = vm.argInt(idx[1]); err != nil {
			return err
		}
	case idx[0].IsRange():
		s, l, ok, err := vm.rangeSpan(idx[0].AsRange(), a.Len())
		if err != nil {
			return err
		}
		if !ok {
			return Errorf(RangeError, "%s out of range", vm.describe(idx[0]))
		}
		start, n = s, l
	default:
		i, err := vm.argInt(idx[0])
		if err != nil {
			return err
		}
		return a.Set(i, val)
	}

	if start < 0 {
		start += a.Len()
		if start < 0 {
			return Errorf(IndexError, "index %d too small for array", start-a.Len())
		}
	}
	if n < 0 {
		return Errorf(IndexError, "negative length (%d)", n)
	}
	for a.Len() < start {
		a.Push(Nil)
	}
	if start+n > a.Len() {
		n = a.Len() - start
	}
	repl := []Value{val}
	if other := val.AsArray(); other != nil {
		repl = other.Elements
	}
	tail := append(append([]Value(nil), repl...), a.Elements[start+n:]...)
	a.Elements = append(a.Elements[:start], tail...)
	return nil
}

func (vm *VM) arrayFind(a *Array, v Value) (int, error) {
	for i, e := range a.Elements {
		eq, err := vm.Equal(e, v)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

func (vm *VM) elementsEqual(a, b []Value) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := vm.Equal(a[i], b[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// join converts elements with to_s, nested arrays joined recursively.
func (vm *VM) join(a *Array, sep string) (string, error) {
	done, seen := vm.enterInspect(FromArray(a))
	if seen {
		return "", Errorf(ArgumentError, "recursive array join")
	}
	defer done()

	parts := make([]string, len(a.Elements))
	for i, v := range a.Elements {
		var (
			s   string
			err error
		)
		if inner := v.AsArray(); inner != nil {
			s, err = vm.join(inner, sep)
		} else {
			s, err = vm.ToS(v)
		}
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func flatten(out, a *Array, maxDepth, depth int) {
	for _, v := range a.Elements {
		if inner := v.AsArray(); inner != nil && (maxDepth < 0 || depth < maxDepth) && inner != a {
			flatten(out, inner, maxDepth, depth+1)
			continue
		}
		out.Push(v)
	}
}

// sortValues sorts in place with <=> or with a comparison block. The first
// error stops further comparisons and is returned.
func (vm *VM) sortValues(vals []Value, blk *Proc) error {
	var sortErr error
	cmp := vm.Spaceship()
	sort.SliceStable(vals, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		var (
			c   int
			ok  = true
			err error
		)
		if blk != nil {
			var r Value
			r, err = blk.Call(vm, vals[i], vals[j])
			if err == nil {
				ok = r.IsSmallInt()
				if ok {
					c = int(r.SmallInt())
				}
			}
		} else {
			c, ok, err = cmp.Compare(vals[i], vals[j])
		}
		switch {
		case err != nil:
			sortErr = err
		case !ok:
			sortErr = vm.comparisonFailed(vals[i], vals[j])
		}
		return c < 0
	})
	return sortErr
}

// enterInspect marks v as being rendered. seen is true when v is already
// on the rendering stack; done must be called otherwise.
func (vm *VM) enterInspect(v Value) (done func(), seen bool) {
	if vm.inspecting == nil {
		vm.inspecting = make(map[interface{}]bool)
	}
	if vm.inspecting[v.ref] {
		return nil, true
	}
	vm.inspecting[v.ref] = true
	return func() { delete(vm.inspecting, v.ref) }, false
}

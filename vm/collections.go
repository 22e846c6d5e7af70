package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Str: mutable byte string
// ---------------------------------------------------------------------------

// Str is a mutable, byte-addressable string.
type Str struct {
	b []byte
}

// NewStr creates a string holding a copy of s.
func NewStr(s string) *Str {
	return &Str{b: []byte(s)}
}

func (s *Str) String() string { return string(s.b) }

// Len returns the length in bytes.
func (s *Str) Len() int { return len(s.b) }

// Bytes returns the underlying bytes. Callers must not retain them across
// mutations.
func (s *Str) Bytes() []byte { return s.b }

// Append appends t in place.
func (s *Str) Append(t string) { s.b = append(s.b, t...) }

// Set replaces the whole content.
func (s *Str) Set(t string) { s.b = append(s.b[:0], t...) }

// Dup returns an independent copy.
func (s *Str) Dup() *Str { return NewStr(string(s.b)) }

// normalizeSpan resolves a possibly negative start and a length against n.
// ok is false if start lies outside [0, n].
func normalizeSpan(start, length, n int) (int, int, bool) {
	if start < 0 {
		start += n
	}
	if start < 0 || start > n || length < 0 {
		return 0, 0, false
	}
	if start+length > n {
		length = n - start
	}
	return start, length, true
}

// Slice returns length bytes from start. Negative start counts from the end.
func (s *Str) Slice(start, length int) (string, bool) {
	start, length, ok := normalizeSpan(start, length, len(s.b))
	if !ok {
		return "", false
	}
	return string(s.b[start : start+length]), true
}

// ReplaceSlice replaces length bytes at start with repl, in place.
// Negative start counts from the end; an out-of-range start is an IndexError.
func (s *Str) ReplaceSlice(start, length int, repl string) error {
	st, ln, ok := normalizeSpan(start, length, len(s.b))
	if !ok {
		return NewRuntimeError(IndexError, fmt.Sprintf("index %d out of string", start))
	}
	tail := append([]byte(repl), s.b[st+ln:]...)
	s.b = append(s.b[:st], tail...)
	return nil
}

// Index returns the first byte offset of sub at or after from, or -1.
func (s *Str) Index(sub string, from int) int {
	if from < 0 || from > len(s.b) {
		return -1
	}
	i := strings.Index(string(s.b[from:]), sub)
	if i < 0 {
		return -1
	}
	return from + i
}

// ---------------------------------------------------------------------------
// Array: mutable ordered sequence
// ---------------------------------------------------------------------------

// Array is a mutable, 0-based sequence. Negative indices address from the end.
type Array struct {
	Elements []Value
}

// NewArray creates an array holding the given elements.
func NewArray(elems ...Value) *Array {
	a := &Array{Elements: make([]Value, len(elems))}
	copy(a.Elements, elems)
	return a
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Elements) }

// At returns the element at i, or Nil when out of range.
func (a *Array) At(i int) Value {
	if i < 0 {
		i += len(a.Elements)
	}
	if i < 0 || i >= len(a.Elements) {
		return Nil
	}
	return a.Elements[i]
}

// Set stores v at i. Writing past the end pads with Nil; a negative index
// before the start is an IndexError.
func (a *Array) Set(i int, v Value) error {
	if i < 0 {
		if i+len(a.Elements) < 0 {
			return NewRuntimeError(IndexError, fmt.Sprintf("index %d out of array", i))
		}
		i += len(a.Elements)
	}
	for len(a.Elements) <= i {
		a.Elements = append(a.Elements, Nil)
	}
	a.Elements[i] = v
	return nil
}

// Slice returns a copy of length elements from start.
func (a *Array) Slice(start, length int) (*Array, bool) {
	start, length, ok := normalizeSpan(start, length, len(a.Elements))
	if !ok {
		return nil, false
	}
	return NewArray(a.Elements[start : start+length]...), true
}

// Push appends values.
func (a *Array) Push(vs ...Value) { a.Elements = append(a.Elements, vs...) }

// Pop removes and returns the last element, or Nil when empty.
func (a *Array) Pop() Value {
	n := len(a.Elements)
	if n == 0 {
		return Nil
	}
	v := a.Elements[n-1]
	a.Elements = a.Elements[:n-1]
	return v
}

// Shift removes and returns the first element, or Nil when empty.
func (a *Array) Shift() Value {
	if len(a.Elements) == 0 {
		return Nil
	}
	v := a.Elements[0]
	a.Elements = a.Elements[1:]
	return v
}

// Unshift prepends values, keeping their order.
func (a *Array) Unshift(vs ...Value) {
	elems := make([]Value, 0, len(vs)+len(a.Elements))
	elems = append(elems, vs...)
	a.Elements = append(elems, a.Elements...)
}

// Insert inserts values before index i.
func (a *Array) Insert(i int, vs ...Value) error {
	if i < 0 {
		i += len(a.Elements) + 1
	}
	if i < 0 {
		return NewRuntimeError(IndexError, fmt.Sprintf("index %d out of array", i))
	}
	for len(a.Elements) < i {
		a.Elements = append(a.Elements, Nil)
	}
	tail := append(append([]Value{}, vs...), a.Elements[i:]...)
	a.Elements = append(a.Elements[:i], tail...)
	return nil
}

// ---------------------------------------------------------------------------
// Hash: insertion-ordered mapping
// ---------------------------------------------------------------------------

// hashKey is the structural identity of a key. Strings, numbers, symbols and
// arrays of those compare by value; everything else by identity.
type hashKey struct {
	kind Kind
	bits uint64
	text string
	ref  interface{}
}

func keyOf(v Value) hashKey {
	switch v.kind {
	case KindString:
		return hashKey{kind: KindString, text: v.AsString().String()}
	case KindInt:
		if v.IsBigInt() {
			return hashKey{kind: KindInt, text: IntString(v)}
		}
		return hashKey{kind: KindInt, bits: v.bits}
	case KindArray:
		var b strings.Builder
		for _, e := range v.AsArray().Elements {
			k := keyOf(e)
			fmt.Fprintf(&b, "%d:%d:%q:%p;", k.kind, k.bits, k.text, k.ref)
		}
		return hashKey{kind: KindArray, text: b.String()}
	}
	return hashKey{kind: v.kind, bits: v.bits, ref: v.ref}
}

// Hash is an insertion-ordered mapping with keys unique by value equality.
type Hash struct {
	keys    []Value
	vals    []Value
	index   map[hashKey]int
	Default Value
}

// NewHash creates an empty hash.
func NewHash() *Hash {
	return &Hash{index: make(map[hashKey]int)}
}

// Len returns the number of entries.
func (h *Hash) Len() int { return len(h.keys) }

// Get looks up a key.
func (h *Hash) Get(k Value) (Value, bool) {
	if i, ok := h.index[keyOf(k)]; ok {
		return h.vals[i], true
	}
	return Nil, false
}

// Set inserts or updates a key. New string keys are copied so later
// mutation of the caller's string cannot corrupt the index.
func (h *Hash) Set(k, v Value) {
	hk := keyOf(k)
	if i, ok := h.index[hk]; ok {
		h.vals[i] = v
		return
	}
	if s := k.AsString(); s != nil {
		k = FromString(s.Dup())
	}
	h.index[hk] = len(h.keys)
	h.keys = append(h.keys, k)
	h.vals = append(h.vals, v)
}

// Delete removes a key and returns its value.
func (h *Hash) Delete(k Value) (Value, bool) {
	hk := keyOf(k)
	i, ok := h.index[hk]
	if !ok {
		return Nil, false
	}
	v := h.vals[i]
	h.keys = append(h.keys[:i], h.keys[i+1:]...)
	h.vals = append(h.vals[:i], h.vals[i+1:]...)
	delete(h.index, hk)
	for j := i; j < len(h.keys); j++ {
		h.index[keyOf(h.keys[j])] = j
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Value { return append([]Value(nil), h.keys...) }

// Values returns the values in insertion order.
func (h *Hash) Values() []Value { return append([]Value(nil), h.vals...) }

// Dup returns an independent copy with the same default.
func (h *Hash) Dup() *Hash {
	d := NewHash()
	d.Default = h.Default
	for i, k := range h.keys {
		d.Set(k, h.vals[i])
	}
	return d
}

// Clear removes every entry.
func (h *Hash) Clear() {
	h.keys, h.vals = nil, nil
	h.index = make(map[hashKey]int)
}

// Each calls fn for every entry in insertion order over a snapshot of the
// entries, so fn may mutate the hash.
func (h *Hash) Each(fn func(k, v Value) error) error {
	keys, vals := h.Keys(), h.Values()
	for i := range keys {
		if err := fn(keys[i], vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Range
// ---------------------------------------------------------------------------

// Range is an interval between two values. Ordering and membership are
// decided through <=> by the runtime, see (*VM).RangeCover.
type Range struct {
	Begin      Value
	End        Value
	ExcludeEnd bool
}

// NewRange creates a range.
func NewRange(begin, end Value, excludeEnd bool) *Range {
	return &Range{Begin: begin, End: end, ExcludeEnd: excludeEnd}
}

// ---------------------------------------------------------------------------
// Proc
// ---------------------------------------------------------------------------

// Invocation describes one call of a proc.
type Invocation struct {
	Proc *Proc // the proc being called
	Self Value

	// Target, when non-nil, replaces the lexical class that receives def
	// (class_eval and instance_eval pass one).
	Target *Class

	Args  []Value
	Block *Proc
}

// ProcFunc is the body of a closure.
type ProcFunc func(vm *VM, inv Invocation) (Value, error)

// Proc is a closure over a captured scope and a parameter list.
type Proc struct {
	Params []string
	Arity  int // -(n+1) when a splat or optional params follow n required ones
	Self   Value
	Scope  *Scope
	Lambda bool
	Body   ProcFunc
}

// Call invokes the proc with the given arguments against its captured self.
func (p *Proc) Call(vm *VM, args ...Value) (Value, error) {
	return p.Body(vm, Invocation{Proc: p, Self: p.Self, Args: args})
}

// CallWithBlock invokes the proc passing a block along.
func (p *Proc) CallWithBlock(vm *VM, args []Value, blk *Proc) (Value, error) {
	return p.Body(vm, Invocation{Proc: p, Self: p.Self, Args: args, Block: blk})
}

// CallAs invokes the proc with a different self and, optionally, a
// different definition target.
func (p *Proc) CallAs(vm *VM, self Value, target *Class, args ...Value) (Value, error) {
	return p.Body(vm, Invocation{Proc: p, Self: self, Target: target, Args: args})
}

// AsLambda returns a copy of p with lambda semantics: return inside the
// body returns from the proc itself.
func (p *Proc) AsLambda() *Proc {
	q := *p
	q.Lambda = true
	return &q
}

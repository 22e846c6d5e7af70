package vm

import (
	"math"
	"math/big"
)

// Value is a tagged Rubric value.
//
// Immediates (nil, booleans, small integers, floats and symbols) live in the
// bits field. Heap values keep a pointer in ref; a Value never owns the
// descriptor of its class, it only references it.
//
// Encoding scheme:
//   - Nil, Bool: kind only (bits = 1 for true)
//   - Int: int64 in bits, or *big.Int in ref once it no longer fits
//   - Float: IEEE 754 bits
//   - Symbol: symbol ID
//   - String, Array, Hash, Range, Proc, Object, Class: pointer in ref
type Value struct {
	kind Kind
	bits uint64
	ref  interface{}
}

// Kind discriminates the Value union.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindSymbol
	KindString
	KindArray
	KindHash
	KindRange
	KindProc
	KindObject
	KindClass
)

var kindNames = [...]string{
	KindNil:    "nil",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindSymbol: "symbol",
	KindString: "string",
	KindArray:  "array",
	KindHash:   "hash",
	KindRange:  "range",
	KindProc:   "proc",
	KindObject: "object",
	KindClass:  "class",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Pre-defined special values
var (
	Nil   = Value{kind: KindNil}
	True  = Value{kind: KindBool, bits: 1}
	False = Value{kind: KindBool}
)

// Kind returns the value's discriminator.
func (v Value) Kind() Kind { return v.kind }

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsTrue() bool   { return v.kind == KindBool && v.bits == 1 }
func (v Value) IsFalse() bool  { return v.kind == KindBool && v.bits == 0 }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsSymbol() bool { return v.kind == KindSymbol }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsHash() bool   { return v.kind == KindHash }
func (v Value) IsRange() bool  { return v.kind == KindRange }
func (v Value) IsProc() bool   { return v.kind == KindProc }
func (v Value) IsObject() bool { return v.kind == KindObject }
func (v Value) IsClass() bool  { return v.kind == KindClass }

// IsNumeric returns true for integers and floats.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsSmallInt returns true if v is an integer that fits in an int64.
func (v Value) IsSmallInt() bool { return v.kind == KindInt && v.ref == nil }

// IsBigInt returns true if v is an integer held as a *big.Int.
func (v Value) IsBigInt() bool { return v.kind == KindInt && v.ref != nil }

// IsTruthy returns true if v is considered "truthy" in conditionals.
// Only false and nil are falsy.
func (v Value) IsTruthy() bool {
	return !(v.kind == KindNil || (v.kind == KindBool && v.bits == 0))
}

// IsFalsy returns true if v is nil or false.
func (v Value) IsFalsy() bool { return !v.IsTruthy() }

// ---------------------------------------------------------------------------
// Immediates
// ---------------------------------------------------------------------------

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns v as a bool. Panics if v is not true or false.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic("Value.Bool: not a boolean")
	}
	return v.bits == 1
}

// FromSmallInt creates an integer Value from an int64.
func FromSmallInt(n int64) Value {
	return Value{kind: KindInt, bits: uint64(n)}
}

// FromBigInt creates an integer Value, demoting to the int64 form when the
// value fits. The argument is not retained if it is demoted.
func FromBigInt(n *big.Int) Value {
	if n.IsInt64() {
		return FromSmallInt(n.Int64())
	}
	return Value{kind: KindInt, ref: n}
}

// SmallInt returns v as an int64.
// Panics if v is not an integer in the int64 range.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("Value.SmallInt: not a small integer")
	}
	return int64(v.bits)
}

// BigInt returns v as a freshly allocated *big.Int, whatever its storage.
// Panics if v is not an integer.
func (v Value) BigInt() *big.Int {
	if v.kind != KindInt {
		panic("Value.BigInt: not an integer")
	}
	if v.ref != nil {
		return new(big.Int).Set(v.ref.(*big.Int))
	}
	return big.NewInt(int64(v.bits))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	return Value{kind: KindFloat, bits: math.Float64bits(f)}
}

// Float64 returns v as a float64. Integers are converted.
// Panics if v is not numeric.
func (v Value) Float64() float64 {
	switch {
	case v.kind == KindFloat:
		return math.Float64frombits(v.bits)
	case v.IsSmallInt():
		return float64(int64(v.bits))
	case v.IsBigInt():
		f, _ := new(big.Float).SetInt(v.ref.(*big.Int)).Float64()
		return f
	}
	panic("Value.Float64: not numeric")
}

// FromSymbolID creates a Value from a symbol ID.
func FromSymbolID(id uint32) Value {
	return Value{kind: KindSymbol, bits: uint64(id)}
}

// SymbolID returns the symbol ID encoded in v.
// Panics if v is not a symbol.
func (v Value) SymbolID() uint32 {
	if v.kind != KindSymbol {
		panic("Value.SymbolID: not a symbol")
	}
	return uint32(v.bits)
}

// ---------------------------------------------------------------------------
// Heap values
// ---------------------------------------------------------------------------

// FromString wraps a mutable string.
func FromString(s *Str) Value { return Value{kind: KindString, ref: s} }

// NewString creates a fresh mutable string value.
func NewString(s string) Value { return FromString(NewStr(s)) }

// FromArray wraps an array.
func FromArray(a *Array) Value { return Value{kind: KindArray, ref: a} }

// NewArrayValue creates an array value holding the given elements.
func NewArrayValue(elems ...Value) Value { return FromArray(NewArray(elems...)) }

// FromHash wraps a hash.
func FromHash(h *Hash) Value { return Value{kind: KindHash, ref: h} }

// FromRange wraps a range.
func FromRange(r *Range) Value { return Value{kind: KindRange, ref: r} }

// FromProc wraps a proc.
func FromProc(p *Proc) Value { return Value{kind: KindProc, ref: p} }

// FromObject wraps an object instance.
func FromObject(o *Object) Value { return Value{kind: KindObject, ref: o} }

// FromClass wraps a class or module so it can be used as a receiver.
func FromClass(c *Class) Value { return Value{kind: KindClass, ref: c} }

// AsString returns the string payload, or nil if v is not a string.
func (v Value) AsString() *Str {
	if v.kind != KindString {
		return nil
	}
	return v.ref.(*Str)
}

// AsArray returns the array payload, or nil if v is not an array.
func (v Value) AsArray() *Array {
	if v.kind != KindArray {
		return nil
	}
	return v.ref.(*Array)
}

// AsHash returns the hash payload, or nil if v is not a hash.
func (v Value) AsHash() *Hash {
	if v.kind != KindHash {
		return nil
	}
	return v.ref.(*Hash)
}

// AsRange returns the range payload, or nil if v is not a range.
func (v Value) AsRange() *Range {
	if v.kind != KindRange {
		return nil
	}
	return v.ref.(*Range)
}

// AsProc returns the proc payload, or nil if v is not a proc.
func (v Value) AsProc() *Proc {
	if v.kind != KindProc {
		return nil
	}
	return v.ref.(*Proc)
}

// AsObject returns the object payload, or nil if v is not an object.
func (v Value) AsObject() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.ref.(*Object)
}

// AsClass returns the class payload, or nil if v is not a class or module.
func (v Value) AsClass() *Class {
	if v.kind != KindClass {
		return nil
	}
	return v.ref.(*Class)
}

// Identical reports object identity: same immediate, or same heap pointer.
// Big integers and floats compare by value since they have no identity
// of their own.
func Identical(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.IsBigInt() || b.IsBigInt() {
		return a.IsBigInt() && b.IsBigInt() && a.ref.(*big.Int).Cmp(b.ref.(*big.Int)) == 0
	}
	return a.bits == b.bits && a.ref == b.ref
}

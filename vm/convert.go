package vm

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// FormatFloat renders a float the way Float#to_s does: always with a
// fractional part or an exponent.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		return mant + "e" + exp
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatImmediate renders nil, booleans and numbers without dispatch.
func formatImmediate(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.bits == 1 {
			return "true"
		}
		return "false"
	case KindInt:
		return IntString(v)
	case KindFloat:
		return FormatFloat(v.Float64())
	}
	return "?"
}

// inspectString quotes s with double quotes and backslash escapes.
func inspectString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1b':
			b.WriteString(`\e`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(`\x` + strconv.FormatInt(int64(r), 16))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// inspectSymbol renders :name, quoting names that are not plain identifiers
// or operators.
func inspectSymbol(name string) string {
	if isSymbolName(name) {
		return ":" + name
	}
	return ":" + inspectString(name)
}

func isSymbolName(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%", "**", "==", "!=", "<", ">", "<=", ">=", "<=>",
		"===", "=~", "!", "[]", "[]=", "<<", ">>", "&", "|", "^", "~", "+@", "-@":
		return true
	}
	if name == "" {
		return false
	}
	body := strings.TrimLeft(name, "@$")
	if body == "" {
		return false
	}
	if n := len(body) - 1; body[n] == '?' || body[n] == '!' || body[n] == '=' {
		body = body[:n]
	}
	for i, r := range body {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= 0x80 || i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return body != ""
}

// ---------------------------------------------------------------------------
// Argument coercion for primitives
// ---------------------------------------------------------------------------

// checkArgs validates a variable argument count.
func checkArgs(args []Value, min, max int) error {
	if len(args) < min || max >= 0 && len(args) > max {
		if min == max {
			return argCountError(len(args), min)
		}
		return Errorf(ArgumentError, "wrong number of arguments (%d for %d)", len(args), min)
	}
	return nil
}

// argInt converts an integer argument to int.
func (vm *VM) argInt(v Value) (int, error) {
	switch {
	case v.IsSmallInt():
		return int(v.SmallInt()), nil
	case v.IsFloat():
		return int(v.Float64()), nil
	case v.IsBigInt():
		return 0, Errorf(IndexError, "bignum too big to convert into `long'")
	}
	return 0, Errorf(TypeError, "no implicit conversion of %s into Integer", vm.ClassOf(v).FullName())
}

// argString converts a string argument to a Go string.
func (vm *VM) argString(v Value) (string, error) {
	if s := v.AsString(); s != nil {
		return s.String(), nil
	}
	return "", Errorf(TypeError, "no implicit conversion of %s into String", vm.ClassOf(v).FullName())
}

// argName converts a symbol or string argument naming a method, variable
// or constant.
func (vm *VM) argName(v Value) (string, error) {
	if v.IsSymbol() {
		return vm.SymbolName(v), nil
	}
	if s := v.AsString(); s != nil {
		return s.String(), nil
	}
	desc, _ := vm.Inspect(v)
	return "", Errorf(TypeError, "%s is not a symbol", desc)
}

// argClass converts a class or module argument.
func (vm *VM) argClass(v Value) (*Class, error) {
	if c := v.AsClass(); c != nil {
		return c, nil
	}
	return nil, Errorf(TypeError, "class or module required")
}

// Yield calls blk, failing with LocalJumpError when no block was given.
func (vm *VM) Yield(blk *Proc, args ...Value) (Value, error) {
	if blk == nil {
		return Nil, Errorf(LocalJumpError, "no block given (yield)")
	}
	return blk.Call(vm, args...)
}

// joinInspect inspects each value and joins the results with sep.
func (vm *VM) joinInspect(vals []Value, sep string) (string, error) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		s, err := vm.Inspect(v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

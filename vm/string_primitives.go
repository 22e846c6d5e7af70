package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

// rangeSpan converts a range of integer indices to start and length
// against a sequence of n elements.
func (vm *VM) rangeSpan(r *Range, n int) (int, int, bool, error) {
	start, err := vm.argInt(r.Begin)
	if err != nil {
		return 0, 0, false, err
	}
	end, err := vm.argInt(r.End)
	if err != nil {
		return 0, 0, false, err
	}
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 || start > n {
		return 0, 0, false, nil
	}
	if !r.ExcludeEnd {
		end++
	}
	length := end - start
	if length < 0 {
		length = 0
	}
	return start, length, true, nil
}

func (vm *VM) registerStringPrimitives() {
	sel := vm.Selectors
	s := vm.StringClass
	str := func(v Value) string { return v.AsString().String() }

	// String.new(text = "")
	vm.metaclassOf(s).AddPrimitiveMethod(sel, "new", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 1); err != nil {
			return Nil, err
		}
		if len(args) == 0 {
			return NewString(""), nil
		}
		text, err := vm.argString(args[0])
		return NewString(text), err
	})

	// + - concatenation into a new string
	s.AddMethod1(sel, "+", func(vm *VM, recv, arg Value) (Value, error) {
		t, err := vm.argString(arg)
		if err != nil {
			return Nil, err
		}
		return NewString(str(recv) + t), nil
	})

	// * - repetition
	s.AddMethod1(sel, "*", func(vm *VM, recv, arg Value) (Value, error) {
		n, err := vm.argInt(arg)
		if err != nil {
			return Nil, err
		}
		if n < 0 {
			return Nil, Errorf(ArgumentError, "negative argument")
		}
		return NewString(strings.Repeat(str(recv), n)), nil
	})

	// <<, concat - append in place; integers append a byte
	appendFn := func(vm *VM, recv, arg Value) (Value, error) {
		if arg.IsSmallInt() && arg.SmallInt() >= 0 && arg.SmallInt() < 256 {
			recv.AsString().Append(string([]byte{byte(arg.SmallInt())}))
			return recv, nil
		}
		t, err := vm.argString(arg)
		if err != nil {
			return Nil, err
		}
		recv.AsString().Append(t)
		return recv, nil
	}
	s.AddMethod1(sel, "<<", appendFn)
	s.AddMethod1(sel, "concat", appendFn)

	// replace - overwrite content in place
	s.AddMethod1(sel, "replace", func(vm *VM, recv, arg Value) (Value, error) {
		t, err := vm.argString(arg)
		if err != nil {
			return Nil, err
		}
		recv.AsString().Set(t)
		return recv, nil
	})

	// ==, eql? - content equality
	eq := func(_ *VM, recv, arg Value) (Value, error) {
		return FromBool(arg.IsString() && str(recv) == str(arg)), nil
	}
	s.AddMethod1(sel, "==", eq)
	s.AddMethod1(sel, "eql?", eq)

	// <=> - bytewise ordering, nil against non-strings
	s.AddMethod1(sel, "<=>", func(_ *VM, recv, arg Value) (Value, error) {
		if !arg.IsString() {
			return Nil, nil
		}
		return FromSmallInt(int64(strings.Compare(str(recv), str(arg)))), nil
	})

	s.AddMethod0(sel, "hash", func(_ *VM, recv Value) (Value, error) {
		var h int64 = 5381
		for _, b := range recv.AsString().Bytes() {
			h = h*33 + int64(b)
		}
		return FromSmallInt(h), nil
	})

	length := func(_ *VM, recv Value) (Value, error) {
		return FromSmallInt(int64(recv.AsString().Len())), nil
	}
	s.AddMethod0(sel, "length", length)
	s.AddMethod0(sel, "size", length)
	s.AddMethod0(sel, "bytesize", length)

	// [], slice - index, start+length, range or substring
	index := func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		return vm.stringIndex(recv.AsString(), args)
	}
	s.AddPrimitiveMethod(sel, "[]", index)
	s.AddPrimitiveMethod(sel, "slice", index)

	// []= - replace an index, span, range or substring in place
	s.AddPrimitiveMethod(sel, "[]=", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 2, 3); err != nil {
			return Nil, err
		}
		val := args[len(args)-1]
		repl, err := vm.argString(val)
		if err != nil {
			return Nil, err
		}
		if err := vm.stringStore(recv.AsString(), args[:len(args)-1], repl); err != nil {
			return Nil, err
		}
		return val, nil
	})

	s.AddMethod0(sel, "to_s", func(_ *VM, recv Value) (Value, error) { return recv, nil })
	s.AddMethod0(sel, "to_str", func(_ *VM, recv Value) (Value, error) { return recv, nil })
	s.AddMethod0(sel, "inspect", func(_ *VM, recv Value) (Value, error) {
		return NewString(inspectString(str(recv))), nil
	})

	toSym := func(vm *VM, recv Value) (Value, error) { return vm.Symbol(str(recv)), nil }
	s.AddMethod0(sel, "to_sym", toSym)
	s.AddMethod0(sel, "intern", toSym)

	// to_i - leading integer, 0 when none
	s.AddMethod0(sel, "to_i", func(_ *VM, recv Value) (Value, error) {
		t := strings.TrimSpace(str(recv))
		end := 0
		if end < len(t) && (t[end] == '-' || t[end] == '+') {
			end++
		}
		for end < len(t) && (t[end] >= '0' && t[end] <= '9' || t[end] == '_') {
			end++
		}
		if n, ok := ParseInt(strings.ReplaceAll(t[:end], "_", "")); ok {
			return n, nil
		}
		return FromSmallInt(0), nil
	})

	// to_f - leading float, 0.0 when none
	s.AddMethod0(sel, "to_f", func(_ *VM, recv Value) (Value, error) {
		t := strings.TrimSpace(str(recv))
		for end := len(t); end > 0; end-- {
			if f, err := strconv.ParseFloat(t[:end], 64); err == nil {
				return FromFloat64(f), nil
			}
		}
		return FromFloat64(0), nil
	})

	mapping := func(name string, fn func(string) string) {
		s.AddMethod0(sel, name, func(_ *VM, recv Value) (Value, error) {
			return NewString(fn(str(recv))), nil
		})
	}
	mapping("upcase", strings.ToUpper)
	mapping("downcase", strings.ToLower)
	mapping("strip", strings.TrimSpace)
	mapping("lstrip", func(t string) string { return strings.TrimLeft(t, " \t\r\n\f\v\x00") })
	mapping("rstrip", func(t string) string { return strings.TrimRight(t, " \t\r\n\f\v\x00") })
	mapping("capitalize", func(t string) string {
		if t == "" {
			return t
		}
		return strings.ToUpper(t[:1]) + strings.ToLower(t[1:])
	})
	mapping("swapcase", func(t string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 32
			case r >= 'A' && r <= 'Z':
				return r + 32
			}
			return r
		}, t)
	})
	mapping("reverse", func(t string) string {
		b := []byte(t)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return string(b)
	})
	mapping("chop", func(t string) string {
		if strings.HasSuffix(t, "\r\n") {
			return t[:len(t)-2]
		}
		if t == "" {
			return t
		}
		return t[:len(t)-1]
	})

	// upcase!, downcase! - in place
	s.AddMethod0(sel, "upcase!", func(_ *VM, recv Value) (Value, error) {
		recv.AsString().Set(strings.ToUpper(str(recv)))
		return recv, nil
	})
	s.AddMethod0(sel, "downcase!", func(_ *VM, recv Value) (Value, error) {
		recv.AsString().Set(strings.ToLower(str(recv)))
		return recv, nil
	})

	// chomp(sep = "\n")
	s.AddPrimitiveMethod(sel, "chomp", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 1); err != nil {
			return Nil, err
		}
		t := str(recv)
		if len(args) == 1 {
			sep, err := vm.argString(args[0])
			if err != nil {
				return Nil, err
			}
			return NewString(strings.TrimSuffix(t, sep)), nil
		}
		if strings.HasSuffix(t, "\r\n") {
			return NewString(t[:len(t)-2]), nil
		}
		return NewString(strings.TrimSuffix(strings.TrimSuffix(t, "\n"), "\r")), nil
	})

	predicate := func(name string, fn func(a, b string) bool) {
		s.AddMethod1(sel, name, func(vm *VM, recv, arg Value) (Value, error) {
			t, err := vm.argString(arg)
			if err != nil {
				return Nil, err
			}
			return FromBool(fn(str(recv), t)), nil
		})
	}
	predicate("include?", strings.Contains)
	predicate("start_with?", strings.HasPrefix)
	predicate("end_with?", strings.HasSuffix)

	// index(sub, from = 0)
	s.AddPrimitiveMethod(sel, "index", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 1, 2); err != nil {
			return Nil, err
		}
		sub, err := vm.argString(args[0])
		if err != nil {
			return Nil, err
		}
		from := 0
		if len(args) == 2 {
			if from, err = vm.argInt(args[1]); err != nil {
				return Nil, err
			}
			if from < 0 {
				from += recv.AsString().Len()
			}
		}
		i := recv.AsString().Index(sub, from)
		if i < 0 {
			return Nil, nil
		}
		return FromSmallInt(int64(i)), nil
	})

	// split(sep = nil, limit = 0) - whitespace splitting drops empty fields
	s.AddPrimitiveMethod(sel, "split", func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
		if err := checkArgs(args, 0, 2); err != nil {
			return Nil, err
		}
		limit := 0
		if len(args) == 2 {
			n, err := vm.argInt(args[1])
			if err != nil {
				return Nil, err
			}
			limit = n
		}
		var parts []string
		if len(args) == 0 || args[0].IsNil() || args[0].IsString() && str(args[0]) == " " {
			parts = strings.Fields(str(recv))
			if limit > 0 && len(parts) > limit {
				rest := strings.TrimLeft(str(recv), " \t\r\n\f\v")
				parts = strings.SplitN(rest, " ", limit)
			}
		} else {
			sep, err := vm.argString(args[0])
			if err != nil {
				return Nil, err
			}
			switch {
			case sep == "":
				parts = strings.Split(str(recv), "")
			case limit > 0:
				parts = strings.SplitN(str(recv), sep, limit)
			default:
				parts = strings.Split(str(recv), sep)
			}
			if limit == 0 {
				for len(parts) > 0 && parts[len(parts)-1] == "" {
					parts = parts[:len(parts)-1]
				}
			}
		}
		out := NewArray()
		for _, p := range parts {
			out.Push(NewString(p))
		}
		return FromArray(out), nil
	})

	// sub, gsub - literal pattern replacement; with a block the block's
	// result replaces each match
	subst := func(all bool) PrimitiveFunc {
		return func(vm *VM, recv Value, args []Value, blk *Proc) (Value, error) {
			if err := checkArgs(args, 1, 2); err != nil {
				return Nil, err
			}
			pat, err := vm.argString(args[0])
			if err != nil {
				return Nil, err
			}
			return vm.substitute(str(recv), pat, args[1:], blk, all)
		}
	}
	s.AddPrimitiveMethod(sel, "sub", subst(false))
	s.AddPrimitiveMethod(sel, "gsub", subst(true))

	// chars, bytes
	s.AddMethod0(sel, "chars", func(_ *VM, recv Value) (Value, error) {
		out := NewArray()
		for _, r := range str(recv) {
			out.Push(NewString(string(r)))
		}
		return FromArray(out), nil
	})
	s.AddMethod0(sel, "bytes", func(_ *VM, recv Value) (Value, error) {
		out := NewArray()
		for _, b := range recv.AsString().Bytes() {
			out.Push(FromSmallInt(int64(b)))
		}
		return FromArray(out), nil
	})

	// ord - first byte
	s.AddMethod0(sel, "ord", func(_ *VM, recv Value) (Value, error) {
		b := recv.AsString().Bytes()
		if len(b) == 0 {
			return Nil, Errorf(ArgumentError, "empty string")
		}
		return FromSmallInt(int64(b[0])), nil
	})

	// center, ljust, rjust(width, pad = " ")
	justify := func(name string, place func(t, pad string, n int) string) {
		s.AddPrimitiveMethod(sel, name, func(vm *VM, recv Value, args []Value, _ *Proc) (Value, error) {
			if err := checkArgs(args, 1, 2); err != nil {
				return Nil, err
			}
			width, err := vm.argInt(args[0])
			if err != nil {
				return Nil, err
			}
			pad := " "
			if len(args) == 2 {
				if pad, err = vm.argString(args[1]); err != nil {
					return Nil, err
				}
				if pad == "" {
					return Nil, Errorf(ArgumentError, "zero width padding")
				}
			}
			t := str(recv)
			if width <= len(t) {
				return NewString(t), nil
			}
			return NewString(place(t, pad, width-len(t))), nil
		})
	}
	fill := func(pad string, n int) string {
		return strings.Repeat(pad, n/len(pad)+1)[:n]
	}
	justify("ljust", func(t, pad string, n int) string { return t + fill(pad, n) })
	justify("rjust", func(t, pad string, n int) string { return fill(pad, n) + t })
	justify("center", func(t, pad string, n int) string { return fill(pad, n/2) + t + fill(pad, n-n/2) })
}

// stringIndex implements String#[].
func (vm *VM) stringIndex(s *Str, args []Value) (Value, error) {
	if len(args) == 2 {
		start, err := vm.argInt(args[0])
		if err != nil {
			return Nil, err
		}
		n, err := vm.argInt(args[1])
		if err != nil {
			return Nil, err
		}
		sub, ok := s.Slice(start, n)
		if !ok {
			return Nil, nil
		}
		return NewString(sub), nil
	}
	switch a := args[0]; {
	case a.IsRange():
		start, n, ok, err := vm.rangeSpan(a.AsRange(), s.Len())
		if err != nil || !ok {
			return Nil, err
		}
		sub, _ := s.Slice(start, n)
		return NewString(sub), nil
	case a.IsString():
		if s.Index(a.AsString().String(), 0) < 0 {
			return Nil, nil
		}
		return NewString(a.AsString().String()), nil
	}
	i, err := vm.argInt(args[0])
	if err != nil {
		return Nil, err
	}
	if i < 0 {
		i += s.Len()
	}
	if i < 0 || i >= s.Len() {
		return Nil, nil
	}
	sub, _ := s.Slice(i, 1)
	return NewString(sub), nil
}

// stringStore implements the index forms of String#[]=.
func (vm *VM) stringStore(s *Str, idx []Value, repl string) error {
	if len(idx) == 2 {
		start, err := vm.argInt(idx[0])
		if err != nil {
			return err
		}
		n, err := vm.argInt(idx[1])
		if err != nil {
			return err
		}
		return s.ReplaceSlice(start, n, repl)
	}
	switch a := idx[0]; {
	case a.IsRange():
		start, n, ok, err := vm.rangeSpan(a.AsRange(), s.Len())
		if err != nil {
			return err
		}
		if !ok {
			return Errorf(RangeError, "%s out of range", vm.describe(a))
		}
		return s.ReplaceSlice(start, n, repl)
	case a.IsString():
		pat := a.AsString().String()
		i := s.Index(pat, 0)
		if i < 0 {
			return Errorf(IndexError, "string not matched")
		}
		return s.ReplaceSlice(i, len(pat), repl)
	}
	i, err := vm.argInt(idx[0])
	if err != nil {
		return err
	}
	if i >= s.Len() || i < -s.Len() {
		return Errorf(IndexError, "index %d out of string", i)
	}
	return s.ReplaceSlice(i, 1, repl)
}

// substitute implements sub and gsub over a literal pattern.
func (vm *VM) substitute(t, pat string, repl []Value, blk *Proc, all bool) (Value, error) {
	var with string
	if len(repl) == 1 {
		r, err := vm.argString(repl[0])
		if err != nil {
			return Nil, err
		}
		with = r
	} else if blk == nil {
		return Nil, Errorf(ArgumentError, "wrong number of arguments (1 for 2)")
	}

	var b strings.Builder
	rest := t
	for {
		i := strings.Index(rest, pat)
		if i < 0 {
			break
		}
		b.WriteString(rest[:i])
		if blk != nil && len(repl) == 0 {
			v, err := blk.Call(vm, NewString(pat))
			if err != nil {
				return Nil, err
			}
			out, err := vm.ToS(v)
			if err != nil {
				return Nil, err
			}
			b.WriteString(out)
		} else {
			b.WriteString(with)
		}
		rest = rest[i+len(pat):]
		if !all || pat == "" {
			break
		}
	}
	b.WriteString(rest)
	return NewString(b.String()), nil
}

// ---------------------------------------------------------------------------
// Symbol Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerSymbolPrimitives() {
	sel := vm.Selectors
	s := vm.SymbolClass

	name := func(vm *VM, recv Value) (Value, error) { return NewString(vm.SymbolName(recv)), nil }
	s.AddMethod0(sel, "to_s", name)
	s.AddMethod0(sel, "id2name", name)
	s.AddMethod0(sel, "name", name)
	s.AddMethod0(sel, "to_sym", func(_ *VM, recv Value) (Value, error) { return recv, nil })
	s.AddMethod0(sel, "inspect", func(vm *VM, recv Value) (Value, error) {
		return NewString(inspectSymbol(vm.SymbolName(recv))), nil
	})

	length := func(vm *VM, recv Value) (Value, error) {
		return FromSmallInt(int64(len(vm.SymbolName(recv)))), nil
	}
	s.AddMethod0(sel, "length", length)
	s.AddMethod0(sel, "size", length)

	s.AddMethod1(sel, "<=>", func(vm *VM, recv, arg Value) (Value, error) {
		if !arg.IsSymbol() {
			return Nil, nil
		}
		return FromSmallInt(int64(strings.Compare(vm.SymbolName(recv), vm.SymbolName(arg)))), nil
	})

	// to_proc - a proc that sends the symbol to its first argument
	s.AddMethod0(sel, "to_proc", func(vm *VM, recv Value) (Value, error) {
		return FromProc(vm.SymbolProc(vm.SymbolName(recv))), nil
	})
}

// SymbolProc returns the proc &:name stands for.
func (vm *VM) SymbolProc(name string) *Proc {
	return &Proc{
		Params: []string{"receiver"},
		Arity:  -2,
		Self:   Nil,
		Body: func(vm *VM, inv Invocation) (Value, error) {
			if len(inv.Args) == 0 {
				return Nil, Errorf(ArgumentError, "no receiver given")
			}
			return vm.Dispatch(Call{Receiver: inv.Args[0], Name: name, Args: inv.Args[1:], Block: inv.Block})
		},
	}
}

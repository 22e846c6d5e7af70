package vm

// SymbolTable interns symbol names. Equal names share an ID, and the ID is
// the symbol's identity.
type SymbolTable struct {
	names interner[uint32]
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{names: newInterner[uint32]()}
}

func (st *SymbolTable) Intern(name string) uint32 { return st.names.intern(name) }

// Name returns the text of symbol id, or "" if id was never handed out.
func (st *SymbolTable) Name(id uint32) string { return st.names.name(id) }

func (st *SymbolTable) Len() int { return st.names.len() }

// SymbolValue interns name and returns it as a Value.
func (st *SymbolTable) SymbolValue(name string) Value {
	return FromSymbolID(st.Intern(name))
}

// Symbol is shorthand for vm.Symbols.SymbolValue(name).
func (vm *VM) Symbol(name string) Value {
	return vm.Symbols.SymbolValue(name)
}

// SymbolName returns the name of a symbol value, or "" for anything else.
func (vm *VM) SymbolName(v Value) string {
	if !v.IsSymbol() {
		return ""
	}
	return vm.Symbols.Name(v.SymbolID())
}

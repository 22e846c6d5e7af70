package vm

import "sync"

// interner maps names to dense IDs. IDs are handed out in order and never
// reused, so a name keeps its ID for the life of the VM.
type interner[ID ~int | ~uint32] struct {
	mu     sync.RWMutex
	byName map[string]ID
	byID   []string
}

func newInterner[ID ~int | ~uint32]() interner[ID] {
	return interner[ID]{byName: make(map[string]ID), byID: make([]string, 0, 256)}
}

func (in *interner[ID]) intern(name string) ID {
	in.mu.RLock()
	id, ok := in.byName[name]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byName[name]; ok {
		return id
	}
	id = ID(len(in.byID))
	in.byName[name] = id
	in.byID = append(in.byID, name)
	return id
}

func (in *interner[ID]) lookup(name string) (ID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.byName[name]
	return id, ok
}

func (in *interner[ID]) name(id ID) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(in.byID) {
		return ""
	}
	return in.byID[id]
}

func (in *interner[ID]) len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byID)
}

// SelectorTable interns method names. Method tables are keyed by selector
// ID, so walking the ancestor order compares integers.
type SelectorTable struct {
	names interner[int]
}

func NewSelectorTable() *SelectorTable {
	return &SelectorTable{names: newInterner[int]()}
}

// Intern returns the ID for name, allocating one on first use.
func (st *SelectorTable) Intern(name string) int { return st.names.intern(name) }

// Lookup returns the ID for name, or -1 if it was never interned. A name
// nobody interned cannot be defined on any class.
func (st *SelectorTable) Lookup(name string) int {
	if id, ok := st.names.lookup(name); ok {
		return id
	}
	return -1
}

func (st *SelectorTable) Name(id int) string { return st.names.name(id) }

func (st *SelectorTable) Len() int { return st.names.len() }

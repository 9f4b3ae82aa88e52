package asm

// SymbolKind tags what a Symbol refers to. Label is the only kind this
// grammar produces, but the field is kept so the table can grow without a
// breaking change.
type SymbolKind int

// Label is the only SymbolKind a label declaration can produce.
const Label SymbolKind = 0

// Symbol binds a name to a resolved offset.
type Symbol struct {
	Name   string
	Offset uint32
	Kind   SymbolKind
}

// SymbolTable maps label names to Symbols, preserving insertion order for
// diagnostics while keeping lookups O(1) via a side index.
type SymbolTable struct {
	order []Symbol
	index map[string]int // name -> position in order
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Add appends a symbol. The caller is responsible for checking for
// duplicates first (see Has); Add itself does not reject them.
func (t *SymbolTable) Add(sym Symbol) {
	t.index[sym.Name] = len(t.order)
	t.order = append(t.order, sym)
}

// Has reports whether name is already present.
func (t *SymbolTable) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the offset bound to name, if present.
func (t *SymbolTable) Value(name string) (uint32, bool) {
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.order[i].Offset, true
}

// SetOffset updates the offset of an existing symbol in place. It is a
// no-op if name is not present.
func (t *SymbolTable) SetOffset(name string, offset uint32) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.order[i].Offset = offset
}

// Symbols returns the symbols in insertion order.
func (t *SymbolTable) Symbols() []Symbol {
	return t.order
}

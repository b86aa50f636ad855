// Package codegen implements the runtime's bytecode emitter façade: one
// Emit* method per grammar production, driven externally by a parser,
// against a nested symbol table that resolves identifiers to either a heap
// address (object fields) or a stack offset (locals/params).
package codegen

// StorageKind discriminates where a symbol's value actually lives.
type StorageKind uint8

const (
	storageHeap StorageKind = iota
	storageLocal
)

// Descriptor is a resolved symbol: either a heap address on the current
// object, or a stack offset relative to the current call frame's base.
type Descriptor struct {
	Kind StorageKind
	Addr int32 // heap address, when Kind == storageHeap
	Off  int32 // frame-relative stack offset, when Kind == storageLocal
}

// SymbolTable maps identifier names to storage descriptors. Tables nest: a
// child inherits lookups from its parent, but install only ever happens at
// the table performing the install. The root table (no parent) represents
// object scope and holds heap symbols for declared fields; a function's
// table is a child of the object's table and holds stack symbols for its
// parameters and locals.
type SymbolTable struct {
	parent  *SymbolTable
	symbols map[string]Descriptor
	order   []string
}

// NewSymbolTable creates a table. parent may be nil for object scope.
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{parent: parent, symbols: make(map[string]Descriptor)}
}

// HasParent reports whether this table was opened inside another (i.e.
// whether we are inside a function body rather than at bare object scope).
func (t *SymbolTable) HasParent() bool { return t.parent != nil }

// HasLocalSymbol reports whether name was installed directly on this
// table, ignoring ancestors. Used to detect duplicate parameter names.
func (t *SymbolTable) HasLocalSymbol(name string) bool {
	_, ok := t.symbols[name]
	return ok
}

// HasSymbol reports whether name resolves anywhere in the table chain.
func (t *SymbolTable) HasSymbol(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Lookup resolves name, walking up through parent tables.
func (t *SymbolTable) Lookup(name string) (Descriptor, bool) {
	for tbl := t; tbl != nil; tbl = tbl.parent {
		if d, ok := tbl.symbols[name]; ok {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Count reports how many symbols have been installed directly on this
// table — the next free heap address at object scope, or, inside a
// function, the number of parameters plus locals installed so far.
func (t *SymbolTable) Count() int { return len(t.order) }

// PutHeapSymbol installs name as a heap field at addr.
func (t *SymbolTable) PutHeapSymbol(name string, addr int32) {
	t.symbols[name] = Descriptor{Kind: storageHeap, Addr: addr}
	t.order = append(t.order, name)
}

// PutStackSymbol installs name as a frame-relative local/parameter at off.
func (t *SymbolTable) PutStackSymbol(name string, off int32) {
	t.symbols[name] = Descriptor{Kind: storageLocal, Off: off}
	t.order = append(t.order, name)
}

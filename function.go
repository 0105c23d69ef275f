package funcscope

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Function is a set of code blocks with the entry points, exit points and
// symbols that describe it. A Function only borrows blocks and symbols from
// the module it was built from.
type Function struct {
	id          uuid.UUID
	entries     BlockSet
	blocks      BlockSet
	nameSymbols []*Symbol
	canonical   *Symbol

	edges      EdgeIndex
	classifier *Classifier

	exitsOnce sync.Once
	exits     BlockSet
}

// ID returns the function identifier. It never equals a block identifier.
func (f *Function) ID() uuid.UUID {
	return f.id
}

// EntryBlocks returns the blocks the function may be entered through.
func (f *Function) EntryBlocks() BlockSet {
	return f.entries.Clone()
}

// AllBlocks returns every block of the function.
func (f *Function) AllBlocks() BlockSet {
	return f.blocks.Clone()
}

// ExitBlocks returns the blocks control leaves the function from. The set
// is computed on first call and reused afterwards; concurrent callers wait
// for the single computation.
func (f *Function) ExitBlocks() BlockSet {
	f.exitsOnce.Do(func() {
		f.exits = f.classifier.Classify(f.blocks, f.edges)
	})
	return f.exits.Clone()
}

// Explain reports which classification rule decided whether b is an exit
// block of f.
func (f *Function) Explain(b *Block) (rule string, exit bool) {
	return f.classifier.Explain(b, f.blocks, f.edges)
}

// NameSymbols returns the symbols referring to an entry block, ordered by
// entry block and then by symbol table order. The canonical name symbol,
// when set, is always included.
func (f *Function) NameSymbols() []*Symbol {
	return append([]*Symbol(nil), f.nameSymbols...)
}

// CanonicalNameSymbol returns the designated name symbol, or nil.
func (f *Function) CanonicalNameSymbol() *Symbol {
	return f.canonical
}

// String renders the function with its blocks sorted by position.
func (f *Function) String() string {
	return fmt.Sprintf("[ID=%s, Name=%s, Entry=%s, Exit=%s, All=%s]",
		f.id,
		f.Name(),
		f.entries,
		f.ExitBlocks(),
		f.blocks)
}

package funcscope

import "github.com/google/uuid"

// Symbol is an entry of the module symbol table.
type Symbol struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	// Referent is the code block the symbol names, nil when the symbol
	// refers to data or to nothing.
	Referent *Block `json:"-"`
}

// FunctionBlocks associates a function ID with a set of blocks. It is the
// element type of both the function entries and the function blocks tables.
type FunctionBlocks struct {
	Function uuid.UUID
	Blocks   []*Block
}

// Module is the read-only view of a disassembled module that functions are
// built from.
type Module struct {
	Name    string
	Symbols []*Symbol

	// FunctionEntries maps each function to its entry blocks. Its order
	// drives the order of BuildFunctions' result.
	FunctionEntries []FunctionBlocks
	// FunctionBlocks maps each function to all of its member blocks.
	FunctionBlocks []FunctionBlocks
	// FunctionNames optionally designates the canonical name symbol of a
	// function.
	FunctionNames map[uuid.UUID]*Symbol

	CFG EdgeIndex
}

// Blocks returns every block referenced by the function tables, ordered by
// position.
func (m *Module) Blocks() []*Block {
	set := make(BlockSet)
	for _, tbl := range [][]FunctionBlocks{m.FunctionEntries, m.FunctionBlocks} {
		for _, fb := range tbl {
			for _, b := range fb.Blocks {
				set.Add(b)
			}
		}
	}
	return set.Sorted()
}

// Package snapshot serializes the module view consumed by funcscope, so that
// a disassembler can hand over blocks, edges, symbols and function tables
// as a JSON or msgpack document.
package snapshot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/maxgio92/funcscope"
)

// SchemaVersion is the version written by this package. Documents with any
// other version are rejected.
const SchemaVersion uint16 = 1

// BlockRecord describes a code block.
type BlockRecord struct {
	ID              uuid.UUID `json:"id"`
	Interval        uuid.UUID `json:"interval"`
	IntervalAddress uint64    `json:"interval_address"`
	Offset          uint64    `json:"offset"`
	Size            uint64    `json:"size"`
}

// EdgeRecord describes a control-flow edge. An empty Type marks an
// unlabeled edge.
type EdgeRecord struct {
	Source      uuid.UUID          `json:"source"`
	Target      uuid.UUID          `json:"target"`
	Type        funcscope.EdgeType `json:"type,omitempty"`
	Conditional bool               `json:"conditional,omitempty"`
	Direct      bool               `json:"direct,omitempty"`
}

// SymbolRecord describes a symbol. A uuid.Nil Referent means the symbol does not
// refer to a code block.
type SymbolRecord struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Referent uuid.UUID `json:"referent"`
}

// FunctionRecord is one row of a function-to-blocks table.
type FunctionRecord struct {
	Function uuid.UUID   `json:"function"`
	Blocks   []uuid.UUID `json:"blocks"`
}

// FunctionName designates the canonical name symbol of a function.
type FunctionName struct {
	Function uuid.UUID `json:"function"`
	Symbol   uuid.UUID `json:"symbol"`
}

// Snapshot is the serialized form of a funcscope.Module.
type Snapshot struct {
	Schema          uint16           `json:"schema"`
	Name            string           `json:"name"`
	Blocks          []BlockRecord    `json:"blocks"`
	Edges           []EdgeRecord     `json:"edges"`
	Symbols         []SymbolRecord   `json:"symbols"`
	FunctionEntries []FunctionRecord `json:"function_entries"`
	FunctionBlocks  []FunctionRecord `json:"function_blocks"`
	FunctionNames   []FunctionName   `json:"function_names,omitempty"`
}

// Module resolves the snapshot's identifiers and returns the module view.
// References to undeclared blocks or symbols are errors.
func (s *Snapshot) Module() (*funcscope.Module, error) {
	if s.Schema != SchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema %d (want %d)", s.Schema, SchemaVersion)
	}

	blocks := make(map[uuid.UUID]*funcscope.Block, len(s.Blocks))
	for _, r := range s.Blocks {
		if _, dup := blocks[r.ID]; dup {
			return nil, fmt.Errorf("duplicate block %s", r.ID)
		}
		blocks[r.ID] = &funcscope.Block{
			ID:              r.ID,
			Interval:        r.Interval,
			IntervalAddress: r.IntervalAddress,
			Offset:          r.Offset,
			Size:            r.Size,
		}
	}
	lookup := func(id uuid.UUID, what string) (*funcscope.Block, error) {
		b, ok := blocks[id]
		if !ok {
			return nil, fmt.Errorf("%s refers to unknown block %s", what, id)
		}
		return b, nil
	}

	cfg := funcscope.NewCFG()
	for i, r := range s.Edges {
		src, err := lookup(r.Source, fmt.Sprintf("edge %d source", i))
		if err != nil {
			return nil, err
		}
		dst, err := lookup(r.Target, fmt.Sprintf("edge %d target", i))
		if err != nil {
			return nil, err
		}
		var label *funcscope.EdgeLabel
		if r.Type != "" {
			if !r.Type.Valid() {
				return nil, fmt.Errorf("edge %d has unknown type %q", i, r.Type)
			}
			label = &funcscope.EdgeLabel{Type: r.Type, Conditional: r.Conditional, Direct: r.Direct}
		}
		cfg.AddEdge(src, dst, label)
	}

	m := &funcscope.Module{
		Name:    s.Name,
		Symbols: make([]*funcscope.Symbol, 0, len(s.Symbols)),
		CFG:     cfg,
	}

	symbols := make(map[uuid.UUID]*funcscope.Symbol, len(s.Symbols))
	for _, r := range s.Symbols {
		sym := &funcscope.Symbol{ID: r.ID, Name: r.Name}
		if r.Referent != uuid.Nil {
			// Symbols may name data; only code block referents are kept.
			sym.Referent = blocks[r.Referent]
		}
		symbols[r.ID] = sym
		m.Symbols = append(m.Symbols, sym)
	}

	var err error
	if m.FunctionEntries, err = resolveTable(s.FunctionEntries, "function entries", lookup); err != nil {
		return nil, err
	}
	if m.FunctionBlocks, err = resolveTable(s.FunctionBlocks, "function blocks", lookup); err != nil {
		return nil, err
	}

	if len(s.FunctionNames) > 0 {
		m.FunctionNames = make(map[uuid.UUID]*funcscope.Symbol, len(s.FunctionNames))
		for _, r := range s.FunctionNames {
			sym, ok := symbols[r.Symbol]
			if !ok {
				return nil, fmt.Errorf("function %s is named by unknown symbol %s", r.Function, r.Symbol)
			}
			m.FunctionNames[r.Function] = sym
		}
	}

	return m, nil
}

func resolveTable(
	records []FunctionRecord,
	table string,
	lookup func(uuid.UUID, string) (*funcscope.Block, error),
) ([]funcscope.FunctionBlocks, error) {
	out := make([]funcscope.FunctionBlocks, 0, len(records))
	for _, r := range records {
		fb := funcscope.FunctionBlocks{
			Function: r.Function,
			Blocks:   make([]*funcscope.Block, 0, len(r.Blocks)),
		}
		for _, id := range r.Blocks {
			b, err := lookup(id, fmt.Sprintf("%s of %s", table, r.Function))
			if err != nil {
				return nil, err
			}
			fb.Blocks = append(fb.Blocks, b)
		}
		out = append(out, fb)
	}
	return out, nil
}

// FromModule returns the snapshot of m. Blocks are recorded in position
// order; every block reachable from the function tables, the edges or the
// symbols is included.
func FromModule(m *funcscope.Module) *Snapshot {
	s := &Snapshot{
		Schema: SchemaVersion,
		Name:   m.Name,
	}

	blocks := funcscope.NewBlockSet(m.Blocks()...)
	edges := moduleEdges(m, blocks.Sorted())
	for _, e := range edges {
		blocks.Add(e.Source)
		blocks.Add(e.Target)
	}
	for _, sym := range m.Symbols {
		blocks.Add(sym.Referent)
	}

	for _, b := range blocks.Sorted() {
		s.Blocks = append(s.Blocks, BlockRecord{
			ID:              b.ID,
			Interval:        b.Interval,
			IntervalAddress: b.IntervalAddress,
			Offset:          b.Offset,
			Size:            b.Size,
		})
	}

	for _, e := range edges {
		r := EdgeRecord{Source: e.Source.ID, Target: e.Target.ID}
		if e.Label != nil {
			r.Type = e.Label.Type
			r.Conditional = e.Label.Conditional
			r.Direct = e.Label.Direct
		}
		s.Edges = append(s.Edges, r)
	}

	recorded := make(map[uuid.UUID]bool, len(m.Symbols))
	addSymbol := func(sym *funcscope.Symbol) {
		if recorded[sym.ID] {
			return
		}
		recorded[sym.ID] = true
		r := SymbolRecord{ID: sym.ID, Name: sym.Name}
		if sym.Referent != nil {
			r.Referent = sym.Referent.ID
		}
		s.Symbols = append(s.Symbols, r)
	}
	for _, sym := range m.Symbols {
		addSymbol(sym)
	}

	s.FunctionEntries = tableRecords(m.FunctionEntries)
	s.FunctionBlocks = tableRecords(m.FunctionBlocks)

	named := make(map[uuid.UUID]bool, len(m.FunctionNames))
	for _, fe := range m.FunctionEntries {
		sym, ok := m.FunctionNames[fe.Function]
		if !ok || sym == nil || named[fe.Function] {
			continue
		}
		named[fe.Function] = true
		// Canonical names need not be part of the symbol table.
		addSymbol(sym)
		s.FunctionNames = append(s.FunctionNames, FunctionName{Function: fe.Function, Symbol: sym.ID})
	}

	return s
}

// moduleEdges lists the edges of m. A *funcscope.CFG is enumerated
// directly; other indexes are queried for the given blocks.
func moduleEdges(m *funcscope.Module, blocks []*funcscope.Block) []funcscope.Edge {
	switch g := m.CFG.(type) {
	case nil:
		return nil
	case *funcscope.CFG:
		return g.Edges()
	default:
		var edges []funcscope.Edge
		for _, b := range blocks {
			edges = append(edges, g.Outgoing(b)...)
		}
		return edges
	}
}

func tableRecords(table []funcscope.FunctionBlocks) []FunctionRecord {
	out := make([]FunctionRecord, 0, len(table))
	for _, fb := range table {
		r := FunctionRecord{Function: fb.Function, Blocks: make([]uuid.UUID, 0, len(fb.Blocks))}
		for _, b := range fb.Blocks {
			r.Blocks = append(r.Blocks, b.ID)
		}
		out = append(out, r)
	}
	return out
}

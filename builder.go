package funcscope

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuildOption configures BuildFunctions.
type BuildOption func(*buildOptions)

type buildOptions struct {
	terms         TerminatorOracle
	edgeHeuristic bool
}

// WithTerminators makes exit classification ask o how blocks end, instead
// of inferring it from edge labels.
func WithTerminators(o TerminatorOracle) BuildOption {
	return func(opts *buildOptions) {
		opts.terms = o
	}
}

// WithEdgeHeuristic selects the edge-only exit heuristic, which treats any
// non-call edge leaving the function as an exit. It overrides
// WithTerminators.
func WithEdgeHeuristic() BuildOption {
	return func(opts *buildOptions) {
		opts.edgeHeuristic = true
	}
}

// BuildFunctions returns one Function per function declared in the module
// entries table, in table order. Exit blocks are not computed until first
// requested.
func BuildFunctions(m *Module, opts ...BuildOption) ([]*Function, error) {
	if m == nil {
		return nil, malformed(uuid.Nil, MalformedNilModule, "module is nil")
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	classifier := NewClassifier(o.terms)
	if o.edgeHeuristic {
		classifier = NewEdgeClassifier()
	}

	symbolsByBlock := indexSymbols(m.Symbols)

	blocksByFn := make(map[uuid.UUID][]*Block, len(m.FunctionBlocks))
	for _, fb := range m.FunctionBlocks {
		blocksByFn[fb.Function] = append(blocksByFn[fb.Function], fb.Blocks...)
	}

	// A function listed more than once gets the union of its entries.
	var order []uuid.UUID
	entriesByFn := make(map[uuid.UUID][]*Block, len(m.FunctionEntries))
	for _, fe := range m.FunctionEntries {
		if _, seen := entriesByFn[fe.Function]; !seen {
			order = append(order, fe.Function)
		}
		entriesByFn[fe.Function] = append(entriesByFn[fe.Function], fe.Blocks...)
	}

	blockIDs := knownBlocks(m)

	fns := make([]*Function, 0, len(order))
	for _, id := range order {
		fn, err := buildFunction(id, entriesByFn[id], blocksByFn, blockIDs, symbolsByBlock, m.FunctionNames[id])
		if err != nil {
			Logger().Warn("malformed function tables",
				zap.String("module", m.Name),
				zap.Error(err))
			return nil, err
		}
		fn.edges = m.CFG
		fn.classifier = classifier
		fns = append(fns, fn)
	}

	Logger().Debug("built functions",
		zap.String("module", m.Name),
		zap.Int("functions", len(fns)),
		zap.Int("symbols", len(m.Symbols)))
	return fns, nil
}

func buildFunction(
	id uuid.UUID,
	entryBlocks []*Block,
	blocksByFn map[uuid.UUID][]*Block,
	blockIDs BlockSet,
	symbolsByBlock map[uuid.UUID][]*Symbol,
	canonical *Symbol,
) (*Function, error) {
	members, ok := blocksByFn[id]
	if !ok {
		return nil, malformed(id, MalformedMissingBlocks, "function has entry blocks but no block set")
	}
	if _, clash := blockIDs[id]; clash {
		return nil, malformed(id, MalformedIDCollision, "function ID is also a code block ID")
	}

	all := NewBlockSet(members...)
	entries := NewBlockSet(entryBlocks...)
	for _, b := range entries.Sorted() {
		if !all.Contains(b) {
			return nil, malformed(id, MalformedEntryNotMember,
				fmt.Sprintf("entry block %s is not a member of the function", b))
		}
	}

	var names []*Symbol
	seenBlocks := make(BlockSet, len(entryBlocks))
	for _, b := range entryBlocks {
		if b == nil || seenBlocks.Contains(b) {
			continue
		}
		seenBlocks.Add(b)
		names = append(names, symbolsByBlock[b.ID]...)
	}
	if canonical != nil && !slices.Contains(names, canonical) {
		names = append(names, canonical)
	}

	return &Function{
		id:          id,
		entries:     entries,
		blocks:      all,
		nameSymbols: names,
		canonical:   canonical,
	}, nil
}

// knownBlocks collects every block the module mentions: table members,
// symbol referents and, for a *CFG, edge endpoints.
func knownBlocks(m *Module) BlockSet {
	blocks := NewBlockSet(m.Blocks()...)
	for _, s := range m.Symbols {
		if s != nil {
			blocks.Add(s.Referent)
		}
	}
	if cfg, ok := m.CFG.(*CFG); ok {
		for _, e := range cfg.Edges() {
			blocks.Add(e.Source)
			blocks.Add(e.Target)
		}
	}
	return blocks
}

// indexSymbols groups symbols by the block they refer to, keeping symbol
// table order within each block.
func indexSymbols(symbols []*Symbol) map[uuid.UUID][]*Symbol {
	idx := make(map[uuid.UUID][]*Symbol)
	for _, s := range symbols {
		if s == nil || s.Referent == nil {
			continue
		}
		idx[s.Referent.ID] = append(idx[s.Referent.ID], s)
	}
	return idx
}

package funcscope_test

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/maxgio92/funcscope"
)

// graph builds one-byte blocks at offsets of a single byte interval, the
// way a disassembler would lay them out.
type graph struct {
	interval uuid.UUID
	base     uint64
	blocks   map[int]*funcscope.Block
	cfg      *funcscope.CFG
}

func newGraph(base uint64) *graph {
	return &graph{
		interval: uuid.New(),
		base:     base,
		blocks:   make(map[int]*funcscope.Block),
		cfg:      funcscope.NewCFG(),
	}
}

// block returns the block at offset off, creating it on first use.
func (g *graph) block(off int) *funcscope.Block {
	if b, ok := g.blocks[off]; ok {
		return b
	}
	b := &funcscope.Block{
		ID:              uuid.New(),
		Interval:        g.interval,
		IntervalAddress: g.base,
		Offset:          uint64(off),
		Size:            1,
	}
	g.blocks[off] = b
	return b
}

func (g *graph) edge(src, dst int, label *funcscope.EdgeLabel) {
	g.cfg.AddEdge(g.block(src), g.block(dst), label)
}

func (g *graph) set(offs ...int) funcscope.BlockSet {
	s := funcscope.NewBlockSet()
	for _, off := range offs {
		s.Add(g.block(off))
	}
	return s
}

func (g *graph) list(offs ...int) []*funcscope.Block {
	out := make([]*funcscope.Block, 0, len(offs))
	for _, off := range offs {
		out = append(out, g.block(off))
	}
	return out
}

// direct returns a direct, unconditional label of type t.
func direct(t funcscope.EdgeType) *funcscope.EdgeLabel {
	return &funcscope.EdgeLabel{Type: t, Direct: true}
}

// conditional returns a direct, conditional label of type t.
func conditional(t funcscope.EdgeType) *funcscope.EdgeLabel {
	return &funcscope.EdgeLabel{Type: t, Conditional: true, Direct: true}
}

// indirect returns an indirect, unconditional label of type t.
func indirect(t funcscope.EdgeType) *funcscope.EdgeLabel {
	return &funcscope.EdgeLabel{Type: t}
}

// fixedTerminators classifies listed blocks as given and every other block
// as TerminatorOther. It counts its calls.
type fixedTerminators struct {
	terms map[uuid.UUID]funcscope.Terminator
	calls atomic.Int64
}

func newFixedTerminators() *fixedTerminators {
	return &fixedTerminators{terms: make(map[uuid.UUID]funcscope.Terminator)}
}

func (o *fixedTerminators) set(b *funcscope.Block, t funcscope.Terminator) *fixedTerminators {
	o.terms[b.ID] = t
	return o
}

func (o *fixedTerminators) ClassifyTerminator(b *funcscope.Block) funcscope.Terminator {
	o.calls.Add(1)
	return o.terms[b.ID]
}

func addrs(s funcscope.BlockSet) []uint64 {
	var out []uint64
	for _, b := range s.Sorted() {
		out = append(out, b.Address())
	}
	return out
}

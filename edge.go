package funcscope

import (
	"fmt"

	"github.com/google/uuid"
)

// EdgeType is the kind of control transfer an edge represents.
type EdgeType string

// Recognized control-flow edge types.
const (
	EdgeBranch      EdgeType = "branch"
	EdgeCall        EdgeType = "call"
	EdgeFallthrough EdgeType = "fallthrough"
	EdgeReturn      EdgeType = "return"
	EdgeSyscall     EdgeType = "syscall"
	EdgeSysret      EdgeType = "sysret"
)

// Valid reports whether t is one of the recognized edge types.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeBranch, EdgeCall, EdgeFallthrough, EdgeReturn, EdgeSyscall, EdgeSysret:
		return true
	}
	return false
}

// EdgeLabel qualifies a control-flow edge.
type EdgeLabel struct {
	Type        EdgeType `json:"type"`
	Conditional bool     `json:"conditional"`
	// Direct is false for indirect branches and calls.
	Direct bool `json:"direct"`
}

// Edge is a directed control-flow edge between two blocks. A nil Label
// marks an edge whose kind is unknown.
type Edge struct {
	Source *Block
	Target *Block
	Label  *EdgeLabel
}

func (e Edge) String() string {
	if e.Label == nil {
		return fmt.Sprintf("%s -> %s (unlabeled)", e.Source, e.Target)
	}
	kind := "direct"
	if !e.Label.Direct {
		kind = "indirect"
	}
	if e.Label.Conditional {
		kind += " conditional"
	}
	return fmt.Sprintf("%s -> %s (%s %s)", e.Source, e.Target, kind, e.Label.Type)
}

// isType reports whether the edge is labeled with one of the given types.
func (e Edge) isType(types ...EdgeType) bool {
	if e.Label == nil {
		return false
	}
	for _, t := range types {
		if e.Label.Type == t {
			return true
		}
	}
	return false
}

// EdgeIndex gives access to the outgoing edges of a block.
type EdgeIndex interface {
	Outgoing(b *Block) []Edge
}

// CFG is an in-memory EdgeIndex.
type CFG struct {
	out   map[uuid.UUID][]Edge
	count int
}

// NewCFG returns an empty control-flow graph.
func NewCFG() *CFG {
	return &CFG{out: make(map[uuid.UUID][]Edge)}
}

// AddEdge records an edge from source to target. A nil label adds an
// unlabeled edge.
func (g *CFG) AddEdge(source, target *Block, label *EdgeLabel) {
	g.out[source.ID] = append(g.out[source.ID], Edge{
		Source: source,
		Target: target,
		Label:  label,
	})
	g.count++
}

// Outgoing returns the edges leaving b, in insertion order.
func (g *CFG) Outgoing(b *Block) []Edge {
	if b == nil {
		return nil
	}
	return g.out[b.ID]
}

// Len returns the number of edges in the graph.
func (g *CFG) Len() int {
	return g.count
}

// Edges returns every edge of the graph grouped by source block, sources
// ordered by position.
func (g *CFG) Edges() []Edge {
	sources := make([]*Block, 0, len(g.out))
	for _, edges := range g.out {
		if len(edges) > 0 {
			sources = append(sources, edges[0].Source)
		}
	}
	SortBlocks(sources)

	all := make([]Edge, 0, g.count)
	for _, src := range sources {
		all = append(all, g.out[src.ID]...)
	}
	return all
}

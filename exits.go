package funcscope

import (
	"go.uber.org/zap"
)

// Decision is the verdict of an ExitRule on a single block.
type Decision uint8

// Rule verdicts. Undecided passes the block to the next rule.
const (
	Undecided Decision = iota
	Exit
	NotExit
)

func (d Decision) String() string {
	switch d {
	case Exit:
		return "exit"
	case NotExit:
		return "not-exit"
	default:
		return "undecided"
	}
}

// BlockFacts is what an ExitRule knows about the block under evaluation.
type BlockFacts struct {
	Block      *Block
	Edges      []Edge
	Members    BlockSet
	Terminator Terminator
}

// leaves reports whether e targets a block outside the function.
func (f BlockFacts) leaves(e Edge) bool {
	return !f.Members.Contains(e.Target)
}

// ExitRule is one step of the exit classification procedure.
type ExitRule struct {
	Name   string
	Decide func(f BlockFacts) Decision
}

// Rule names.
const (
	RuleReturn           = "return"
	RuleResolvedIndirect = "resolved-indirect"
	RuleTailCall         = "tail-call"
	RuleReturnEdge       = "return-edge"
	RuleEscapingEdge     = "escaping-edge"
)

// ReturnRule marks blocks ending in a return instruction as exits.
var ReturnRule = ExitRule{
	Name: RuleReturn,
	Decide: func(f BlockFacts) Decision {
		if f.Terminator == TerminatorReturn {
			return Exit
		}
		return Undecided
	},
}

// ResolvedIndirectRule keeps indirect jumps whose known targets all stay
// inside the function (or are direct) out of the exit set. Indirect jumps
// with escaping or missing targets stay undecided: they are neither proven
// tail calls nor proven internal.
var ResolvedIndirectRule = ExitRule{
	Name: RuleResolvedIndirect,
	Decide: func(f BlockFacts) Decision {
		if f.Terminator != TerminatorIndirectJump || len(f.Edges) == 0 {
			return Undecided
		}
		for _, e := range f.Edges {
			direct := e.Label != nil && e.Label.Direct
			if !direct && f.leaves(e) {
				return Undecided
			}
		}
		return NotExit
	},
}

// TailCallRule marks a block whose only edge is an unconditional direct
// branch out of the function.
var TailCallRule = ExitRule{
	Name: RuleTailCall,
	Decide: func(f BlockFacts) Decision {
		if len(f.Edges) != 1 {
			return Undecided
		}
		e := f.Edges[0]
		if e.isType(EdgeBranch) && !e.Label.Conditional && e.Label.Direct && f.leaves(e) {
			return Exit
		}
		return Undecided
	},
}

// ReturnEdgeRule marks blocks with a return or sysret edge.
var ReturnEdgeRule = ExitRule{
	Name: RuleReturnEdge,
	Decide: func(f BlockFacts) Decision {
		for _, e := range f.Edges {
			if e.isType(EdgeReturn, EdgeSysret) {
				return Exit
			}
		}
		return Undecided
	},
}

// EscapingEdgeRule marks blocks with any labeled edge, other than a call or
// syscall, that leaves the function.
var EscapingEdgeRule = ExitRule{
	Name: RuleEscapingEdge,
	Decide: func(f BlockFacts) Decision {
		for _, e := range f.Edges {
			if e.Label == nil || e.isType(EdgeCall, EdgeSyscall) {
				continue
			}
			if f.leaves(e) {
				return Exit
			}
		}
		return Undecided
	},
}

// Classifier computes exit blocks by applying an ordered rule list to every
// member block. The first rule returning Exit or NotExit decides; a block no
// rule decides is not an exit.
type Classifier struct {
	rules []ExitRule
	terms TerminatorOracle
	// needsTerminator is false for rule lists that never look at
	// BlockFacts.Terminator.
	needsTerminator bool
}

// NewClassifier returns the instruction-aware classifier: return, then
// resolved indirect jump, then tail call. A nil oracle falls back to
// EdgeTerminators over the edges passed to Classify.
func NewClassifier(terms TerminatorOracle) *Classifier {
	return &Classifier{
		rules:           []ExitRule{ReturnRule, ResolvedIndirectRule, TailCallRule},
		terms:           terms,
		needsTerminator: true,
	}
}

// NewEdgeClassifier returns the edge-only heuristic: a block exits when it
// has a return edge or a non-call edge leaving the function.
func NewEdgeClassifier() *Classifier {
	return &Classifier{
		rules: []ExitRule{ReturnEdgeRule, EscapingEdgeRule},
	}
}

// Rules returns the classifier's rules in evaluation order.
func (c *Classifier) Rules() []ExitRule {
	return append([]ExitRule(nil), c.rules...)
}

// Classify returns the exit blocks among blocks.
func (c *Classifier) Classify(blocks BlockSet, edges EdgeIndex) BlockSet {
	exits := make(BlockSet)
	terms := c.oracle(edges)
	for _, b := range blocks {
		rule, d := c.decide(b, blocks, edges, terms)
		if d == Exit {
			exits.Add(b)
			Logger().Debug("exit block",
				zap.Stringer("block", b),
				zap.String("rule", rule))
		}
	}
	return exits
}

// Explain reports which rule decided b and whether b is an exit. The rule
// name is empty when no rule decided.
func (c *Classifier) Explain(b *Block, blocks BlockSet, edges EdgeIndex) (string, bool) {
	rule, d := c.decide(b, blocks, edges, c.oracle(edges))
	return rule, d == Exit
}

func (c *Classifier) oracle(edges EdgeIndex) TerminatorOracle {
	if !c.needsTerminator {
		return nil
	}
	if c.terms != nil {
		return c.terms
	}
	return EdgeTerminators{Edges: edges}
}

func (c *Classifier) decide(b *Block, blocks BlockSet, edges EdgeIndex, terms TerminatorOracle) (string, Decision) {
	facts := BlockFacts{
		Block:   b,
		Members: blocks,
	}
	if edges != nil {
		facts.Edges = edges.Outgoing(b)
	}
	if terms != nil {
		facts.Terminator = terms.ClassifyTerminator(b)
	}

	for _, r := range c.rules {
		if d := r.Decide(facts); d != Undecided {
			return r.Name, d
		}
	}
	return "", Undecided
}

// ComputeExitBlocks classifies blocks with the instruction-aware rules,
// asking terms how each block ends.
func ComputeExitBlocks(blocks BlockSet, edges EdgeIndex, terms TerminatorOracle) BlockSet {
	return NewClassifier(terms).Classify(blocks, edges)
}

// ComputeExitBlocksFromEdges classifies blocks with the edge-only heuristic.
func ComputeExitBlocksFromEdges(blocks BlockSet, edges EdgeIndex) BlockSet {
	return NewEdgeClassifier().Classify(blocks, edges)
}

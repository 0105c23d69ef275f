package funcscope

// Terminator classifies the last instruction of a block.
type Terminator uint8

// Terminator classes relevant to exit classification.
const (
	TerminatorOther Terminator = iota
	TerminatorReturn
	// TerminatorIndirectJump is a jump through a register, or through
	// memory addressed by a register (jump tables).
	TerminatorIndirectJump
)

func (t Terminator) String() string {
	switch t {
	case TerminatorReturn:
		return "return"
	case TerminatorIndirectJump:
		return "indirect-jump"
	default:
		return "other"
	}
}

// TerminatorOracle tells how a block ends.
type TerminatorOracle interface {
	ClassifyTerminator(b *Block) Terminator
}

// EdgeTerminators infers terminators from edge labels only, for callers
// without decoded instructions.
type EdgeTerminators struct {
	Edges EdgeIndex
}

// ClassifyTerminator reports a return when the block has a return or sysret
// edge, and an indirect jump when it has an unconditional indirect branch.
func (o EdgeTerminators) ClassifyTerminator(b *Block) Terminator {
	if o.Edges == nil {
		return TerminatorOther
	}
	term := TerminatorOther
	for _, e := range o.Edges.Outgoing(b) {
		if e.isType(EdgeReturn, EdgeSysret) {
			return TerminatorReturn
		}
		if e.isType(EdgeBranch) && !e.Label.Conditional && !e.Label.Direct {
			term = TerminatorIndirectJump
		}
	}
	return term
}

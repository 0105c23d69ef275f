package funcscope

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Block is a code block of the recovered control-flow graph. Blocks are
// owned by the caller's IR and only referenced here.
type Block struct {
	ID       uuid.UUID `json:"id"`
	Interval uuid.UUID `json:"interval"`

	// IntervalAddress is the load address of the byte interval holding the
	// block, Offset its position inside that interval.
	IntervalAddress uint64 `json:"interval_address"`
	Offset          uint64 `json:"offset"`
	Size            uint64 `json:"size"`
}

// Address returns the virtual address of the first byte of the block.
func (b *Block) Address() uint64 {
	return b.IntervalAddress + b.Offset
}

func (b *Block) String() string {
	return fmt.Sprintf("0x%x", b.Address())
}

// compareBlocks orders blocks by position: address, then interval, then ID.
func compareBlocks(a, b *Block) int {
	if c := cmp.Compare(a.Address(), b.Address()); c != 0 {
		return c
	}
	if c := bytes.Compare(a.Interval[:], b.Interval[:]); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// SortBlocks sorts blocks in place by position.
func SortBlocks(blocks []*Block) {
	slices.SortFunc(blocks, compareBlocks)
}

// BlockSet is a set of blocks keyed by block ID.
type BlockSet map[uuid.UUID]*Block

// NewBlockSet returns a set holding the given blocks. Nil blocks are ignored.
func NewBlockSet(blocks ...*Block) BlockSet {
	s := make(BlockSet, len(blocks))
	for _, b := range blocks {
		s.Add(b)
	}
	return s
}

// Add inserts b into the set.
func (s BlockSet) Add(b *Block) {
	if b == nil {
		return
	}
	s[b.ID] = b
}

// Contains reports whether b is a member of the set.
func (s BlockSet) Contains(b *Block) bool {
	if b == nil {
		return false
	}
	_, ok := s[b.ID]
	return ok
}

// Len returns the number of blocks in the set.
func (s BlockSet) Len() int {
	return len(s)
}

// Sorted returns the members ordered by position.
func (s BlockSet) Sorted() []*Block {
	out := make([]*Block, 0, len(s))
	for _, b := range s {
		out = append(out, b)
	}
	SortBlocks(out)
	return out
}

// Clone returns a shallow copy of the set.
func (s BlockSet) Clone() BlockSet {
	c := make(BlockSet, len(s))
	for id, b := range s {
		c[id] = b
	}
	return c
}

// SubsetOf reports whether every member of s is also a member of other.
func (s BlockSet) SubsetOf(other BlockSet) bool {
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same block IDs.
func (s BlockSet) Equal(other BlockSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

func (s BlockSet) String() string {
	return formatBlocks(s.Sorted())
}

func formatBlocks(blocks []*Block) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range blocks {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(b.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

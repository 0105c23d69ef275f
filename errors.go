package funcscope

import (
	"strings"

	"github.com/google/uuid"
)

// MalformedKind categorizes inconsistent function tables.
type MalformedKind string

// Malformed input kinds.
const (
	MalformedNilModule      MalformedKind = "nil-module"
	MalformedMissingBlocks  MalformedKind = "missing-blocks"
	MalformedEntryNotMember MalformedKind = "entry-not-member"
	MalformedIDCollision    MalformedKind = "id-collision"
)

// MalformedInputError reports function tables that violate the function
// invariants.
type MalformedInputError struct {
	FunctionID uuid.UUID
	Kind       MalformedKind
	Detail     string
}

// ErrMalformedInput matches every MalformedInputError with errors.Is.
var ErrMalformedInput = &MalformedInputError{}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed input")
	if e.Kind != "" {
		b.WriteString(" [")
		b.WriteString(string(e.Kind))
		b.WriteByte(']')
	}
	if e.FunctionID != uuid.Nil {
		b.WriteString(" function ")
		b.WriteString(e.FunctionID.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is reports whether target is a MalformedInputError of the same kind. A
// target without a kind matches any kind.
func (e *MalformedInputError) Is(target error) bool {
	t, ok := target.(*MalformedInputError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func malformed(fn uuid.UUID, kind MalformedKind, detail string) *MalformedInputError {
	return &MalformedInputError{
		FunctionID: fn,
		Kind:       kind,
		Detail:     detail,
	}
}

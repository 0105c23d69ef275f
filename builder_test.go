package funcscope_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/maxgio92/funcscope"
)

func symbol(name string, referent *funcscope.Block) *funcscope.Symbol {
	return &funcscope.Symbol{ID: uuid.New(), Name: name, Referent: referent}
}

func TestBuildFunctions(t *testing.T) {
	g := newGraph(0x1000)

	// f1: 0 -> 1 (fallthrough), 0 -> 2 (conditional branch),
	// 1 -> 2 (fallthrough), 2 -> 3 (return).
	g.edge(0, 1, direct(funcscope.EdgeFallthrough))
	g.edge(0, 2, conditional(funcscope.EdgeBranch))
	g.edge(1, 2, direct(funcscope.EdgeFallthrough))
	g.edge(2, 3, direct(funcscope.EdgeReturn))

	// f2: 10 -> 11 (unconditional branch), 11 is not part of f2.
	g.edge(10, 11, direct(funcscope.EdgeBranch))

	f1, f2 := uuid.New(), uuid.New()
	m := &funcscope.Module{
		Name: "test",
		Symbols: []*funcscope.Symbol{
			symbol("f1", g.block(0)),
			symbol("f2", g.block(10)),
			symbol("data", nil),
		},
		FunctionEntries: []funcscope.FunctionBlocks{
			{Function: f1, Blocks: g.list(0)},
			{Function: f2, Blocks: g.list(10)},
		},
		FunctionBlocks: []funcscope.FunctionBlocks{
			{Function: f2, Blocks: g.list(10)},
			{Function: f1, Blocks: g.list(0, 1, 2, 3)},
		},
		CFG: g.cfg,
	}

	fns, err := funcscope.BuildFunctions(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}

	tests := []struct {
		fn        *funcscope.Function
		wantID    uuid.UUID
		wantName  string
		wantEntry []uint64
		wantExit  []uint64
		wantAll   []uint64
	}{
		{
			fn:        fns[0],
			wantID:    f1,
			wantName:  "f1",
			wantEntry: []uint64{0x1000},
			wantExit:  []uint64{0x1002},
			wantAll:   []uint64{0x1000, 0x1001, 0x1002, 0x1003},
		},
		{
			fn:        fns[1],
			wantID:    f2,
			wantName:  "f2",
			wantEntry: []uint64{0x100a},
			wantExit:  []uint64{0x100a},
			wantAll:   []uint64{0x100a},
		},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.fn.ID() != tt.wantID {
				t.Errorf("expected ID %s, got %s", tt.wantID, tt.fn.ID())
			}
			if got := tt.fn.Name(); got != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, got)
			}
			if got := addrs(tt.fn.EntryBlocks()); !slices.Equal(got, tt.wantEntry) {
				t.Errorf("expected entries %#x, got %#x", tt.wantEntry, got)
			}
			if got := addrs(tt.fn.ExitBlocks()); !slices.Equal(got, tt.wantExit) {
				t.Errorf("expected exits %#x, got %#x", tt.wantExit, got)
			}
			if got := addrs(tt.fn.AllBlocks()); !slices.Equal(got, tt.wantAll) {
				t.Errorf("expected blocks %#x, got %#x", tt.wantAll, got)
			}
			if !tt.fn.EntryBlocks().SubsetOf(tt.fn.AllBlocks()) {
				t.Error("expected entry blocks to be a subset of all blocks")
			}
		})
	}
}

func TestBuildFunctions_Empty(t *testing.T) {
	fns, err := funcscope.BuildFunctions(&funcscope.Module{CFG: funcscope.NewCFG()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fns) != 0 {
		t.Fatalf("expected no functions, got %d", len(fns))
	}
}

func TestBuildFunctions_Malformed(t *testing.T) {
	g := newGraph(0x1000)
	fn := uuid.New()

	// Blocks known only as a call target and as a symbol referent.
	g.edge(0, 0x40, direct(funcscope.EdgeCall))
	callee, data := g.block(0x40), g.block(0x50)

	tests := []struct {
		name     string
		module   *funcscope.Module
		wantKind funcscope.MalformedKind
	}{
		{
			name:     "nil-module",
			module:   nil,
			wantKind: funcscope.MalformedNilModule,
		},
		{
			name: "missing-blocks",
			module: &funcscope.Module{
				FunctionEntries: []funcscope.FunctionBlocks{{Function: fn, Blocks: g.list(0)}},
				CFG:             g.cfg,
			},
			wantKind: funcscope.MalformedMissingBlocks,
		},
		{
			name: "entry-not-member",
			module: &funcscope.Module{
				FunctionEntries: []funcscope.FunctionBlocks{{Function: fn, Blocks: g.list(0, 5)}},
				FunctionBlocks:  []funcscope.FunctionBlocks{{Function: fn, Blocks: g.list(0, 1)}},
				CFG:             g.cfg,
			},
			wantKind: funcscope.MalformedEntryNotMember,
		},
		{
			name: "id-collision",
			module: &funcscope.Module{
				FunctionEntries: []funcscope.FunctionBlocks{{Function: g.block(0).ID, Blocks: g.list(0)}},
				FunctionBlocks:  []funcscope.FunctionBlocks{{Function: g.block(0).ID, Blocks: g.list(0)}},
				CFG:             g.cfg,
			},
			wantKind: funcscope.MalformedIDCollision,
		},
		{
			name: "id-collision-edge-target",
			module: &funcscope.Module{
				FunctionEntries: []funcscope.FunctionBlocks{{Function: callee.ID, Blocks: g.list(0)}},
				FunctionBlocks:  []funcscope.FunctionBlocks{{Function: callee.ID, Blocks: g.list(0)}},
				CFG:             g.cfg,
			},
			wantKind: funcscope.MalformedIDCollision,
		},
		{
			name: "id-collision-symbol-referent",
			module: &funcscope.Module{
				Symbols:         []*funcscope.Symbol{symbol("table", data)},
				FunctionEntries: []funcscope.FunctionBlocks{{Function: data.ID, Blocks: g.list(0)}},
				FunctionBlocks:  []funcscope.FunctionBlocks{{Function: data.ID, Blocks: g.list(0)}},
				CFG:             g.cfg,
			},
			wantKind: funcscope.MalformedIDCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fns, err := funcscope.BuildFunctions(tt.module)
			if err == nil {
				t.Fatalf("expected error, got %d function(s)", len(fns))
			}
			if !errors.Is(err, funcscope.ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
			if !errors.Is(err, &funcscope.MalformedInputError{Kind: tt.wantKind}) {
				t.Errorf("expected kind %s, got %v", tt.wantKind, err)
			}

			var merr *funcscope.MalformedInputError
			if !errors.As(err, &merr) {
				t.Fatalf("expected *MalformedInputError, got %T", err)
			}
			if tt.module != nil && merr.FunctionID == uuid.Nil {
				t.Error("expected the offending function ID in the error")
			}
		})
	}
}

func TestBuildFunctions_DuplicateEntries(t *testing.T) {
	g := newGraph(0)
	fn := uuid.New()
	m := &funcscope.Module{
		FunctionEntries: []funcscope.FunctionBlocks{
			{Function: fn, Blocks: g.list(0)},
			{Function: fn, Blocks: g.list(4)},
		},
		FunctionBlocks: []funcscope.FunctionBlocks{
			{Function: fn, Blocks: g.list(0, 1, 2, 3, 4)},
		},
		CFG: g.cfg,
	}

	fns, err := funcscope.BuildFunctions(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fns) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fns))
	}
	if got, want := addrs(fns[0].EntryBlocks()), []uint64{0, 4}; !slices.Equal(got, want) {
		t.Errorf("expected entries %#x, got %#x", want, got)
	}
}

func TestBuildFunctions_Options(t *testing.T) {
	g := newGraph(0x1000)
	// A conditional branch out of the function: only the edge-only
	// heuristic reports it as an exit.
	g.edge(0, 1, direct(funcscope.EdgeFallthrough))
	g.edge(0, 0x40, conditional(funcscope.EdgeBranch))
	g.edge(1, 0x50, indirect(funcscope.EdgeBranch))

	fn := uuid.New()
	m := &funcscope.Module{
		FunctionEntries: []funcscope.FunctionBlocks{{Function: fn, Blocks: g.list(0)}},
		FunctionBlocks:  []funcscope.FunctionBlocks{{Function: fn, Blocks: g.list(0, 1)}},
		CFG:             g.cfg,
	}

	tests := []struct {
		name string
		opts []funcscope.BuildOption
		want []uint64
	}{
		{
			name: "default",
			want: nil,
		},
		{
			name: "edge-heuristic",
			opts: []funcscope.BuildOption{funcscope.WithEdgeHeuristic()},
			want: []uint64{0x1000, 0x1001},
		},
		{
			name: "terminators",
			opts: []funcscope.BuildOption{
				funcscope.WithTerminators(newFixedTerminators().set(g.block(1), funcscope.TerminatorReturn)),
			},
			want: []uint64{0x1001},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fns, err := funcscope.BuildFunctions(m, tt.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := addrs(fns[0].ExitBlocks()); !slices.Equal(got, tt.want) {
				t.Errorf("expected exits %#x, got %#x", tt.want, got)
			}
		})
	}
}

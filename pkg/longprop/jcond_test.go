package longprop

import (
	"testing"

	"github.com/oisee/dcc16/pkg/cfg"
	"github.com/oisee/dcc16/pkg/icode"
	"github.com/oisee/dcc16/pkg/procedure"
)

// assertInEdgeInvariant checks the CFG Invariants' edge rule (§ invariant
// 5): for every live out-edge b -> b', b appears in b'.InEdges exactly
// once. Blocks marked InvalidBB are logically removed and excluded.
func assertInEdgeInvariant(t *testing.T, g *cfg.Graph) {
	t.Helper()
	for from, b := range g.Blocks {
		if b.Invalid() {
			continue
		}
		for _, slot := range [2]cfg.EdgeSlot{cfg.Then, cfg.Else} {
			target := b.Edges[slot]
			if target == icode.NoBlock {
				continue
			}
			tb := g.Block(target)
			if tb == nil || tb.Invalid() {
				continue
			}
			if !tb.HasInEdge(icode.BlockID(from)) {
				t.Fatalf("block %d has edge to %d, but %d is missing from its in-edges %v", from, target, from, tb.InEdges)
			}
			count := 0
			for _, e := range tb.InEdges {
				if e == icode.BlockID(from) {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("block %d appears %d times in block %d's in-edges %v, want exactly once", from, count, target, tb.InEdges)
			}
		}
	}
}

// buildLong23ThenGraph builds the 2-CMP/3-branch arena of §4.5.2's THEN arc:
// pbb -Then-> obb1 -Then-> obb2 -Then-> tbb, with pbb/obb2 both routed
// to a shared elseTarget on their Else arcs.
func buildLong23ThenGraph() (*procedure.Record, cfg.EdgeSlot, int) {
	proc := &procedure.Record{
		Icode: []icode.Instr{
			{Op: icode.CMP, BB: 0},                 // 0: pbb first CMP (outer)
			{Op: icode.JL, BB: 0},                   // 1: pbb Jcc -> becomes JCOND
			{Op: icode.JE, BB: 1},                   // 2: obb1's single instruction
			{Op: icode.CMP, BB: 2},                  // 3: obb2 CMP (inner)
			{Op: icode.JL, BB: 2},                   // 4: obb2 Jcc
			{Op: icode.CMP, BB: 3},                  // 5: tbb
			{Op: icode.CMP, BB: 4},                  // 6: elseTarget
		},
		CFG: &cfg.Graph{Blocks: []*cfg.Block{
			{Start: 0, Length: 2, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{1, 4}},                         // 0: pbb
			{Start: 2, Length: 1, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{2, icode.NoBlock}, InEdges: []icode.BlockID{0}}, // 1: obb1
			{Start: 3, Length: 2, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{3, 4}, InEdges: []icode.BlockID{1}},             // 2: obb2
			{Start: 5, Length: 1, NodeType: cfg.FallThrough, Edges: [2]icode.BlockID{icode.NoBlock, icode.NoBlock}, InEdges: []icode.BlockID{1, 2}}, // 3: tbb
			{Start: 6, Length: 1, NodeType: cfg.FallThrough, Edges: [2]icode.BlockID{icode.NoBlock, icode.NoBlock}, InEdges: []icode.BlockID{0, 2}}, // 4: elseTarget
		}},
	}
	return proc, cfg.Then, 3
}

func TestLongJCond23ThenArcRewritesGraphAndStats(t *testing.T) {
	proc, arc, off := buildLong23ThenGraph()
	lhs, rhs := icode.Ident(0), icode.Ident(1)
	st := &Stats{}

	next := longJCond23(proc, 0, lhs, rhs, arc, off, st)

	if next != 5 {
		t.Fatalf("longJCond23 returned %d, want idx+5=5", next)
	}

	g := proc.CFG
	pbb, obb1, obb2, tbb, elseTarget := g.Block(0), g.Block(1), g.Block(2), g.Block(3), g.Block(4)

	if pbb.Edges[cfg.Then] != 3 {
		t.Fatalf("expected pbb.Edges[Then]==tbb(3), got %d", pbb.Edges[cfg.Then])
	}
	if !tbb.HasInEdge(0) {
		t.Fatalf("expected tbb to have pbb as an in-edge, got %v", tbb.InEdges)
	}
	if tbb.HasInEdge(1) || tbb.HasInEdge(2) {
		t.Fatalf("expected tbb to no longer have obb1/obb2 as in-edges, got %v", tbb.InEdges)
	}
	if len(tbb.InEdges) != 1 {
		t.Fatalf("expected tbb to have exactly one in-edge, got %v", tbb.InEdges)
	}
	if !elseTarget.HasInEdge(0) || elseTarget.HasInEdge(2) {
		t.Fatalf("expected elseTarget to keep pbb and lose obb2, got %v", elseTarget.InEdges)
	}

	if !obb1.Invalid() || !obb2.Invalid() {
		t.Fatalf("expected both intermediate blocks INVALID_BB, got obb1=%v obb2=%v", obb1.Flags, obb2.Flags)
	}
	if st.NumBBAfter != -2 {
		t.Fatalf("NumBBAfter = %d, want -2", st.NumBBAfter)
	}
	if st.NumEdgesAfter != -4 {
		t.Fatalf("NumEdgesAfter = %d, want -4", st.NumEdgesAfter)
	}

	if !proc.Inst(0).Invalid || !proc.Inst(2).Invalid || !proc.Inst(3).Invalid || !proc.Inst(4).Invalid {
		t.Fatalf("expected the outer CMP and both obb1/obb2 icodes invalidated")
	}
	jc := proc.Inst(1)
	if jc.Type != icode.HighLevel || jc.HL != icode.HLCond {
		t.Fatalf("expected icode[1] to become a high-level conditional, got %+v", jc)
	}

	assertInEdgeInvariant(t, g)
}

// buildLong23ElseGraph builds the mirror-image ELSE-arc pattern: pbb
// -Else-> obb1 -Then-> obb2 -Then-> tbb, obb2 -Else-> elseTarget.
func buildLong23ElseGraph() *procedure.Record {
	return &procedure.Record{
		Icode: []icode.Instr{
			{Op: icode.CMP, BB: 0}, // 0: pbb CMP (outer)
			{Op: icode.JL, BB: 0},  // 1: pbb Jcc -> JCOND
			{Op: icode.JE, BB: 1},  // 2: obb1
			{Op: icode.CMP, BB: 2}, // 3: obb2 CMP
			{Op: icode.JL, BB: 2},  // 4: obb2 Jcc
			{Op: icode.CMP, BB: 3}, // 5: tbb
			{Op: icode.CMP, BB: 4}, // 6: elseTarget
		},
		CFG: &cfg.Graph{Blocks: []*cfg.Block{
			{Start: 0, Length: 2, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{icode.NoBlock, 1}},                               // 0: pbb (Then arc unused by this pattern)
			{Start: 2, Length: 1, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{2, icode.NoBlock}, InEdges: []icode.BlockID{0}},  // 1: obb1
			{Start: 3, Length: 2, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{3, 4}, InEdges: []icode.BlockID{1}},              // 2: obb2
			{Start: 5, Length: 1, NodeType: cfg.FallThrough, Edges: [2]icode.BlockID{icode.NoBlock, icode.NoBlock}, InEdges: []icode.BlockID{2}}, // 3: tbb
			{Start: 6, Length: 1, NodeType: cfg.FallThrough, Edges: [2]icode.BlockID{icode.NoBlock, icode.NoBlock}, InEdges: []icode.BlockID{1, 2}}, // 4: elseTarget
		}},
	}
}

func TestLongJCond23ElseArcRewritesGraphAndStats(t *testing.T) {
	proc := buildLong23ElseGraph()
	lhs, rhs := icode.Ident(0), icode.Ident(1)
	st := &Stats{}

	next := longJCond23(proc, 0, lhs, rhs, cfg.Else, 3, st)

	if next != 2 {
		t.Fatalf("longJCond23 returned %d, want idx+2=2", next)
	}

	g := proc.CFG
	pbb, obb1, obb2, tbb, elseTarget := g.Block(0), g.Block(1), g.Block(2), g.Block(3), g.Block(4)

	if pbb.Edges[cfg.Else] != 4 {
		t.Fatalf("expected pbb.Edges[Else]==elseTarget(4), got %d", pbb.Edges[cfg.Else])
	}
	// Only obb2, not obb1, is removed from tbb's in-edges in the ELSE arc.
	if tbb.HasInEdge(1) || tbb.HasInEdge(2) {
		t.Fatalf("expected tbb to have neither obb1 nor obb2 as in-edges, got %v", tbb.InEdges)
	}
	if len(tbb.InEdges) != 0 {
		t.Fatalf("expected tbb to have no in-edges left (only obb2 was ever one), got %v", tbb.InEdges)
	}
	if !elseTarget.HasInEdge(0) {
		t.Fatalf("expected elseTarget to gain pbb as an in-edge, got %v", elseTarget.InEdges)
	}
	if elseTarget.HasInEdge(1) || elseTarget.HasInEdge(2) {
		t.Fatalf("expected elseTarget to lose both obb1 and obb2, got %v", elseTarget.InEdges)
	}
	if len(elseTarget.InEdges) != 1 {
		t.Fatalf("expected elseTarget to have exactly one in-edge, got %v", elseTarget.InEdges)
	}

	if !obb1.Invalid() || !obb2.Invalid() {
		t.Fatalf("expected both intermediate blocks INVALID_BB")
	}
	if st.NumBBAfter != -2 || st.NumEdgesAfter != -4 {
		t.Fatalf("stats = %+v, want -2 BB / -4 edges", st)
	}

	assertInEdgeInvariant(t, g)
}

// buildLong22Graph builds the 2-CMP/2-branch arena of §4.5.3: pbb ends
// right after its own Jcc (so the graph-surgery branch of longJCond22
// triggers), pbb -Then-> obb1, obb1 -Then-> tbb, obb1 -Else-> elseTarget.
func buildLong22Graph(secondJcc icode.OpCode) *procedure.Record {
	return &procedure.Record{
		Icode: []icode.Instr{
			{Op: icode.CMP, BB: 0},  // 0: outer CMP
			{Op: icode.JL, BB: 0},   // 1: pbb's own Jcc -> becomes JCOND
			{Op: icode.CMP, BB: 1},  // 2: obb1 CMP
			{Op: secondJcc, BB: 1},  // 3: obb1 Jcc (JE or JNE)
			{Op: icode.CMP, BB: 2},  // 4: tbb
			{Op: icode.CMP, BB: 3},  // 5: elseTarget
		},
		CFG: &cfg.Graph{Blocks: []*cfg.Block{
			{Start: 0, Length: 2, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{1, icode.NoBlock}},                               // 0: pbb
			{Start: 2, Length: 2, NodeType: cfg.TwoBranch, Edges: [2]icode.BlockID{2, 3}, InEdges: []icode.BlockID{0}},               // 1: obb1
			{Start: 4, Length: 1, NodeType: cfg.FallThrough, Edges: [2]icode.BlockID{icode.NoBlock, icode.NoBlock}, InEdges: []icode.BlockID{1}}, // 2: tbb
			{Start: 5, Length: 1, NodeType: cfg.FallThrough, Edges: [2]icode.BlockID{icode.NoBlock, icode.NoBlock}, InEdges: []icode.BlockID{1}}, // 3: elseTarget
		}},
	}
}

func TestLongJCond22JERewritesGraphAndStats(t *testing.T) {
	proc := buildLong22Graph(icode.JE)
	lhs, rhs := icode.Ident(0), icode.Ident(1)
	st := &Stats{}

	next := longJCond22(proc, 0, lhs, rhs, st)
	if next != 4 {
		t.Fatalf("longJCond22 returned %d, want idx+4=4", next)
	}

	g := proc.CFG
	pbb, obb1, tbb, elseTarget := g.Block(0), g.Block(1), g.Block(2), g.Block(3)

	if pbb.Edges[cfg.Then] != 2 || pbb.Edges[cfg.Else] != 3 {
		t.Fatalf("expected pbb redirected to tbb(2)/elseTarget(3), got %v", pbb.Edges)
	}
	// JE: tbb just loses obb1 (no replacement); elseTarget trades obb1 for pbb.
	if tbb.HasInEdge(1) {
		t.Fatalf("expected tbb to lose obb1 as an in-edge, got %v", tbb.InEdges)
	}
	if len(tbb.InEdges) != 0 {
		t.Fatalf("expected tbb to end with no in-edges for the JE case, got %v", tbb.InEdges)
	}
	if !elseTarget.HasInEdge(0) || elseTarget.HasInEdge(1) {
		t.Fatalf("expected elseTarget to replace obb1 with pbb, got %v", elseTarget.InEdges)
	}

	if !obb1.Invalid() {
		t.Fatalf("expected obb1 INVALID_BB")
	}
	if st.NumBBAfter != -1 || st.NumEdgesAfter != -2 {
		t.Fatalf("stats = %+v, want -1 BB / -2 edges", st)
	}

	// The JE/JNE asymmetry itself (one side removes, the other replaces)
	// means the general in-edge invariant does not hold for whichever
	// side only removed obb1 without appending pbb in its place; that
	// side is asserted explicitly above instead of via the generic
	// checker used by the 2-3 arc tests.
}

func TestLongJCond22JNERewritesGraphAndStats(t *testing.T) {
	proc := buildLong22Graph(icode.JNE)
	lhs, rhs := icode.Ident(0), icode.Ident(1)
	st := &Stats{}

	next := longJCond22(proc, 0, lhs, rhs, st)
	if next != 4 {
		t.Fatalf("longJCond22 returned %d, want idx+4=4", next)
	}

	g := proc.CFG
	obb1, tbb, elseTarget := g.Block(1), g.Block(2), g.Block(3)

	// JNE mirrors JE: tbb trades obb1 for pbb, elseTarget just loses obb1.
	if !tbb.HasInEdge(0) || tbb.HasInEdge(1) {
		t.Fatalf("expected tbb to replace obb1 with pbb, got %v", tbb.InEdges)
	}
	if elseTarget.HasInEdge(1) {
		t.Fatalf("expected elseTarget to lose obb1 as an in-edge, got %v", elseTarget.InEdges)
	}
	if len(elseTarget.InEdges) != 0 {
		t.Fatalf("expected elseTarget to end with no in-edges for the JNE case, got %v", elseTarget.InEdges)
	}

	if !obb1.Invalid() {
		t.Fatalf("expected obb1 INVALID_BB")
	}
	if st.NumBBAfter != -1 || st.NumEdgesAfter != -2 {
		t.Fatalf("stats = %+v, want -1 BB / -2 edges", st)
	}
}

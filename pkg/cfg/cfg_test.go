package cfg

import (
	"testing"

	"github.com/oisee/dcc16/pkg/icode"
)

func TestRemoveInEdgePacksDown(t *testing.T) {
	g := &Graph{}
	a := g.Add(&Block{})
	b := g.Add(&Block{})
	c := g.Add(&Block{})
	target := g.Add(&Block{InEdges: []icode.BlockID{a, b, c}})
	tb := g.Block(target)

	if !g.RemoveInEdge(tb, b) {
		t.Fatalf("expected removal to succeed")
	}
	if len(tb.InEdges) != 2 {
		t.Fatalf("expected 2 remaining in-edges, got %d", len(tb.InEdges))
	}
	for _, e := range tb.InEdges {
		if e == b {
			t.Fatalf("removed edge still present")
		}
	}
}

func TestReplaceInEdgeKeepsCount(t *testing.T) {
	g := &Graph{}
	obb1 := g.Add(&Block{})
	pbb := g.Add(&Block{})
	tb := g.Add(&Block{InEdges: []icode.BlockID{obb1}})

	g.ReplaceInEdge(g.Block(tb), obb1, pbb)

	if len(g.Block(tb).InEdges) != 1 {
		t.Fatalf("expected count preserved, got %d", len(g.Block(tb).InEdges))
	}
	if g.Block(tb).InEdges[0] != pbb {
		t.Fatalf("expected pbb to have replaced obb1")
	}
}

func TestInvalidBBFlag(t *testing.T) {
	b := &Block{}
	if b.Invalid() {
		t.Fatalf("fresh block should not be invalid")
	}
	b.Flags |= InvalidBB
	if !b.Invalid() {
		t.Fatalf("expected block to be invalid after flag set")
	}
}

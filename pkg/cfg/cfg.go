// Package cfg models the procedure control-flow graph long-variable
// propagation rewrites in place: an arena of basic blocks referenced
// by index, with small surgery methods that centralize the in-edge/
// out-edge invariants described in the design's CFG Invariants.
package cfg

import "github.com/oisee/dcc16/pkg/icode"

// NodeType classifies a basic block by its terminating control flow.
type NodeType uint8

const (
	FallThrough NodeType = iota
	OneBranch
	TwoBranch
	Return
)

// EdgeSlot indexes a two-branch block's out-edges.
type EdgeSlot uint8

const (
	Then EdgeSlot = iota
	Else
)

// Flag is a basic-block flag bit.
type Flag uint8

const (
	// InvalidBB marks a block as logically removed: it must have no
	// live in-edges or out-edges visible to the back-end.
	InvalidBB Flag = 1 << iota
)

// Block is one vertex in the procedure's control-flow graph.
type Block struct {
	Start    int // first icode index
	Length   int
	NodeType NodeType
	Edges    [2]icode.BlockID // indexed by EdgeSlot; icode.NoBlock if absent
	InEdges  []icode.BlockID  // densely packed, no holes
	Flags    Flag
}

// Invalid reports whether b has been logically removed.
func (b *Block) Invalid() bool { return b.Flags&InvalidBB != 0 }

// Graph is the arena owning every basic block of one procedure. Blocks
// are referenced by icode.BlockID (their index into Blocks); the arena
// itself is externally owned by the procedure whose lifetime dominates
// the analysis, per the design's resource-model note.
type Graph struct {
	Blocks []*Block
}

// Block returns the block for id.
func (g *Graph) Block(id icode.BlockID) *Block {
	if id == icode.NoBlock {
		return nil
	}
	return g.Blocks[id]
}

// Add appends a new block and returns its id.
func (g *Graph) Add(b *Block) icode.BlockID {
	g.Blocks = append(g.Blocks, b)
	return icode.BlockID(len(g.Blocks) - 1)
}

// IndexOf returns the id of b within g.
func (g *Graph) IndexOf(b *Block) icode.BlockID {
	for i, x := range g.Blocks {
		if x == b {
			return icode.BlockID(i)
		}
	}
	return icode.NoBlock
}

// RemoveInEdge deletes the first occurrence of from in b's in-edge
// list, packing the remainder down (no holes). Reports whether an
// entry was removed.
func (g *Graph) RemoveInEdge(b *Block, from icode.BlockID) bool {
	for i, e := range b.InEdges {
		if e == from {
			b.InEdges = append(b.InEdges[:i], b.InEdges[i+1:]...)
			return true
		}
	}
	return false
}

// AppendInEdge appends from to b's in-edge list.
func (g *Graph) AppendInEdge(b *Block, from icode.BlockID) {
	b.InEdges = append(b.InEdges, from)
}

// ReplaceInEdge removes from (if present) and appends to, leaving the
// in-edge count unchanged when from was present. This is the "swap one
// predecessor for another without losing an arc" operation the
// reference implementation performs by shifting the array down and
// overwriting the freed slot.
func (g *Graph) ReplaceInEdge(b *Block, from, to icode.BlockID) {
	g.RemoveInEdge(b, from)
	g.AppendInEdge(b, to)
}

// RedirectEdge sets pbb's out-edge at slot to target.
func (g *Graph) RedirectEdge(pbb *Block, slot EdgeSlot, target icode.BlockID) {
	pbb.Edges[slot] = target
}

// HasInEdge reports whether from appears in b's in-edge list.
func (b *Block) HasInEdge(from icode.BlockID) bool {
	for _, e := range b.InEdges {
		if e == from {
			return true
		}
	}
	return false
}

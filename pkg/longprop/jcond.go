package longprop

import (
	"github.com/oisee/dcc16/pkg/cfg"
	"github.com/oisee/dcc16/pkg/icode"
	"github.com/oisee/dcc16/pkg/procedure"
)

// isLong23 recognizes the 2-CMP/3-branch long conditional pattern of
// §4.5.2: icode[idx] is a CMP whose block is TWO_BRANCH, and one arc
// (THEN or ELSE) leads through a length-1 TWO_BRANCH block with a
// single in-edge to a length-2 TWO_BRANCH block starting with a second
// CMP. Returns the CMP-to-CMP offset and which arc matched.
func isLong23(proc *procedure.Record, idx int) (off int, arc cfg.EdgeSlot, ok bool) {
	a := proc.Inst(idx)
	pbb := proc.CFG.Block(a.BB)
	if pbb == nil || pbb.NodeType != cfg.TwoBranch {
		return 0, 0, false
	}

	check := func(mid *cfg.Block) (int, bool) {
		if mid == nil || mid.Length != 1 || mid.NodeType != cfg.TwoBranch || len(mid.InEdges) != 1 {
			return 0, false
		}
		obb2 := proc.CFG.Block(mid.Edges[cfg.Then])
		if obb2 == nil || obb2.Length != 2 || obb2.NodeType != cfg.TwoBranch {
			return 0, false
		}
		inner := proc.Inst(obb2.Start)
		if inner == nil || inner.Op != icode.CMP {
			return 0, false
		}
		jcc := proc.Inst(obb2.Start + 1)
		if jcc == nil || !icode.IsJCond(jcc.Op) || icode.Rel(jcc.Op) == icode.OpInvalid {
			return 0, false
		}
		return obb2.Start - idx, true
	}

	if d, ok := check(proc.CFG.Block(pbb.Edges[cfg.Then])); ok {
		return d, cfg.Then, true
	}
	if d, ok := check(proc.CFG.Block(pbb.Edges[cfg.Else])); ok {
		return d, cfg.Else, true
	}
	return 0, 0, false
}

// isLong22 recognizes the 2-CMP/2-branch pattern of §4.5.3:
// CMP, Jcc, CMP, Jcc starting at idx.
func isLong22(proc *procedure.Record, idx int) (off int, ok bool) {
	if idx+3 >= proc.NumIcode()-1 {
		return 0, false
	}
	b := proc.Inst(idx + 1)
	c := proc.Inst(idx + 2)
	d := proc.Inst(idx + 3)
	if c.Op == icode.CMP && icode.IsJCond(b.Op) && icode.IsJCond(d.Op) && icode.Rel(d.Op) != icode.OpInvalid {
		return 2, true
	}
	return 0, false
}

// longJCond23 performs the graph surgery and icode rewrite of §4.5.2,
// returning idx plus the manual index advance (to which the enclosing scan's
// own per-iteration step is still added, matching the reference's
// *idx += 5 / += 2 left for the surrounding for-loop to increment
// once more).
func longJCond23(proc *procedure.Record, idx int, lhs, rhs *icode.Expr, arc cfg.EdgeSlot, off int, st *Stats) int {
	outer := proc.Inst(idx)
	g := proc.CFG
	pbb := g.Block(outer.BB)

	relOp := icode.Rel(proc.Inst(idx + off + 1).Op)
	cond := icode.Binary(lhs, relOp, rhs)

	var obb1, obb2 *cfg.Block
	var advance int

	if arc == cfg.Then {
		obb1 = g.Block(pbb.Edges[cfg.Then])
		obb2 = g.Block(obb1.Edges[cfg.Then])
		tbb := g.Block(obb2.Edges[cfg.Then])

		g.RedirectEdge(pbb, cfg.Then, g.IndexOf(tbb))
		g.RemoveInEdge(tbb, g.IndexOf(obb1))
		g.RemoveInEdge(tbb, g.IndexOf(obb2))
		g.AppendInEdge(tbb, g.IndexOf(pbb))

		elseTarget := g.Block(pbb.Edges[cfg.Else])
		g.RemoveInEdge(elseTarget, g.IndexOf(obb2))

		advance = 5
	} else {
		obb1 = g.Block(pbb.Edges[cfg.Else])
		obb2 = g.Block(obb1.Edges[cfg.Then])
		tbb := g.Block(obb2.Edges[cfg.Then])

		g.RemoveInEdge(tbb, g.IndexOf(obb2))

		elseTarget := g.Block(obb2.Edges[cfg.Else])
		g.RemoveInEdge(elseTarget, g.IndexOf(obb1))
		g.RemoveInEdge(elseTarget, g.IndexOf(obb2))
		g.AppendInEdge(elseTarget, g.IndexOf(pbb))

		g.RedirectEdge(pbb, cfg.Else, g.IndexOf(elseTarget))

		advance = 2
	}

	jcondIdx := idx + 1
	next := proc.Inst(jcondIdx)
	icode.MakeCond(next, cond)
	icode.CopyUse(next, outer)
	next.Use |= proc.Inst(idx + off).Use

	obb1.Flags |= cfg.InvalidBB
	obb2.Flags |= cfg.InvalidBB
	st.NumBBAfter -= 2
	st.NumEdgesAfter -= 4

	icode.Invalidate(proc.Inst(idx))
	icode.Invalidate(proc.Inst(obb1.Start))
	icode.Invalidate(proc.Inst(obb2.Start))
	icode.Invalidate(proc.Inst(obb2.Start + 1))

	return idx + advance
}

// longJCond22 performs the graph surgery and icode rewrite of §4.5.3.
func longJCond22(proc *procedure.Record, idx int, lhs, rhs *icode.Expr, st *Stats) int {
	outer := proc.Inst(idx)
	g := proc.CFG

	relOp := icode.Rel(proc.Inst(idx + 3).Op)
	cond := icode.Binary(lhs, relOp, rhs)

	jcondIdx := idx + 1
	next := proc.Inst(jcondIdx)
	icode.MakeCond(next, cond)
	icode.CopyUse(next, outer)
	next.Use |= proc.Inst(idx + 2).Use

	pbb := g.Block(outer.BB)
	if pbb.Start+pbb.Length-1 == idx+1 {
		isJE := proc.Inst(idx+3).Op == icode.JE

		obb1 := g.Block(pbb.Edges[cfg.Then])
		tbb := g.Block(obb1.Edges[cfg.Then])
		g.RedirectEdge(pbb, cfg.Then, g.IndexOf(tbb))
		if isJE {
			g.RemoveInEdge(tbb, g.IndexOf(obb1))
		} else {
			g.ReplaceInEdge(tbb, g.IndexOf(obb1), g.IndexOf(pbb))
		}

		elseTarget := g.Block(obb1.Edges[cfg.Else])
		g.RedirectEdge(pbb, cfg.Else, g.IndexOf(elseTarget))
		if isJE {
			g.ReplaceInEdge(elseTarget, g.IndexOf(obb1), g.IndexOf(pbb))
		} else {
			g.RemoveInEdge(elseTarget, g.IndexOf(obb1))
		}

		obb1.Flags |= cfg.InvalidBB
		st.NumBBAfter--
		st.NumEdgesAfter -= 2
	}

	icode.Invalidate(proc.Inst(idx))
	icode.Invalidate(proc.Inst(idx + 2))
	icode.Invalidate(proc.Inst(idx + 3))

	return idx + 4
}

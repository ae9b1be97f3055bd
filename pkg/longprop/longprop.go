// Package longprop implements the Long-Variable Lifter (LVL): it
// walks a procedure's local-identifier table and, for every long
// (32-bit) local, rewrites the low-level icode pairs and CFG regions
// that implement it into single high-level icodes.
package longprop

import (
	"github.com/oisee/dcc16/pkg/icode"
	"github.com/oisee/dcc16/pkg/procedure"
)

// Stats accumulates the basic-block/edge-count deltas the graph
// surgery performs, matching §8's testable property 7.
type Stats struct {
	NumBBAfter    int
	NumEdgesAfter int
}

// Propagate rewrites proc in place, dispatching each long local
// identifier to its storage-class handler. Running Propagate twice is
// a no-op the second time: every rewritten icode is marked invalid or
// HIGH_LEVEL, and both states are skipped by every scan below.
func Propagate(proc *procedure.Record) Stats {
	var st Stats
	for i := range proc.LocalID {
		loc := &proc.LocalID[i]
		if !loc.IsLong() {
			continue
		}
		switch loc.Loc {
		case procedure.StkFrame:
			propLongStk(i, loc, proc, &st)
		case procedure.RegFrame:
			propLongReg(i, loc, proc, &st)
		case procedure.GlbFrame:
			propLongGlb(i, loc, proc, &st)
		}
	}
	return st
}

// propLongGlb is not implemented, matching the reference's documented
// stub: global long identifiers are not propagated.
func propLongGlb(i int, loc *procedure.LocalID, proc *procedure.Record, st *Stats) {}

func bitOpFor(op icode.OpCode) icode.Op {
	switch op {
	case icode.AND:
		return icode.OpAnd
	case icode.OR:
		return icode.OpOr
	case icode.XOR:
		return icode.OpXor
	default:
		return icode.OpInvalid
	}
}

// checkLongStk reports whether a (the earlier icode of the pair) and
// b (the later one, not necessarily adjacent) together reference the
// stack-frame long identifier stk: the field selected by matchDst (Dst
// for MOV/AND/OR/XOR/CMP, Src for PUSH) must be a stack operand whose
// offsets are stk's high half on a and low half on b — STK_FRAME's
// half-ordering is HIGH_FIRST for every opcode that reaches here.
func checkLongStk(stk procedure.LongStkID, a, b *icode.Instr, matchDst bool) bool {
	var aOp, bOp icode.Operand
	if matchDst {
		aOp, bOp = a.Dst, b.Dst
	} else {
		aOp, bOp = a.Src, b.Src
	}
	return aOp.Kind == icode.OperStack && bOp.Kind == icode.OperStack &&
		aOp.StackOff == stk.HiOff && bOp.StackOff == stk.LoOff
}

// propLongStk scans for adjacent same-opcode pairs and 2-CMP long
// conditionals that together implement a stack-frame long identifier,
// per §4.5.1-4.5.3.
func propLongStk(i int, loc *procedure.LocalID, proc *procedure.Record, st *Stats) {
	n := proc.NumIcode()
	for idx := 0; idx < n-1; idx++ {
		a := proc.Inst(idx)
		if a == nil || a.Type == icode.HighLevel || a.Invalid {
			continue
		}
		b := proc.Inst(idx + 1)

		if a.Op == b.Op {
			switch a.Op {
			case icode.MOV:
				if checkLongStk(loc.Stk, a, b, true) {
					lhs := icode.Ident(i)
					rhs := icode.Raw(a.Src, b.Src)
					icode.MakeAssign(a, lhs, rhs)
					icode.Invalidate(b)
					idx++
				}
			case icode.AND, icode.OR, icode.XOR:
				if checkLongStk(loc.Stk, a, b, true) {
					lhs := icode.Ident(i)
					rhs := icode.Binary(lhs, bitOpFor(a.Op), icode.Raw(a.Src, b.Src))
					icode.MakeAssign(a, lhs, rhs)
					icode.Invalidate(b)
					idx++
				}
			case icode.PUSH:
				if checkLongStk(loc.Stk, a, b, false) {
					operand := icode.Ident(i)
					icode.MakeUnary(a, icode.PUSH, operand)
					icode.Invalidate(b)
					idx++
				}
			}
			continue
		}

		if a.Op != icode.CMP {
			continue
		}
		if off, arc, ok := isLong23(proc, idx); ok {
			inner := proc.Inst(idx + off)
			if checkLongStk(loc.Stk, a, inner, true) {
				lhs := icode.Ident(i)
				rhs := icode.Raw(a.Src, inner.Src)
				idx = longJCond23(proc, idx, lhs, rhs, arc, off, st)
			}
		} else if off, ok := isLong22(proc, idx); ok {
			inner := proc.Inst(idx + off)
			if checkLongStk(loc.Stk, a, inner, true) {
				lhs := icode.Ident(i)
				rhs := icode.Raw(a.Src, inner.Src)
				idx = longJCond22(proc, idx, lhs, rhs, st)
			}
		}
	}
}

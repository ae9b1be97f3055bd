package longprop

import (
	"github.com/oisee/dcc16/pkg/icode"
	"github.com/oisee/dcc16/pkg/procedure"
)

// checkLongReg reports whether the operands hi and lo are registers
// naming reg's high and low halves respectively. The caller picks the
// operand fields and the opcode-specific half order (passing the high
// half's operand as hi).
func checkLongReg(reg procedure.LongRegID, hi, lo icode.Operand) bool {
	return hi.Kind == icode.OperReg && lo.Kind == icode.OperReg &&
		hi.Reg == reg.High && lo.Reg == reg.Low
}

// propLongReg lifts a register-pair long identifier: for every recorded
// occurrence it scans backwards for a defining pair (MOV/POP/AND/OR/XOR)
// and, independently, forwards for a using pair or long conditional,
// per §4.5.4-4.5.6. Register half-ordering is opcode-specific: MOV is
// HIGH_FIRST both directions, POP is LOW_FIRST and backward-only, PUSH
// is HIGH_FIRST and forward-only, AND/OR/XOR are LOW_FIRST both
// directions.
func propLongReg(i int, loc *procedure.LocalID, proc *procedure.Record, st *Stats) {
	n := proc.NumIcode()
	reg := loc.Reg

	for _, occ := range loc.Idx {
		// Backward definition scan.
		for pos := occ - 2; pos >= 0; pos-- {
			a := proc.Inst(pos)
			if a == nil || a.Type == icode.HighLevel || a.Invalid {
				continue
			}
			b := proc.Inst(pos + 1)
			if b == nil || a.Op != b.Op {
				continue
			}

			switch a.Op {
			case icode.MOV:
				if checkLongReg(reg, a.Dst, b.Dst) {
					lhs := icode.Ident(i)
					a.Def |= b.Dst.Reg.Mask()
					rhs := icode.Raw(a.Src, b.Src)
					icode.MakeAssign(a, lhs, rhs)
					icode.Invalidate(b)
					loc.InsertIdx(pos)
					pos = -1
				}
			case icode.POP:
				// LOW_FIRST, backward-only: first icode holds the low
				// half, second icode holds the high half.
				if checkLongReg(reg, b.Dst, a.Dst) {
					lhs := icode.Ident(i)
					a.Def |= b.Dst.Reg.Mask()
					icode.MakeUnary(a, icode.POP, lhs)
					icode.Invalidate(b)
					pos = -1
				}
			case icode.AND, icode.OR, icode.XOR:
				if checkLongReg(reg, b.Dst, a.Dst) {
					lhs := icode.Ident(i)
					a.Def |= b.Dst.Reg.Mask()
					a.Use |= b.Dst.Reg.Mask()
					rhs := icode.Binary(lhs, bitOpFor(a.Op), icode.Raw(b.Src, a.Src))
					icode.MakeAssign(a, lhs, rhs)
					icode.Invalidate(b)
					pos = -1
				}
			}
		}

		// Forward use scan, independent of whether the backward scan matched.
		for idx := occ + 1; idx < n-1; idx++ {
			a := proc.Inst(idx)
			if a == nil || a.Type == icode.HighLevel || a.Invalid {
				continue
			}
			b := proc.Inst(idx + 1)

			if b != nil && a.Op == b.Op {
				switch a.Op {
				case icode.MOV:
					if checkLongReg(reg, a.Src, b.Src) {
						rhs := icode.Ident(i)
						a.Use |= b.Src.Reg.Mask()
						lhs := icode.Raw(a.Dst, b.Dst)
						icode.MakeAssign(a, lhs, rhs)
						icode.Invalidate(b)
						idx = n
					}
				case icode.PUSH:
					if checkLongReg(reg, a.Src, b.Src) {
						operand := icode.Ident(i)
						a.Use |= b.Src.Reg.Mask()
						icode.MakeUnary(a, icode.PUSH, operand)
						icode.Invalidate(b)
					}
					idx = n
				case icode.AND, icode.OR, icode.XOR:
					if checkLongReg(reg, b.Dst, a.Dst) {
						lhs := icode.Ident(i)
						a.Def |= b.Dst.Reg.Mask()
						a.Use |= b.Dst.Reg.Mask()
						rhs := icode.Binary(lhs, bitOpFor(a.Op), icode.Raw(b.Src, a.Src))
						icode.MakeAssign(a, lhs, rhs)
						icode.Invalidate(b)
					}
				}
				continue
			}

			if a.Op == icode.CMP {
				if off, arc, ok := isLong23(proc, idx); ok {
					inner := proc.Inst(idx + off)
					if checkLongRegEq(reg, a, inner) {
						lhs := icode.Ident(i)
						rhs := icode.Raw(a.Src, inner.Src)
						idx = longJCond23(proc, idx, lhs, rhs, arc, off, st)
					}
					continue
				}
				if off, ok := isLong22(proc, idx); ok {
					inner := proc.Inst(idx + off)
					if checkLongRegEq(reg, a, inner) {
						lhs := icode.Ident(i)
						rhs := icode.Raw(a.Src, inner.Src)
						idx = longJCond22(proc, idx, lhs, rhs, st)
					}
					continue
				}
				continue
			}

			// OR regHigh, regLow ; Jcc lab => JCOND (long(id) rel 0) lab.
			if a.Op == icode.OR && idx+1 < n-1 && icode.IsJCond(b.Op) && icode.Rel(b.Op) != icode.OpInvalid {
				if a.Dst.Kind == icode.OperReg && a.Src.Kind == icode.OperReg &&
					a.Dst.Reg == reg.High && a.Src.Reg == reg.Low {
					lhs := icode.Ident(i)
					zero := icode.Const32(0)
					cond := icode.Binary(lhs, icode.Rel(b.Op), zero)
					icode.MakeCond(b, cond)
					icode.CopyUse(b, a)
					icode.Invalidate(a)
				}
			}
		}
	}
}

// checkLongRegEq mirrors checkLongStk's role for register-pair long
// conditionals: the outer CMP's Dst and the inner CMP's Dst together
// span reg, HIGH_FIRST (outer holds the high half).
func checkLongRegEq(reg procedure.LongRegID, outer, inner *icode.Instr) bool {
	return checkLongReg(reg, outer.Dst, inner.Dst)
}

package icode

import "fmt"

// Disassemble renders an icode instruction as assembly-like text, low
// or high level, matching the teacher catalog's Disassemble idiom
// (a side Info table drives low-level mnemonics; high-level forms
// render their expression tree directly since they have no catalog
// entry of their own).
func Disassemble(ic *Instr) string {
	if ic.Invalid {
		return "; invalidated"
	}
	if ic.Type == HighLevel {
		switch ic.HL {
		case HLAssign:
			return fmt.Sprintf("%s := %s", exprString(ic.LHS), exprString(ic.RHS))
		case HLUnary:
			return fmt.Sprintf("%s %s", ic.UnaryOp, exprString(ic.LHS))
		case HLCond:
			return fmt.Sprintf("JCOND %s", exprString(ic.LHS))
		}
		return "; empty high-level icode"
	}
	return fmt.Sprintf("%s %s, %s", ic.Op, operandString(ic.Dst), operandString(ic.Src))
}

func operandString(o Operand) string {
	switch o.Kind {
	case OperReg:
		return o.Reg.String()
	case OperStack:
		return fmt.Sprintf("[bp%+d]", o.StackOff)
	case OperImm:
		return fmt.Sprintf("0x%X", uint32(o.Imm))
	case OperGlobal:
		return fmt.Sprintf("[0x%X]", o.Addr)
	}
	return "-"
}

func exprString(e *Expr) string {
	if e == nil {
		return "?"
	}
	switch e.Kind {
	case ExprIdent:
		return fmt.Sprintf("id%d", e.Ident)
	case ExprConst:
		return fmt.Sprintf("0x%X", uint32(e.Const))
	case ExprRaw:
		return fmt.Sprintf("%s:%s", operandString(e.Hi), operandString(e.Lo))
	case ExprBinary:
		return fmt.Sprintf("(%s %s %s)", exprString(e.L), e.BinOp, exprString(e.R))
	}
	return "?"
}

package icode

// BlockID is an arena index into a cfg.Graph. Defined here (rather than
// in package cfg) so Instr can carry a back-reference to its containing
// basic block without an import cycle between icode and cfg.
type BlockID int

// NoBlock is the sentinel for "not assigned to any block".
const NoBlock BlockID = -1

// Level distinguishes disassembler-faithful low-level icode from
// lifted high-level icode.
type Level uint8

const (
	LowLevel Level = iota
	HighLevel
)

// HLForm discriminates the shape of a high-level instruction.
type HLForm uint8

const (
	HLNone   HLForm = iota
	HLAssign        // LHS := RHS
	HLUnary         // PUSH/POP Expr
	HLCond          // conditional jump over Expr
)

// Instr is one low-level or high-level intermediate-code instruction.
// Low-level fields (Op, Src, Dst, Def, Use) are faithful to the
// disassembled machine instruction; high-level fields (HL, LHS, RHS,
// UnaryOp) are populated once Type == HighLevel.
type Instr struct {
	Op  OpCode
	Src Operand
	Dst Operand

	Def RegMask
	Use RegMask

	Type    Level
	Invalid bool
	BB      BlockID

	HL      HLForm
	LHS     *Expr
	RHS     *Expr
	UnaryOp OpCode // PUSH or POP, valid when HL == HLUnary
}

// MakeAssign rewrites ic in place into a high-level assignment lhs := rhs.
func MakeAssign(ic *Instr, lhs, rhs *Expr) {
	ic.Type = HighLevel
	ic.HL = HLAssign
	ic.LHS = lhs
	ic.RHS = rhs
}

// MakeUnary rewrites ic in place into a high-level PUSH/POP of expr.
func MakeUnary(ic *Instr, op OpCode, expr *Expr) {
	ic.Type = HighLevel
	ic.HL = HLUnary
	ic.UnaryOp = op
	ic.LHS = expr
}

// MakeCond rewrites ic in place into a high-level conditional jump over expr.
func MakeCond(ic *Instr, expr *Expr) {
	ic.Type = HighLevel
	ic.HL = HLCond
	ic.LHS = expr
}

// Invalidate marks ic as dead; once set it is never revisited.
func Invalidate(ic *Instr) { ic.Invalid = true }

// CopyUse merges src's use bits into dst's use bits (mirrors the
// reference's copyDU(..., USE, USE) call sites).
func CopyUse(dst, src *Instr) { dst.Use |= src.Use }

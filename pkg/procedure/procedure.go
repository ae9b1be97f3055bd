// Package procedure holds the per-procedure data recovered by the
// startup/library-check pass and rewritten in place by long-variable
// propagation: the linear icode vector, its basic-block graph, and the
// local-identifier table long-variable lifting consults.
package procedure

import (
	"github.com/oisee/dcc16/pkg/cfg"
	"github.com/oisee/dcc16/pkg/icode"
)

// Flag is a procedure flag bit.
type Flag uint16

const (
	IsLib Flag = 1 << iota
	IsFunc
	Vararg
	Runtime
)

// RetType mirrors the prototype table's hlType variant, restricted to
// the widths library matching needs to pick a live-out register.
type RetType uint8

const (
	TypeUnknown RetType = iota
	TypeByteSigned
	TypeByteUnsigned
	TypeWordSigned
	TypeWordUnsigned
	TypeLongSigned
	TypeLongUnsigned
)

// ArgType is a function argument's type; only the width/signedness
// matters for this design, not full C type fidelity.
type ArgType = RetType

// Loc discriminates where a long local identifier lives.
type Loc uint8

const (
	StkFrame Loc = iota
	RegFrame
	GlbFrame
)

// LongStkID identifies a long local as a pair of stack-frame offsets.
type LongStkID struct {
	HiOff, LoOff int16
}

// LongRegID identifies a long local as a pair of named registers.
type LongRegID struct {
	High, Low icode.Reg
}

// LocalID is one entry of a procedure's local-identifier table.
type LocalID struct {
	Type RetType // TypeLongSigned or TypeLongUnsigned for long locals
	Loc  Loc

	Stk LongStkID // valid when Loc == StkFrame
	Reg LongRegID // valid when Loc == RegFrame
	Glb uint32    // valid when Loc == GlbFrame: fixed data-segment address

	// Idx lists every icode position that references this identifier.
	Idx []int
}

// InsertIdx appends idx to the identifier's occurrence list.
func (l *LocalID) InsertIdx(idx int) { l.Idx = append(l.Idx, idx) }

// IsLong reports whether l is a 32-bit local.
func (l *LocalID) IsLong() bool {
	return l.Type == TypeLongSigned || l.Type == TypeLongUnsigned
}

// Record is one procedure's recovered state: entry offset, resolved
// name, flags, argument list, return type, live-out register mask, its
// linear icode vector, and its local-identifier table. A Record owns
// its Icode and CFG exclusively; it shares read access to the Program
// Image it was disassembled from.
type Record struct {
	Entry   uint32
	Name    string
	Flags   Flag
	Args    []ArgType
	RetType RetType
	LiveOut icode.RegMask

	Icode   []icode.Instr
	CFG     *cfg.Graph
	LocalID []LocalID
}

// Inst returns a pointer to the icode instruction at idx, or nil if idx
// is out of range — the bounds-checked index view the design calls for
// in place of raw pointer arithmetic into the icode array.
func (r *Record) Inst(idx int) *icode.Instr {
	if idx < 0 || idx >= len(r.Icode) {
		return nil
	}
	return &r.Icode[idx]
}

// NumIcode returns the number of icode instructions.
func (r *Record) NumIcode() int { return len(r.Icode) }

// Block returns the basic block containing the icode at idx.
func (r *Record) Block(idx int) *cfg.Block {
	ic := r.Inst(idx)
	if ic == nil {
		return nil
	}
	return r.CFG.Block(ic.BB)
}

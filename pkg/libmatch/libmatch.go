// Package libmatch implements the second half of SALM: per-procedure
// library identification against the Perfect-Hash Signature Store and
// the Prototype Table.
package libmatch

import (
	"github.com/oisee/dcc16/pkg/icode"
	"github.com/oisee/dcc16/pkg/image"
	"github.com/oisee/dcc16/pkg/procedure"
	"github.com/oisee/dcc16/pkg/proto"
	"github.com/oisee/dcc16/pkg/sig"
)

// Check identifies proc as a library call, a runtime helper, or
// neither, mirroring LibCheck's main-shortcut, hash-then-confirm
// query, and IS_LIB/RUNTIME split. Reports whether proc.Flags now
// carries IS_LIB.
func Check(ctx *sig.Context, protos *proto.Table, prog *image.Program, proc *procedure.Record) bool {
	if prog.OffMain != image.Unknown && int(proc.Entry) == prog.OffMain {
		proc.Name = "main"
		return false
	}

	entry := int(proc.Entry)
	if entry < 0 || entry+sig.PatLen > len(prog.Image) {
		return false
	}
	window := make([]byte, sig.PatLen)
	copy(window, prog.Image[entry:entry+sig.PatLen])
	pat := sig.FixWild(window)

	symbol, ok := ctx.Lookup(pat)
	if !ok {
		return false
	}

	if proc.Name == "" {
		proc.Name = symbol
	}

	idx, found := protos.Find(symbol)
	if len(protos.Protos) == 0 || found {
		proc.Flags |= procedure.IsLib
		if found {
			applyPrototype(proc, protos, idx)
		}
	} else {
		proc.Flags |= procedure.Runtime
	}

	return proc.Flags&procedure.IsLib != 0
}

func applyPrototype(proc *procedure.Record, protos *proto.Table, idx int) {
	p := protos.Protos[idx]

	proc.Args = make([]procedure.ArgType, p.NumArgs)
	copy(proc.Args, protos.ArgTypes(idx))

	if p.ReturnType != procedure.TypeUnknown {
		proc.RetType = p.ReturnType
		proc.Flags |= procedure.IsFunc
		proc.LiveOut = liveOutFor(p.ReturnType)
	}

	if p.Vararg {
		proc.Flags |= procedure.Vararg
	}
}

// liveOutFor derives the live-out register mask from a return type's
// width, per §4.4: byte -> AL, word -> AX, long -> DX|AX.
func liveOutFor(t procedure.RetType) icode.RegMask {
	switch t {
	case procedure.TypeLongSigned, procedure.TypeLongUnsigned:
		return icode.DX.Mask() | icode.AX.Mask()
	case procedure.TypeWordSigned, procedure.TypeWordUnsigned:
		return icode.AX.Mask()
	case procedure.TypeByteSigned, procedure.TypeByteUnsigned:
		return icode.AL.Mask()
	default:
		return 0
	}
}

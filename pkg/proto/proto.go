// Package proto implements the Prototype Table: a sorted-by-name array
// of library function signatures, loaded from dcclibs.dat and queried
// by binary search during library matching.
package proto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/oisee/dcc16/pkg/procedure"
	"github.com/oisee/dcc16/pkg/sig"
)

const magic = "dccp"

// Proto is one function's prototype.
type Proto struct {
	Name          string
	ReturnType    procedure.RetType
	NumArgs       int
	FirstArgIndex int
	Vararg        bool
}

// Table is the loaded prototype database: a name-sorted Protos array
// plus the flat Args array each Proto's FirstArgIndex/NumArgs window
// into.
type Table struct {
	Protos []Proto
	Args   []procedure.ArgType
}

// Empty returns a Table representing "no prototypes loaded"; Find
// always misses against it.
func Empty() *Table { return &Table{} }

func grab(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

// Load reads a dcclibs.dat file. A missing file degrades to Empty with
// found=false and a nil error, matching the "configuration absent"
// rule of §7; a structurally corrupt file returns a non-nil error,
// which callers should treat as fatal.
func Load(path string) (*Table, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Empty(), false, nil
	}
	defer f.Close()

	t, err := decode(f)
	if err != nil {
		return nil, true, err
	}
	return t, true, nil
}

func decode(r io.Reader) (*Table, error) {
	magicBuf, err := grab(r, 4)
	if err != nil {
		return nil, fmt.Errorf("prototype file: could not read magic: %w", err)
	}
	if string(magicBuf) != magic {
		return nil, fmt.Errorf("prototype file: not a dcc prototype file (got magic %q)", magicBuf)
	}

	fnTag, err := grab(r, 2)
	if err != nil || string(fnTag) != "FN" {
		return nil, fmt.Errorf("prototype file: expected \"FN\" section tag, got %q (err=%v)", fnTag, err)
	}
	numFuncsBuf, err := grab(r, 2)
	if err != nil {
		return nil, fmt.Errorf("prototype file: could not read num_funcs: %w", err)
	}
	numFuncs := int(binary.LittleEndian.Uint16(numFuncsBuf))

	recLen := sig.SymLen + 2 + 2 + 2 + 1
	protos := make([]Proto, numFuncs)
	for i := 0; i < numFuncs; i++ {
		rec, err := grab(r, recLen)
		if err != nil {
			return nil, fmt.Errorf("prototype file: truncated function record %d: %w", i, err)
		}
		name := rec[:sig.SymLen]
		if nul := bytes.IndexByte(name, 0); nul >= 0 {
			name = name[:nul]
		}
		off := sig.SymLen
		typ := binary.LittleEndian.Uint16(rec[off:])
		off += 2
		nargs := binary.LittleEndian.Uint16(rec[off:])
		off += 2
		firstArg := binary.LittleEndian.Uint16(rec[off:])
		off += 2
		vararg := rec[off] != 0

		protos[i] = Proto{
			Name:          string(name),
			ReturnType:    procedure.RetType(typ),
			NumArgs:       int(nargs),
			FirstArgIndex: int(firstArg),
			Vararg:        vararg,
		}
	}
	if !sort.SliceIsSorted(protos, func(i, j int) bool { return protos[i].Name < protos[j].Name }) {
		return nil, fmt.Errorf("prototype file: function records are not sorted by name")
	}

	pmTag, err := grab(r, 2)
	if err != nil || string(pmTag) != "PM" {
		return nil, fmt.Errorf("prototype file: expected \"PM\" section tag, got %q (err=%v)", pmTag, err)
	}
	numArgsBuf, err := grab(r, 2)
	if err != nil {
		return nil, fmt.Errorf("prototype file: could not read num_args: %w", err)
	}
	numArgs := int(binary.LittleEndian.Uint16(numArgsBuf))

	args := make([]procedure.ArgType, numArgs)
	for i := 0; i < numArgs; i++ {
		buf, err := grab(r, 2)
		if err != nil {
			return nil, fmt.Errorf("prototype file: truncated argument record %d: %w", i, err)
		}
		args[i] = procedure.ArgType(binary.LittleEndian.Uint16(buf))
	}

	return &Table{Protos: protos, Args: args}, nil
}

// Find performs a binary search for name, mirroring chklib.c's
// searchPList with sort.Search in place of the hand-rolled midpoint
// loop. Returns the index into Protos and true on a hit, or (-1,
// false) on a miss.
func (t *Table) Find(name string) (int, bool) {
	n := len(t.Protos)
	i := sort.Search(n, func(i int) bool { return t.Protos[i].Name >= name })
	if i < n && t.Protos[i].Name == name {
		return i, true
	}
	return -1, false
}

// ArgTypes returns the argument-type slice for the proto at index idx.
func (t *Table) ArgTypes(idx int) []procedure.ArgType {
	p := t.Protos[idx]
	return t.Args[p.FirstArgIndex : p.FirstArgIndex+p.NumArgs]
}

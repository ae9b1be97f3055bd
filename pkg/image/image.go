// Package image loads a 16-bit DOS executable into the Program Image
// data model: a flat byte vector addressable the way the analysis core
// addresses it (absolute offset = (segment<<4)+offset), plus the entry
// point CS:IP the startup analyzer walks forward from.
package image

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Unknown is the sentinel OffMain/SegMain value before (or when) the
// startup analyzer fails to locate main.
const Unknown = -1

// mzHeaderLen is the fixed portion of a DOS MZ header this loader
// reads; fields beyond e_cparhdr (relocations, overlay number, …) are
// not needed to compute init_cs/init_ip and are not modeled.
const mzHeaderLen = 28

// Program is the Program Image of §3: the raw bytes plus the entry
// state and the two fields the startup analyzer populates.
type Program struct {
	Image []byte

	InitCS uint16
	InitIP uint16

	OffMain int // byte offset of main(), or Unknown
	SegMain uint16
}

// State is the minimal abstract CPU state the startup analyzer writes
// into — just the one register (DS) §4.3 recovers.
type State struct {
	DS uint16
}

// LoadMZ parses a DOS MZ executable: header fields e_cparhdr (size of
// the header in 16-byte paragraphs), e_cs, e_ip are used to place the
// load module at its paragraph offset within Image and to compute
// InitCS/InitIP, so that absolute offset (InitCS<<4)+InitIP indexes
// directly into Image exactly as prog.Image does in the reference
// implementation.
func LoadMZ(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < mzHeaderLen {
		return nil, fmt.Errorf("image: %s too short to be an MZ executable", path)
	}
	if raw[0] != 'M' || raw[1] != 'Z' {
		return nil, fmt.Errorf("image: %s is not an MZ executable (bad magic)", path)
	}

	eCparhdr := binary.LittleEndian.Uint16(raw[8:10])
	eIP := binary.LittleEndian.Uint16(raw[20:22])
	eCS := binary.LittleEndian.Uint16(raw[22:24])

	headerBytes := int(eCparhdr) * 16
	if headerBytes > len(raw) {
		return nil, fmt.Errorf("image: %s header paragraph count exceeds file size", path)
	}
	loadModule := raw[headerBytes:]

	// Lay Image out so absolute offset 0 is segment 0: the load module
	// itself starts at paragraph eCparhdr, mirroring where a real DOS
	// loader would place it relative to the PSP.
	img := make([]byte, headerBytes+len(loadModule))
	copy(img[headerBytes:], loadModule)

	return &Program{
		Image:   img,
		InitCS:  eCparhdr + eCS,
		InitIP:  eIP,
		OffMain: Unknown,
	}, nil
}

// LoadCOM parses a raw .COM image: the whole file is the load module,
// loaded at offset 0x100 within its segment per DOS convention, with
// CS==IP's segment equal to 0 and IP==0x100 so absolute offset 0x100
// is the entry point, same as a real .COM loader's PSP+0x100 start.
func LoadCOM(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img := make([]byte, 0x100+len(raw))
	copy(img[0x100:], raw)
	return &Program{
		Image:   img,
		InitCS:  0,
		InitIP:  0x100,
		OffMain: Unknown,
	}, nil
}

// StartOffset returns the absolute image offset of the entry point.
func (p *Program) StartOffset() uint32 {
	return (uint32(p.InitCS) << 4) + uint32(p.InitIP)
}

// Package startup implements the Startup Analyzer & Library Matcher's
// first half (SALM): recovering compiler vendor, version, and memory
// model from anchored byte patterns at the entry point, and resolving
// the absolute offset of main().
package startup

import (
	"encoding/json"
	"fmt"

	"github.com/oisee/dcc16/pkg/image"
	"github.com/xyproto/env/v2"
)

// Provenance is the recovered (vendor, version, model) triple; each
// field defaults to 'x' when detection does not pin it down, mirroring
// the reference implementation's placeholder characters.
type Provenance struct {
	Vendor  byte
	Version byte
	Model   byte
}

type provenanceJSON struct {
	Vendor  string `json:"vendor"`
	Version string `json:"version"`
	Model   string `json:"model"`
}

// MarshalJSON renders each field as its single character rather than
// its numeric byte value, so a report reads "model":"l" instead of
// "model":108.
func (p Provenance) MarshalJSON() ([]byte, error) {
	return json.Marshal(provenanceJSON{
		Vendor:  string(p.Vendor),
		Version: string(p.Version),
		Model:   string(p.Model),
	})
}

// UnmarshalJSON is MarshalJSON's inverse.
func (p *Provenance) UnmarshalJSON(data []byte) error {
	var pj provenanceJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	if len(pj.Vendor) > 0 {
		p.Vendor = pj.Vendor[0]
	}
	if len(pj.Version) > 0 {
		p.Version = pj.Version[0]
	}
	if len(pj.Model) > 0 {
		p.Model = pj.Model[0]
	}
	return nil
}

func defaultProvenance() Provenance {
	return Provenance{Vendor: 'x', Version: 'x', Model: 'x'}
}

// Result is everything Check recovers.
type Result struct {
	Provenance Provenance
	SigPath    string
}

// Check recovers provenance and main()'s offset from prog, writing DS
// into state and OffMain/SegMain into prog, and resolves the signature
// file name the caller should hand to sig.Load. It mirrors
// checkStartup's control flow: Turbo Pascal v4+ is tried first (it
// fully determines provenance and main in one step), then the
// main-call model scan, then Turbo Pascal 3's fixed signature (which,
// like v4+, returns at once with its own vendor), then — independently
// of whether the model scan found main — vendor detection.
func Check(prog *image.Program, state *image.State) Result {
	startOff := prog.StartOffset()
	img := prog.Image

	if prov, ok := tryTurboPascalV4Plus(img, prog, state, startOff); ok {
		return Result{Provenance: prov, SigPath: resolveSigPath(prov)}
	}

	model := locateMain(img, prog, startOff)

	var prov Provenance
	if model == 0 {
		// Could also be Turbo Pascal 3, which carries its own vendor.
		if p, ok := tryTurboPascal3(img, prog, startOff); ok {
			return Result{Provenance: p, SigPath: resolveSigPath(p)}
		}
		fmt.Println("Main could not be located!")
		prog.OffMain = image.Unknown
		prov = defaultProvenance()
	} else {
		prov = defaultProvenance()
		prov.Model = model
	}
	fmt.Printf("Model: %c\n", prov.Model)

	prov = detectVendor(img, state, startOff, prov)

	return Result{Provenance: prov, SigPath: resolveSigPath(prov)}
}

// tryTurboPascalV4Plus checks the far-call-to-init idiom shared by
// Turbo Pascal versions 4, 5, and 7, replacing the reference
// implementation's "goto gotVendor" with an early return carrying the
// fully-resolved provenance. Returns ok=false if the image does not
// start with a far call, or the call target doesn't match any of the
// three init templates.
func tryTurboPascalV4Plus(img []byte, prog *image.Program, state *image.State, startOff uint32) (Provenance, bool) {
	if !matchAt(img, int(startOff), pattBorl4on) {
		return Provenance{}, false
	}

	rel := le16(img, int(startOff)+1)
	para := le16(img, int(startOff)+3)
	init := (int(para) << 4) + int(rel)

	type candidate struct {
		pat     []byte
		version byte
		label   string
	}
	for _, c := range []candidate{
		{pattBorl4Init, '4', "Borland Pascal v4 detected"},
		{pattBorl5Init, '5', "Borland Pascal v5.0 detected"},
		{pattBorl7Init, '7', "Borland Pascal v7 detected"},
	} {
		if i, ok := locatePattern(img, init, init+26, c.pat); ok {
			state.DS = le16(img, i+1)
			fmt.Println(c.label)
			prog.OffMain = int(startOff)
			prog.SegMain = prog.InitCS
			return Provenance{Vendor: 't', Model: 'p', Version: c.version}, true
		}
	}
	return Provenance{}, false
}

// locateMain scans, far models first, for the call-to-main idiom and
// sets prog.OffMain/SegMain on a hit. Returns the model character, or
// 0 if none of the four templates matched.
func locateMain(img []byte, prog *image.Program, startOff uint32) byte {
	lo, hi := int(startOff), int(startOff)+0x180

	if i, ok := locatePattern(img, lo, hi, pattMainLarge); ok {
		rel := le16(img, i+offMainLarge)
		para := le16(img, i+offMainLarge+2)
		prog.OffMain = (int(para) << 4) + int(rel)
		prog.SegMain = para
		return 'l'
	}
	if i, ok := locatePattern(img, lo, hi, pattMainCompact); ok {
		rel := le16signed(img, i+offMainCompact)
		prog.OffMain = i + offMainCompact + 2 + int(rel)
		prog.SegMain = prog.InitCS
		return 'c'
	}
	if i, ok := locatePattern(img, lo, hi, pattMainMedium); ok {
		rel := le16(img, i+offMainMedium)
		para := le16(img, i+offMainMedium+2)
		prog.OffMain = (int(para) << 4) + int(rel)
		prog.SegMain = para
		return 'm'
	}
	if i, ok := locatePattern(img, lo, hi, pattMainSmall); ok {
		rel := le16signed(img, i+offMainSmall)
		prog.OffMain = i + offMainSmall + 2 + int(rel)
		prog.SegMain = prog.InitCS
		return 's'
	}
	return 0
}

func tryTurboPascal3(img []byte, prog *image.Program, startOff uint32) (Provenance, bool) {
	if !matchAt(img, int(startOff), pattTPasStart) {
		return Provenance{}, false
	}
	rel := le16signed(img, int(startOff)+1)
	prog.OffMain = int(startOff) + 3 + int(rel) + 0x20
	prog.SegMain = prog.InitCS
	fmt.Println("Turbo Pascal 3.0 detected")
	fmt.Printf("Main at %04X\n", prog.OffMain)
	return Provenance{Vendor: 't', Model: 'p', Version: '3'}, true
}

// detectVendor runs independently of whether main was located: it only
// ever refines prov.Vendor/Version, never prov.Model.
func detectVendor(img []byte, state *image.State, startOff uint32, prov Provenance) Provenance {
	so := int(startOff)

	switch {
	case matchAt(img, so, pattMsC5Start):
		state.DS = le16(img, so+len(pattMsC5Start))
		fmt.Println("MSC 5 detected")
		prov.Vendor, prov.Version = 'm', '5'

	case matchAt(img, so, pattMsC8Start):
		state.DS = le16(img, so+len(pattMsC8Start))
		fmt.Println("MSC 8 detected")
		prov.Vendor, prov.Version = 'm', '8'

	case matchAt(img, so, pattMsC8ComStart):
		fmt.Println("MSC 8 .com detected")
		prov.Vendor, prov.Version = 'm', '8'

	default:
		if i, ok := locatePattern(img, so, so+0x30, pattBorl2Start); ok {
			state.DS = le16(img, i+1)
			fmt.Println("Borland v2 detected")
			prov.Vendor, prov.Version = 'b', '2'
		} else if i, ok := locatePattern(img, so, so+0x30, pattBorl3Start); ok {
			state.DS = le16(img, i+1)
			fmt.Println("Borland v3 detected")
			prov.Vendor, prov.Version = 'b', '3'
		} else if _, ok := locatePattern(img, so, so+0x30, pattLogiStart); ok {
			fmt.Println("Logitech modula detected")
			prov.Vendor, prov.Version = 'l', '1'
		} else {
			fmt.Println("Warning - compiler not recognised")
		}
	}

	return prov
}

// resolveSigPath builds "dcc<vendor><version><model>.sig" under the
// directory named by the DCC environment variable (current directory
// if unset), replacing the original's getenv/strcat dance with
// env.Str's fallback-aware lookup.
func resolveSigPath(p Provenance) string {
	dir := env.Str("DCC", ".")
	if dir != "" && dir[len(dir)-1] != '/' {
		dir += "/"
	}
	return fmt.Sprintf("%sdcc%c%c%c.sig", dir, p.Vendor, p.Version, p.Model)
}

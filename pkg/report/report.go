// Package report serializes one analysis run's findings to JSON: the
// startup provenance, which procedures were matched against the
// signature/prototype tables, and the basic-block/edge deltas
// long-variable propagation produced.
package report

import (
	"encoding/json"
	"io"

	"github.com/oisee/dcc16/pkg/longprop"
	"github.com/oisee/dcc16/pkg/procedure"
	"github.com/oisee/dcc16/pkg/startup"
)

// ProcResult is one procedure's library-match and long-propagation
// outcome.
type ProcResult struct {
	Entry        uint32 `json:"entry"`
	Name         string `json:"name"`
	IsLib        bool   `json:"is_lib"`
	IsFunc       bool   `json:"is_func"`
	Vararg       bool   `json:"vararg"`
	Runtime      bool   `json:"runtime"`
	NumBBDelta   int    `json:"num_bb_delta"`
	NumEdgeDelta int    `json:"num_edge_delta"`
}

// Summary is the top-level JSON document for one analyzed executable.
type Summary struct {
	Input      string             `json:"input"`
	Provenance startup.Provenance `json:"provenance"`
	SigPath    string             `json:"sig_path"`
	Procedures []ProcResult       `json:"procedures"`
}

// AddProcedure records one procedure's library-match flags and
// long-propagation stats into the summary.
func (s *Summary) AddProcedure(entry uint32, name string, flags procedure.Flag, st longprop.Stats) {
	s.Procedures = append(s.Procedures, ProcResult{
		Entry:        entry,
		Name:         name,
		IsLib:        flags&procedure.IsLib != 0,
		IsFunc:       flags&procedure.IsFunc != 0,
		Vararg:       flags&procedure.Vararg != 0,
		Runtime:      flags&procedure.Runtime != 0,
		NumBBDelta:   st.NumBBAfter,
		NumEdgeDelta: st.NumEdgesAfter,
	})
}

// WriteJSON writes s to w as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadJSON reads a Summary previously written by WriteJSON.
func ReadJSON(r io.Reader) (*Summary, error) {
	var s Summary
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

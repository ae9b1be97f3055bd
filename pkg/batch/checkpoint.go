package batch

import (
	"encoding/gob"
	"os"
)

// Checkpoint holds enough state to resume a batch run: every file
// result gathered so far, and the full path list so Remaining can compute
// which paths remain.
type Checkpoint struct {
	Paths   []string
	Results []FileResult
}

// SaveCheckpoint writes ckpt to path.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint reads a Checkpoint previously written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}

// Remaining returns the subset of ckpt.Paths not already present
// (by Path) in ckpt.Results.
func (ckpt *Checkpoint) Remaining() []string {
	done := make(map[string]bool, len(ckpt.Results))
	for _, r := range ckpt.Results {
		done[r.Path] = true
	}
	var rest []string
	for _, p := range ckpt.Paths {
		if !done[p] {
			rest = append(rest, p)
		}
	}
	return rest
}

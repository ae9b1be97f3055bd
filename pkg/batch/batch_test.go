package batch

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCOM(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestPoolRunCoversEveryPathExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	// Neither .COM file matches any startup signature; the point here is
	// exercising the fan-out, not a positive provenance match.
	a := writeCOM(t, dir, "a.com", []byte{0x90, 0x90, 0xC3})
	b := writeCOM(t, dir, "b.com", []byte{0xEB, 0xFE})

	cfg := Config{Paths: []string{a, b}, NumWorkers: 2}
	p, err := NewPool(cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	results := p.Run(cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	seen := map[string]bool{}
	for _, r := range results {
		if r.Err != "" {
			t.Fatalf("unexpected error for %s: %s", r.Path, r.Err)
		}
		seen[r.Path] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("expected both paths present in results, got %+v", results)
	}
}

func TestPoolRunReportsErrorForMissingFile(t *testing.T) {
	cfg := Config{Paths: []string{"/nonexistent/missing.com"}, NumWorkers: 1}
	p, err := NewPool(cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	results := p.Run(cfg)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err == "" {
		t.Fatalf("expected a load error for a missing file")
	}
}

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ckptPath := filepath.Join(dir, "batch.ckpt")

	ckpt := &Checkpoint{
		Paths: []string{"a.com", "b.com", "c.com"},
		Results: []FileResult{
			{Path: "a.com"},
			{Path: "b.com", Err: "boom"},
		},
	}
	if err := SaveCheckpoint(ckptPath, ckpt); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	reloaded, err := LoadCheckpoint(ckptPath)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}

	rest := reloaded.Remaining()
	if len(rest) != 1 || rest[0] != "c.com" {
		t.Fatalf("Remaining() = %v, want [c.com]", rest)
	}
}

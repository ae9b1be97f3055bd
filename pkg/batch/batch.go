// Package batch fans a directory of executables out across a worker
// pool, running the startup analyzer and library matcher over each one
// and collecting the per-file summaries. It is explicitly ambient
// infrastructure: the single-file analysis pipeline it drives has no
// concurrency of its own, per the core's single-threaded design.
package batch

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oisee/dcc16/pkg/image"
	"github.com/oisee/dcc16/pkg/libmatch"
	"github.com/oisee/dcc16/pkg/longprop"
	"github.com/oisee/dcc16/pkg/procedure"
	"github.com/oisee/dcc16/pkg/proto"
	"github.com/oisee/dcc16/pkg/report"
	"github.com/oisee/dcc16/pkg/sig"
	"github.com/oisee/dcc16/pkg/startup"
)

// Config describes one batch run.
type Config struct {
	Paths      []string // executable files to analyze
	ProtoPath  string   // .dat prototype table, shared by every worker
	NumWorkers int      // 0 picks runtime.NumCPU()
	Verbose    bool
}

// FileResult is one input file's outcome.
type FileResult struct {
	Path    string
	Summary report.Summary
	Err     string // non-empty on failure; Summary is then zero
}

// Pool runs Config.Paths across Config.NumWorkers goroutines. The
// prototype table is loaded once and shared read-only across workers;
// the signature file is resolved per file, since its name depends on
// the provenance startup.Check recovers for that file.
type Pool struct {
	NumWorkers int
	protos     *proto.Table

	mu        sync.Mutex
	results   []FileResult
	checked   atomic.Int64
	completed atomic.Int64
}

// NewPool loads the shared prototype table and constructs a pool sized
// for cfg.
func NewPool(cfg Config) (*Pool, error) {
	protos, _, err := proto.Load(cfg.ProtoPath)
	if err != nil {
		return nil, fmt.Errorf("batch: loading prototype table: %w", err)
	}

	n := cfg.NumWorkers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{NumWorkers: n, protos: protos}, nil
}

// Run analyzes every path in cfg.Paths and returns one FileResult per
// input, in no particular order (callers that need determinism should
// sort by Path).
func (p *Pool) Run(cfg Config) []FileResult {
	total := int64(len(cfg.Paths))

	ch := make(chan string, len(cfg.Paths))
	for _, path := range cfg.Paths {
		ch <- path
	}
	close(ch)

	done := make(chan struct{})
	start := time.Now()
	if cfg.Verbose {
		go p.reportProgress(start, total, done)
	}

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range ch {
				p.processFile(path)
				p.completed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(done)

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FileResult, len(p.results))
	copy(out, p.results)
	return out
}

func (p *Pool) reportProgress(start time.Time, total int64, done chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			comp := p.completed.Load()
			elapsed := time.Since(start).Round(time.Second)
			fmt.Printf("  [%s] %d/%d files analyzed\n", elapsed, comp, total)
		}
	}
}

// processFile runs the startup analyzer on path and, when it located
// main(), runs the library matcher against it too — the startup and
// library-match steps analyze runs on a single file, just fanned out.
func (p *Pool) processFile(path string) {
	p.checked.Add(1)
	res := FileResult{Path: path}

	prog, err := loadImage(path)
	if err != nil {
		res.Err = err.Error()
		p.record(res)
		return
	}

	state := &image.State{}
	result := startup.Check(prog, state)

	summary := report.Summary{
		Input:      path,
		Provenance: result.Provenance,
		SigPath:    result.SigPath,
	}

	if prog.OffMain != image.Unknown {
		ctx, _, err := sig.Load(result.SigPath)
		if err != nil {
			res.Err = err.Error()
			p.record(res)
			return
		}

		proc := &procedure.Record{Entry: uint32(prog.OffMain)}
		libmatch.Check(ctx, p.protos, prog, proc)
		// Long-variable propagation needs a disassembled icode/CFG, which
		// batch analysis does not build; only the library-match flags are
		// reported here.
		summary.AddProcedure(proc.Entry, proc.Name, proc.Flags, longprop.Stats{})
	}

	res.Summary = summary
	p.record(res)
}

func (p *Pool) record(res FileResult) {
	p.mu.Lock()
	p.results = append(p.results, res)
	p.mu.Unlock()
}

func loadImage(path string) (*image.Program, error) {
	if strings.EqualFold(filepath.Ext(path), ".com") {
		return image.LoadCOM(path)
	}
	return image.LoadMZ(path)
}

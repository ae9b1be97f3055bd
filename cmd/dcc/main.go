package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oisee/dcc16/pkg/batch"
	"github.com/oisee/dcc16/pkg/dccerr"
	"github.com/oisee/dcc16/pkg/icode"
	"github.com/oisee/dcc16/pkg/image"
	"github.com/oisee/dcc16/pkg/libmatch"
	"github.com/oisee/dcc16/pkg/longprop"
	"github.com/oisee/dcc16/pkg/procedure"
	"github.com/oisee/dcc16/pkg/proto"
	"github.com/oisee/dcc16/pkg/report"
	"github.com/oisee/dcc16/pkg/sig"
	"github.com/oisee/dcc16/pkg/startup"
	"github.com/spf13/cobra"
)

func main() {
	dccerr.SetProgName("dcc")

	rootCmd := &cobra.Command{
		Use:   "dcc",
		Short: "dcc16 — a 16-bit DOS decompiler's startup analyzer and long-variable lifter",
	}

	// analyze command
	var (
		execFile   string
		protoPath  string
		reportPath string
		verbose    bool
		showVer    bool
		showStruct bool
		showModel  bool
		showICode  bool
		showArgs   bool
		showAll    bool
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recover startup provenance and lift long variables for one executable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if execFile == "" {
				dccerr.Fatal(dccerr.Usage)
			}
			if showAll {
				verbose, showVer, showStruct, showModel, showICode, showArgs = true, true, true, true, true, true
			}
			return runAnalyze(analyzeOpts{
				execFile:   execFile,
				protoPath:  protoPath,
				reportPath: reportPath,
				verbose:    verbose,
				showVer:    showVer,
				showStruct: showStruct,
				showModel:  showModel,
				showICode:  showICode,
				showArgs:   showArgs,
			})
		},
	}
	analyzeCmd.Flags().StringVarP(&execFile, "file", "f", "", "DOS executable to analyze")
	analyzeCmd.Flags().StringVar(&protoPath, "proto", "dcclibs.dat", "prototype table path")
	analyzeCmd.Flags().StringVar(&reportPath, "report", "", "write a pkg/report JSON summary here")
	analyzeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose progress messages")
	analyzeCmd.Flags().BoolVarP(&showVer, "version-info", "V", false, "print recovered compiler version")
	analyzeCmd.Flags().BoolVarP(&showStruct, "structure", "s", false, "print control-flow structure")
	analyzeCmd.Flags().BoolVarP(&showModel, "model", "m", false, "print recovered memory model")
	analyzeCmd.Flags().BoolVarP(&showICode, "icode", "i", false, "print intermediate code")
	analyzeCmd.Flags().BoolVarP(&showArgs, "args", "a", false, "print recovered argument types")
	analyzeCmd.Flags().BoolVarP(&showAll, "all", "A", false, "enable every -v/-V/-s/-m/-i/-a flag")

	// batch command
	var (
		numWorkers  int
		resumePath  string
		batchReport string
	)
	batchCmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Analyze every executable in a directory across a worker pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args[0], protoPath, numWorkers, resumePath, batchReport)
		},
	}
	batchCmd.Flags().IntVar(&numWorkers, "workers", 0, "number of workers (0 = NumCPU)")
	batchCmd.Flags().StringVar(&resumePath, "resume", "", "checkpoint file to resume from / save to")
	batchCmd.Flags().StringVar(&batchReport, "report", "", "write a combined pkg/report JSON summary here")
	batchCmd.Flags().StringVar(&protoPath, "proto", "dcclibs.dat", "prototype table path")

	// verify-sig command
	verifySigCmd := &cobra.Command{
		Use:   "verify-sig <file.sig>",
		Short: "Load a signature file and report its header, exercising the encode/decode round trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifySig(args[0])
		},
	}

	rootCmd.AddCommand(analyzeCmd, batchCmd, verifySigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type analyzeOpts struct {
	execFile   string
	protoPath  string
	reportPath string
	verbose    bool
	showVer    bool
	showStruct bool
	showModel  bool
	showICode  bool
	showArgs   bool
}

func runAnalyze(o analyzeOpts) error {
	prog, err := loadImage(o.execFile)
	if err != nil {
		dccerr.Warn(dccerr.CannotOpen, o.execFile)
		return err
	}

	state := &image.State{}
	result := startup.Check(prog, state)

	summary := report.Summary{
		Input:      o.execFile,
		Provenance: result.Provenance,
		SigPath:    result.SigPath,
	}

	if o.showVer {
		fmt.Printf("compiler: vendor=%c version=%c\n", result.Provenance.Vendor, result.Provenance.Version)
	}
	if o.showModel {
		fmt.Printf("memory model: %c\n", result.Provenance.Model)
	}

	ctx, found, err := sig.Load(result.SigPath)
	if err != nil {
		dccerr.Fatal(dccerr.ConfigCorrupt, err.Error())
	}
	if !found {
		dccerr.Warn(dccerr.CannotOpen, result.SigPath)
	}

	protos, found, err := proto.Load(o.protoPath)
	if err != nil {
		dccerr.Fatal(dccerr.ConfigCorrupt, err.Error())
	}
	if !found {
		dccerr.Warn(dccerr.CannotOpen, o.protoPath)
	}

	if prog.OffMain == image.Unknown {
		dccerr.Warn(dccerr.MainNotLocated)
	} else {
		proc := &procedure.Record{Entry: uint32(prog.OffMain)}
		libmatch.Check(ctx, protos, prog, proc)
		st := longprop.Propagate(proc)
		summary.AddProcedure(proc.Entry, proc.Name, proc.Flags, st)

		if o.verbose {
			fmt.Printf("main: entry=%#x name=%q flags=%#x\n", proc.Entry, proc.Name, proc.Flags)
		}
		if o.showArgs {
			fmt.Printf("args: %v ret=%v\n", proc.Args, proc.RetType)
		}
		if o.showStruct && proc.CFG != nil {
			fmt.Printf("cfg: %d blocks\n", len(proc.CFG.Blocks))
		}
		if o.showICode {
			for i := 0; i < proc.NumIcode(); i++ {
				fmt.Printf("  %4d  %s\n", i, icode.Disassemble(proc.Inst(i)))
			}
		}
	}

	if o.reportPath != "" {
		f, err := os.Create(o.reportPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := report.WriteJSON(f, &summary); err != nil {
			return err
		}
	}

	return nil
}

func runBatch(dir, protoPath string, numWorkers int, resumePath, reportPath string) error {
	allPaths, err := listExecutables(dir)
	if err != nil {
		return err
	}

	var priorResults []batch.FileResult
	paths := allPaths
	if resumePath != "" {
		if ckpt, err := batch.LoadCheckpoint(resumePath); err == nil {
			priorResults = ckpt.Results
			paths = ckpt.Remaining()
		}
	}

	cfg := batch.Config{Paths: paths, ProtoPath: protoPath, NumWorkers: numWorkers, Verbose: true}
	pool, err := batch.NewPool(cfg)
	if err != nil {
		dccerr.Fatal(dccerr.ConfigCorrupt, err.Error())
	}

	fresh := pool.Run(cfg)
	results := append(priorResults, fresh...)
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	if resumePath != "" {
		ckpt := &batch.Checkpoint{Paths: allPaths, Results: results}
		if err := batch.SaveCheckpoint(resumePath, ckpt); err != nil {
			return err
		}
	}

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return err
		}
		defer f.Close()
		combined := report.Summary{Input: dir}
		for _, r := range results {
			combined.Procedures = append(combined.Procedures, r.Summary.Procedures...)
		}
		if err := report.WriteJSON(f, &combined); err != nil {
			return err
		}
	}

	for _, r := range results {
		if r.Err != "" {
			fmt.Printf("%s: %s\n", r.Path, r.Err)
		}
	}
	return nil
}

func runVerifySig(path string) error {
	ctx, found, err := sig.Load(path)
	if err != nil {
		dccerr.Fatal(dccerr.ConfigCorrupt, err.Error())
	}
	if !found {
		dccerr.Fatal(dccerr.CannotOpen, path)
	}
	fmt.Printf("numKeys=%d numVert=%d patLen=%d symLen=%d\n", ctx.NumKeys, ctx.NumVert, sig.PatLen, sig.SymLen)

	tmp, err := os.CreateTemp("", "dcc-verify-sig-*.sig")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := ctx.Encode(tmp); err != nil {
		return fmt.Errorf("re-encoding %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	reloaded, _, err := sig.Load(tmp.Name())
	if err != nil {
		return fmt.Errorf("reloading re-encoded signature file: %w", err)
	}
	if reloaded.NumKeys != ctx.NumKeys || reloaded.NumVert != ctx.NumVert {
		return fmt.Errorf("round trip mismatch: got numKeys=%d numVert=%d", reloaded.NumKeys, reloaded.NumVert)
	}
	fmt.Println("round trip OK")
	return nil
}

func loadImage(path string) (*image.Program, error) {
	if strings.EqualFold(filepath.Ext(path), ".com") {
		return image.LoadCOM(path)
	}
	return image.LoadMZ(path)
}

func listExecutables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".exe" || ext == ".com" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

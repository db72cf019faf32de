// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/runlog"
	"github.com/pdiddy/protquant/pkg/types"
)

// invocation is one recorded external-tool call.
type invocation struct {
	Dir  string
	Tool string
	Args []string
}

// fakeInvoker records invocations in order and delegates to a handler that
// simulates each tool's file side effects, optionally injecting a failure.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []invocation
	handler func(inv invocation) error
}

func (f *fakeInvoker) Run(ctx context.Context, dir, name string, args ...string) error {
	inv := invocation{Dir: dir, Tool: name, Args: args}
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()
	return f.handler(inv)
}

func (f *fakeInvoker) tools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Tool
	}
	return names
}

// argAfter returns the argument following the given flag.
func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const diannReport = `Protein.Group	Stripped.Sequence	Run	Precursor.Quantity
P1	AAAK	S1	100
P1	AAAK	S2	110
IS1	LLLK	S1	900
IS1	LLLK	S2	910
P2	DDDK	S2	70
`

const pdExport = `Annotated Sequence	Master Protein Accessions	Abundance: S1	Abundance: S2
[K].AAAK.[A]	P1	100	110
[R].DDDK.[G]	P2	30	70
`

// fixtures creates the on-disk science inputs shared by the scenarios.
type fixtures struct {
	inputDir string
	fasta    string
	totals   string
	pdFile   string
	library  string
	isConc   string
}

func setupFixtures(t *testing.T) fixtures {
	t.Helper()
	dir := t.TempDir()
	return fixtures{
		inputDir: dir,
		fasta: writeFile(t, filepath.Join(dir, "db.fasta"),
			">sp|P1|ONE_YEAST first\nMKAAAK\n>sp|P2|TWO_YEAST second\nMKDDDK\n>sp|IS1|IS_SPIKE standard\nMKLLLK\n"),
		totals: writeFile(t, filepath.Join(dir, "totals.csv"),
			"Sample,TotalProtein\nS1,120.5\nS2,98.0\n"),
		pdFile:  writeFile(t, filepath.Join(dir, "groups.tsv"), pdExport),
		library: writeFile(t, filepath.Join(dir, "lib.tsv"), "lib\n"),
		isConc: writeFile(t, filepath.Join(dir, "is_conc.csv"),
			"Protein,Concentration\nIS1,5.0\n"),
	}
}

// toolSim simulates the external tools' file side effects: search engines
// write their report, normalisers write their output table, the quant tool
// writes one concentration table per requested method.
func toolSim(t *testing.T, report string) func(inv invocation) error {
	t.Helper()
	return func(inv invocation) error {
		switch {
		case inv.Tool == "diann":
			return os.WriteFile(argAfter(inv.Args, "--out"), []byte(report), 0o644)
		case len(inv.Args) > 0 && strings.HasSuffix(inv.Args[0], "absquant.R"):
			experiment, intermediate := inv.Args[2], inv.Args[3]
			for _, m := range strings.Split(inv.Args[5], ",") {
				path := filepath.Join(intermediate, fmt.Sprintf("%s_prot_conc_%s.csv", experiment, m))
				if err := os.WriteFile(path, []byte("Protein,S1,S2\nP1,1.5,1.6\n"), 0o644); err != nil {
					return err
				}
			}
			return nil
		default:
			// Normalisation tool: output path is the final argument.
			out := inv.Args[len(inv.Args)-1]
			return os.WriteFile(out, []byte("Protein,Intensity\nP1,10\nP2,20\n"), 0o644)
		}
	}
}

func newRunner(f fixtures, cfg types.RunConfiguration, tools types.PipelineConfig, inv *fakeInvoker) *Runner {
	return &Runner{
		Config:  cfg,
		Tools:   tools,
		Invoker: inv,
		Out:     &bytes.Buffer{},
		Now:     func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) },
	}
}

// ledgerStageNames reads back the executed stage names of the single run
// recorded in runDir's ledger.
func ledgerStageNames(t *testing.T, runDir string) []string {
	t.Helper()
	store, err := runlog.Open(artifact.LedgerPathIn(runDir))
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	stages, err := store.Stages(context.Background(), runs[0].ID)
	require.NoError(t, err)
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

// Scenario: DDA, standard-free. Samples come from the total-protein file,
// no IS extraction runs, and one concentration table lands in the run root.
func TestRunDDAFree(t *testing.T) {
	f := setupFixtures(t)
	inv := &fakeInvoker{handler: toolSim(t, diannReport)}

	tools := types.DefaultPipelineConfig()
	tools.Methods = []types.Method{types.MethodTop3}

	runner := newRunner(f, types.RunConfiguration{
		Mode:             types.ModeDDA,
		Approach:         types.ApproachFree,
		ExperimentName:   "exp1",
		InputDir:         f.inputDir,
		FastaFile:        f.fasta,
		TotalProteinFile: f.totals,
		DDAResultsFile:   f.pdFile,
	}, tools, inv)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2"}, result.Samples)
	require.Len(t, result.Outputs, 1)
	final := result.Outputs[types.MethodTop3]
	assert.Equal(t, filepath.Join(result.RunDir, "exp1_prot_conc_Top3.csv"), final)
	if _, err := os.Stat(final); err != nil {
		t.Errorf("final table missing: %v", err)
	}

	// Only the normaliser and the quant tool launched; search was internal.
	assert.Equal(t, []string{"Rscript", "Rscript"}, inv.tools())

	names := ledgerStageNames(t, result.RunDir)
	assert.Equal(t, []string{
		"fasta-id", "samples-from-totals", "dda-convert", "primary-input",
		"normalize-Top3", "absolute-quant", "collect-outputs",
	}, names)

	// The free approach hands the quant tool the ID-only FASTA.
	quant := inv.calls[len(inv.calls)-1]
	assert.Equal(t, "free", quant.Args[1])
	assert.True(t, strings.HasSuffix(quant.Args[len(quant.Args)-1], "exp1_IDonly.fasta"))

	if _, err := os.Stat(filepath.Join(result.RunDir, "run.yaml")); err != nil {
		t.Errorf("run manifest missing: %v", err)
	}
}

// Scenario: DIA with DIA-NN, labelled standards. The stage list includes IS
// extraction, samples come from the report, and the quant tool receives the
// IS intensity table plus the concentration file.
func TestRunDIALabelOpenSource(t *testing.T) {
	f := setupFixtures(t)
	inv := &fakeInvoker{handler: toolSim(t, diannReport)}

	tools := types.DefaultPipelineConfig()
	tools.Methods = []types.Method{types.MethodTop3}

	runner := newRunner(f, types.RunConfiguration{
		Mode:                types.ModeDIA,
		Approach:            types.ApproachLabel,
		OpenSourceDIA:       true,
		ExperimentName:      "exp1",
		InputDir:            f.inputDir,
		FastaFile:           f.fasta,
		TotalProteinFile:    f.totals,
		SpectralLibraryFile: f.library,
		ISConcentrationFile: f.isConc,
	}, tools, inv)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2"}, result.Samples)
	assert.Equal(t, []string{"diann", "Rscript", "Rscript"}, inv.tools())
	assert.Equal(t, []string{
		"fasta-id", "diann-search", "samples-from-report", "is-extract",
		"primary-input", "normalize-Top3", "absolute-quant", "collect-outputs",
	}, ledgerStageNames(t, result.RunDir))

	intermediate := filepath.Join(result.RunDir, "intermediate_results")
	for _, name := range []string{"exp1_NL.tsv", "exp1_ISpep_int.csv"} {
		if _, err := os.Stat(filepath.Join(intermediate, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	// label passes the IS intensity table and the concentration file.
	quant := inv.calls[len(inv.calls)-1]
	n := len(quant.Args)
	assert.Equal(t, "label", quant.Args[1])
	assert.True(t, strings.HasSuffix(quant.Args[n-2], "exp1_ISpep_int.csv"))
	assert.Equal(t, f.isConc, quant.Args[n-1])
}

// A failing stage aborts the run; nothing scheduled after it executes.
func TestRunAbortsOnFirstFailure(t *testing.T) {
	f := setupFixtures(t)
	base := toolSim(t, diannReport)
	inv := &fakeInvoker{}
	inv.handler = func(call invocation) error {
		if len(call.Args) > 0 && strings.HasSuffix(call.Args[0], "Top3.R") {
			return fmt.Errorf("convergence failure")
		}
		return base(call)
	}

	tools := types.DefaultPipelineConfig()
	tools.Methods = []types.Method{types.MethodTop3, types.MethodIBAQ}

	runner := newRunner(f, types.RunConfiguration{
		Mode:             types.ModeDDA,
		Approach:         types.ApproachFree,
		ExperimentName:   "exp1",
		InputDir:         f.inputDir,
		FastaFile:        f.fasta,
		TotalProteinFile: f.totals,
		DDAResultsFile:   f.pdFile,
	}, tools, inv)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage normalize-Top3")

	// iBAQ and quant never launched.
	for _, call := range inv.calls {
		if len(call.Args) > 0 {
			assert.NotContains(t, call.Args[0], "iBAQ")
			assert.NotContains(t, call.Args[0], "absquant")
		}
	}

	// No manifest for a failed run.
	manifests, globErr := filepath.Glob(filepath.Join(f.inputDir, "*", "run.yaml"))
	require.NoError(t, globErr)
	assert.Empty(t, manifests)
}

// A tool that exits successfully but leaves a declared output missing is a
// stage failure, not a silent skip.
func TestRunFailsOnMissingDeclaredOutput(t *testing.T) {
	f := setupFixtures(t)
	base := toolSim(t, diannReport)
	inv := &fakeInvoker{}
	inv.handler = func(call invocation) error {
		if len(call.Args) > 0 && strings.HasSuffix(call.Args[0], "Top3.R") {
			return nil // exits zero, writes nothing
		}
		return base(call)
	}

	tools := types.DefaultPipelineConfig()
	tools.Methods = []types.Method{types.MethodTop3}

	runner := newRunner(f, types.RunConfiguration{
		Mode:             types.ModeDDA,
		Approach:         types.ApproachFree,
		ExperimentName:   "exp1",
		InputDir:         f.inputDir,
		FastaFile:        f.fasta,
		TotalProteinFile: f.totals,
		DDAResultsFile:   f.pdFile,
	}, tools, inv)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage normalize-Top3")
	assert.Contains(t, err.Error(), "protein intensities Top3")
}

// The quant tool producing only some of the expected per-method tables
// fails the run at the quant stage.
func TestRunFailsOnMissingQuantTable(t *testing.T) {
	f := setupFixtures(t)
	inv := &fakeInvoker{}
	inv.handler = func(call invocation) error {
		if len(call.Args) > 0 && strings.HasSuffix(call.Args[0], "absquant.R") {
			// Writes Top3 only, omitting iBAQ.
			path := filepath.Join(call.Args[3], "exp1_prot_conc_Top3.csv")
			return os.WriteFile(path, []byte("Protein,S1,S2\n"), 0o644)
		}
		return toolSim(t, diannReport)(call)
	}

	tools := types.DefaultPipelineConfig()
	tools.Methods = []types.Method{types.MethodTop3, types.MethodIBAQ}

	runner := newRunner(f, types.RunConfiguration{
		Mode:             types.ModeDDA,
		Approach:         types.ApproachFree,
		ExperimentName:   "exp1",
		InputDir:         f.inputDir,
		FastaFile:        f.fasta,
		TotalProteinFile: f.totals,
		DDAResultsFile:   f.pdFile,
	}, tools, inv)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage absolute-quant")
	assert.Contains(t, err.Error(), "iBAQ")
}

// Per-sample tools fan out once per sample and their outputs merge into the
// method's intensity table; a worker bound above one yields the same merge.
func TestRunPerSampleMethod(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			f := setupFixtures(t)
			base := toolSim(t, diannReport)
			inv := &fakeInvoker{}
			inv.handler = func(call invocation) error {
				if call.Tool == "lfaq" {
					out := call.Args[len(call.Args)-1]
					return os.WriteFile(out, []byte("Protein,Intensity\nP1,11\nP2,22\n"), 0o644)
				}
				return base(call)
			}

			tools := types.DefaultPipelineConfig()
			tools.Methods = []types.Method{types.MethodLFAQ}
			tools.MethodTools = map[types.Method]types.MethodToolConfig{
				types.MethodLFAQ: {Cmd: []string{"lfaq"}, PerSample: true},
			}
			tools.Workers = workers

			runner := newRunner(f, types.RunConfiguration{
				Mode:             types.ModeDDA,
				Approach:         types.ApproachFree,
				ExperimentName:   "exp1",
				InputDir:         f.inputDir,
				FastaFile:        f.fasta,
				TotalProteinFile: f.totals,
				DDAResultsFile:   f.pdFile,
			}, tools, inv)

			result, err := runner.Run(context.Background())
			require.NoError(t, err)

			lfaqCalls := 0
			for _, name := range inv.tools() {
				if name == "lfaq" {
					lfaqCalls++
				}
			}
			assert.Equal(t, 2, lfaqCalls, "one invocation per sample")

			merged := filepath.Join(result.RunDir, "intermediate_results", "exp1_prot_int_LFAQ.csv")
			data, err := os.ReadFile(merged)
			require.NoError(t, err)
			assert.Equal(t, "Protein,S1,S2\nP1,11,11\nP2,22,22\n", string(data))
		})
	}
}

// An invalid configuration aborts before any directory or process exists.
func TestRunRejectsInvalidConfiguration(t *testing.T) {
	f := setupFixtures(t)
	inv := &fakeInvoker{handler: func(invocation) error { return nil }}

	runner := newRunner(f, types.RunConfiguration{
		Mode:             "bogus",
		Approach:         types.ApproachFree,
		ExperimentName:   "exp1",
		InputDir:         f.inputDir,
		FastaFile:        f.fasta,
		TotalProteinFile: f.totals,
	}, types.DefaultPipelineConfig(), inv)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, inv.tools())

	entries, readErr := os.ReadDir(f.inputDir)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.False(t, e.IsDir(), "no run directory should exist, found %s", e.Name())
	}
}

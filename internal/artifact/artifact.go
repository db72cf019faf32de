// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact owns the naming convention that lets pipeline stages find
// each other's outputs without a shared database. Every path a stage reads or
// writes comes from here; no stage composes file names on its own.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/protquant/pkg/types"
)

// Engine tags which search engine produced the primary report. The tag is
// part of the report file name, so the values are fixed by the external
// tools' expectations.
type Engine string

const (
	EngineSpectronaut Engine = "SNreport"
	EngineDIANN       Engine = "DIANNreport"
	EnginePD          Engine = "PDreport"
)

// Logical artifact names used as RunContext keys. Stage definitions declare
// their inputs and outputs in these terms.
const (
	PrimaryReport = "primary report"
	InputReport   = "input report"
	ISIntensities = "IS intensities"
	IDFasta       = "ID-only FASTA"
	GeneratedLib  = "generated spectral library"
)

// ProtIntensity is the logical name of one method's normalised protein
// intensity table.
func ProtIntensity(m types.Method) string {
	return "protein intensities " + string(m)
}

// ProtConcentration is the logical name of one method's final concentration
// table.
func ProtConcentration(m types.Method) string {
	return "protein concentrations " + string(m)
}

// ResolutionError reports a logical artifact that could not be located,
// either because no stage recorded it or because the file is missing on disk.
type ResolutionError struct {
	Name string
	Path string // empty when the name was never recorded
}

func (e *ResolutionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("artifact %q was never produced", e.Name)
	}
	return fmt.Sprintf("artifact %q missing at %s", e.Name, e.Path)
}

// RunContext is the mutable state threaded through one pipeline execution:
// the run directories, the discovered sample identifiers, and the mapping
// from logical artifact name to resolved path. One RunContext serves exactly
// one run and is never shared across concurrent runs.
type RunContext struct {
	Experiment   string
	RunRoot      string
	Intermediate string

	// Samples holds the MS run identifiers in discovery order. Empty until
	// the search/conversion stage (or, for DDA, the total-protein file)
	// supplies them.
	Samples []string

	artifacts map[string]string
}

// timestampLayout renders run-start time as yyyyMMdd_HHmmss.
const timestampLayout = "20060102_150405"

// intermediateDir is the run-root subdirectory holding every intermediate
// artifact plus the wrapped tools' working directories.
const intermediateDir = "intermediate_results"

// NewRunContext computes the run directory layout for cfg at time now.
// It is pure: nothing is created on disk until CreateDirs.
func NewRunContext(cfg types.RunConfiguration, now time.Time) *RunContext {
	root := filepath.Join(cfg.InputDir, fmt.Sprintf("%s_%s_%s_%s",
		now.Format(timestampLayout), cfg.ExperimentName, cfg.Mode, cfg.Approach))
	return &RunContext{
		Experiment:   cfg.ExperimentName,
		RunRoot:      root,
		Intermediate: filepath.Join(root, intermediateDir),
		artifacts:    make(map[string]string),
	}
}

// CreateDirs creates the run root and the intermediate directory. Both
// creations must succeed and both directories must be new; an existing run
// root fails the whole run with no cleanup.
func (rc *RunContext) CreateDirs() error {
	for _, dir := range []string{rc.RunRoot, rc.Intermediate} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return fmt.Errorf("creating run directory %s: %w", dir, err)
		}
	}
	return nil
}

// Record registers the resolved path of a logical artifact. Later stages
// locate the artifact through Resolve; recording twice overwrites, which the
// sequential stage order never does for the same name.
func (rc *RunContext) Record(name, path string) {
	rc.artifacts[name] = path
}

// Resolve returns the recorded path of a logical artifact, verifying the
// file exists on disk.
func (rc *RunContext) Resolve(name string) (string, error) {
	path, ok := rc.artifacts[name]
	if !ok {
		return "", &ResolutionError{Name: name}
	}
	if _, err := os.Stat(path); err != nil {
		return "", &ResolutionError{Name: name, Path: path}
	}
	return path, nil
}

// Recorded reports whether a logical artifact has been recorded, without
// touching the filesystem.
func (rc *RunContext) Recorded(name string) bool {
	_, ok := rc.artifacts[name]
	return ok
}

// Artifacts returns a copy of the logical-name-to-path mapping, for the run
// manifest and the ledger.
func (rc *RunContext) Artifacts() map[string]string {
	out := make(map[string]string, len(rc.artifacts))
	for k, v := range rc.artifacts {
		out[k] = v
	}
	return out
}

// --- naming convention ---
//
// The literal file names below are interop contracts with the wrapped tools
// and the quantification scripts; they must not drift.

// SearchReportPath is the primary search report written by engine e.
func (rc *RunContext) SearchReportPath(e Engine) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_%s.tsv", rc.Experiment, e))
}

// SearchWorkDir is the directory handed to a search engine for its own
// output tree.
func (rc *RunContext) SearchWorkDir(e Engine) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_out", e))
}

// GeneratedLibPath is the spectral library DIA-NN predicts from FASTA in
// directDIA mode.
func (rc *RunContext) GeneratedLibPath() string {
	return filepath.Join(rc.Intermediate, rc.Experiment+"_lib.tsv")
}

// NLReportPath is the IS-subtracted ("no label") report.
func (rc *RunContext) NLReportPath() string {
	return filepath.Join(rc.Intermediate, rc.Experiment+"_NL.tsv")
}

// ISIntensityPath is the standalone internal-standard peptide intensity table.
func (rc *RunContext) ISIntensityPath() string {
	return filepath.Join(rc.Intermediate, rc.Experiment+"_ISpep_int.csv")
}

// IDFastaPath is the accession-only FASTA derived from the search database.
func (rc *RunContext) IDFastaPath() string {
	return filepath.Join(rc.Intermediate, rc.Experiment+"_IDonly.fasta")
}

// MethodInputPath is the shaped peptide-intensity input for one method.
func (rc *RunContext) MethodInputPath(m types.Method) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_pep_int_%s.csv", rc.Experiment, m))
}

// MethodSampleInputPath is the shaped per-sample input for a per-sample
// method tool. Sample-qualified so parallel workers never share a file.
func (rc *RunContext) MethodSampleInputPath(m types.Method, sample string) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_pep_int_%s_%s.csv", rc.Experiment, m, sample))
}

// MethodSampleOutputPath is the per-sample output of a per-sample method tool.
func (rc *RunContext) MethodSampleOutputPath(m types.Method, sample string) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_prot_int_%s_%s.csv", rc.Experiment, m, sample))
}

// ProtIntensityPath is one method's normalised protein intensity table.
func (rc *RunContext) ProtIntensityPath(m types.Method) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_prot_int_%s.csv", rc.Experiment, m))
}

// QuantOutputPath is where the quantification tool writes one method's
// concentration table, before collection.
func (rc *RunContext) QuantOutputPath(m types.Method) string {
	return filepath.Join(rc.Intermediate, fmt.Sprintf("%s_prot_conc_%s.csv", rc.Experiment, m))
}

// FinalConcentrationPath is the collected per-method concentration table in
// the run root.
func (rc *RunContext) FinalConcentrationPath(m types.Method) string {
	return filepath.Join(rc.RunRoot, fmt.Sprintf("%s_prot_conc_%s.csv", rc.Experiment, m))
}

// ManifestPath is the diagnostic run manifest written after a successful run.
func (rc *RunContext) ManifestPath() string {
	return filepath.Join(rc.RunRoot, "run.yaml")
}

// LedgerPath is the SQLite run ledger inside the intermediate directory.
func (rc *RunContext) LedgerPath() string {
	return LedgerPathIn(rc.RunRoot)
}

// LedgerPathIn locates the run ledger inside an existing run root, for
// inspecting past runs.
func LedgerPathIn(runRoot string) string {
	return filepath.Join(runRoot, intermediateDir, "runlog.db")
}

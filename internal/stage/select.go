// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stage

import (
	"context"
	"fmt"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/report"
	"github.com/pdiddy/protquant/pkg/types"
)

// Stage names, referenced by tests and ledger rows.
const (
	NameFastaID           = "fasta-id"
	NameSamplesFromTotals = "samples-from-totals"
	NameDDAConvert        = "dda-convert"
	NameDiannSearch       = "diann-search"
	NameDiannLibGen       = "diann-lib-gen"
	NameDiannLibSearch    = "diann-lib-search"
	NameDiannDirect       = "diann-direct"
	NameSpectronaut       = "spectronaut-search"
	NameSpectronautDirect = "spectronaut-direct"
	NameSamplesFromReport = "samples-from-report"
	NameISExtract         = "is-extract"
	NamePrimaryInput      = "primary-input"
	NameQuant             = "absolute-quant"
	NameCollect           = "collect-outputs"
)

// Select maps a validated configuration to the ordered stage list for one
// run. The ordering is the data-dependency order the runner executes; the
// per-method normalisation stages come from the configured method set, not
// from branching logic.
func Select(cfg types.RunConfiguration, tools types.PipelineConfig) []Stage {
	var stages []Stage
	for _, s := range searchPath(tools) {
		if s.When(cfg) {
			stages = append(stages, s)
		}
	}
	methods := tools.ActiveMethods()
	for _, m := range methods {
		stages = append(stages, normalizeStage(m, tools))
	}
	stages = append(stages, quantStage(methods, tools), collectStage(methods))
	return stages
}

// searchPath is the static stage table up to and including primary-input
// selection. Predicates reproduce the mode/approach/openSourceDIA decision
// table; order within the slice is execution order.
func searchPath(tools types.PipelineConfig) []Stage {
	return []Stage{
		{
			Name:     NameFastaID,
			Produces: []string{artifact.IDFasta},
			When:     always,
			Run:      runFastaID,
		},
		{
			// DDA sample identifiers come from the total-protein file
			// because the conversion stage itself needs the sample list.
			Name: NameSamplesFromTotals,
			When: func(cfg types.RunConfiguration) bool { return cfg.Mode == types.ModeDDA },
			Run:  runSamplesFromTotals,
		},
		{
			Name:     NameDDAConvert,
			Produces: []string{artifact.PrimaryReport},
			When:     func(cfg types.RunConfiguration) bool { return cfg.Mode == types.ModeDDA },
			Run:      runDDAConvert,
		},
		{
			Name:     NameDiannSearch,
			Tool:     tools.Diann.Bin,
			Produces: []string{artifact.PrimaryReport},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Mode == types.ModeDIA && cfg.OpenSourceDIA
			},
			Run: func(ctx context.Context, env *Env) error {
				return runDiannLibrarySearch(ctx, env, env.Config.SpectralLibraryFile)
			},
		},
		{
			Name:     NameSpectronaut,
			Tool:     tools.Spectronaut.Bin,
			Produces: []string{artifact.PrimaryReport},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Mode == types.ModeDIA && !cfg.OpenSourceDIA
			},
			Run: func(ctx context.Context, env *Env) error {
				return runSpectronaut(ctx, env, env.Config.SpectralLibraryFile)
			},
		},
		{
			Name:     NameDiannLibGen,
			Tool:     tools.Diann.Bin,
			Produces: []string{artifact.GeneratedLib},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Mode == types.ModeDirectDIA && cfg.OpenSourceDIA &&
					cfg.Approach == types.ApproachLabel
			},
			Run: runDiannLibraryGen,
		},
		{
			Name:     NameDiannLibSearch,
			Tool:     tools.Diann.Bin,
			Needs:    []string{artifact.GeneratedLib},
			Produces: []string{artifact.PrimaryReport},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Mode == types.ModeDirectDIA && cfg.OpenSourceDIA &&
					cfg.Approach == types.ApproachLabel
			},
			Run: func(ctx context.Context, env *Env) error {
				lib, err := env.RC.Resolve(artifact.GeneratedLib)
				if err != nil {
					return err
				}
				return runDiannLibrarySearch(ctx, env, lib)
			},
		},
		{
			Name:     NameDiannDirect,
			Tool:     tools.Diann.Bin,
			Produces: []string{artifact.PrimaryReport, artifact.GeneratedLib},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Mode == types.ModeDirectDIA && cfg.OpenSourceDIA &&
					cfg.Approach != types.ApproachLabel
			},
			Run: runDiannDirect,
		},
		{
			Name:     NameSpectronautDirect,
			Tool:     tools.Spectronaut.Bin,
			Produces: []string{artifact.PrimaryReport},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Mode == types.ModeDirectDIA && !cfg.OpenSourceDIA
			},
			Run: func(ctx context.Context, env *Env) error {
				return runSpectronaut(ctx, env, env.Config.BgsFastaFile)
			},
		},
		{
			Name:  NameSamplesFromReport,
			Needs: []string{artifact.PrimaryReport},
			When:  func(cfg types.RunConfiguration) bool { return cfg.Mode != types.ModeDDA },
			Run:   runSamplesFromReport,
		},
		{
			Name:     NameISExtract,
			Needs:    []string{artifact.PrimaryReport},
			Produces: []string{artifact.ISIntensities},
			When: func(cfg types.RunConfiguration) bool {
				return cfg.Approach == types.ApproachLabel
			},
			Run: runISExtract,
		},
		{
			Name:     NamePrimaryInput,
			Needs:    []string{artifact.PrimaryReport},
			Produces: []string{artifact.InputReport},
			When:     always,
			Run:      runPrimaryInput,
		},
	}
}

// runFastaID converts the search FASTA to the accession-only variant several
// downstream tools require.
func runFastaID(ctx context.Context, env *Env) error {
	out := env.RC.IDFastaPath()
	if err := report.StripFastaIDs(env.Config.FastaFile, out); err != nil {
		return err
	}
	env.RC.Record(artifact.IDFasta, out)
	return nil
}

// runSamplesFromTotals reads the sample identifiers from the total-protein
// file (DDA mode).
func runSamplesFromTotals(ctx context.Context, env *Env) error {
	samples, err := report.SamplesFromTotalProtein(env.Config.TotalProteinFile)
	if err != nil {
		return err
	}
	env.RC.Samples = samples
	return nil
}

// runSamplesFromReport derives the sample identifiers from the primary
// report's sample column (DIA and directDIA modes).
func runSamplesFromReport(ctx context.Context, env *Env) error {
	primary, err := env.RC.Resolve(artifact.PrimaryReport)
	if err != nil {
		return err
	}
	schema, err := report.EngineSchema(EngineFor(env.Config))
	if err != nil {
		return err
	}
	samples, err := report.Samples(primary, schema)
	if err != nil {
		return err
	}
	env.RC.Samples = samples
	return nil
}

// runISExtract subtracts internal-standard peptide intensities from the
// primary report, producing the NL report and the IS intensity table.
func runISExtract(ctx context.Context, env *Env) error {
	primary, err := env.RC.Resolve(artifact.PrimaryReport)
	if err != nil {
		return err
	}
	schema, err := report.EngineSchema(EngineFor(env.Config))
	if err != nil {
		return err
	}
	nl := env.RC.NLReportPath()
	isInt := env.RC.ISIntensityPath()
	if err := report.ExtractIS(primary, schema, env.Config.ISConcentrationFile, nl, isInt); err != nil {
		return fmt.Errorf("extracting internal standards: %w", err)
	}
	env.RC.Record(artifact.ISIntensities, isInt)
	return nil
}

// runPrimaryInput records which report feeds normalisation: the
// IS-subtracted report for the label approach, the primary report otherwise.
func runPrimaryInput(ctx context.Context, env *Env) error {
	if env.Config.Approach == types.ApproachLabel {
		env.RC.Record(artifact.InputReport, env.RC.NLReportPath())
		return nil
	}
	primary, err := env.RC.Resolve(artifact.PrimaryReport)
	if err != nil {
		return err
	}
	env.RC.Record(artifact.InputReport, primary)
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/report"
	"github.com/pdiddy/protquant/pkg/types"
)

// diannSettings picks the DIA-NN settings profile for the approach: the
// isotope-labelled profile for label, the plain one otherwise.
func diannSettings(env *Env) string {
	if env.Config.Approach == types.ApproachLabel {
		return env.Tools.Diann.SettingsLabel
	}
	return env.Tools.Diann.Settings
}

// spectronautSettings picks the Spectronaut analysis schema analogously.
func spectronautSettings(env *Env) string {
	if env.Config.Approach == types.ApproachLabel {
		return env.Tools.Spectronaut.SettingsLabel
	}
	return env.Tools.Spectronaut.Settings
}

// withProfile appends a --cfg flag when a settings profile is configured.
func withProfile(args []string, profile string) []string {
	if profile != "" {
		args = append(args, "--cfg", profile)
	}
	return args
}

// runDiannLibrarySearch runs DIA-NN against an existing spectral library and
// records the report.
func runDiannLibrarySearch(ctx context.Context, env *Env, library string) error {
	out := env.RC.SearchReportPath(artifact.EngineDIANN)
	args := withProfile([]string{
		"--dir", env.Config.InputDir,
		"--lib", library,
		"--fasta", env.Config.FastaFile,
		"--out", out,
	}, diannSettings(env))
	if err := env.Invoker.Run(ctx, env.RC.Intermediate, env.Tools.Diann.Bin, args...); err != nil {
		return err
	}
	env.RC.Record(artifact.PrimaryReport, out)
	return nil
}

// runDiannLibraryGen predicts a spectral library from the FASTA file
// (directDIA first pass, labelled settings).
func runDiannLibraryGen(ctx context.Context, env *Env) error {
	lib := env.RC.GeneratedLibPath()
	args := withProfile([]string{
		"--fasta", env.Config.FastaFile,
		"--fasta-search",
		"--predictor",
		"--gen-spec-lib",
		"--out-lib", lib,
	}, diannSettings(env))
	if err := env.Invoker.Run(ctx, env.RC.Intermediate, env.Tools.Diann.Bin, args...); err != nil {
		return err
	}
	env.RC.Record(artifact.GeneratedLib, lib)
	return nil
}

// runDiannDirect runs the directDIA single pass producing report and library
// in one invocation.
func runDiannDirect(ctx context.Context, env *Env) error {
	out := env.RC.SearchReportPath(artifact.EngineDIANN)
	lib := env.RC.GeneratedLibPath()
	args := withProfile([]string{
		"--dir", env.Config.InputDir,
		"--fasta", env.Config.FastaFile,
		"--fasta-search",
		"--gen-spec-lib",
		"--out-lib", lib,
		"--out", out,
	}, diannSettings(env))
	if err := env.Invoker.Run(ctx, env.RC.Intermediate, env.Tools.Diann.Bin, args...); err != nil {
		return err
	}
	env.RC.Record(artifact.GeneratedLib, lib)
	env.RC.Record(artifact.PrimaryReport, out)
	return nil
}

// runSpectronaut runs a Spectronaut pass with the given analysis source
// (spectral library for DIA, .bgsfasta for directDIA) and relocates the
// report to the canonical path. Spectronaut names its export after the
// experiment inside its own output directory; when that convention does not
// hold the run fails with an artifact resolution error.
func runSpectronaut(ctx context.Context, env *Env, analysisSource string) error {
	workDir := env.RC.SearchWorkDir(artifact.EngineSpectronaut)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating Spectronaut output directory: %w", err)
	}

	args := []string{
		"-d", env.Config.InputDir,
		"-a", analysisSource,
		"-o", workDir,
		"-n", env.Config.ExperimentName,
		"-t", "raw",
	}
	if profile := spectronautSettings(env); profile != "" {
		args = append(args, "-s", profile)
	}
	if err := env.Invoker.Run(ctx, env.RC.Intermediate, env.Tools.Spectronaut.Bin, args...); err != nil {
		return err
	}

	produced := spectronautExportPath(workDir, env.Config.ExperimentName)
	canonical := env.RC.SearchReportPath(artifact.EngineSpectronaut)
	if _, err := os.Stat(produced); err != nil {
		return &artifact.ResolutionError{Name: artifact.PrimaryReport, Path: produced}
	}
	if err := os.Rename(produced, canonical); err != nil {
		return fmt.Errorf("relocating Spectronaut report: %w", err)
	}
	env.RC.Record(artifact.PrimaryReport, canonical)
	return nil
}

// spectronautExportPath is where Spectronaut writes its report export.
func spectronautExportPath(workDir, experiment string) string {
	return filepath.Join(workDir, experiment+"_Report.tsv")
}

// runDDAConvert converts the Proteome Discoverer export into the normalised
// DDA report using the sample list discovered from the total-protein file.
func runDDAConvert(ctx context.Context, env *Env) error {
	out := env.RC.SearchReportPath(artifact.EnginePD)
	if err := report.ConvertPDExport(env.Config.DDAResultsFile, env.RC.Samples, out); err != nil {
		return err
	}
	env.RC.Record(artifact.PrimaryReport, out)
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/protquant/internal/pipeline"
	"github.com/pdiddy/protquant/internal/tool"
	"github.com/pdiddy/protquant/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full quantification pipeline",
	Long: `Run validates the mode/approach/flag combination, creates a timestamped
run directory inside the input directory, executes the selected stages in
dependency order, and collects one protein concentration table per active
normalisation method into the run root.

The run aborts on the first validation failure or stage failure; partial
intermediate files are left in place for inspection.`,
	RunE: runPipeline,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the per-run science inputs shared by run and plan.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "acquisition mode: DDA, DIA, or directDIA (required)")
	cmd.Flags().String("approach", "", "quantification approach: label, unlabel, or free (required)")
	cmd.Flags().Bool("open-source-dia", false, "use DIA-NN instead of Spectronaut for DIA searches")
	cmd.Flags().String("input-dir", "", "directory holding the raw MS data (required)")
	cmd.Flags().String("experiment", "", "experiment name prefixing every artifact (required)")
	cmd.Flags().String("fasta", "", "search database FASTA file (required)")
	cmd.Flags().String("total-protein", "", "per-sample total protein amount file (required)")
	cmd.Flags().String("dda-results", "", "Proteome Discoverer peptide-groups export (DDA mode)")
	cmd.Flags().String("spectral-library", "", "spectral library file (DIA mode)")
	cmd.Flags().String("bgs-fasta", "", "Spectronaut .bgsfasta background proteome (directDIA without --open-source-dia)")
	cmd.Flags().String("is-concentration", "", "internal-standard concentration file (label and unlabel approaches)")

	cmd.MarkFlagRequired("mode")
	cmd.MarkFlagRequired("approach")
	cmd.MarkFlagRequired("input-dir")
	cmd.MarkFlagRequired("experiment")
	cmd.MarkFlagRequired("fasta")
	cmd.MarkFlagRequired("total-protein")
}

// runConfigFromFlags builds the immutable run configuration from the
// command's flags. Validation happens in the pipeline, not here.
func runConfigFromFlags(cmd *cobra.Command) types.RunConfiguration {
	mode, _ := cmd.Flags().GetString("mode")
	approach, _ := cmd.Flags().GetString("approach")
	openSource, _ := cmd.Flags().GetBool("open-source-dia")
	inputDir, _ := cmd.Flags().GetString("input-dir")
	experiment, _ := cmd.Flags().GetString("experiment")
	fasta, _ := cmd.Flags().GetString("fasta")
	totalProtein, _ := cmd.Flags().GetString("total-protein")
	ddaResults, _ := cmd.Flags().GetString("dda-results")
	library, _ := cmd.Flags().GetString("spectral-library")
	bgsFasta, _ := cmd.Flags().GetString("bgs-fasta")
	isConc, _ := cmd.Flags().GetString("is-concentration")

	return types.RunConfiguration{
		Mode:                types.Mode(mode),
		Approach:            types.Approach(approach),
		OpenSourceDIA:       openSource,
		InputDir:            inputDir,
		ExperimentName:      experiment,
		FastaFile:           fasta,
		TotalProteinFile:    totalProtein,
		DDAResultsFile:      ddaResults,
		SpectralLibraryFile: library,
		BgsFastaFile:        bgsFasta,
		ISConcentrationFile: isConc,
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	runner := &pipeline.Runner{
		Config:  runConfigFromFlags(cmd),
		Tools:   pipelineConfig(),
		Invoker: tool.New(),
		Out:     os.Stdout,
	}

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	methods := make([]string, 0, len(result.Outputs))
	for m := range result.Outputs {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Printf("  %s: %s\n", m, result.Outputs[types.Method(m)])
	}
	return nil
}

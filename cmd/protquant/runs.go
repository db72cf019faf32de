// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the ledger of a past run directory",
	Long: `Runs reads the SQLite ledger inside a run directory and prints the run
row and its executed stages with status and duration, for post-mortem
inspection of failed or finished runs.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("run-dir", "", "run root directory (required)")
	runsCmd.MarkFlagRequired("run-dir")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	runDir, _ := cmd.Flags().GetString("run-dir")

	store, err := runlog.Open(artifact.LedgerPathIn(runDir))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no runs recorded in %s", runDir)
	}

	for _, r := range runs {
		fmt.Printf("%s  %s %s/%s  %s\n", r.ID, r.Experiment, r.Mode, r.Approach, r.Status)
		stages, err := store.Stages(cmd.Context(), r.ID)
		if err != nil {
			return err
		}
		for _, s := range stages {
			line := fmt.Sprintf("  %2d. %-22s %-7s %v", s.Position+1, s.Name, s.Status, s.Duration)
			if s.Error != "" {
				line += "  " + s.Error
			}
			fmt.Println(line)
		}
	}
	return nil
}

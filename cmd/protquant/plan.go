// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/protquant/internal/config"
	"github.com/pdiddy/protquant/internal/stage"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the stage list a run would execute, without executing it",
	Long: `Plan validates the configuration and prints the ordered stage list the
run command would execute for it - the decision table made visible. No
directory is created and no external tool is launched.`,
	RunE: runPlan,
}

func init() {
	addRunFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg := runConfigFromFlags(cmd)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	stages := stage.Select(cfg, pipelineConfig())
	fmt.Printf("%s %s/%s: %d stages\n", cfg.ExperimentName, cfg.Mode, cfg.Approach, len(stages))
	for i, s := range stages {
		kind := "internal"
		if !s.Internal() {
			kind = s.Tool
		}
		fmt.Printf("%2d. %-22s %s\n", i+1, s.Name, kind)
		if len(s.Needs) > 0 {
			fmt.Printf("      needs:    %s\n", strings.Join(s.Needs, ", "))
		}
		if len(s.Produces) > 0 {
			fmt.Printf("      produces: %s\n", strings.Join(s.Produces, ", "))
		}
	}
	return nil
}

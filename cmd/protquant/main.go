// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the protquant CLI, the orchestrator of
// the multi-stage proteomics absolute-quantification pipeline. Each wrapped
// analysis tool (search engines, normalisation scripts, the quantification
// routine) is configured in protquant.yaml; the science inputs of one run
// are flags on the run and plan commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/protquant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the protquant CLI.
var rootCmd = &cobra.Command{
	Use:   "protquant",
	Short: "Orchestrate proteomics absolute-quantification workflows",
	Long: `protquant drives a sequence of external proteomics tools - spectral search
engines (DIA-NN, Spectronaut), peptide-to-protein normalisation algorithms,
and an absolute-quantification routine - and stitches their file-based
outputs into per-algorithm protein concentration tables.

The stage sequence is decided from three inputs: the acquisition mode
(DDA, DIA, directDIA), the quantification approach (label, unlabel, free),
and whether the open-source DIA search engine is selected.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./protquant.yaml or ~/.config/protquant/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("protquant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "protquant"))
		}
	}

	viper.SetEnvPrefix("PROTQUANT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the tool configuration from viper, starting from
// the on-PATH defaults.
func pipelineConfig() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	if v := viper.GetString("tools.diann.bin"); v != "" {
		cfg.Diann.Bin = v
	}
	cfg.Diann.Settings = viper.GetString("tools.diann.settings")
	cfg.Diann.SettingsLabel = viper.GetString("tools.diann.settings_label")

	if v := viper.GetString("tools.spectronaut.bin"); v != "" {
		cfg.Spectronaut.Bin = v
	}
	cfg.Spectronaut.Settings = viper.GetString("tools.spectronaut.settings")
	cfg.Spectronaut.SettingsLabel = viper.GetString("tools.spectronaut.settings_label")

	if v := viper.GetStringSlice("tools.quant.cmd"); len(v) > 0 {
		cfg.Quant.Cmd = v
	}

	cfg.MethodTools = make(map[types.Method]types.MethodToolConfig)
	for _, m := range types.AllMethods() {
		key := "tools.methods." + string(m)
		if cmd := viper.GetStringSlice(key + ".cmd"); len(cmd) > 0 {
			cfg.MethodTools[m] = types.MethodToolConfig{
				Cmd:       cmd,
				PerSample: viper.GetBool(key + ".per_sample"),
			}
		}
	}

	for _, name := range viper.GetStringSlice("methods") {
		cfg.Methods = append(cfg.Methods, types.Method(name))
	}
	if v := viper.GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

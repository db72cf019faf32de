// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config validates the per-run input combination before the pipeline
// touches disk or launches any external tool.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/protquant/pkg/types"
)

// ConfigurationError reports the first violated validation rule. Validation
// is fail-fast: no later rules are evaluated and no aggregate report exists.
type ConfigurationError struct {
	// Field names the offending input (flag name without dashes).
	Field string

	// Reason describes the violated precondition.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate checks that cfg is a well-formed mode/approach/flag combination
// and that every conditionally-required input is present. Rules run in a
// fixed order and the first violation wins. Validate never writes to the
// filesystem; the only read is the existence check on the DDA results file.
func Validate(cfg types.RunConfiguration) error {
	if !cfg.Mode.Valid() {
		return &ConfigurationError{
			Field:  "mode",
			Reason: fmt.Sprintf("%q is not one of DDA, DIA, directDIA", cfg.Mode),
		}
	}
	if !cfg.Approach.Valid() {
		return &ConfigurationError{
			Field:  "approach",
			Reason: fmt.Sprintf("%q is not one of label, unlabel, free", cfg.Approach),
		}
	}

	if cfg.Mode == types.ModeDDA {
		if cfg.DDAResultsFile == "" {
			return &ConfigurationError{
				Field:  "dda-results",
				Reason: "required when mode is DDA",
			}
		}
		if _, err := os.Stat(cfg.DDAResultsFile); err != nil {
			return &ConfigurationError{
				Field:  "dda-results",
				Reason: fmt.Sprintf("%s does not exist", cfg.DDAResultsFile),
			}
		}
	}

	if cfg.Mode == types.ModeDIA && cfg.SpectralLibraryFile == "" {
		return &ConfigurationError{
			Field:  "spectral-library",
			Reason: "required when mode is DIA",
		}
	}

	if cfg.Mode == types.ModeDirectDIA && !cfg.OpenSourceDIA {
		if cfg.BgsFastaFile == "" {
			return &ConfigurationError{
				Field:  "bgs-fasta",
				Reason: "required when mode is directDIA and Spectronaut is selected",
			}
		}
		if !strings.Contains(cfg.BgsFastaFile, types.BgsFastaSuffix) {
			return &ConfigurationError{
				Field:  "bgs-fasta",
				Reason: fmt.Sprintf("%s is not a %s file", cfg.BgsFastaFile, types.BgsFastaSuffix),
			}
		}
	}

	if cfg.Approach.UsesStandards() && cfg.ISConcentrationFile == "" {
		return &ConfigurationError{
			Field:  "is-concentration",
			Reason: fmt.Sprintf("required when approach is %s", cfg.Approach),
		}
	}

	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/pkg/types"
)

// manifest is the diagnostic run summary written to the run root after a
// successful run. Nothing in the pipeline reads it back; artifact locations
// remain defined by the naming convention alone.
type manifest struct {
	Experiment    string            `yaml:"experiment"`
	Mode          string            `yaml:"mode"`
	Approach      string            `yaml:"approach"`
	OpenSourceDIA bool              `yaml:"open_source_dia"`
	StartedAt     string            `yaml:"started_at"`
	FinishedAt    string            `yaml:"finished_at"`
	Samples       []string          `yaml:"samples"`
	Methods       []string          `yaml:"methods"`
	Artifacts     map[string]string `yaml:"artifacts"`
}

func writeManifest(rc *artifact.RunContext, cfg types.RunConfiguration,
	tools types.PipelineConfig, started, finished time.Time) error {

	methods := tools.ActiveMethods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}

	m := manifest{
		Experiment:    cfg.ExperimentName,
		Mode:          string(cfg.Mode),
		Approach:      string(cfg.Approach),
		OpenSourceDIA: cfg.OpenSourceDIA,
		StartedAt:     started.UTC().Format(time.RFC3339),
		FinishedAt:    finished.UTC().Format(time.RFC3339),
		Samples:       rc.Samples,
		Methods:       names,
		Artifacts:     rc.Artifacts(),
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encoding run manifest: %w", err)
	}
	if err := os.WriteFile(rc.ManifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing run manifest: %w", err)
	}
	return nil
}

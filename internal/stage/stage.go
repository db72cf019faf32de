// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stage defines the pipeline's units of work and the decision logic
// selecting which of them execute for a given run configuration. Stages are
// declared statically; selection is a pure function of the configuration, so
// the whole decision table is testable without touching any external tool.
package stage

import (
	"context"
	"io"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/tool"
	"github.com/pdiddy/protquant/pkg/types"
)

// Env is the execution environment handed to every stage: the immutable run
// configuration, the tool locations, the per-run context, the invoker, and
// the progress writer.
type Env struct {
	Config  types.RunConfiguration
	Tools   types.PipelineConfig
	RC      *artifact.RunContext
	Invoker tool.Invoker
	Log     io.Writer
}

// Stage is one named unit of pipeline work. When decides selection, Needs
// and Produces declare data dependencies in logical artifact names, and Run
// performs the work. Tool names the external binary for display; internal
// stages leave it empty.
type Stage struct {
	Name     string
	Tool     string
	Needs    []string
	Produces []string
	When     func(cfg types.RunConfiguration) bool
	Run      func(ctx context.Context, env *Env) error
}

// Internal reports whether the stage runs inside the orchestrator rather
// than launching an external tool.
func (s Stage) Internal() bool { return s.Tool == "" }

// EngineFor returns the search engine that produces the primary report for
// the given configuration.
func EngineFor(cfg types.RunConfiguration) artifact.Engine {
	switch {
	case cfg.Mode == types.ModeDDA:
		return artifact.EnginePD
	case cfg.OpenSourceDIA:
		return artifact.EngineDIANN
	default:
		return artifact.EngineSpectronaut
	}
}

// always selects a stage for every configuration.
func always(types.RunConfiguration) bool { return true }

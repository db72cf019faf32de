// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/report"
	"github.com/pdiddy/protquant/pkg/types"
)

// normalizeStage builds the stage running one normalisation method's
// external tool over the primary input report.
func normalizeStage(m types.Method, cfg types.PipelineConfig) Stage {
	tc := cfg.MethodTool(m)
	return Stage{
		Name:     "normalize-" + string(m),
		Tool:     tc.Cmd[0],
		Needs:    []string{artifact.InputReport, artifact.IDFasta},
		Produces: []string{artifact.ProtIntensity(m)},
		When:     always,
		Run: func(ctx context.Context, env *Env) error {
			if tc.PerSample {
				return runMethodPerSample(ctx, env, m, tc)
			}
			return runMethodGlobal(ctx, env, m, tc)
		},
	}
}

// methodArgs completes a method tool's argv with input, ID FASTA, and output
// paths. The configured prefix is copied so concurrent workers never share a
// backing array.
func methodArgs(tc types.MethodToolConfig, input, idFasta, output string) []string {
	args := make([]string, 0, len(tc.Cmd)+2)
	args = append(args, tc.Cmd[1:]...)
	return append(args, input, idFasta, output)
}

// runMethodGlobal shapes the input report for the method and invokes its
// tool once for the whole run.
func runMethodGlobal(ctx context.Context, env *Env, m types.Method, tc types.MethodToolConfig) error {
	input, err := env.RC.Resolve(artifact.InputReport)
	if err != nil {
		return err
	}
	idFasta, err := env.RC.Resolve(artifact.IDFasta)
	if err != nil {
		return err
	}
	schema, err := report.EngineSchema(EngineFor(env.Config))
	if err != nil {
		return err
	}

	shaped := env.RC.MethodInputPath(m)
	if err := report.ShapeForMethod(input, schema, env.RC.Samples, shaped); err != nil {
		return fmt.Errorf("shaping input for %s: %w", m, err)
	}

	out := env.RC.ProtIntensityPath(m)
	args := methodArgs(tc, shaped, idFasta, out)
	if err := env.Invoker.Run(ctx, env.RC.Intermediate, tc.Cmd[0], args...); err != nil {
		return err
	}
	env.RC.Record(artifact.ProtIntensity(m), out)
	return nil
}

// runMethodPerSample fans the method's tool out over the sample list, one
// invocation per sample, bounded by the configured worker count, then merges
// the per-sample outputs into the method's intensity table. Workers write
// only sample-qualified paths, so no two share a destination file.
func runMethodPerSample(ctx context.Context, env *Env, m types.Method, tc types.MethodToolConfig) error {
	input, err := env.RC.Resolve(artifact.InputReport)
	if err != nil {
		return err
	}
	idFasta, err := env.RC.Resolve(artifact.IDFasta)
	if err != nil {
		return err
	}
	schema, err := report.EngineSchema(EngineFor(env.Config))
	if err != nil {
		return err
	}

	workers := env.Tools.Workers
	if workers < 1 {
		workers = 1
	}

	outputs := make(map[string]string, len(env.RC.Samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, sample := range env.RC.Samples {
		sample := sample
		shaped := env.RC.MethodSampleInputPath(m, sample)
		out := env.RC.MethodSampleOutputPath(m, sample)
		outputs[sample] = out
		g.Go(func() error {
			if err := report.ShapeForSample(input, schema, sample, shaped); err != nil {
				return fmt.Errorf("shaping input for %s sample %s: %w", m, sample, err)
			}
			args := methodArgs(tc, shaped, idFasta, out)
			return env.Invoker.Run(gctx, env.RC.Intermediate, tc.Cmd[0], args...)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := env.RC.ProtIntensityPath(m)
	if err := report.MergePerSample(outputs, env.RC.Samples, merged); err != nil {
		return fmt.Errorf("merging %s outputs: %w", m, err)
	}
	env.RC.Record(artifact.ProtIntensity(m), merged)
	return nil
}

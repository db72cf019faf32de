// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/pkg/types"
)

// QuantOutput is the logical name of one method's concentration table as
// written by the quantification tool, before collection into the run root.
func QuantOutput(m types.Method) string {
	return "quant output " + string(m)
}

// quantStage builds the absolute-quantification stage: one invocation
// consuming the normalised intensities of every active method.
func quantStage(methods []types.Method, cfg types.PipelineConfig) Stage {
	needs := []string{artifact.IDFasta}
	produces := make([]string, 0, len(methods))
	for _, m := range methods {
		needs = append(needs, artifact.ProtIntensity(m))
		produces = append(produces, QuantOutput(m))
	}
	return Stage{
		Name:     "absolute-quant",
		Tool:     cfg.Quant.Cmd[0],
		Needs:    needs,
		Produces: produces,
		When:     always,
		Run: func(ctx context.Context, env *Env) error {
			return runQuant(ctx, env, methods)
		},
	}
}

// runQuant invokes the quantification tool with the approach label,
// experiment name, intermediate directory, sample and method lists, the
// total-protein file, and the approach-specific standard inputs.
func runQuant(ctx context.Context, env *Env, methods []types.Method) error {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}

	args := make([]string, 0, len(env.Tools.Quant.Cmd)+8)
	args = append(args, env.Tools.Quant.Cmd[1:]...)
	args = append(args,
		string(env.Config.Approach),
		env.Config.ExperimentName,
		env.RC.Intermediate,
		strings.Join(env.RC.Samples, ","),
		strings.Join(names, ","),
		env.Config.TotalProteinFile,
	)
	switch env.Config.Approach {
	case types.ApproachLabel:
		isInt, err := env.RC.Resolve(artifact.ISIntensities)
		if err != nil {
			return err
		}
		args = append(args, isInt, env.Config.ISConcentrationFile)
	case types.ApproachUnlabel:
		args = append(args, env.Config.ISConcentrationFile)
	case types.ApproachFree:
		idFasta, err := env.RC.Resolve(artifact.IDFasta)
		if err != nil {
			return err
		}
		args = append(args, idFasta)
	}

	if err := env.Invoker.Run(ctx, env.RC.Intermediate, env.Tools.Quant.Cmd[0], args...); err != nil {
		return err
	}
	for _, m := range methods {
		env.RC.Record(QuantOutput(m), env.RC.QuantOutputPath(m))
	}
	return nil
}

// collectStage builds the final output-collection stage: each per-method
// concentration table is copied from the quantification tool's output
// location into the run root. A missing table is a stage failure.
func collectStage(methods []types.Method) Stage {
	needs := make([]string, len(methods))
	produces := make([]string, len(methods))
	for i, m := range methods {
		needs[i] = QuantOutput(m)
		produces[i] = artifact.ProtConcentration(m)
	}
	return Stage{
		Name:     "collect-outputs",
		Needs:    needs,
		Produces: produces,
		When:     always,
		Run: func(ctx context.Context, env *Env) error {
			for _, m := range methods {
				src, err := env.RC.Resolve(QuantOutput(m))
				if err != nil {
					return err
				}
				dst := env.RC.FinalConcentrationPath(m)
				if err := copyFile(src, dst); err != nil {
					return fmt.Errorf("collecting %s table: %w", m, err)
				}
				env.RC.Record(artifact.ProtConcentration(m), dst)
			}
			return nil
		},
	}
}

// copyFile copies src to dst, truncating dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

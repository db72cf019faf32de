// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline executes the selected stages of one quantification run in
// dependency order, verifying each stage's declared inputs and outputs and
// aborting on the first failure. Directories already created and partial
// intermediate files are left in place for post-mortem inspection.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/internal/config"
	"github.com/pdiddy/protquant/internal/runlog"
	"github.com/pdiddy/protquant/internal/stage"
	"github.com/pdiddy/protquant/internal/tool"
	"github.com/pdiddy/protquant/pkg/types"
)

// Runner drives one pipeline execution.
type Runner struct {
	Config  types.RunConfiguration
	Tools   types.PipelineConfig
	Invoker tool.Invoker

	// Out receives human-readable progress lines.
	Out io.Writer

	// Now supplies the run timestamp; nil means time.Now. Tests pin it to
	// make run directories predictable.
	Now func() time.Time
}

// RunResult enumerates what a successful run produced.
type RunResult struct {
	RunDir  string
	Samples []string

	// Outputs maps each executed normalisation method to its final
	// concentration table in the run root.
	Outputs map[types.Method]string
}

// Run validates the configuration, creates the run directories, and executes
// the selected stages sequentially. The first validation failure or stage
// failure aborts the run; nothing is rolled back.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if err := config.Validate(r.Config); err != nil {
		return nil, err
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	rc := artifact.NewRunContext(r.Config, started)
	if err := rc.CreateDirs(); err != nil {
		return nil, err
	}
	fmt.Fprintf(r.Out, "run directory: %s\n", rc.RunRoot)

	ledger := r.openLedger(rc, started)
	if ledger != nil {
		defer ledger.Close()
	}

	env := &stage.Env{
		Config:  r.Config,
		Tools:   r.Tools,
		RC:      rc,
		Invoker: r.Invoker,
		Log:     r.Out,
	}

	stages := stage.Select(r.Config, r.Tools)
	for i, s := range stages {
		if err := r.runStage(ctx, env, ledger, i, s, now); err != nil {
			if ledger != nil {
				r.warnOnLedgerError(ledger.FinishRun(ctx, runlog.StatusFailed, now()))
			}
			return nil, err
		}
	}

	if ledger != nil {
		r.warnOnLedgerError(ledger.RecordArtifacts(ctx, rc.Artifacts()))
		r.warnOnLedgerError(ledger.FinishRun(ctx, runlog.StatusOK, now()))
	}
	if err := writeManifest(rc, r.Config, r.Tools, started, now()); err != nil {
		return nil, err
	}

	outputs := make(map[types.Method]string)
	for _, m := range r.Tools.ActiveMethods() {
		path, err := rc.Resolve(artifact.ProtConcentration(m))
		if err != nil {
			return nil, err
		}
		outputs[m] = path
	}
	fmt.Fprintf(r.Out, "done: %d concentration tables in %s\n", len(outputs), rc.RunRoot)
	return &RunResult{RunDir: rc.RunRoot, Samples: rc.Samples, Outputs: outputs}, nil
}

// runStage checks the stage's declared inputs, executes it, verifies its
// declared outputs exist, and appends the outcome to the ledger.
func (r *Runner) runStage(ctx context.Context, env *stage.Env, ledger *runlog.Store,
	position int, s stage.Stage, now func() time.Time) error {

	for _, need := range s.Needs {
		if _, err := env.RC.Resolve(need); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name, err)
		}
	}

	if s.Tool != "" {
		fmt.Fprintf(r.Out, "==> %s (%s)\n", s.Name, s.Tool)
	} else {
		fmt.Fprintf(r.Out, "==> %s\n", s.Name)
	}

	start := now()
	err := s.Run(ctx, env)
	if err == nil {
		// A stage that reports success but left a declared output missing
		// failed all the same.
		for _, produced := range s.Produces {
			if _, rerr := env.RC.Resolve(produced); rerr != nil {
				err = rerr
				break
			}
		}
	}
	elapsed := now().Sub(start)

	if ledger != nil {
		rec := runlog.StageRecord{
			Position: position,
			Name:     s.Name,
			Tool:     s.Tool,
			Status:   runlog.StatusOK,
			Duration: elapsed,
		}
		if err != nil {
			rec.Status = runlog.StatusFailed
			rec.Error = err.Error()
		}
		r.warnOnLedgerError(ledger.RecordStage(ctx, rec))
	}

	if err != nil {
		return fmt.Errorf("stage %s: %w", s.Name, err)
	}
	return nil
}

// openLedger opens the run ledger. Ledger trouble never aborts a science
// run; a nil store disables recording for the rest of the run.
func (r *Runner) openLedger(rc *artifact.RunContext, started time.Time) *runlog.Store {
	ledger, err := runlog.Open(rc.LedgerPath())
	if err != nil {
		fmt.Fprintf(r.Out, "warning: run ledger unavailable: %v\n", err)
		return nil
	}
	if _, err := ledger.BeginRun(context.Background(), r.Config, started); err != nil {
		fmt.Fprintf(r.Out, "warning: run ledger unavailable: %v\n", err)
		ledger.Close()
		return nil
	}
	return ledger
}

func (r *Runner) warnOnLedgerError(err error) {
	if err != nil {
		fmt.Fprintf(r.Out, "warning: run ledger: %v\n", err)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tool launches external analysis programs synchronously and surfaces
// their failures. Every wrapped tool (search engines, normalisation scripts,
// the quantification routine) goes through the one Invoker so tests can stub
// process execution with a recorder.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// InvocationError reports an external tool that exited non-zero or could not
// be started. Output carries the tail of the child's combined output for
// post-mortem inspection.
type InvocationError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *InvocationError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Tool, e.Err, e.Output)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Invoker runs an external program to completion in a working directory.
// A nil return means the program exited successfully.
type Invoker interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// outputTail is the number of trailing output bytes kept for error reporting.
const outputTail = 4096

// execInvoker is the production Invoker backed by os/exec. Cancelling the
// context kills the child process.
type execInvoker struct{}

// New returns the production Invoker.
func New() Invoker {
	return &execInvoker{}
}

func (execInvoker) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &InvocationError{
			Tool:   name,
			Args:   args,
			Output: tail(out.String()),
			Err:    err,
		}
	}
	return nil
}

// tail returns the last outputTail bytes of s, trimmed.
func tail(s string) string {
	if len(s) > outputTail {
		s = s[len(s)-outputTail:]
	}
	return strings.TrimSpace(s)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	inv := New()

	// The child runs in the requested working directory.
	if err := inv.Run(context.Background(), dir, "sh", "-c", "pwd > marker.txt"); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker.txt")); err != nil {
		t.Errorf("child did not run in %s: %v", dir, err)
	}
}

func TestRunFailure(t *testing.T) {
	inv := New()
	err := inv.Run(context.Background(), t.TempDir(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("Run() succeeded for a failing command")
	}

	var ierr *InvocationError
	if !errors.As(err, &ierr) {
		t.Fatalf("Run() = %T, want InvocationError", err)
	}
	if ierr.Tool != "sh" {
		t.Errorf("Tool = %q", ierr.Tool)
	}
	if !strings.Contains(ierr.Output, "boom") {
		t.Errorf("Output = %q, want captured stderr", ierr.Output)
	}
	if !strings.Contains(ierr.Error(), "boom") {
		t.Errorf("Error() = %q, want output included", ierr.Error())
	}
}

func TestRunMissingBinary(t *testing.T) {
	inv := New()
	err := inv.Run(context.Background(), t.TempDir(), "no-such-binary-protquant")
	var ierr *InvocationError
	if !errors.As(err, &ierr) {
		t.Fatalf("Run() = %T, want InvocationError", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Run(ctx, t.TempDir(), "sh", "-c", "sleep 10"); err == nil {
		t.Fatal("Run() succeeded under a cancelled context")
	}
}

func TestTail(t *testing.T) {
	long := strings.Repeat("a", outputTail+100) + "end"
	got := tail(long)
	if len(got) > outputTail {
		t.Errorf("tail kept %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "end") {
		t.Errorf("tail dropped the end of the output")
	}
}

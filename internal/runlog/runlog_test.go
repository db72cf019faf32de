// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/protquant/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	cfg := types.RunConfiguration{
		Mode:           types.ModeDIA,
		Approach:       types.ApproachLabel,
		ExperimentName: "yeast48",
	}
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	id, err := s.BeginRun(ctx, cfg, started)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stages := []StageRecord{
		{Position: 0, Name: "fasta-id", Status: StatusOK, Duration: 12 * time.Millisecond},
		{Position: 1, Name: "diann-search", Tool: "diann", Status: StatusOK, Duration: 90 * time.Second},
		{Position: 2, Name: "is-extract", Status: StatusFailed, Error: "no matching standards"},
	}
	for _, rec := range stages {
		require.NoError(t, s.RecordStage(ctx, rec))
	}
	require.NoError(t, s.RecordArtifacts(ctx, map[string]string{
		"primary report": "/runs/x/intermediate_results/yeast48_DIANNreport.tsv",
	}))
	require.NoError(t, s.FinishRun(ctx, StatusFailed, started.Add(2*time.Minute)))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "yeast48", runs[0].Experiment)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, started, runs[0].StartedAt)
	assert.False(t, runs[0].FinishedAt.IsZero())

	got, err := s.Stages(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "diann-search", got[1].Name)
	assert.Equal(t, "diann", got[1].Tool)
	assert.Equal(t, 90*time.Second, got[1].Duration)
	assert.Equal(t, "no matching standards", got[2].Error)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening an existing ledger keeps its schema.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Runs(context.Background())
	assert.NoError(t, err)
}

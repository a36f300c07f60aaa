package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	rec := NewRecord("job-1", time.Now())
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 0, got.Progress)

	require.NoError(t, store.UpdateProgress(ctx, "job-1", PhaseFrontend, 20, "Generating frontend code"))
	got, err = store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, PhaseFrontend, got.Phase)
	assert.Equal(t, 20, got.Progress)

	result := &Result{Files: []GeneratedFile{{Path: "a.ts"}}, ProviderUsed: "openai (gpt-4o)"}
	require.NoError(t, store.Complete(ctx, "job-1", result))
	got, err = store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Result)
	assert.Len(t, got.Result.Files, 1)
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTerminalStateIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Create(ctx, NewRecord("job-1", time.Now())))
	require.NoError(t, store.Fail(ctx, "job-1", PhaseBackend, "provider timeout"))

	// A straggling phase goroutine must not revive a failed job.
	require.NoError(t, store.UpdateProgress(ctx, "job-1", PhaseIntegration, 60, "Integrating"))
	require.NoError(t, store.Complete(ctx, "job-1", &Result{}))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, PhaseBackend, got.Phase)
	assert.Equal(t, "provider timeout", got.Error)
	assert.Nil(t, got.Result)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(24 * time.Hour)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Create(ctx, NewRecord("job-1", clock)))

	clock = clock.Add(25 * time.Hour)
	_, err := store.Get(ctx, "job-1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.UpdateProgress(ctx, "job-1", PhaseFrontend, 20, "late update")
	assert.ErrorIs(t, err, ErrNotFound)
}

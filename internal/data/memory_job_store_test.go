package data

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

func testJob(jobID string) *model.PublishingJob {
	return &model.PublishingJob{
		JobID:      jobID,
		ContentID:  "content-1",
		Platforms:  []model.Platform{model.PlatformTwitter},
		Priority:   50,
		MaxRetries: 3,
		Status:     model.JobStatusPending,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Results:    make(map[model.Platform]model.PublishingResult),
	}
}

func TestMemoryJobStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore(MemoryJobStoreOptions{})

	require.NoError(t, store.Put(ctx, testJob("job-1")))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, model.JobStatusPending, got.Status)

	t.Run("duplicate put conflicts", func(t *testing.T) {
		err := store.Put(ctx, testJob("job-1"))
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("missing job not found", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestMemoryJobStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore(MemoryJobStoreOptions{})
	require.NoError(t, store.Put(ctx, testJob("job-1")))

	first, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	first.Status = model.JobStatusCancelled
	first.Platforms[0] = model.PlatformFacebook
	first.Results[model.PlatformTwitter] = model.PublishingResult{Success: true}

	second, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, second.Status)
	assert.Equal(t, []model.Platform{model.PlatformTwitter}, second.Platforms)
	assert.Empty(t, second.Results)
}

func TestMemoryJobStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore(MemoryJobStoreOptions{})
	require.NoError(t, store.Put(ctx, testJob("job-1")))

	updated, err := store.Update(ctx, "job-1", func(job *model.PublishingJob) error {
		job.Status = model.JobStatusPublishing
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPublishing, updated.Status)

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPublishing, got.Status)

	t.Run("fn error discards the write", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := store.Update(ctx, "job-1", func(job *model.PublishingJob) error {
			job.Status = model.JobStatusFailed
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPublishing, got.Status)
	})

	t.Run("missing job not found", func(t *testing.T) {
		_, err := store.Update(ctx, "nope", func(*model.PublishingJob) error { return nil })
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestMemoryJobStoreRetention(t *testing.T) {
	ctx := context.Background()
	tp := NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryJobStore(MemoryJobStoreOptions{CompletedTTL: time.Hour, TimeProvider: tp})

	require.NoError(t, store.Put(ctx, testJob("terminal")))
	require.NoError(t, store.Put(ctx, testJob("active")))

	_, err := store.Update(ctx, "terminal", func(job *model.PublishingJob) error {
		job.Status = model.JobStatusCompleted
		return nil
	})
	require.NoError(t, err)

	// Still within retention.
	tp.Advance(30 * time.Minute)
	_, err = store.Get(ctx, "terminal")
	require.NoError(t, err)

	// Past retention the terminal job is gone but the active one survives.
	tp.Advance(31 * time.Minute)
	_, err = store.Get(ctx, "terminal")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Get(ctx, "active")
	require.NoError(t, err)
}

func TestMemoryJobStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore(MemoryJobStoreOptions{})
	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		job := testJob(fmt.Sprintf("done-%d", i))
		job.Status = model.JobStatusCompleted
		done := completedAt
		job.CompletedAt = &done
		require.NoError(t, store.Put(ctx, job))
	}
	recent := testJob("recent")
	recent.Status = model.JobStatusCompleted
	later := completedAt.Add(48 * time.Hour)
	recent.CompletedAt = &later
	require.NoError(t, store.Put(ctx, recent))
	require.NoError(t, store.Put(ctx, testJob("running")))

	cutoff := completedAt.Add(24 * time.Hour)

	t.Run("honors batch size", func(t *testing.T) {
		deleted, err := store.DeleteExpired(ctx, cutoff, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)
	})

	t.Run("deletes the rest and spares live jobs", func(t *testing.T) {
		deleted, err := store.DeleteExpired(ctx, cutoff, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = store.Get(ctx, "recent")
		require.NoError(t, err)
		_, err = store.Get(ctx, "running")
		require.NoError(t, err)
	})
}

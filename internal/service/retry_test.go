package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	"github.com/crosspost-labs/publisher-go/internal/testutil"
)

func TestRetryPolicyDelayDoubles(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Minute}

	assert.Equal(t, 1*time.Minute, policy.Delay(0))
	assert.Equal(t, 2*time.Minute, policy.Delay(1))
	assert.Equal(t, 4*time.Minute, policy.Delay(2))
	assert.Equal(t, 8*time.Minute, policy.Delay(3))
}

func TestRetryPolicyDelayCap(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Minute, MaxDelay: 5 * time.Minute}

	assert.Equal(t, 4*time.Minute, policy.Delay(2))
	assert.Equal(t, 5*time.Minute, policy.Delay(3))
	assert.Equal(t, 5*time.Minute, policy.Delay(10))
}

func TestRetryPolicyDecide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := RetryPolicy{BaseDelay: time.Minute}

	sched := model.PostingSchedule{
		Platform:    model.PlatformTwitter,
		ContentID:   "content-1",
		ScheduledAt: now,
		RetryCount:  1,
		MaxRetries:  3,
	}

	t.Run("retryable with budget", func(t *testing.T) {
		d := policy.Decide(now, sched, model.ErrorKindNetwork)
		require.True(t, d.Retry)
		assert.Equal(t, now.Add(2*time.Minute), d.RetryAt)
	})

	t.Run("non-retryable kind", func(t *testing.T) {
		assert.False(t, policy.Decide(now, sched, model.ErrorKindAuthentication).Retry)
		assert.False(t, policy.Decide(now, sched, model.ErrorKindContentValidation).Retry)
	})

	t.Run("budget exhausted", func(t *testing.T) {
		spent := sched
		spent.RetryCount = 3
		assert.False(t, policy.Decide(now, spent, model.ErrorKindNetwork).Retry)
	})
}

type retryFixture struct {
	retries *RetryService
	tracker *TrackerService
	store   *data.MemoryJobStore
	queue   *data.MemoryScheduleQueue
	tp      *data.FixedTimeProvider
}

func newRetryFixture(t *testing.T) *retryFixture {
	t.Helper()

	tp := data.NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := data.NewMemoryJobStore(data.MemoryJobStoreOptions{TimeProvider: tp})
	queue := data.NewMemoryScheduleQueue()
	tracker := NewTrackerService(TrackerServiceOptions{Store: store, TimeProvider: tp})
	retries := NewRetryService(RetryServiceOptions{
		Policy:       RetryPolicy{BaseDelay: time.Minute},
		Queue:        queue,
		Tracker:      tracker,
		TimeProvider: tp,
	})
	return &retryFixture{retries: retries, tracker: tracker, store: store, queue: queue, tp: tp}
}

func TestHandleFailureRequeuesWithBackoff(t *testing.T) {
	ctx := context.Background()
	f := newRetryFixture(t)

	job := testutil.NewJob("job-1").Build()
	require.NoError(t, f.store.Put(ctx, job))

	sched := model.PostingSchedule{
		Platform:    model.PlatformTwitter,
		ContentID:   job.ContentID,
		ScheduledAt: f.tp.Now(),
		MaxRetries:  3,
	}
	retried, err := f.retries.HandleFailure(ctx, job.JobID, sched, model.FailureResult(model.ErrorKindNetwork, "down"))
	require.NoError(t, err)
	assert.True(t, retried)

	// The schedule comes back with an incremented count and backoff timing.
	due, err := f.queue.DequeueDue(ctx, f.tp.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Schedule.RetryCount)
	assert.Equal(t, f.tp.Now().Add(time.Minute), due[0].Schedule.ScheduledAt)

	// The failed attempt is visible on the snapshot but not final.
	stored, err := f.store.Get(ctx, job.JobID)
	require.NoError(t, err)
	res := stored.Results[model.PlatformTwitter]
	assert.False(t, res.Final)
	assert.Equal(t, model.ErrorKindNetwork, res.ErrorKind)
	assert.False(t, stored.Terminal())
}

func TestHandleFailureTerminalOnNonRetryableKind(t *testing.T) {
	ctx := context.Background()
	f := newRetryFixture(t)

	job := testutil.NewJob("job-1").Build()
	require.NoError(t, f.store.Put(ctx, job))

	sched := model.PostingSchedule{
		Platform:    model.PlatformTwitter,
		ContentID:   job.ContentID,
		ScheduledAt: f.tp.Now(),
		MaxRetries:  3,
	}
	retried, err := f.retries.HandleFailure(ctx, job.JobID, sched,
		model.FailureResult(model.ErrorKindAuthentication, "bad token"))
	require.NoError(t, err)
	assert.False(t, retried)

	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	stored, err := f.store.Get(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, stored.Status)
	assert.True(t, stored.Results[model.PlatformTwitter].Final)
}

func TestHandleFailureTerminalWhenBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	f := newRetryFixture(t)

	job := testutil.NewJob("job-1").Build()
	require.NoError(t, f.store.Put(ctx, job))

	sched := model.PostingSchedule{
		Platform:    model.PlatformTwitter,
		ContentID:   job.ContentID,
		ScheduledAt: f.tp.Now(),
		RetryCount:  3,
		MaxRetries:  3,
	}
	retried, err := f.retries.HandleFailure(ctx, job.JobID, sched,
		model.FailureResult(model.ErrorKindRateLimit, "still throttled"))
	require.NoError(t, err)
	assert.False(t, retried)

	stored, err := f.store.Get(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, stored.Status)
}

func TestHandleFailureSkipsRequeueForCancelledJob(t *testing.T) {
	ctx := context.Background()
	f := newRetryFixture(t)

	job := testutil.NewJob("job-1").WithStatus(model.JobStatusCancelled).Build()
	require.NoError(t, f.store.Put(ctx, job))

	sched := model.PostingSchedule{
		Platform:    model.PlatformTwitter,
		ContentID:   job.ContentID,
		ScheduledAt: f.tp.Now(),
		MaxRetries:  3,
	}
	retried, err := f.retries.HandleFailure(ctx, job.JobID, sched,
		model.FailureResult(model.ErrorKindNetwork, "down"))
	require.NoError(t, err)
	assert.False(t, retried)

	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth, "cancelled job must not be requeued")
}

package queueloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/adapters/platform"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	"github.com/crosspost-labs/publisher-go/internal/service"
	"github.com/crosspost-labs/publisher-go/internal/testutil"
)

type loopFixture struct {
	runner  *Runner
	store   *data.MemoryJobStore
	queue   *data.MemoryScheduleQueue
	content *data.MemoryContentStore
	twitter *testutil.FakePlatformClient
	tp      *data.FixedTimeProvider
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()

	tp := data.NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := data.NewMemoryJobStore(data.MemoryJobStoreOptions{TimeProvider: tp})
	queue := data.NewMemoryScheduleQueue()
	content := data.NewMemoryContentStore()
	twitter := testutil.NewFakePlatformClient(model.PlatformTwitter)
	registry := platform.NewRegistry(twitter)

	tracker := service.NewTrackerService(service.TrackerServiceOptions{
		Store:        store,
		TimeProvider: tp,
	})
	retries := service.NewRetryService(service.RetryServiceOptions{
		Queue:        queue,
		Tracker:      tracker,
		TimeProvider: tp,
	})
	dispatcher := service.NewDispatcherService(service.DispatcherServiceOptions{
		Registry:     registry,
		Credentials:  testutil.StaticCredentials{Creds: model.Credentials{AccessToken: "token-1"}},
		Content:      content,
		Tracker:      tracker,
		Retries:      retries,
		TimeProvider: tp,
	})

	runner, err := NewRunner(RunnerOptions{
		Queue:      queue,
		Store:      store,
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Interval:   5 * time.Millisecond,
	})
	require.NoError(t, err)

	return &loopFixture{
		runner:  runner,
		store:   store,
		queue:   queue,
		content: content,
		twitter: twitter,
		tp:      tp,
	}
}

// seedScheduledJob stores a scheduled job, caches its content, and enqueues
// one schedule entry per platform, mirroring what Submit does.
func (f *loopFixture) seedScheduledJob(t *testing.T, jobID string, at time.Time, platforms ...model.Platform) {
	t.Helper()
	ctx := context.Background()

	if len(platforms) == 0 {
		platforms = []model.Platform{model.PlatformTwitter}
	}
	job := testutil.NewJob(jobID).
		WithStatus(model.JobStatusScheduled).
		WithPlatforms(platforms...).
		Build()
	require.NoError(t, f.content.Cache(ctx, testutil.ReadyContent(job.ContentID), at))
	require.NoError(t, f.store.Put(ctx, job))
	for _, p := range platforms {
		require.NoError(t, f.queue.Enqueue(ctx, jobID, model.PostingSchedule{
			Platform:    p,
			ContentID:   job.ContentID,
			ScheduledAt: at,
			Priority:    job.Priority,
			MaxRetries:  job.MaxRetries,
		}))
	}
}

func TestTickDispatchesDueEntries(t *testing.T) {
	f := newLoopFixture(t)
	ctx := context.Background()
	now := f.tp.Now()

	f.seedScheduledJob(t, "job-1", now.Add(-time.Minute))
	f.seedScheduledJob(t, "job-2", now.Add(time.Hour))

	dispatched, err := f.runner.Tick(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)

	job, err := f.store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.True(t, job.Results[model.PlatformTwitter].Success)

	// The future job was not touched.
	job, err = f.store.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusScheduled, job.Status)
	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestTickEmptyQueue(t *testing.T) {
	f := newLoopFixture(t)

	dispatched, err := f.runner.Tick(context.Background(), f.tp.Now())
	require.NoError(t, err)
	assert.Zero(t, dispatched)
}

func TestTickDropsOrphanedEntries(t *testing.T) {
	f := newLoopFixture(t)
	ctx := context.Background()
	now := f.tp.Now()

	// A queue entry whose job record no longer exists.
	require.NoError(t, f.queue.Enqueue(ctx, "gone", model.PostingSchedule{
		Platform:    model.PlatformTwitter,
		ContentID:   "content-1",
		ScheduledAt: now.Add(-time.Minute),
		MaxRetries:  3,
	}))

	dispatched, err := f.runner.Tick(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, dispatched)
	assert.Empty(t, f.twitter.PublishCalls())

	// The entry is consumed, not requeued.
	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestTickSkipsTerminalJobs(t *testing.T) {
	f := newLoopFixture(t)
	ctx := context.Background()
	now := f.tp.Now()

	f.seedScheduledJob(t, "job-1", now.Add(-time.Minute))
	_, err := f.store.Update(ctx, "job-1", func(job *model.PublishingJob) error {
		job.Status = model.JobStatusCancelled
		return nil
	})
	require.NoError(t, err)

	dispatched, err := f.runner.Tick(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, dispatched)
	assert.Empty(t, f.twitter.PublishCalls())
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- f.runner.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunDispatchesOverTime(t *testing.T) {
	f := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.seedScheduledJob(t, "job-1", f.tp.Now().Add(-time.Minute))

	done := make(chan error, 1)
	go func() {
		done <- f.runner.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.Get(context.Background(), "job-1")
		require.NoError(t, err)
		if job.Status == model.JobStatusCompleted {
			cancel()
			require.NoError(t, <-done)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scheduled job was not dispatched by the loop")
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	"github.com/crosspost-labs/publisher-go/internal/observability/notify"
	"github.com/crosspost-labs/publisher-go/internal/testutil"
)

type trackerFixture struct {
	tracker *TrackerService
	store   *data.MemoryJobStore
	sink    *testutil.CaptureSink
	tp      *data.FixedTimeProvider
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()

	tp := data.NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := data.NewMemoryJobStore(data.MemoryJobStoreOptions{TimeProvider: tp})
	sink := &testutil.CaptureSink{}
	notifier := NewStatusNotifyService(StatusNotifyOptions{Sinks: []notify.Sink{sink}})
	tracker := NewTrackerService(TrackerServiceOptions{
		Store:        store,
		Notifier:     notifier,
		TimeProvider: tp,
	})
	return &trackerFixture{tracker: tracker, store: store, sink: sink, tp: tp}
}

func waitForEvents(t *testing.T, sink *testutil.CaptureSink, n int) []notify.StatusChangeEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.Events(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d notification(s), got %d", n, len(sink.Events()))
	return nil
}

func TestRecordFirstResultMarksPublishing(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	job := testutil.NewJob("job-1").WithPlatforms(model.PlatformTwitter, model.PlatformFacebook).Build()
	require.NoError(t, f.store.Put(ctx, job))

	updated, err := f.tracker.Record(ctx, RecordParams{
		JobID:    job.JobID,
		Platform: model.PlatformTwitter,
		Result:   model.SuccessResult(job.ContentID, "t-1", f.tp.Now()),
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusPublishing, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.True(t, updated.Results[model.PlatformTwitter].Success)
	assert.Nil(t, updated.CompletedAt)
	assert.Empty(t, f.sink.Events(), "no notification before the job settles")
}

func TestRecordFinalizesWhenAllPlatformsSettle(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	job := testutil.NewJob("job-1").WithPlatforms(model.PlatformTwitter, model.PlatformFacebook).Build()
	require.NoError(t, f.store.Put(ctx, job))

	_, err := f.tracker.Record(ctx, RecordParams{
		JobID:    job.JobID,
		Platform: model.PlatformTwitter,
		Result:   model.SuccessResult(job.ContentID, "t-1", f.tp.Now()),
	})
	require.NoError(t, err)

	failure := model.FailureResult(model.ErrorKindAPIError, "boom")
	failure.Final = true
	updated, err := f.tracker.Record(ctx, RecordParams{
		JobID:    job.JobID,
		Platform: model.PlatformFacebook,
		Result:   failure,
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusPartiallyCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Contains(t, updated.Errors, "facebook: boom")

	events := waitForEvents(t, f.sink, 1)
	assert.Equal(t, job.JobID, events[0].JobID)
	assert.Equal(t, model.JobStatusPartiallyCompleted, events[0].Status)
	assert.Len(t, events[0].Outcomes, 2)
}

func TestRecordDiscardsLateResultForTerminalJob(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	job := testutil.NewJob("job-1").WithStatus(model.JobStatusCancelled).Build()
	require.NoError(t, f.store.Put(ctx, job))

	updated, err := f.tracker.Record(ctx, RecordParams{
		JobID:    job.JobID,
		Platform: model.PlatformTwitter,
		Result:   model.SuccessResult(job.ContentID, "t-1", f.tp.Now()),
	})
	require.NoError(t, err)
	assert.Nil(t, updated, "late result must be discarded, not an error")

	stored, err := f.store.Get(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, stored.Status)
	assert.Empty(t, stored.Results)
}

func TestRecordRejectsUntargetedPlatform(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	job := testutil.NewJob("job-1").WithPlatforms(model.PlatformTwitter).Build()
	require.NoError(t, f.store.Put(ctx, job))

	_, err := f.tracker.Record(ctx, RecordParams{
		JobID:    job.JobID,
		Platform: model.PlatformLinkedIn,
		Result:   model.SuccessResult(job.ContentID, "l-1", f.tp.Now()),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	job := testutil.NewJob("job-1").Build()
	require.NoError(t, f.store.Put(ctx, job))

	cancelled, err := f.tracker.Cancel(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	events := waitForEvents(t, f.sink, 1)
	assert.Equal(t, model.JobStatusCancelled, events[0].Status)

	// Cancelling again is rejected.
	_, err = f.tracker.Cancel(ctx, job.JobID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotCancellable(err))
}

func TestCancelUnknownJob(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	_, err := f.tracker.Cancel(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMarkPublishing(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	job := testutil.NewJob("job-1").WithStatus(model.JobStatusScheduled).Build()
	require.NoError(t, f.store.Put(ctx, job))

	updated, err := f.tracker.MarkPublishing(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPublishing, updated.Status)
	require.NotNil(t, updated.StartedAt)

	// Terminal jobs are untouched and reported as discarded.
	_, err = f.tracker.Cancel(ctx, job.JobID)
	require.NoError(t, err)
	skipped, err := f.tracker.MarkPublishing(ctx, job.JobID)
	require.NoError(t, err)
	assert.Nil(t, skipped)
}

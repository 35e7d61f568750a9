// Package service provides the business logic of the publishing scheduler:
// job coordination, platform fan-out, retry policy, and status tracking.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	"github.com/crosspost-labs/publisher-go/internal/observability/notify"
)

// TrackerService owns all PublishingJob mutation: it lands per-platform
// results on the snapshot, aggregates overall status once every platform is
// settled, and emits the terminal status-change notification. All writes are
// serialized per job id (single-writer discipline).
type TrackerService struct {
	store    core.JobStore
	locks    *jobLocks
	notifier *StatusNotifyService
	tp       data.TimeProvider
	logger   *slog.Logger
}

// TrackerServiceOptions groups dependencies for TrackerService.
type TrackerServiceOptions struct {
	Store        core.JobStore
	Notifier     *StatusNotifyService
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// NewTrackerService creates a TrackerService.
func NewTrackerService(opts TrackerServiceOptions) *TrackerService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TrackerService{
		store:    opts.Store,
		locks:    newJobLocks(),
		notifier: opts.Notifier,
		tp:       opts.TimeProvider,
		logger:   opts.Logger.With("component", "status_tracker"),
	}
}

// RecordParams groups parameters for Record.
type RecordParams struct {
	JobID    string
	Platform model.Platform
	Result   model.PublishingResult
}

// Record writes the platform result onto the job snapshot and finalizes the
// job if every platform is settled. Results arriving after the job reached a
// terminal state (a cancel racing an in-flight attempt) are discarded; the
// method then returns (nil, nil).
func (s *TrackerService) Record(ctx context.Context, params RecordParams) (*model.PublishingJob, error) {
	unlock := s.locks.Lock(params.JobID)
	defer unlock()

	now := s.tp.Now()
	job, err := s.store.Update(ctx, params.JobID, func(job *model.PublishingJob) error {
		if job.Terminal() {
			return core.ErrAbortUpdate
		}
		if !job.HasPlatform(params.Platform) {
			return apperrors.Internalf("result for platform %s not targeted by job %s", params.Platform, job.JobID)
		}

		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		if job.Status == model.JobStatusPending || job.Status == model.JobStatusScheduled {
			job.Status = model.JobStatusPublishing
		}

		job.Results[params.Platform] = params.Result
		if !params.Result.Success && params.Result.ErrorMessage != "" {
			job.Errors = append(job.Errors,
				fmt.Sprintf("%s: %s", params.Platform, params.Result.ErrorMessage))
		}

		if job.AllResultsFinal() {
			job.Status = job.AggregateStatus()
			job.CompletedAt = &now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrAbortUpdate) {
			s.logger.DebugContext(ctx, "discarded late result for terminal job",
				"job_id", params.JobID, "platform", params.Platform)
			return nil, nil
		}
		return nil, err
	}

	if job.Terminal() {
		s.emitStatusChange(ctx, job)
	}
	return job, nil
}

// MarkPublishing transitions a pending or scheduled job to publishing and
// stamps StartedAt. A no-op for jobs already publishing; terminal jobs are
// left untouched and reported as (nil, nil).
func (s *TrackerService) MarkPublishing(ctx context.Context, jobID string) (*model.PublishingJob, error) {
	unlock := s.locks.Lock(jobID)
	defer unlock()

	now := s.tp.Now()
	job, err := s.store.Update(ctx, jobID, func(job *model.PublishingJob) error {
		if job.Terminal() {
			return core.ErrAbortUpdate
		}
		if job.Status == model.JobStatusPending || job.Status == model.JobStatusScheduled {
			job.Status = model.JobStatusPublishing
		}
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrAbortUpdate) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// Cancel marks the job cancelled. Fails with NotCancellable when the job has
// already reached a terminal state.
func (s *TrackerService) Cancel(ctx context.Context, jobID string) (*model.PublishingJob, error) {
	unlock := s.locks.Lock(jobID)
	defer unlock()

	now := s.tp.Now()
	job, err := s.store.Update(ctx, jobID, func(job *model.PublishingJob) error {
		if job.Terminal() {
			return apperrors.NotCancellable("job already in terminal state " + string(job.Status))
		}
		job.Status = model.JobStatusCancelled
		job.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitStatusChange(ctx, job)
	return job, nil
}

func (s *TrackerService) emitStatusChange(ctx context.Context, job *model.PublishingJob) {
	s.logger.InfoContext(ctx, "job reached terminal status",
		"job_id", job.JobID, "status", job.Status, "platforms", len(job.Platforms))
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyStatusChange(ctx, notify.StatusChangeEvent{
		JobID:      job.JobID,
		Status:     job.Status,
		Outcomes:   job.Clone().Results,
		OccurredAt: s.tp.Now(),
	})
}

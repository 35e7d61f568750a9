package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	"github.com/crosspost-labs/publisher-go/internal/observability/statsd"
)

// CoordinatorService is the entry point for publish requests. It validates
// submissions, creates the job record, and routes the job either to immediate
// dispatch or onto the time-ordered schedule queue.
type CoordinatorService struct {
	store      core.JobStore
	queue      core.ScheduleQueue
	cache      core.ContentCacher
	dispatcher *DispatcherService
	tracker    *TrackerService
	registry   core.ClientRegistry
	tp         data.TimeProvider
	logger     *slog.Logger
	metrics    statsd.Sink

	defaultMaxRetries int

	// inflight tracks async immediate dispatches so tests and shutdown can
	// wait for them to settle.
	inflight sync.WaitGroup
}

// CoordinatorServiceOptions groups dependencies for CoordinatorService.
type CoordinatorServiceOptions struct {
	Store        core.JobStore
	Queue        core.ScheduleQueue
	ContentCache core.ContentCacher
	Dispatcher   *DispatcherService
	Tracker      *TrackerService
	Registry     core.ClientRegistry
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink

	// DefaultMaxRetries is the retry budget applied when the submit request
	// leaves max_retries unset. Defaults to DefaultMaxRetries.
	DefaultMaxRetries int
}

// NewCoordinatorService creates a CoordinatorService.
func NewCoordinatorService(opts CoordinatorServiceOptions) *CoordinatorService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultMaxRetries <= 0 {
		opts.DefaultMaxRetries = DefaultMaxRetries
	}
	return &CoordinatorService{
		store:      opts.Store,
		queue:      opts.Queue,
		cache:      opts.ContentCache,
		dispatcher: opts.Dispatcher,
		tracker:    opts.Tracker,
		registry:   opts.Registry,
		tp:         opts.TimeProvider,
		logger:     opts.Logger.With("component", "job_coordinator"),
		metrics:    opts.Metrics,

		defaultMaxRetries: opts.DefaultMaxRetries,
	}
}

// Submit validates the request, persists a new job, and either dispatches it
// immediately or enqueues one schedule entry per platform for later pickup.
// The returned job snapshot reflects the state at creation; immediate
// dispatch proceeds asynchronously.
func (s *CoordinatorService) Submit(ctx context.Context, req model.SubmitRequest) (*model.PublishingJob, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.InvalidRequest(err.Error())
	}
	if !req.Content.Publishable() {
		return nil, apperrors.ContentNotReady(
			"content " + req.Content.ID + " is in state " + string(req.Content.State))
	}

	now := s.tp.Now()
	scheduled := req.ScheduledAt != nil && req.ScheduledAt.After(now)
	// An explicit zero means never retry; only an absent field gets the
	// configured default.
	maxRetries := s.defaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	job := &model.PublishingJob{
		JobID:      uuid.NewString(),
		ContentID:  req.Content.ID,
		Platforms:  append([]model.Platform(nil), req.Platforms...),
		Priority:   req.Priority,
		MaxRetries: maxRetries,
		Status:     model.JobStatusPending,
		CreatedAt:  now,
		Results:    make(map[model.Platform]model.PublishingResult, len(req.Platforms)),
	}
	if scheduled {
		job.Status = model.JobStatusScheduled
		job.ScheduledAt = req.ScheduledAt
	}

	// Cache the payload before the job record exists so neither the queue
	// loop nor a requeued retry observes a job whose content is
	// unresolvable. Immediate dispatches need this too: their retries come
	// back through the queue and resolve by id.
	var keepUntil time.Time
	if scheduled {
		keepUntil = *req.ScheduledAt
	}
	if err := s.cache.Cache(ctx, req.Content, keepUntil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "cache content")
	}

	if err := s.store.Put(ctx, job); err != nil {
		return nil, err
	}

	if scheduled {
		for _, platform := range job.Platforms {
			sched := model.PostingSchedule{
				Platform:    platform,
				ContentID:   job.ContentID,
				ScheduledAt: *req.ScheduledAt,
				Priority:    job.Priority,
				MaxRetries:  maxRetries,
			}
			if err := s.queue.Enqueue(ctx, job.JobID, sched); err != nil {
				return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal,
					"enqueue schedule for platform %s", platform)
			}
		}
		s.logger.InfoContext(ctx, "job scheduled",
			"job_id", job.JobID, "content_id", job.ContentID,
			"platforms", len(job.Platforms), "scheduled_at", *req.ScheduledAt)
		s.count(ctx, "job.submitted", map[string]string{"mode": "scheduled"})
		return job.Clone(), nil
	}

	s.dispatchAsync(ctx, job, req.Content)
	s.logger.InfoContext(ctx, "job dispatched",
		"job_id", job.JobID, "content_id", job.ContentID, "platforms", len(job.Platforms))
	s.count(ctx, "job.submitted", map[string]string{"mode": "immediate"})
	return job.Clone(), nil
}

// dispatchAsync fans the job out on a fresh goroutine. The dispatch must
// outlive the submit request, so cancellation of the caller's ctx is shed
// while its values (trace ids) are kept.
func (s *CoordinatorService) dispatchAsync(ctx context.Context, job *model.PublishingJob, content model.ContentReference) {
	detached := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.tracker.MarkPublishing(detached, job.JobID); err != nil {
			s.logger.ErrorContext(detached, "mark job publishing",
				"job_id", job.JobID, "error", err)
			return
		}
		s.dispatcher.Execute(detached, job, content)
	}()
}

// Wait blocks until all asynchronous immediate dispatches have settled.
func (s *CoordinatorService) Wait() {
	s.inflight.Wait()
}

// Cancel stops a job. Pending queue entries are removed first so the
// dispatcher loop cannot pick them up mid-cancel; in-flight attempts finish
// but their results are discarded by the tracker.
func (s *CoordinatorService) Cancel(ctx context.Context, jobID string) (*model.PublishingJob, error) {
	if err := s.queue.Remove(ctx, jobID, ""); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "remove queued schedules")
	}
	job, err := s.tracker.Cancel(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job cancelled", "job_id", jobID)
	s.count(ctx, "job.cancelled", nil)
	return job, nil
}

// GetStatus returns a snapshot of the job, or a NotFound error.
func (s *CoordinatorService) GetStatus(ctx context.Context, jobID string) (*model.PublishingJob, error) {
	return s.store.Get(ctx, jobID)
}

// QueueDepth reports the number of pending schedule entries.
func (s *CoordinatorService) QueueDepth(ctx context.Context) (int, error) {
	return s.queue.Depth(ctx)
}

// PostMetrics fetches engagement metrics for a successfully published post of
// the job on the given platform.
func (s *CoordinatorService) PostMetrics(ctx context.Context, jobID string, platform model.Platform) (map[string]int64, error) {
	client, res, err := s.publishedResult(ctx, jobID, platform)
	if err != nil {
		return nil, err
	}
	return client.GetPostMetrics(ctx, res.PlatformPostID)
}

// DeletePost removes the published post of the job on the given platform.
func (s *CoordinatorService) DeletePost(ctx context.Context, jobID string, platform model.Platform) (bool, error) {
	client, res, err := s.publishedResult(ctx, jobID, platform)
	if err != nil {
		return false, err
	}
	return client.DeletePost(ctx, res.PlatformPostID)
}

// UpdatePost edits the published post of the job on the given platform, for
// platforms that support post editing.
func (s *CoordinatorService) UpdatePost(ctx context.Context, jobID string, platform model.Platform, updates map[string]string) (bool, error) {
	client, res, err := s.publishedResult(ctx, jobID, platform)
	if err != nil {
		return false, err
	}
	return client.UpdatePost(ctx, res.PlatformPostID, updates)
}

// publishedResult resolves the client and the successful result backing a
// post-publish operation.
func (s *CoordinatorService) publishedResult(ctx context.Context, jobID string, platform model.Platform) (core.PlatformClient, model.PublishingResult, error) {
	var zero model.PublishingResult
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, zero, err
	}
	res, ok := job.Results[platform]
	if !ok || !res.Success || res.PlatformPostID == "" {
		return nil, zero, apperrors.NotFoundf("job %s has no published post on %s", jobID, platform)
	}
	client, ok := s.registry.Resolve(platform)
	if !ok {
		return nil, zero, apperrors.PlatformUnavailablef("no client registered for platform %s", platform)
	}
	return client, res, nil
}

func (s *CoordinatorService) count(_ context.Context, name string, tags map[string]string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count(name, 1, tags)
}

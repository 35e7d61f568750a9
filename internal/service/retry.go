package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// DefaultMaxRetries is the retry budget applied when a submit request does not
// specify one.
const DefaultMaxRetries = 3

// RetryPolicy computes retry eligibility and backoff delay. The delay
// computation is pure so the policy is testable without a queue.
type RetryPolicy struct {
	// BaseDelay is the delay before the first retry; subsequent retries double
	// it. Defaults to one minute.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay when positive.
	MaxDelay time.Duration
}

// Delay returns the backoff before the next retry given the current (not yet
// incremented) retry count: BaseDelay * 2^retryCount.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Minute
	}
	if retryCount < 0 {
		retryCount = 0
	}
	// Shift overflow guard: beyond 62 doublings the duration is meaningless.
	if retryCount > 62 {
		retryCount = 62
	}
	d := base << uint(retryCount)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// RetryDecision is the outcome of classifying one platform failure.
type RetryDecision struct {
	Retry   bool
	RetryAt time.Time
}

// Decide classifies a failure: retry while the error kind is retryable and the
// schedule has budget left, terminal otherwise.
func (p RetryPolicy) Decide(now time.Time, sched model.PostingSchedule, kind model.ErrorKind) RetryDecision {
	if !kind.Retryable() || sched.Exhausted() {
		return RetryDecision{}
	}
	return RetryDecision{
		Retry:   true,
		RetryAt: now.Add(p.Delay(sched.RetryCount)),
	}
}

// RetryService applies the retry policy to platform failures: eligible
// failures are re-enqueued with backoff, the rest become terminal results
// handed to the status tracker.
type RetryService struct {
	policy  RetryPolicy
	queue   core.ScheduleQueue
	tracker *TrackerService
	tp      data.TimeProvider
	logger  *slog.Logger
}

// RetryServiceOptions groups dependencies for RetryService.
type RetryServiceOptions struct {
	Policy       RetryPolicy
	Queue        core.ScheduleQueue
	Tracker      *TrackerService
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// NewRetryService creates a RetryService.
func NewRetryService(opts RetryServiceOptions) *RetryService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RetryService{
		policy:  opts.Policy,
		queue:   opts.Queue,
		tracker: opts.Tracker,
		tp:      opts.TimeProvider,
		logger:  opts.Logger.With("component", "retry_manager"),
	}
}

// Policy returns the configured retry policy.
func (s *RetryService) Policy() RetryPolicy {
	return s.policy
}

// HandleFailure records the failed attempt and either re-enqueues the platform
// schedule with backoff or finalizes the platform result as terminal. Returns
// whether a retry was scheduled.
func (s *RetryService) HandleFailure(
	ctx context.Context,
	jobID string,
	sched model.PostingSchedule,
	result model.PublishingResult,
) (bool, error) {
	now := s.tp.Now()
	decision := s.policy.Decide(now, sched, result.ErrorKind)

	if !decision.Retry {
		result.Final = true
		if _, err := s.tracker.Record(ctx, RecordParams{JobID: jobID, Platform: sched.Platform, Result: result}); err != nil {
			return false, fmt.Errorf("record terminal failure: %w", err)
		}
		s.logger.InfoContext(ctx, "platform failure is terminal",
			"job_id", jobID, "platform", sched.Platform,
			"error_kind", result.ErrorKind, "retry_count", sched.RetryCount)
		return false, nil
	}

	// Retain the latest attempt's result without finalizing the platform.
	job, err := s.tracker.Record(ctx, RecordParams{JobID: jobID, Platform: sched.Platform, Result: result})
	if err != nil {
		return false, fmt.Errorf("record retryable failure: %w", err)
	}
	if job == nil {
		// Result was discarded because the job is already terminal (cancelled
		// mid-flight); nothing left to retry.
		return false, nil
	}

	sched.RetryCount++
	sched.ScheduledAt = decision.RetryAt
	if err := s.queue.Enqueue(ctx, jobID, sched); err != nil {
		return false, fmt.Errorf("requeue schedule: %w", err)
	}

	s.logger.InfoContext(ctx, "platform attempt requeued with backoff",
		"job_id", jobID, "platform", sched.Platform,
		"retry_count", sched.RetryCount, "retry_at", decision.RetryAt)
	return true, nil
}

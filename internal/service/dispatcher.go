package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	"github.com/crosspost-labs/publisher-go/internal/observability/metrics"
	"github.com/crosspost-labs/publisher-go/internal/observability/statsd"
)

// DispatcherConfig tunes platform fan-out behavior.
type DispatcherConfig struct {
	// MaxConcurrent bounds simultaneous platform attempts per Execute call.
	MaxConcurrent int
	// RateLimitWaitMax bounds how long one attempt waits for a client's
	// rate-limit window to reset before trying anyway.
	RateLimitWaitMax time.Duration
}

// Sanitize applies defaults to zero values.
func (c *DispatcherConfig) Sanitize() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.RateLimitWaitMax <= 0 {
		c.RateLimitWaitMax = 30 * time.Second
	}
}

// DispatcherService fans a job out to its target platforms. Attempts run
// concurrently and are fully isolated: one platform's failure or slowness
// never cancels or delays its siblings. Failed attempts are handed to the
// retry manager, successes straight to the status tracker.
type DispatcherService struct {
	registry core.ClientRegistry
	creds    core.CredentialProvider
	content  core.ContentResolver
	tracker  *TrackerService
	retries  *RetryService
	cfg      DispatcherConfig
	tp       data.TimeProvider
	logger   *slog.Logger
	metrics  statsd.Sink
}

// DispatcherServiceOptions groups dependencies for DispatcherService.
type DispatcherServiceOptions struct {
	Registry     core.ClientRegistry
	Credentials  core.CredentialProvider
	Content      core.ContentResolver
	Tracker      *TrackerService
	Retries      *RetryService
	Config       DispatcherConfig
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// NewDispatcherService creates a DispatcherService.
func NewDispatcherService(opts DispatcherServiceOptions) *DispatcherService {
	opts.Config.Sanitize()
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &DispatcherService{
		registry: opts.Registry,
		creds:    opts.Credentials,
		content:  opts.Content,
		tracker:  opts.Tracker,
		retries:  opts.Retries,
		cfg:      opts.Config,
		tp:       opts.TimeProvider,
		logger:   opts.Logger.With("component", "platform_dispatcher"),
		metrics:  opts.Metrics,
	}
}

// Execute launches one attempt per target platform of the job and waits for
// all of them to settle. The content reference is the submit-time one, so the
// immediate path needs no resolver round trip.
func (d *DispatcherService) Execute(ctx context.Context, job *model.PublishingJob, content model.ContentReference) {
	now := d.tp.Now()
	// Zero is a valid budget (never retry); only a corrupt negative value
	// falls back to the default.
	maxRetries := job.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	// A plain errgroup (no derived context) keeps sibling attempts isolated:
	// it only bounds concurrency and joins, never cancels.
	g := new(errgroup.Group)
	g.SetLimit(d.cfg.MaxConcurrent)
	for _, platform := range job.Platforms {
		sched := model.PostingSchedule{
			Platform:    platform,
			ContentID:   job.ContentID,
			ScheduledAt: now,
			Priority:    job.Priority,
			MaxRetries:  maxRetries,
		}
		g.Go(func() error {
			d.runAttempt(ctx, job.JobID, content, sched)
			return nil
		})
	}
	_ = g.Wait()
}

// ExecutePlatform runs a single platform attempt for a job, resolving the
// content reference by id. Used by the queue dispatcher loop so already
// settled sibling platforms are not re-triggered.
func (d *DispatcherService) ExecutePlatform(ctx context.Context, jobID string, sched model.PostingSchedule) {
	content, err := d.content.Resolve(ctx, sched.ContentID)
	if err != nil {
		// A vanished payload will not come back; treat as a terminal
		// content failure rather than burning the retry budget.
		result := model.FailureResult(model.ErrorKindContentValidation,
			"content no longer resolvable: "+err.Error())
		result.Final = true
		if _, recErr := d.tracker.Record(ctx, RecordParams{JobID: jobID, Platform: sched.Platform, Result: result}); recErr != nil {
			d.logger.ErrorContext(ctx, "record content resolution failure",
				"job_id", jobID, "platform", sched.Platform, "error", recErr)
		}
		return
	}
	d.runAttempt(ctx, jobID, content, sched)
}

// runAttempt performs one publish attempt and routes the outcome.
func (d *DispatcherService) runAttempt(
	ctx context.Context,
	jobID string,
	content model.ContentReference,
	sched model.PostingSchedule,
) {
	start := time.Now()
	result, attemptErr := d.attempt(ctx, content, sched)

	if result.Success {
		metrics.EmitPublishAttempt(d.metrics, metrics.AttemptMetric{
			Platform: string(sched.Platform),
			Result:   metrics.ResultSuccess,
			Duration: time.Since(start),
		})
		if _, err := d.tracker.Record(ctx, RecordParams{JobID: jobID, Platform: sched.Platform, Result: result}); err != nil {
			d.logger.ErrorContext(ctx, "record publish success",
				"job_id", jobID, "platform", sched.Platform, "error", err)
		}
		return
	}

	retried, err := d.retries.HandleFailure(ctx, jobID, sched, result)
	if err != nil {
		d.logger.ErrorContext(ctx, "handle publish failure",
			"job_id", jobID, "platform", sched.Platform, "error", err)
	}
	metrics.EmitPublishAttempt(d.metrics, metrics.AttemptMetric{
		Platform: string(sched.Platform),
		Result:   metrics.ResultError,
		Retry:    retried,
		Duration: time.Since(start),
		Err:      attemptErr,
	})
}

// attempt executes the publish steps for one platform: client resolution,
// authentication, bounded rate-limit wait, and the publish call itself.
func (d *DispatcherService) attempt(
	ctx context.Context,
	content model.ContentReference,
	sched model.PostingSchedule,
) (model.PublishingResult, error) {
	client, ok := d.registry.Resolve(sched.Platform)
	if !ok {
		err := apperrors.PlatformUnavailablef("no client registered for platform %s", sched.Platform)
		return model.FailureResult(model.ErrorKindPlatformUnavailable, err.Error()), err
	}

	if !client.Authenticated() {
		if err := d.authenticate(ctx, client, sched.Platform); err != nil {
			return model.FailureResult(model.ErrorKindAuthentication, err.Error()), err
		}
	}

	d.waitForRateLimit(ctx, client)

	resp, err := client.PublishContent(ctx, content, sched)
	if err != nil {
		kind := errorKindOf(err)
		return model.FailureResult(kind, err.Error()), err
	}

	return model.SuccessResult(content.ID, resp.PlatformPostID, d.tp.Now()), nil
}

func (d *DispatcherService) authenticate(ctx context.Context, client core.PlatformClient, platform model.Platform) error {
	creds, err := d.creds.GetCredentials(ctx, platform)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeAuthentication,
			"credential lookup for %s failed", platform)
	}
	if err := client.Authenticate(ctx, creds); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeAuthentication,
			"authenticate against %s failed", platform)
	}
	return nil
}

// waitForRateLimit blocks while the client's window is exhausted, up to the
// configured bound. One platform waiting never blocks its siblings since each
// attempt runs on its own goroutine.
func (d *DispatcherService) waitForRateLimit(ctx context.Context, client core.PlatformClient) {
	state := client.RateLimitState()
	if state.Remaining > 0 || state.ResetAt.IsZero() {
		return
	}
	wait := time.Until(state.ResetAt)
	if wait <= 0 {
		return
	}
	if wait > d.cfg.RateLimitWaitMax {
		wait = d.cfg.RateLimitWaitMax
	}

	d.logger.DebugContext(ctx, "waiting for platform rate limit",
		"platform", client.Platform(), "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// errorKindOf maps an attempt error onto the result taxonomy. Unknown errors
// and transport-level failures count as network; platform API rejections keep
// the kind the client tagged them with.
func errorKindOf(err error) model.ErrorKind {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeRateLimit:
		return model.ErrorKindRateLimit
	case apperrors.ErrCodeAuthentication:
		return model.ErrorKindAuthentication
	case apperrors.ErrCodeContentValidation:
		return model.ErrorKindContentValidation
	case apperrors.ErrCodeAPIError:
		return model.ErrorKindAPIError
	case apperrors.ErrCodeNetwork:
		return model.ErrorKindNetwork
	case apperrors.ErrCodePlatformUnavailable:
		return model.ErrorKindPlatformUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorKindNetwork
	}
	return model.ErrorKindAPIError
}

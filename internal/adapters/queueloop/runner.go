// Package queueloop provides the adapter that drains the schedule queue:
// a ticker loop that pops due entries and hands them to the dispatcher.
package queueloop

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crosspost-labs/publisher-go/internal/core"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	obserrors "github.com/crosspost-labs/publisher-go/internal/observability/errors"
	"github.com/crosspost-labs/publisher-go/internal/observability/metrics"
	"github.com/crosspost-labs/publisher-go/internal/observability/statsd"
	"github.com/crosspost-labs/publisher-go/internal/service"
)

// Runner polls the schedule queue at a fixed interval and dispatches every
// due entry. Entries whose owning job is gone or already terminal are dropped
// without dispatch.
type Runner struct {
	queue      core.ScheduleQueue
	store      core.JobStore
	dispatcher *service.DispatcherService
	tracker    *service.TrackerService

	interval  time.Duration
	batchSize int
	maxInTick int
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Queue      core.ScheduleQueue
	Store      core.JobStore
	Dispatcher *service.DispatcherService
	Tracker    *service.TrackerService

	// Interval between queue polls. Defaults to 1s.
	Interval time.Duration
	// BatchSize caps entries popped per tick. Defaults to 50.
	BatchSize int
	// MaxConcurrent caps simultaneous dispatches within one tick. Defaults to 4.
	MaxConcurrent int
	Logger        *slog.Logger
	Metrics       statsd.Sink
}

// NewRunner creates a queue dispatcher loop runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("schedule queue is required")
	}
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 1 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		queue:      opts.Queue,
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		tracker:    opts.Tracker,
		interval:   opts.Interval,
		batchSize:  opts.BatchSize,
		maxInTick:  opts.MaxConcurrent,
		logger:     opts.Logger.With("component", "queue_loop"),
		metrics:    opts.Metrics,
	}, nil
}

// Run polls until the context is cancelled. Tick errors are logged and the
// loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting queue dispatcher loop",
		"interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "queue dispatcher loop stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case now := <-ticker.C:
			start := time.Now()
			dispatched, err := r.Tick(ctx, now)
			r.emitTickMetrics(dispatched, time.Since(start), err)
			if err != nil {
				r.logger.ErrorContext(ctx, "queue loop tick", "error", err)
			}
		}
	}
}

// Tick pops one batch of due entries and dispatches them. Returns the number
// of entries handed to the dispatcher.
func (r *Runner) Tick(ctx context.Context, now time.Time) (int, error) {
	due, err := r.queue.DequeueDue(ctx, now, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(r.maxInTick)
	dispatched := 0
	for _, entry := range due {
		if !r.prepare(ctx, entry) {
			continue
		}
		dispatched++
		g.Go(func() error {
			r.dispatcher.ExecutePlatform(ctx, entry.JobID, entry.Schedule)
			return nil
		})
	}
	_ = g.Wait()
	return dispatched, nil
}

// prepare verifies the entry's job still wants dispatch and transitions it to
// publishing. Orphaned entries (job record expired or deleted) and entries of
// terminal jobs are dropped.
func (r *Runner) prepare(ctx context.Context, entry core.QueuedSchedule) bool {
	job, err := r.store.Get(ctx, entry.JobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			r.logger.WarnContext(ctx, "dropping orphaned queue entry",
				"job_id", entry.JobID, "platform", entry.Schedule.Platform)
			r.count("queue_loop.orphan_dropped", map[string]string{
				"platform": string(entry.Schedule.Platform),
			})
			return false
		}
		r.logger.ErrorContext(ctx, "load job for queue entry",
			"job_id", entry.JobID, "error", err)
		return false
	}
	if job.Terminal() {
		r.logger.DebugContext(ctx, "skipping queue entry for terminal job",
			"job_id", entry.JobID, "status", job.Status)
		return false
	}

	if _, err := r.tracker.MarkPublishing(ctx, entry.JobID); err != nil {
		r.logger.ErrorContext(ctx, "mark job publishing",
			"job_id", entry.JobID, "error", err)
		return false
	}
	return true
}

func (r *Runner) emitTickMetrics(dispatched int, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if dispatched == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("queue_loop.tick", 1, tags)
	if dispatched > 0 {
		r.metrics.Count("queue_loop.dispatched", int64(dispatched), tags)
	}
	if elapsed > 0 {
		r.metrics.Timing("queue_loop.tick_duration", elapsed, metrics.CloneTags(tags))
	}
}

func (r *Runner) count(name string, tags map[string]string) {
	if r.metrics == nil {
		return
	}
	r.metrics.Count(name, 1, tags)
}

// Package reaper provides the adapter that prunes expired terminal jobs from
// stores without native TTL support.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/observability/statsd"
)

// Runner periodically deletes terminal jobs past the retention window.
type Runner struct {
	deleter   core.ExpiredJobDeleter
	retention time.Duration
	interval  time.Duration
	batchSize int
	tp        data.TimeProvider
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Deleter core.ExpiredJobDeleter
	// Retention is how long terminal jobs stay queryable. Defaults to 24h.
	Retention time.Duration
	// Interval between reap passes. Defaults to 5m.
	Interval time.Duration
	// BatchSize caps deletions per pass. Defaults to 500.
	BatchSize    int
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// NewRunner creates a reaper runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Deleter == nil {
		return nil, errors.New("expired job deleter is required")
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		deleter:   opts.Deleter,
		retention: opts.Retention,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		tp:        opts.TimeProvider,
		logger:    opts.Logger.With("component", "reaper"),
		metrics:   opts.Metrics,
	}, nil
}

// Run reaps until the context is cancelled. Pass errors are logged and the
// loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper",
		"retention", r.retention, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reaper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			deleted, err := r.Reap(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "reap pass", "error", err)
				continue
			}
			if deleted > 0 {
				r.logger.InfoContext(ctx, "reaped expired jobs", "deleted", deleted)
			}
		}
	}
}

// Reap deletes one batch of terminal jobs past the retention cutoff.
func (r *Runner) Reap(ctx context.Context) (int64, error) {
	cutoff := r.tp.Now().Add(-r.retention)
	deleted, err := r.deleter.DeleteExpired(ctx, cutoff, r.batchSize)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil && deleted > 0 {
		r.metrics.Count("reaper.jobs_deleted", deleted, nil)
	}
	return deleted, nil
}

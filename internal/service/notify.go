package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/observability/notify"
)

// StatusNotifyService fans status-change events out to the configured sinks.
// Delivery is fire-and-forget: a slow or failing sink never blocks job
// finalization, and errors are only logged.
type StatusNotifyService struct {
	sinks   []notify.Sink
	timeout time.Duration
	logger  *slog.Logger
}

// StatusNotifyOptions groups dependencies for StatusNotifyService.
type StatusNotifyOptions struct {
	Sinks   []notify.Sink
	Timeout time.Duration // per-sink delivery timeout; defaults to 5s
	Logger  *slog.Logger
}

// NewStatusNotifyService creates a StatusNotifyService.
func NewStatusNotifyService(opts StatusNotifyOptions) *StatusNotifyService {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &StatusNotifyService{
		sinks:   opts.Sinks,
		timeout: opts.Timeout,
		logger:  opts.Logger.With("component", "status_notify"),
	}
}

// NotifyStatusChange dispatches the event to every sink on its own goroutine.
// The parent context's cancellation is detached so in-flight notifications
// survive request teardown.
func (s *StatusNotifyService) NotifyStatusChange(ctx context.Context, event notify.StatusChangeEvent) {
	if s == nil || len(s.sinks) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, sink := range s.sinks {
		go func(sink notify.Sink) {
			sendCtx, cancel := context.WithTimeout(base, s.timeout)
			defer cancel()
			if err := sink.SendStatusChange(sendCtx, event); err != nil {
				s.logger.WarnContext(sendCtx, "status change notification failed",
					"job_id", event.JobID, "status", event.Status, "error", err)
			}
		}(sink)
	}
}

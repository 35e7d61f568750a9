// Package notify defines the status-change notification contract consumed by
// external monitoring and analytics.
package notify

import (
	"context"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// StatusChangeEvent is the canonical fire-and-forget payload emitted whenever
// a job reaches a terminal status.
type StatusChangeEvent struct {
	JobID      string                                    `json:"job_id"`
	Status     model.JobStatus                           `json:"status"`
	Outcomes   map[model.Platform]model.PublishingResult `json:"outcomes"`
	OccurredAt time.Time                                 `json:"occurred_at"`
}

// Sink describes a destination capable of consuming status-change events.
type Sink interface {
	SendStatusChange(ctx context.Context, event StatusChangeEvent) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, event StatusChangeEvent) error

// SendStatusChange implements the Sink interface.
func (f SinkFunc) SendStatusChange(ctx context.Context, event StatusChangeEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// Package metrics holds shared helpers for emitting publish lifecycle metrics.
package metrics

import (
	"time"

	obserrors "github.com/crosspost-labs/publisher-go/internal/observability/errors"
	"github.com/crosspost-labs/publisher-go/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// AttemptMetric captures details about one platform publish attempt.
type AttemptMetric struct {
	Platform string
	Result   string
	Retry    bool
	Duration time.Duration
	Err      error
}

// EmitPublishAttempt emits standardized per-attempt metrics.
func EmitPublishAttempt(sink statsd.Sink, in AttemptMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"platform": in.Platform,
		"result":   in.Result,
	}
	if in.Retry {
		tags["retry"] = "true"
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("publish.attempt", 1, tags)
	if in.Duration > 0 {
		sink.Timing("publish.attempt_duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

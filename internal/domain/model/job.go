package model

import (
	"errors"
	"time"
)

// JobStatus represents the lifecycle state of a publishing job.
type JobStatus string

const (
	// JobStatusPending indicates a job created for immediate dispatch.
	JobStatusPending JobStatus = "pending"
	// JobStatusScheduled indicates a job waiting in the time-ordered queue.
	JobStatusScheduled JobStatus = "scheduled"
	// JobStatusPublishing indicates platform attempts are in flight.
	JobStatusPublishing JobStatus = "publishing"
	// JobStatusCompleted indicates every platform succeeded.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusPartiallyCompleted indicates a mix of terminal successes and failures.
	JobStatusPartiallyCompleted JobStatus = "partially_completed"
	// JobStatusFailed indicates every platform failed terminally.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled before completion.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusScheduled, JobStatusPublishing,
		JobStatusCompleted, JobStatusPartiallyCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further mutation.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartiallyCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// PublishingJob is the aggregate root for one request to publish a content
// reference to one or more platforms. Mutation goes through the status tracker
// and retry manager only (single-writer per job id); platform clients never
// touch the snapshot directly.
type PublishingJob struct {
	JobID       string                        `json:"job_id"`
	ContentID   string                        `json:"content_id"`
	Platforms   []Platform                    `json:"platforms"`
	Priority    int                           `json:"priority"`
	MaxRetries  int                           `json:"max_retries"`
	ScheduledAt *time.Time                    `json:"scheduled_at,omitempty"`
	Status      JobStatus                     `json:"status"`
	CreatedAt   time.Time                     `json:"created_at"`
	StartedAt   *time.Time                    `json:"started_at,omitempty"`
	CompletedAt *time.Time                    `json:"completed_at,omitempty"`
	Results     map[Platform]PublishingResult `json:"results"`
	Errors      []string                      `json:"errors,omitempty"`
}

// Terminal reports whether the job reached a terminal status.
func (j *PublishingJob) Terminal() bool {
	return j.Status.Terminal()
}

// HasPlatform reports whether p is one of the job's target platforms.
func (j *PublishingJob) HasPlatform(p Platform) bool {
	for _, t := range j.Platforms {
		if t == p {
			return true
		}
	}
	return false
}

// AllResultsFinal reports whether every target platform has a terminal result.
func (j *PublishingJob) AllResultsFinal() bool {
	if len(j.Results) < len(j.Platforms) {
		return false
	}
	for _, p := range j.Platforms {
		res, ok := j.Results[p]
		if !ok || !res.Final {
			return false
		}
	}
	return true
}

// AggregateStatus computes the overall terminal status from per-platform
// results: all succeeded, some succeeded, or none succeeded. Callers must only
// invoke it once AllResultsFinal holds.
func (j *PublishingJob) AggregateStatus() JobStatus {
	succeeded := 0
	for _, res := range j.Results {
		if res.Success {
			succeeded++
		}
	}
	switch {
	case succeeded == len(j.Platforms):
		return JobStatusCompleted
	case succeeded > 0:
		return JobStatusPartiallyCompleted
	default:
		return JobStatusFailed
	}
}

// Clone returns a deep copy of the job snapshot, so stores can hand out
// snapshots without aliasing internal state.
func (j *PublishingJob) Clone() *PublishingJob {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Platforms = append([]Platform(nil), j.Platforms...)
	cp.Errors = append([]string(nil), j.Errors...)
	cp.Results = make(map[Platform]PublishingResult, len(j.Results))
	for p, r := range j.Results {
		if r.Metrics != nil {
			m := make(map[string]int64, len(r.Metrics))
			for k, v := range r.Metrics {
				m[k] = v
			}
			r.Metrics = m
		}
		cp.Results[p] = r
	}
	if j.ScheduledAt != nil {
		t := *j.ScheduledAt
		cp.ScheduledAt = &t
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// SubmitRequest carries the parameters of one publish request.
type SubmitRequest struct {
	Content     ContentReference `json:"content"`
	Platforms   []Platform       `json:"platforms"`
	Priority    int              `json:"priority,omitempty"`
	ScheduledAt *time.Time       `json:"scheduled_at,omitempty"`
	// MaxRetries is the per-platform retry budget. Nil means use the
	// coordinator default; an explicit zero disables retries.
	MaxRetries *int `json:"max_retries,omitempty"`
}

// Validate checks structural requirements of the request. Content readiness is
// checked separately by the coordinator so it can surface ContentNotReady.
func (r *SubmitRequest) Validate() error {
	if len(r.Platforms) == 0 {
		return errors.New("at least one platform is required")
	}
	seen := make(map[Platform]bool, len(r.Platforms))
	for _, p := range r.Platforms {
		if !p.Valid() {
			return errors.New("invalid platform: " + string(p))
		}
		if seen[p] {
			return errors.New("duplicate platform: " + string(p))
		}
		seen[p] = true
	}
	if r.Priority < 0 || r.Priority > 100 {
		return errors.New("priority must be between 0 and 100")
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	return r.Content.Validate()
}

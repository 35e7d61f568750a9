package model

import (
	"errors"
	"time"
)

// PostingSchedule is one platform-specific, time-keyed unit of pending work
// belonging to a job. The retry manager mutates RetryCount and ScheduledAt on
// each requeue; the entry is destroyed when removed from the queue.
type PostingSchedule struct {
	Platform    Platform  `json:"platform"`
	ContentID   string    `json:"content_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Priority    int       `json:"priority"`
	RetryCount  int       `json:"retry_count"`
	MaxRetries  int       `json:"max_retries"`
}

// Validate checks structural requirements of the schedule entry.
func (s PostingSchedule) Validate() error {
	if !s.Platform.Valid() {
		return errors.New("invalid platform")
	}
	if s.ContentID == "" {
		return errors.New("content id is required")
	}
	if s.ScheduledAt.IsZero() {
		return errors.New("scheduled time is required")
	}
	if s.RetryCount < 0 || s.MaxRetries < 0 {
		return errors.New("retry counts must be >= 0")
	}
	return nil
}

// Exhausted reports whether the schedule has no retry budget left.
func (s PostingSchedule) Exhausted() bool {
	return s.RetryCount >= s.MaxRetries
}

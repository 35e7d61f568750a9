package model

import "time"

// ErrorKind classifies a per-platform publish failure. The kind drives retry
// eligibility: authentication and content_validation never self-heal and are
// terminal on first occurrence.
type ErrorKind string

const (
	// ErrorKindAPIError is a server-side platform API failure.
	ErrorKindAPIError ErrorKind = "api_error"
	// ErrorKindRateLimit is a platform rate-limit rejection.
	ErrorKindRateLimit ErrorKind = "rate_limit"
	// ErrorKindAuthentication is a credential or token failure.
	ErrorKindAuthentication ErrorKind = "authentication"
	// ErrorKindContentValidation is a payload rejected by the platform.
	ErrorKindContentValidation ErrorKind = "content_validation"
	// ErrorKindNetwork is a transport-level failure.
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindPlatformUnavailable means no client is registered for the platform.
	ErrorKindPlatformUnavailable ErrorKind = "platform_unavailable"
)

// Retryable reports whether failures of this kind are eligible for retry.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindAuthentication, ErrorKindContentValidation:
		return false
	case ErrorKindAPIError, ErrorKindRateLimit, ErrorKindNetwork, ErrorKindPlatformUnavailable:
		return true
	default:
		return true
	}
}

// PublishingResult records the outcome of the latest publish attempt for one
// platform of a job. A result is immutable once produced; retries replace it
// wholesale. Final marks the result as terminal: success, a non-retryable
// failure, or an exhausted-retry failure.
type PublishingResult struct {
	Success        bool             `json:"success"`
	PostID         string           `json:"post_id,omitempty"`
	PlatformPostID string           `json:"platform_post_id,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	ErrorKind      ErrorKind        `json:"error_kind,omitempty"`
	Metrics        map[string]int64 `json:"metrics,omitempty"`
	PublishedAt    *time.Time       `json:"published_at,omitempty"`
	Final          bool             `json:"final"`
}

// SuccessResult builds a terminal success result for a publish attempt.
func SuccessResult(postID, platformPostID string, publishedAt time.Time) PublishingResult {
	return PublishingResult{
		Success:        true,
		PostID:         postID,
		PlatformPostID: platformPostID,
		PublishedAt:    &publishedAt,
		Final:          true,
	}
}

// FailureResult builds a non-final failure result; the retry manager decides
// whether it becomes terminal.
func FailureResult(kind ErrorKind, message string) PublishingResult {
	return PublishingResult{
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}

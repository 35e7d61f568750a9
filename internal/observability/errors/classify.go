// Package errors classifies application errors into stable labels for
// metric and log tagging.
package errors

import (
	"context"
	goerrors "errors"

	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

// Classify returns a normalized class name for an error, suitable for tagging
// metrics. AppError codes map straight through; context errors get their own
// labels so timeouts stand out from genuine platform failures.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if goerrors.Is(err, context.Canceled) {
		return "canceled"
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return "internal"
}

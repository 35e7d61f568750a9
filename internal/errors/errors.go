// Package errors defines the structured application error taxonomy for the
// publishing scheduler. Every failure surfaced by the coordinator or produced
// by a platform attempt carries one of these codes.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates malformed or incomplete caller input.
	ErrCodeInvalidRequest ErrorCode = "invalid_request"
	// ErrCodeContentNotReady indicates the referenced content is not in a publishable state.
	ErrCodeContentNotReady ErrorCode = "content_not_ready"
	// ErrCodeNotCancellable indicates the job has already reached a terminal state.
	ErrCodeNotCancellable ErrorCode = "not_cancellable"
	// ErrCodePlatformUnavailable indicates no client is registered for the target platform.
	ErrCodePlatformUnavailable ErrorCode = "platform_unavailable"
	// ErrCodeAuthentication indicates credential lookup or platform authentication failed.
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeRateLimit indicates the platform rejected the call due to rate limiting.
	ErrCodeRateLimit ErrorCode = "rate_limit"
	// ErrCodeNetwork indicates a transport-level failure reaching the platform.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeAPIError indicates the platform API returned a server-side error.
	ErrCodeAPIError ErrorCode = "api_error"
	// ErrCodeContentValidation indicates the platform rejected the payload itself.
	ErrCodeContentValidation ErrorCode = "content_validation"
	// ErrCodeNotFound indicates a resource (job, credential, content) was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports error wrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidRequest creates a new InvalidRequest error.
func InvalidRequest(message string) *AppError {
	return New(ErrCodeInvalidRequest, message)
}

// InvalidRequestf creates a new InvalidRequest error with formatted message.
func InvalidRequestf(format string, args ...any) *AppError {
	return Newf(ErrCodeInvalidRequest, format, args...)
}

// ContentNotReady creates a new ContentNotReady error.
func ContentNotReady(message string) *AppError {
	return New(ErrCodeContentNotReady, message)
}

// NotCancellable creates a new NotCancellable error.
func NotCancellable(message string) *AppError {
	return New(ErrCodeNotCancellable, message)
}

// PlatformUnavailable creates a new PlatformUnavailable error.
func PlatformUnavailable(message string) *AppError {
	return New(ErrCodePlatformUnavailable, message)
}

// PlatformUnavailablef creates a new PlatformUnavailable error with formatted message.
func PlatformUnavailablef(format string, args ...any) *AppError {
	return Newf(ErrCodePlatformUnavailable, format, args...)
}

// Authentication creates a new Authentication error.
func Authentication(message string) *AppError {
	return New(ErrCodeAuthentication, message)
}

// RateLimit creates a new RateLimit error.
func RateLimit(message string) *AppError {
	return New(ErrCodeRateLimit, message)
}

// Network creates a new Network error.
func Network(message string) *AppError {
	return New(ErrCodeNetwork, message)
}

// APIError creates a new APIError error.
func APIError(message string) *AppError {
	return New(ErrCodeAPIError, message)
}

// ContentValidation creates a new ContentValidation error.
func ContentValidation(message string) *AppError {
	return New(ErrCodeContentValidation, message)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return Newf(ErrCodeInternal, format, args...)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidRequest checks if an error is an InvalidRequest error.
func IsInvalidRequest(err error) bool {
	return isCode(err, ErrCodeInvalidRequest)
}

// IsContentNotReady checks if an error is a ContentNotReady error.
func IsContentNotReady(err error) bool {
	return isCode(err, ErrCodeContentNotReady)
}

// IsNotCancellable checks if an error is a NotCancellable error.
func IsNotCancellable(err error) bool {
	return isCode(err, ErrCodeNotCancellable)
}

// IsPlatformUnavailable checks if an error is a PlatformUnavailable error.
func IsPlatformUnavailable(err error) bool {
	return isCode(err, ErrCodePlatformUnavailable)
}

// IsAuthentication checks if an error is an Authentication error.
func IsAuthentication(err error) bool {
	return isCode(err, ErrCodeAuthentication)
}

// IsRateLimit checks if an error is a RateLimit error.
func IsRateLimit(err error) bool {
	return isCode(err, ErrCodeRateLimit)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

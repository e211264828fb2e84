package services

import (
	"errors"
	"fmt"
	"time"
)

// Domain error kinds. Handlers map these to HTTP status codes; business
// rule failures never surface as panics or bare 500s.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrUpstream           = errors.New("upstream failure")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
)

// DomainError pairs an error kind with a human-readable message.
type DomainError struct {
	Kind    error
	Message string
	// RetryAfter is set for rate-limit errors so clients know the
	// earliest moment a retry can succeed.
	RetryAfter *time.Time
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the kind for errors.Is checks
func (e *DomainError) Unwrap() error {
	return e.Kind
}

// NotFoundError builds a not-found domain error
func NotFoundError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// PreconditionError builds a precondition-failed domain error
func PreconditionError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

// ConflictError builds a conflict domain error
func ConflictError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// ValidationError builds a validation domain error
func ValidationError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// RateLimitError builds a rate-limit domain error carrying the earliest
// retry timestamp (nil when the window is the calendar month)
func RateLimitError(retryAfter *time.Time, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrRateLimited, Message: fmt.Sprintf(format, args...), RetryAfter: retryAfter}
}

// UpstreamError builds an upstream-failure domain error
func UpstreamError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrUpstream, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError builds a forbidden domain error
func ForbiddenError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError builds an unauthorized domain error
func UnauthorizedError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

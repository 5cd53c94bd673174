package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a document or snapshot was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure (missing or invalid credentials)
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates the caller has no rights to the resource
	ForbiddenError struct {
		Message string
	}

	// MalformedContentError indicates stored or generated content could not be deserialized
	MalformedContentError struct {
		Message string
	}

	// TransientIOError indicates the store or a collaborator was temporarily unavailable
	TransientIOError struct {
		Message string
		Err     error
	}
)

// Error implementations
func (e *NotFoundError) Error() string         { return e.Message }
func (e *ValidationError) Error() string       { return e.Message }
func (e *UnauthorizedError) Error() string     { return e.Message }
func (e *ForbiddenError) Error() string        { return e.Message }
func (e *MalformedContentError) Error() string { return e.Message }
func (e *TransientIOError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int         { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int       { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int     { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int        { return http.StatusForbidden }
func (e *MalformedContentError) StatusCode() int { return http.StatusUnprocessableEntity }
func (e *TransientIOError) StatusCode() int      { return http.StatusServiceUnavailable }

// Is implementations so typed errors match their sentinels with errors.Is()
func (e *NotFoundError) Is(target error) bool         { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool       { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool     { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool        { return target == ErrForbidden }
func (e *MalformedContentError) Is(target error) bool { return target == ErrMalformedContent }
func (e *TransientIOError) Is(target error) bool      { return target == ErrTransient }

// Unwrap exposes the underlying driver error
func (e *TransientIOError) Unwrap() error { return e.Err }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrMalformedContent = errors.New("malformed content")
	ErrTransient        = errors.New("temporarily unavailable")
)

// ConflictError represents a resource conflict with details about the existing resource
// Implements HTTPError interface for extensible error handling
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, snapshot)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsRetryable reports whether err is worth retrying on a later tick.
// Only transient I/O failures qualify; not-found, access and content errors are final.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

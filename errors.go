package truelayer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotFound is matched by errors returned for HTTP 404 responses.
	ErrNotFound = errors.New("truelayer: resource not found")
	// ErrPollTimeout is matched by *PollTimeoutError.
	ErrPollTimeout = errors.New("truelayer: polling timed out before reaching a terminal state")

	errMissingTag   = errors.New("missing discriminator")
	errUnknownTag   = errors.New("unknown discriminator")
	errMissingField = errors.New("missing required field")
)

// APIError is the problem+json payload returned by the API for non-2xx responses.
type APIError struct {
	Type    string              `json:"type,omitempty"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	TraceID string              `json:"trace_id,omitempty"`
	Detail  string              `json:"detail,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`

	retryAfter time.Duration `json:"-"`
}

// Error makes *APIError satisfy the stdlib error interface.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "truelayer: %d %s", e.Status, e.Title)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.TraceID != "" {
		fmt.Fprintf(&b, " (trace_id=%s)", e.TraceID)
	}
	return b.String()
}

// Is reports 404 responses as [ErrNotFound].
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e != nil && e.Status == http.StatusNotFound
}

// RetryAfter returns the duration the server asked clients to wait before retrying.
func (e *APIError) RetryAfter() time.Duration {
	if e == nil {
		return 0
	}
	return e.retryAfter
}

type errorOption func(*APIError)

// WithFieldError attaches a validation message for the given JSON field.
func WithFieldError(field, message string) errorOption {
	return func(er *APIError) {
		if er.Errors == nil {
			er.Errors = make(map[string][]string)
		}
		er.Errors[field] = append(er.Errors[field], message)
	}
}

// WithRetryAfter specifies how long clients should wait before retrying.
func WithRetryAfter(d time.Duration) errorOption {
	return func(er *APIError) {
		er.retryAfter = d
	}
}

// NewInvalidRequestError builds a Bad Request problem payload.
func NewInvalidRequestError(detail string, opts ...errorOption) *APIError {
	return NewHTTPError(http.StatusBadRequest, "Invalid Parameters", detail, opts...)
}

// NewUnauthorizedError builds an Unauthorized problem payload.
func NewUnauthorizedError(detail string, opts ...errorOption) *APIError {
	return NewHTTPError(http.StatusUnauthorized, "Unauthorized", detail, opts...)
}

// NewProcessingError builds an Internal Server Error problem payload.
func NewProcessingError(detail string, opts ...errorOption) *APIError {
	return NewHTTPError(http.StatusInternalServerError, "Internal Server Error", detail, opts...)
}

// NewHTTPError allows callers to control the status code explicitly.
func NewHTTPError(status int, title, detail string, opts ...errorOption) *APIError {
	errPayload := &APIError{
		Type:   "https://docs.truelayer.com/docs/error-types",
		Title:  title,
		Status: status,
		Detail: detail,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}

// DecodeError reports a payload that does not match any known shape.
// It is never retried.
type DecodeError struct {
	Union string
	Field string
	Tag   string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Tag != "":
		return fmt.Sprintf("truelayer: decode %s: %s %q: %v", e.Union, e.Field, e.Tag, e.Err)
	case e.Field != "":
		return fmt.Sprintf("truelayer: decode %s: %s: %v", e.Union, e.Field, e.Err)
	default:
		return fmt.Sprintf("truelayer: decode %s: %v", e.Union, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NotFoundWhilePollingError is returned by PollOnce when the resource being polled is
// not visible yet. The polling driver retries it within its time budget.
type NotFoundWhilePollingError struct {
	ID  string
	Err error
}

func (e *NotFoundWhilePollingError) Error() string {
	return fmt.Sprintf("truelayer: payment %s returned 404 while polling", e.ID)
}

func (e *NotFoundWhilePollingError) Unwrap() error { return e.Err }

// Retryable marks the error as safe to retry.
func (e *NotFoundWhilePollingError) Retryable() bool { return true }

// IsRetryable reports whether err, or any error it wraps, declares itself retryable.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// PollTimeoutError is returned when polling stops before a terminal snapshot was seen,
// either because the max wait elapsed or because the context was done.
// Last holds the most recent snapshot when HasLast is true.
type PollTimeoutError[T any] struct {
	Last     T
	HasLast  bool
	Attempts int
	Elapsed  time.Duration
	// LastErr is the error of the final attempt, or the context error on cancellation.
	LastErr error
}

func (e *PollTimeoutError[T]) Error() string {
	msg := fmt.Sprintf("truelayer: no terminal state after %d attempts in %s", e.Attempts, e.Elapsed.Truncate(time.Millisecond))
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *PollTimeoutError[T]) Unwrap() []error {
	if e.LastErr == nil {
		return []error{ErrPollTimeout}
	}
	return []error{ErrPollTimeout, e.LastErr}
}

// FormValidationError reports an answer that fails the constraints declared by a form
// action. Message carries the localized text supplied by the input, when available.
type FormValidationError struct {
	InputID string
	Reason  string
	Message *AdditionalInputDisplayText
}

func (e *FormValidationError) Error() string {
	if e.Message != nil && e.Message.Default != "" {
		return fmt.Sprintf("truelayer: input %s %s: %s", e.InputID, e.Reason, e.Message.Default)
	}
	return fmt.Sprintf("truelayer: input %s %s", e.InputID, e.Reason)
}

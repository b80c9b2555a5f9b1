package absence

import (
	"errors"
	"fmt"
	"time"
)

// ErrOverlap is returned when the service rejects a time span that
// intersects one already recorded. It is not fatal.
var ErrOverlap = errors.New("time spans overlap")

// APIError is a non-2xx answer from the service
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// AuthError means login or identity lookup failed. No span can be submitted.
type AuthError struct {
	Op  string // "login" or "identity"
	Err error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *AuthError) Unwrap() error {
	return e.Err
}

// SubmissionError is any rejection of a time span other than an overlap
type SubmissionError struct {
	Start time.Time
	End   time.Time
	Err   error
}

// Error implements the error interface
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit time span %s - %s: %v",
		e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"), e.Err)
}

// Unwrap returns the underlying error
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

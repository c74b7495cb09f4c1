package graphstore

import (
	"errors"
	"fmt"
)

// UnavailableError means the store could not be reached or reported itself unhealthy.
type UnavailableError struct {
	Op         string
	StatusCode int // zero when the request never got a response
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("graph store unavailable (%s): status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("graph store unavailable (%s): %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// RejectedError carries a non-2xx answer from the store.
type RejectedError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected with status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 200))
}

// NotFoundError reports a repository or entity that does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

// AlreadyExistsError is returned when creating a repository that is already there.
type AlreadyExistsError struct {
	Repository string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("repository '%s' already exists", e.Repository)
}

// IsUnavailable returns true if err is or wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// IsRejected returns true if err is or wraps a RejectedError.
func IsRejected(err error) bool {
	var target *RejectedError
	return errors.As(err, &target)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAlreadyExists returns true if err is or wraps an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var target *AlreadyExistsError
	return errors.As(err, &target)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

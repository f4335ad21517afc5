package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatchingRecords is returned by exports and reports that found nothing to output
var ErrNoMatchingRecords = errors.New("no matching records")

// ValidationError carries every problem found in a request so the caller can fix all fields at once
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// AuthorizationError is returned on ownership or role mismatch. The message never says whether the resource exists.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "access denied"
	}
	return e.Message
}

var errAccessDenied = &AuthorizationError{Message: "access denied"}

// CapacityExceededError is returned when a booking is rejected because the date is full or unavailable
type CapacityExceededError struct {
	LawyerID string
	Date     string
	Max      int
	Reason   string // one of the Unavailable* constants
}

func (e *CapacityExceededError) Error() string {
	switch e.Reason {
	case UnavailableBlocked:
		return fmt.Sprintf("the lawyer is not available on %s", e.Date)
	case UnavailableNoSchedule:
		return fmt.Sprintf("the lawyer has no consultation hours on %s", e.Date)
	case UnavailableNoLawyer:
		return fmt.Sprintf("no lawyer for this practice area has consultation slots left on %s", e.Date)
	}
	return fmt.Sprintf("no consultation slots left on %s (maximum of %d per day)", e.Date, e.Max)
}

// NotFoundError is returned when a referenced lawyer, consultation or schedule entry is absent
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// DependencyError wraps persistence and notification-queue failures
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// dependency wraps err unless it is nil or already one of the taxonomy errors
func dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomyError(err) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

func isTaxonomyError(err error) bool {
	var (
		validationErr *ValidationError
		authErr       *AuthorizationError
		capacityErr   *CapacityExceededError
		notFoundErr   *NotFoundError
		dependencyErr *DependencyError
	)
	return errors.As(err, &validationErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &capacityErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &dependencyErr)
}

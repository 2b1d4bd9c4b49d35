package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrIdempotencyKey  = errors.New("idempotency key not found")
	ErrRecordNotFound  = errors.New("record not found")
	// ErrDuplicateReview is returned by storages when a reservation already has a review.
	ErrDuplicateReview = errors.New("reservation already has a review")
)

type InvalidRangeError struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func NewInvalidRangeError(checkIn, checkOut time.Time) *InvalidRangeError {
	return &InvalidRangeError{CheckIn: checkIn, CheckOut: checkOut}
}

func IsInvalidRangeError(err error) *InvalidRangeError {
	var rangeErr *InvalidRangeError

	if errors.As(err, &rangeErr) {
		return rangeErr
	}

	return nil
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf(
		"check-out %s must be after check-in %s",
		e.CheckOut.Format(time.DateOnly),
		e.CheckIn.Format(time.DateOnly),
	)
}

func (e *InvalidRangeError) Fields() map[string][]string {
	return map[string][]string{"checkOut": {"check-out must be after check-in"}}
}

// IncompleteBookingError is returned when a draft is submitted without dates or guests.
type IncompleteBookingError struct {
	missing []string
}

func NewIncompleteBookingError() *IncompleteBookingError {
	//nolint:exhaustruct
	return &IncompleteBookingError{}
}

func IsIncompleteBookingError(err error) *IncompleteBookingError {
	var incomplete *IncompleteBookingError

	if errors.As(err, &incomplete) {
		return incomplete
	}

	return nil
}

func (e *IncompleteBookingError) AddMissing(field string) {
	e.missing = append(e.missing, field)
}

func (e *IncompleteBookingError) MissingCount() int {
	return len(e.missing)
}

func (e *IncompleteBookingError) Missing() []string {
	return e.missing
}

func (e *IncompleteBookingError) Error() string {
	return "please select dates and the number of guests: missing " + strings.Join(e.missing, ", ")
}

func (e *IncompleteBookingError) Fields() map[string][]string {
	fields := make(map[string][]string, len(e.missing))
	for _, field := range e.missing {
		fields[field] = append(fields[field], "required")
	}

	return fields
}

type ValidationError struct {
	fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{
		fields: make(map[string][]string),
	}
}

func IsValidationError(err error) *ValidationError {
	var validationErr *ValidationError

	if errors.As(err, &validationErr) {
		return validationErr
	}

	return nil
}

func (e *ValidationError) FieldsCount() int {
	return len(e.fields)
}

func (e *ValidationError) AddError(field, msg string) {
	e.fields[field] = append(e.fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.fields[k], "; ")))
	}

	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Fields() map[string][]string {
	return e.fields
}

type NotFoundError struct {
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func IsNotFoundError(err error) *NotFoundError {
	var notFound *NotFoundError

	if errors.As(err, &notFound) {
		return notFound
	}

	return nil
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

// PersistenceError wraps a failed create or delete against the backing store.
// The triggering transition is left in its pre-call state.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func IsPersistenceError(err error) *PersistenceError {
	var persistenceErr *PersistenceError

	if errors.As(err, &persistenceErr) {
		return persistenceErr
	}

	return nil
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type StateError struct {
	From string
	Op   string
}

func NewStateError(from, op string) *StateError {
	return &StateError{From: from, Op: op}
}

func IsStateError(err error) *StateError {
	var stateErr *StateError

	if errors.As(err, &stateErr) {
		return stateErr
	}

	return nil
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a reservation in state '%s'", e.Op, e.From)
}

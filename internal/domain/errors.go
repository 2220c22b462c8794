package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used for classification with errors.Is.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDeserialization = errors.New("deserialization failed")
	ErrInvalidStorage  = errors.New("invalid storage file")
	ErrNotScheduled    = errors.New("notification is not scheduled")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidID       = errors.New("id must be a positive integer")
	ErrDelivery        = errors.New("delivery failed")
	ErrQueueFull       = errors.New("queue is at capacity, try again later")
)

// DuplicateIDError is returned when saving a record whose id already exists.
type DuplicateIDError struct {
	ID int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("record with id %d already exists", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrConflict }

// RecordNotFoundError is returned by find, update and delete for unknown ids.
type RecordNotFoundError struct {
	ID int64
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record with id %d not found", e.ID)
}

func (e *RecordNotFoundError) Is(target error) bool { return target == ErrNotFound }

// DeserializationError is returned when a stored or supplied mapping cannot
// be turned into a Notification. ID is zero when it is not known.
type DeserializationError struct {
	ID     int64
	Reason string
	Err    error
}

func (e *DeserializationError) Error() string {
	msg := "failed to deserialize notification"
	if e.ID != 0 {
		msg = fmt.Sprintf("failed to deserialize notification %d", e.ID)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }

func (e *DeserializationError) Unwrap() error { return e.Err }

// InvalidStorageFileError is returned when the storage document is not a JSON
// object keyed by positive integer ids.
type InvalidStorageFileError struct {
	Path string
	Err  error
}

func (e *InvalidStorageFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid JSON storage structure in file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid JSON storage structure in file %s", e.Path)
}

func (e *InvalidStorageFileError) Is(target error) bool { return target == ErrInvalidStorage }

func (e *InvalidStorageFileError) Unwrap() error { return e.Err }

// NotScheduledError is returned for operations that need a future sendAt.
type NotScheduledError struct {
	ID     int64
	Reason string
}

func (e *NotScheduledError) Error() string {
	return fmt.Sprintf("notification with id %d is not scheduled for future delivery (%s)", e.ID, e.Reason)
}

func (e *NotScheduledError) Is(target error) bool { return target == ErrNotScheduled }

// ValidationError describes one rejected request field.
// Detail is meant for debug output; Public is safe to show to any client.
type ValidationError struct {
	Field  string
	Detail string
	Public string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Detail
	}
	return e.Field + ": " + e.Detail
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PublicMessage returns the detailed message in debug mode and the generic one otherwise.
func (e *ValidationError) PublicMessage(debug bool) string {
	if debug || e.Public == "" {
		return e.Error()
	}
	return e.Public
}

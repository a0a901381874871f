// Package apperr defines the error classes returned by the chat core.
// Callers match them with errors.Is; only storage failures are retryable.
package apperr

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFriends            = errors.New("users are not friends")
	ErrAlreadyFriends        = errors.New("users are already friends")
	ErrRequestAlreadyPending = errors.New("friend request already pending")
	ErrSelfRequest           = errors.New("cannot send a friend request to yourself")
	ErrNotFound              = errors.New("not found")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrConflict              = errors.New("already exists")
)

type storageError struct {
	cause error
}

func (e *storageError) Error() string {
	return ErrStorageUnavailable.Error() + ": " + e.cause.Error()
}

func (e *storageError) Unwrap() error { return e.cause }

func (e *storageError) Is(target error) bool { return target == ErrStorageUnavailable }

// Unavailable marks err as a durable store failure. nil stays nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return pkgerrors.WithStack(&storageError{cause: err})
}

// FromStore converts a GORM error into the taxonomy: missing rows become
// ErrNotFound, anything else is a store failure.
func FromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return Unavailable(err)
	}
}

// Validation wraps ErrValidation with a field-level reason.
func Validation(reason string) error {
	return pkgerrors.Wrap(ErrValidation, reason)
}

// Retryable reports whether the caller may retry the same operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// Code returns a stable identifier for err, used by the API and catalogs.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFriends):
		return "not_friends"
	case errors.Is(err, ErrAlreadyFriends):
		return "already_friends"
	case errors.Is(err, ErrRequestAlreadyPending):
		return "request_pending"
	case errors.Is(err, ErrSelfRequest):
		return "self_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

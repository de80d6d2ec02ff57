package safeio

import (
	"context"
	"errors"
)

// Common errors returned by safeio utilities and backends.
var (
	// ErrNotFound is returned when a path does not exist.
	ErrNotFound = errors.New("safeio: not found")

	// ErrPermissionDenied is returned when access to a path is denied.
	ErrPermissionDenied = errors.New("safeio: permission denied")

	// ErrInvalidPath is returned when a path is malformed, escapes the
	// backend root, or contains forbidden characters.
	ErrInvalidPath = errors.New("safeio: invalid path")

	// ErrNotAFile is returned when a file path is required but the given
	// path is directory-shaped or names an existing directory.
	ErrNotAFile = errors.New("safeio: not a file path")

	// ErrInvalidArgument is returned when an option is out of range.
	ErrInvalidArgument = errors.New("safeio: invalid argument")

	// ErrNoData is matched by the error ReadWithRetry returns once every
	// attempt has failed.
	ErrNoData = errors.New("safeio: no data")

	// ErrBackendClosed is returned when operating on a closed backend.
	ErrBackendClosed = errors.New("safeio: backend closed")

	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("safeio: writer closed")

	// ErrUnknownBackend is returned by Open when the backend name is not registered.
	ErrUnknownBackend = errors.New("safeio: unknown backend")
)

// IsNotFound returns true if the error indicates a path was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied returns true if the error indicates permission was denied.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsContractViolation returns true if the error reports a caller mistake
// rather than a condition of the storage: a bad path shape, forbidden
// characters, or an out-of-range option.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrNotAFile) ||
		errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrInvalidArgument)
}

// IsRecoverable reports whether a failed read is worth retrying after a
// backoff. Missing files, I/O errors and network failures are treated as
// transient because external media may come back; permission problems,
// malformed paths and cancellation are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrPermissionDenied):
		return false
	case errors.Is(err, ErrBackendClosed):
		return false
	case IsContractViolation(err):
		return false
	}
	return true
}

package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrAccountNotFound is returned when no account exists for an id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNoVideoSource is returned when neither a file nor a URL was supplied.
	ErrNoVideoSource = errors.New("no video file or URL provided")

	// ErrVideoNotFound is returned when a stored video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrInvalidScript is returned when a generated video script fails validation.
	ErrInvalidScript = errors.New("invalid video script")
)

// InvalidInputError reports a missing or malformed required field.
type InvalidInputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	msg := "invalid input"
	if e.Field != "" {
		msg += " [" + e.Field + "]"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates a new InvalidInputError.
func NewInvalidInputError(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// StorageError wraps a disk I/O failure with the operation and path involved.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return e.Op + " [" + e.Path + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op, path string, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Err: err}
}

// RemoteFetchError reports a failed fetch of a source video.
// Status is zero when the request never produced a response.
type RemoteFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *RemoteFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return "fetch " + e.URL + ": failed"
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

// UploadError reports a failed read of an uploaded request body, as opposed
// to a failed write to disk.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "upload interrupted: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NoAccountError is returned when an operation needs an Account and none is usable.
type NoAccountError struct {
	AccountID AccountID
}

func (e *NoAccountError) Error() string {
	if e.AccountID == "" {
		return "no account selected"
	}
	return "no usable account [" + e.AccountID.String() + "]"
}

// Is lets errors.Is(err, ErrAccountNotFound) match an unknown account id.
func (e *NoAccountError) Is(target error) bool {
	return target == ErrAccountNotFound && e.AccountID != ""
}

// SessionExpiredError is returned when the access token expired and the refresh
// exchange failed too. The account has to be reconnected.
type SessionExpiredError struct {
	AccountID AccountID
	Err       error
}

func (e *SessionExpiredError) Error() string {
	return "session expired for account [" + e.AccountID.String() + "], reconnect: " + e.Err.Error()
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

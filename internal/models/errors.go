package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies task failures so the run summary can tell the user
// which assets are worth retrying.
type ErrorKind string

const (
	// ErrKindAuth means the API key was missing or rejected. Fatal to the
	// whole run; nothing can be listed or downloaded.
	ErrKindAuth ErrorKind = "auth"

	// ErrKindNetwork covers transport failures and non-2xx responses while
	// talking to the remote. Isolated to the affected asset.
	ErrKindNetwork ErrorKind = "network"

	// ErrKindIncompleteDownload means the stream ended before the declared
	// content length was received.
	ErrKindIncompleteDownload ErrorKind = "incomplete_download"

	// ErrKindExtractionFailed means the archive could not be fully unpacked;
	// the archive file is preserved on disk.
	ErrKindExtractionFailed ErrorKind = "extraction_failed"

	// ErrKindFilesystem covers local disk failures (permissions, disk full).
	ErrKindFilesystem ErrorKind = "filesystem"
)

// TaskError attaches an ErrorKind to an underlying cause.
type TaskError struct {
	Kind ErrorKind
	Err  error
}

// NewTaskError wraps err with the given kind.
func NewTaskError(kind ErrorKind, err error) *TaskError {
	return &TaskError{Kind: kind, Err: err}
}

func (e *TaskError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err if it is (or wraps) a TaskError,
// falling back to ErrKindNetwork for plain errors.
func KindOf(err error) ErrorKind {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindNetwork
}

package storage

import (
	"fmt"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCausePathError  StorageErrorCause = "path error"
	ErrCauseWriteError StorageErrorCause = "write error"
	ErrCauseDiskFull   StorageErrorCause = "disk full"
)

// StorageError wraps a page-save or file-download write failure. Disk-full
// conditions are retryable (a later attempt, possibly after the operator
// frees space, may succeed); every other path/write failure is not.
type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StorageError) IsRetryable() bool {
	return e.Retryable
}

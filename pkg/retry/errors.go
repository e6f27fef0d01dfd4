package retry

import (
	"fmt"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
)

type RetryErrorCause string

const (
	ErrZeroAttempt       RetryErrorCause = "zero attempt"
	ErrExhaustedAttempts RetryErrorCause = "exhausted attempt"
)

type RetryError struct {
	Message   string
	Retryable bool
	Cause     RetryErrorCause
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry error: %s, %s", e.Cause, e.Message)
}

func (e *RetryError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RetryError) IsRetryable() bool {
	return e.Retryable
}

// Is allows errors.Is to match any *RetryError, mirroring the loose
// sentinel-matching the fetcher uses to tell RetryError from the
// task's own ClassifiedError.
func (e *RetryError) Is(target error) bool {
	_, ok := target.(*RetryError)
	return ok
}

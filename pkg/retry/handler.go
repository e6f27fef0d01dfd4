package retry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
	"github.com/kasumi-gikai/minutes-crawler/pkg/timeutil"
)

// isErrorRetryable reports whether a ClassifiedError should trigger another
// attempt. Errors that don't opine default to retryable, matching the
// original fetcher's conservative stance.
type hasRetryable interface {
	IsRetryable() bool
}

func isErrorRetryable(err failure.ClassifiedError) bool {
	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	return true
}

// Retry executes fn up to retryParam.MaxAttempts times, sleeping with
// exponential backoff and jitter between retryable failures. An error
// that reports IsRetryable() == false ends the loop at once; errors
// that report true, or have no IsRetryable method, trigger another
// attempt.
func Retry[T any](retryParam RetryParam, fn func() (T, failure.ClassifiedError)) Result[T] {
	var lastErr failure.ClassifiedError
	var zero T

	if retryParam.MaxAttempts < 1 {
		return Result[T]{
			value: zero,
			err: &RetryError{
				Message:   "max attempt cannot be 0",
				Cause:     ErrZeroAttempt,
				Retryable: false,
			},
			attempts: 0,
		}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return NewSuccessResult(result, attempt)
		}

		lastErr = err

		if !isErrorRetryable(err) {
			return Result[T]{value: zero, err: err, attempts: attempt}
		}

		if attempt == retryParam.MaxAttempts {
			break
		}

		delay := timeutil.ExponentialBackoffDelay(attempt, retryParam.Jitter, *rng, retryParam.BackoffParam)
		time.Sleep(delay)
	}

	return Result[T]{
		value: zero,
		err: &RetryError{
			Message:   fmt.Sprintf("exhausted %d attempts, last error: %v", retryParam.MaxAttempts, lastErr),
			Cause:     ErrExhaustedAttempts,
			Retryable: false,
		},
		attempts: retryParam.MaxAttempts,
	}
}

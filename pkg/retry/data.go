package retry

import (
	"time"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
	"github.com/kasumi-gikai/minutes-crawler/pkg/timeutil"
)

// RetryParam holds the parameters for retry logic. These come from config
// and are not known by the retry handler internally.
type RetryParam struct {
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

func NewRetryParam(jitter time.Duration, randomSeed int64, maxAttempts int, backoffParam timeutil.BackoffParam) RetryParam {
	return RetryParam{
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}

type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

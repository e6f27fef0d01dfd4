package limiter

import "time"

// hostTiming tracks the fields resolveDelayLocked needs to compute the next
// permitted fetch time for one host.
type hostTiming struct {
	lastFetchAt  time.Time
	crawlDelay   time.Duration
	backoffUntil time.Time
}

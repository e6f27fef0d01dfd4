package limiter_test

import (
	"sync"
	"testing"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/pkg/limiter"
)

func TestConcurrentRateLimiter_FirstWaitIsImmediate(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(50*time.Millisecond, 0)

	start := time.Now()
	l.Wait("city.example.jp")
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("first Wait for an unseen host took %v, want near-instant", elapsed)
	}
}

func TestConcurrentRateLimiter_SecondWaitRespectsBaseDelay(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(40*time.Millisecond, 0)

	l.Wait("city.example.jp")
	start := time.Now()
	l.Wait("city.example.jp")
	elapsed := time.Since(start)

	if elapsed < 30*time.Millisecond {
		t.Errorf("second Wait elapsed %v, want at least close to the base delay", elapsed)
	}
}

func TestConcurrentRateLimiter_DifferentHostsDoNotBlockEachOther(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(100*time.Millisecond, 0)

	l.Wait("a.example.jp")
	start := time.Now()
	l.Wait("b.example.jp")
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("Wait on a distinct host took %v, want near-instant", elapsed)
	}
}

func TestConcurrentRateLimiter_CrawlDelayOverridesShorterBaseDelay(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(5*time.Millisecond, 0)
	l.SetCrawlDelay("city.example.jp", 60*time.Millisecond)

	l.Wait("city.example.jp")
	start := time.Now()
	l.Wait("city.example.jp")
	elapsed := time.Since(start)

	if elapsed < 45*time.Millisecond {
		t.Errorf("Wait elapsed %v, want close to the crawl-delay of 60ms", elapsed)
	}
}

func TestConcurrentRateLimiter_BackoffDelaysNextFetch(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(0, 0)
	l.Wait("city.example.jp")
	l.Backoff("city.example.jp", 60*time.Millisecond)

	start := time.Now()
	l.Wait("city.example.jp")
	if elapsed := time.Since(start); elapsed < 45*time.Millisecond {
		t.Errorf("Wait elapsed %v, want close to the 60ms backoff window", elapsed)
	}
}

func TestConcurrentRateLimiter_ResetBackoffClearsWindow(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(0, 0)
	l.Wait("city.example.jp")
	l.Backoff("city.example.jp", 200*time.Millisecond)
	l.ResetBackoff("city.example.jp")

	start := time.Now()
	l.Wait("city.example.jp")
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("Wait elapsed %v after ResetBackoff, want near-instant", elapsed)
	}
}

func TestConcurrentRateLimiter_ConcurrentCallersSerializePerHost(t *testing.T) {
	l := limiter.NewConcurrentRateLimiter(10*time.Millisecond, 0)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Wait("city.example.jp")
		}()
	}
	wg.Wait()

	// Five sequential fetches to the same host at a 10ms base delay take
	// at least 4 * 10ms once serialized.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("five concurrent Wait calls on one host took %v, want at least ~40ms", elapsed)
	}
}

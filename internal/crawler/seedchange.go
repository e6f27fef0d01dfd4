package crawler

import (
	"context"
	"net/url"

	"github.com/kasumi-gikai/minutes-crawler/internal/httpclient"
	"github.com/kasumi-gikai/minutes-crawler/internal/manifest"
	"github.com/kasumi-gikai/minutes-crawler/pkg/hashutil"
)

type changeOutcome int

const (
	changeRecrawl changeOutcome = iota
	changeSkipUnchanged
	changeSkipNoDiff
)

// changeResult carries the seed-change detector's verdict and, when a
// recrawl is warranted and the seed URL was already fetched to reach
// that verdict, the fetch result so the BFS loop doesn't repeat it.
type changeResult struct {
	outcome  changeOutcome
	prefetch *httpclient.FetchResult
}

// detectChange implements SPEC_FULL §4.5's four-branch decision
// procedure against a seed that previously completed with a stored
// validator. It is only called when skipCompletedSeeds and
// recheckSeeds are both set and forceCrawl is not.
func (c *Crawler) detectChange(ctx context.Context, seedURL url.URL, stored manifest.Validator) changeResult {
	validator := httpclient.Validator{
		ETag:         stored.ETag,
		LastModified: stored.LastModified,
	}

	condResult, err := c.httpClient.ConditionalGet(ctx, seedURL, validator, c.retryParam())
	if err != nil {
		// Can't positively confirm "unchanged" without a response; err
		// on the side of recrawling rather than silently going stale.
		return changeResult{outcome: changeRecrawl}
	}

	switch condResult.Status {
	case httpclient.ConditionalUnchanged:
		return changeResult{outcome: changeSkipUnchanged}
	case httpclient.ConditionalChanged:
		body := condResult.Result.Body()
		if stored.ContentSHA256 != "" && hashutil.SHA256Hex(body) == stored.ContentSHA256 {
			return changeResult{outcome: changeSkipNoDiff}
		}
		result := condResult.Result
		return changeResult{outcome: changeRecrawl, prefetch: &result}
	default:
		return changeResult{outcome: changeRecrawl}
	}
}

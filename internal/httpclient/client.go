package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
	"github.com/kasumi-gikai/minutes-crawler/pkg/retry"
)

const maxRedirects = 5

/*
Responsibilities

  - Perform HTTP requests with a fixed timeout and user-agent.
  - Apply a bounded redirect policy and no cookie jar.
  - Classify responses into html, binary or error.
  - Retry transient failures with backoff before surfacing an error.

The client never parses content; it only returns bytes and metadata.
*/
type Client struct {
	metadataSink metadata.Sink
	httpClient   *http.Client
	userAgent    string
}

func New(userAgent string, timeout time.Duration, metadataSink metadata.Sink) *Client {
	return &Client{
		metadataSink: metadataSink,
		userAgent:    userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
			Jar: nil,
		},
	}
}

// Get fetches fetchURL, retrying transient failures per retryParam, and
// records the outcome on the metadata sink. crawlDepth is purely
// informational, stamped onto the fetch event.
func (c *Client) Get(ctx context.Context, fetchURL url.URL, crawlDepth int, retryParam retry.RetryParam) (FetchResult, failure.ClassifiedError) {
	start := time.Now()

	result, err := c.fetchWithRetry(ctx, fetchURL, retryParam)

	duration := time.Since(start)

	event := metadata.FetchEvent{
		FetchURL:   fetchURL.String(),
		Duration:   duration,
		CrawlDepth: crawlDepth,
	}
	if err == nil {
		event.HTTPStatus = result.StatusCode()
		event.ContentType = result.ContentType()
	}
	c.metadataSink.RecordFetch(event)

	if err != nil {
		c.recordError("Client.Get", fetchURL, err)
		return FetchResult{}, err
	}
	return result, nil
}

func (c *Client) recordError(action string, fetchURL url.URL, err failure.ClassifiedError) {
	var cause metadata.ErrorCause
	if fetchErr, ok := err.(*FetchError); ok {
		cause = fetchErr.MapToMetadataCause()
	} else {
		cause = metadata.CauseUnknown
	}
	c.metadataSink.RecordError(metadata.ErrorRecord{
		PackageName: "httpclient",
		Action:      action,
		Cause:       cause,
		ErrorString: err.Error(),
		ObservedAt:  time.Now(),
		Attrs: []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchURL.String()),
		},
	})
}

func (c *Client) fetchWithRetry(ctx context.Context, fetchURL url.URL, retryParam retry.RetryParam) (FetchResult, failure.ClassifiedError) {
	task := func() (FetchResult, failure.ClassifiedError) {
		return c.performFetch(ctx, fetchURL, nil)
	}
	result := retry.Retry(retryParam, task)
	return result.Value(), result.Err()
}

// ConditionalGet issues a GET carrying If-None-Match / If-Modified-Since
// derived from validator. A 304 maps to ConditionalUnchanged; any other
// successful response maps to ConditionalChanged; a non-retryable fetch
// failure maps to ConditionalMissing.
func (c *Client) ConditionalGet(ctx context.Context, fetchURL url.URL, validator Validator, retryParam retry.RetryParam) (ConditionalResult, failure.ClassifiedError) {
	headers := map[string]string{}
	if validator.ETag != "" {
		headers["If-None-Match"] = validator.ETag
	}
	if validator.LastModified != "" {
		headers["If-Modified-Since"] = validator.LastModified
	}

	task := func() (FetchResult, failure.ClassifiedError) {
		return c.performFetch(ctx, fetchURL, headers)
	}
	result := retry.Retry(retryParam, task)

	if err := result.Err(); err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotModified {
			return ConditionalResult{Status: ConditionalUnchanged}, nil
		}
		return ConditionalResult{Status: ConditionalMissing}, err
	}

	return ConditionalResult{Status: ConditionalChanged, Result: result.Value()}, nil
}

func (c *Client) performFetch(ctx context.Context, fetchURL url.URL, extraHeaders map[string]string) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}

	for k, v := range requestHeaders(c.userAgent) {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return FetchResult{}, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseTimeout}
		}
		if isRedirectLimitErr(err) {
			return FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseRedirectLimitExceeded}
		}
		return FetchResult{}, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchResult{}, &FetchError{Message: "not modified", Retryable: false, Cause: ErrCauseHTTPStatus, StatusCode: resp.StatusCode}
	}

	switch {
	case resp.StatusCode >= 500:
		return FetchResult{}, &FetchError{Message: fmt.Sprintf("server error: %d", resp.StatusCode), Retryable: true, Cause: ErrCauseRequest5xx, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return FetchResult{}, &FetchError{Message: "rate limited (429)", Retryable: true, Cause: ErrCauseRequestTooMany, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusForbidden:
		return FetchResult{}, &FetchError{Message: "access forbidden (403)", Retryable: false, Cause: ErrCauseRequestPageForbidden, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return FetchResult{}, &FetchError{Message: fmt.Sprintf("client error: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseHTTPStatus, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return FetchResult{}, &FetchError{Message: fmt.Sprintf("unresolved redirect: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseRedirectLimitExceeded, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent:
		return FetchResult{}, &FetchError{Message: fmt.Sprintf("unexpected status: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{Message: err.Error(), Retryable: true, Cause: ErrCauseReadResponseBodyError}
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	finalURL := fetchURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = *resp.Request.URL
	}

	return FetchResult{
		url:         fetchURL,
		finalURL:    finalURL,
		body:        body,
		statusCode:  resp.StatusCode,
		headers:     headers,
		contentType: resp.Header.Get("Content-Type"),
		fetchedAt:   time.Now(),
	}, nil
}

// IsHTMLContent reports whether contentType indicates a page the seed
// crawler should parse for links, as opposed to a binary payload.
func IsHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml")
}

// IsBinaryContent reports whether contentType identifies a downloadable
// payload rather than a page. Extension-based classification of the
// final URL is the classify package's responsibility (is_minute_file).
func IsBinaryContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "application/") || strings.HasPrefix(ct, "image/")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "ja,en-US;q=0.7,en;q=0.3",
		"Connection":      "keep-alive",
	}
}

func isTimeoutErr(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isRedirectLimitErr(err error) bool {
	return strings.Contains(err.Error(), "stopped after") && strings.Contains(err.Error(), "redirects")
}

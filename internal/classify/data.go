package classify

import "net/url"

// Link is one anchor discovered on a page: the absolute, normalized
// target URL and the anchor's trimmed text content.
type Link struct {
	URL        url.URL
	AnchorText string
}

// Score is looks_like_minute's three-valued verdict.
type Score int

const (
	ScoreNone Score = iota
	ScoreHint
	ScoreKeyword
)

// Rules bundles the configured keyword/extension/hint sets the pure
// classification functions are evaluated against. Constructed once per
// run from config and passed by value since it never mutates.
type Rules struct {
	Keywords []string
	FileExts []string
	URLHints []string
}

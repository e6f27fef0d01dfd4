package classify

import (
	"net/url"
	"strings"

	"github.com/kasumi-gikai/minutes-crawler/pkg/fileutil"
	"github.com/kasumi-gikai/minutes-crawler/pkg/urlutil"
)

/*
Responsibilities

  - Normalize URLs the same way everywhere (frontier keys, manifest
    fields, visited sets).
  - Decide whether a URL names a minute-body file by extension.
  - Score a link's likelihood of being a minute document by keyword and
    URL-hint matching.

This package is pure: no I/O, no shared state, safe to call from every
worker goroutine without synchronization.
*/

// Normalize resolves ref against base and canonicalizes the result. It
// is the single normalization path shared by the frontier's visited
// set, the manifest's url fields, and the seed scope check.
func Normalize(base url.URL, ref string) (url.URL, bool) {
	return urlutil.Resolve(base, ref)
}

// IsMinuteFile reports whether u's last path segment carries an
// extension in rules.FileExts. HTML never counts as a file regardless
// of the configured set, since a page must always be followed rather
// than downloaded as a payload.
func IsMinuteFile(u url.URL, rules Rules) bool {
	ext := fileutil.GetFileExtension(u.Path)
	if ext == "" {
		return false
	}
	if ext == "html" || ext == "htm" {
		return false
	}
	for _, allowed := range rules.FileExts {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}

// LooksLikeMinute scores a candidate link: ScoreKeyword if the anchor
// text or URL contains a configured keyword, ScoreHint if the URL
// contains a configured hint token, ScoreNone otherwise.
func LooksLikeMinute(u url.URL, anchorText string, rules Rules) Score {
	haystack := strings.ToLower(anchorText + " " + u.String())

	for _, kw := range rules.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(anchorText, kw) || strings.Contains(u.String(), kw) {
			return ScoreKeyword
		}
	}

	for _, hint := range rules.URLHints {
		if hint == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(hint)) {
			return ScoreHint
		}
	}

	return ScoreNone
}

// IsPayloadLink applies the seed crawler's selection rule: a link is a
// payload iff it names a minute file and scores at least ScoreHint.
func IsPayloadLink(u url.URL, anchorText string, rules Rules) bool {
	return IsMinuteFile(u, rules) && LooksLikeMinute(u, anchorText, rules) >= ScoreHint
}

func ignorableScheme(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:")
}

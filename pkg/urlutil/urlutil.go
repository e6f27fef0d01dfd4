package urlutil

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes u the way the seed crawler's frontier keys and
// the manifest's url fields expect: lowercase scheme and host, default
// port stripped, empty path defaulted to "/", duplicate slashes in the
// path collapsed, and the fragment dropped. Unlike the teacher's
// Canonicalize, the query string is preserved verbatim since many
// municipality sites address individual minutes documents through
// query parameters (e.g. ?id=1234) rather than path segments.
func Normalize(u url.URL) url.URL {
	out := u

	out.Scheme = strings.ToLower(out.Scheme)
	out.Host = strings.ToLower(stripDefaultPort(out.Scheme, out.Host))

	if out.Path == "" {
		out.Path = "/"
	} else {
		out.Path = collapseSlashes(out.Path)
	}

	out.Fragment = ""
	out.RawFragment = ""

	return out
}

// Resolve returns the absolute URL reached by following ref relative to
// base, then running it through Normalize. This is how the link
// classifier turns an anchor's possibly-relative href into a frontier
// candidate.
func Resolve(base url.URL, ref string) (url.URL, bool) {
	parsedRef, err := url.Parse(ref)
	if err != nil {
		return url.URL{}, false
	}
	resolved := base.ResolveReference(parsedRef)
	return Normalize(*resolved), true
}

func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}

func collapseSlashes(path string) string {
	var b strings.Builder
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

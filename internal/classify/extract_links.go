package classify

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks walks every a[href] in htmlBytes and resolves it against
// base, skipping javascript:/mailto:/tel: targets and empty hrefs. This
// reuses the teacher's goquery/cascadia DOM-walking stack, redirected
// from content extraction to link discovery.
func ExtractLinks(htmlBytes []byte, base url.URL) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil, err
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || ignorableScheme(href) {
			return
		}

		resolved, ok := Normalize(base, href)
		if !ok {
			return
		}

		links = append(links, Link{
			URL:        resolved,
			AnchorText: strings.TrimSpace(sel.Text()),
		})
	})

	return links, nil
}

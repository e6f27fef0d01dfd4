package robots

import "time"

// RobotsResponse is the parsed content of one robots.txt file. It is an
// intermediate representation; decisions are made against a ruleSet
// derived from it via MapResponseToRuleSet.
type RobotsResponse struct {
	Host       string
	Sitemaps   []string
	UserAgents []UserAgentGroup
}

type UserAgentGroup struct {
	UserAgents []string
	Allows     []PathRule
	Disallows  []PathRule
	CrawlDelay *time.Duration
}

type PathRule struct {
	Path string
}

type pathRule struct {
	prefix string
}

// ruleSet is the immutable, decision-ready form of one host's robots
// policy for the crawler's configured user agent.
type ruleSet struct {
	host          string
	userAgent     string
	allowRules    []pathRule
	disallowRules []pathRule
	crawlDelay    *time.Duration
	fetchedAt     time.Time
	matchedGroup  bool
	hasGroups     bool
	// permissive is true when the fetch failed (network, 5xx, 4xx) and
	// the host must be treated as fully allowed.
	permissive bool
}

func (r ruleSet) Host() string { return r.host }

func (r ruleSet) CrawlDelay() *time.Duration {
	if r.crawlDelay == nil {
		return nil
	}
	d := *r.crawlDelay
	return &d
}

package robots

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

// ParseRobotsTxt parses robots.txt content honoring User-agent grouping,
// Allow/Disallow/Crawl-delay directives, and rules that appear before
// any User-agent line (treated as an implicit global "*" group).
func ParseRobotsTxt(content, host string) RobotsResponse {
	response := RobotsResponse{Host: host}

	scanner := bufio.NewScanner(strings.NewReader(content))

	var currentGroup *UserAgentGroup
	var globalGroup UserAgentGroup
	hasGlobalGroup := false

	flush := func() {
		if currentGroup != nil {
			response.UserAgents = append(response.UserAgents, *currentGroup)
			currentGroup = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(line[:colonIdx]))
		value := strings.TrimSpace(line[colonIdx+1:])

		switch field {
		case "user-agent":
			if currentGroup == nil {
				currentGroup = &UserAgentGroup{UserAgents: []string{value}}
			} else if len(currentGroup.Allows) == 0 && len(currentGroup.Disallows) == 0 && currentGroup.CrawlDelay == nil {
				currentGroup.UserAgents = append(currentGroup.UserAgents, value)
			} else {
				flush()
				currentGroup = &UserAgentGroup{UserAgents: []string{value}}
			}
		case "allow":
			if currentGroup != nil {
				currentGroup.Allows = append(currentGroup.Allows, PathRule{Path: value})
			} else {
				globalGroup.Allows = append(globalGroup.Allows, PathRule{Path: value})
				hasGlobalGroup = true
			}
		case "disallow":
			if currentGroup != nil {
				currentGroup.Disallows = append(currentGroup.Disallows, PathRule{Path: value})
			} else {
				globalGroup.Disallows = append(globalGroup.Disallows, PathRule{Path: value})
				hasGlobalGroup = true
			}
		case "crawl-delay":
			if currentGroup != nil {
				var seconds float64
				if _, err := fmt.Sscanf(value, "%f", &seconds); err == nil && seconds >= 0 {
					d := time.Duration(seconds * float64(time.Second))
					currentGroup.CrawlDelay = &d
				}
			}
		case "sitemap":
			if value != "" {
				response.Sitemaps = append(response.Sitemaps, value)
			}
		}
	}
	flush()

	if hasGlobalGroup {
		globalGroup.UserAgents = []string{"*"}
		response.UserAgents = append([]UserAgentGroup{globalGroup}, response.UserAgents...)
	}

	return response
}

// MapResponseToRuleSet selects the group that best matches
// targetUserAgent and builds the decision-ready ruleSet from it.
func MapResponseToRuleSet(response RobotsResponse, targetUserAgent string, fetchedAt time.Time) ruleSet {
	rs := ruleSet{
		host:      response.Host,
		userAgent: targetUserAgent,
		fetchedAt: fetchedAt,
		hasGroups: len(response.UserAgents) > 0,
	}

	group := findBestMatchingGroup(response.UserAgents, targetUserAgent)
	if group == nil {
		return rs
	}

	rs.matchedGroup = true
	for _, a := range group.Allows {
		if a.Path != "" {
			rs.allowRules = append(rs.allowRules, pathRule{prefix: normalizePath(a.Path)})
		}
	}
	for _, d := range group.Disallows {
		if d.Path != "" {
			rs.disallowRules = append(rs.disallowRules, pathRule{prefix: normalizePath(d.Path)})
		}
	}
	if group.CrawlDelay != nil {
		delay := *group.CrawlDelay
		rs.crawlDelay = &delay
	}
	return rs
}

// findBestMatchingGroup implements the precedence rule: exact
// case-insensitive match wins outright; otherwise the longest
// non-wildcard prefix match wins; otherwise "*" if present.
func findBestMatchingGroup(groups []UserAgentGroup, targetUserAgent string) *UserAgentGroup {
	var bestMatch *UserAgentGroup
	targetLower := strings.ToLower(targetUserAgent)
	bestLen := 0

	for i := range groups {
		group := &groups[i]
		for _, ua := range group.UserAgents {
			uaLower := strings.ToLower(ua)
			if uaLower == targetLower {
				return group
			}
			if ua == "*" {
				if bestMatch == nil {
					bestMatch = group
				}
				continue
			}
			if strings.HasPrefix(targetLower, uaLower) && len(uaLower) > bestLen {
				bestMatch = group
				bestLen = len(uaLower)
			}
		}
	}
	return bestMatch
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// isAllowed implements standard longest-match precedence: the rule
// (allow or disallow) with the longest matching prefix wins; ties favor
// Allow. A host that failed to fetch robots.txt (rs.permissive) is
// always allowed. A host with no matching user-agent group, or a group
// with no rules at all, is also allowed.
func (r ruleSet) isAllowed(path string) bool {
	if r.permissive {
		return true
	}
	if !r.matchedGroup {
		return true
	}

	bestLen := -1
	allowed := true

	for _, rule := range r.disallowRules {
		if matchesPrefix(path, rule.prefix) && len(rule.prefix) > bestLen {
			bestLen = len(rule.prefix)
			allowed = false
		}
	}
	for _, rule := range r.allowRules {
		if matchesPrefix(path, rule.prefix) && len(rule.prefix) >= bestLen {
			bestLen = len(rule.prefix)
			allowed = true
		}
	}

	return allowed
}

func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return strings.HasPrefix(path, prefix)
}

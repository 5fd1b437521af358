// Package scraper implements listing fetching, extraction, filtering and the
// daily scrape cycle.
package scraper

import "strings"

// Verdict is the outcome of screening one listing.
type Verdict int

const (
	Keep      Verdict = iota
	NoKeyword         // title names none of the site's keywords
	RedFlag           // title or company names an excluded role
)

func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case NoKeyword:
		return "no keyword"
	case RedFlag:
		return "red flag"
	}
	return "unknown"
}

// Screen decides whether a listing belongs on a pilot board. The title must
// contain one of keywords (any title passes when keywords is empty) and
// neither title nor company may contain a red flag. Card summaries are not
// screened: board rows routinely mention other roles and link paths.
func Screen(title, company string, keywords, redFlags []string) Verdict {
	lowerTitle := strings.ToLower(title)
	if len(keywords) > 0 && !containsAny(lowerTitle, keywords) {
		return NoKeyword
	}
	if containsAny(lowerTitle, redFlags) || containsAny(strings.ToLower(company), redFlags) {
		return RedFlag
	}
	return Keep
}

// containsAny reports whether lower contains any non-empty term, ignoring case.
func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

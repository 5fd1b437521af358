// Package classify assigns tags, location relevance and flight-hour minimums
// to free text. Every function is pure: the result depends only on the input
// and the fixed tables below.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

type tagRule struct {
	tag string
	re  *regexp.Regexp
}

// tagRules is evaluated in order; Tags returns matches in this order.
var tagRules = []tagRule{
	// aircraft
	{"PC-12", regexp.MustCompile(`(?i)\bpc[\s\-_\x{2010}-\x{2015}]?12(?:[^0-9]|$)`)},
	{"Caravan", regexp.MustCompile(`(?i)\bcaravan\b|\bc[\s\-]?208`)},
	{"King Air", regexp.MustCompile(`(?i)\bking\s?air\b|\bbe[\s\-]?(?:200|350)\b`)},
	{"CRJ", regexp.MustCompile(`(?i)\bcrj[\s\-]?\d*\b`)},
	{"ERJ", regexp.MustCompile(`(?i)\berj[\s\-]?\d*\b|\be[\s\-]?175\b|\bembraer\b`)},
	{"Citation", regexp.MustCompile(`(?i)\bcitation\b`)},
	{"Learjet", regexp.MustCompile(`(?i)\blear\s?jet\b`)},
	// operating rules
	{"Part 91", regexp.MustCompile(`(?i)\bpart\s?91\b`)},
	{"Part 121", regexp.MustCompile(`(?i)\bpart\s?121\b`)},
	{"Part 135", regexp.MustCompile(`(?i)\bpart\s?135\b`)},
	// roles
	{"Captain", regexp.MustCompile(`(?i)\bcaptain\b|\bpic\b`)},
	{"First Officer", regexp.MustCompile(`(?i)\bfirst\s+officer\b|\bF/O\b|\bSIC\b`)},
	{"Instructor", regexp.MustCompile(`(?i)\bcfii?\b|\binstructor\b`)},
	// mission
	{"Cargo", regexp.MustCompile(`(?i)\bcargo\b|\bfreight\b`)},
	{"Medevac", regexp.MustCompile(`(?i)\bmedevac\b|\bair\s+(?:ambulance|medical)\b`)},
	{"Charter", regexp.MustCompile(`(?i)\bcharter\b`)},
}

// Places is the Arizona place-name set used by LocationMatch.
var Places = []string{
	"Arizona",
	"Phoenix",
	"Scottsdale",
	"Mesa",
	"Tempe",
	"Tucson",
	"Flagstaff",
	"Prescott",
	"Chandler",
	"Gilbert",
	"Goodyear",
	"Glendale",
	"Deer Valley",
	"Sedona",
	"Yuma",
	"Kingman",
	"Show Low",
	"Sierra Vista",
	"Lake Havasu",
	"Casa Grande",
	"Marana",
}

var (
	placeRe = buildPlaceRegexp(Places)
	// state code only in upper case; "az" inside ordinary words is never a hit
	stateCodeRe = regexp.MustCompile(`\bAZ\b`)

	hoursRe = regexp.MustCompile(`(?i)\b(\d{1,2},\d{3}|\d{2,5})\s*\+?\s*(?:total\s+)?(?:flight\s+)?(?:hours|hrs|hr)\b`)
)

func buildPlaceRegexp(places []string) *regexp.Regexp {
	quoted := make([]string, 0, len(places))
	for _, p := range places {
		// allow any run of whitespace inside multi-word names
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Tags returns every tag whose rule matches text, without duplicates.
// The result is never nil.
func Tags(text string) []string {
	tags := make([]string, 0, 4)
	for _, r := range tagRules {
		if r.re.MatchString(text) {
			tags = append(tags, r.tag)
		}
	}
	return tags
}

// LocationMatch reports whether text mentions an Arizona place.
func LocationMatch(text string) bool {
	return placeRe.MatchString(text) || stateCodeRe.MatchString(text)
}

// HoursRequired returns the first flight-hour figure found in text
// ("1,500 hours TT" → 1500), or 0 when there is none.
func HoursRequired(text string) int {
	m := hoursRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

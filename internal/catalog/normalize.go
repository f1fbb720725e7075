package catalog

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes anything that looks like a markup tag and trims the
// result. Empty input passes through unchanged.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// ParseFuzzyDate parses the loose date formats the catalog APIs emit:
//
//   - "2006-01-02" exactly
//   - "2006-01-00" (unknown day, substitute day 01)
//   - "2006"       (bare year, January 1st)
//
// Anything else returns nil. Callers decide the fallback policy; there
// is no sentinel date.
func ParseFuzzyDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	if strings.HasSuffix(s, "-00") {
		if t, err := time.Parse("2006-01-02", s[:len(s)-3]+"-01"); err == nil {
			return &t
		}
	}
	if len(s) == 4 {
		if t, err := time.Parse("2006", s); err == nil {
			return &t
		}
	}
	return nil
}

// publisherRule maps a keyword found in a series/volume name to a
// publisher. The ComicVine search endpoint does not expose the publisher
// directly, so this is a documented approximation, not ground truth.
type publisherRule struct {
	keyword   string
	publisher string
}

// Ordered: first match wins.
var publisherRules = []publisherRule{
	{"marvel", "Marvel Comics"},
	{"dc comics", "DC Comics"},
	{"batman", "DC Comics"},
	{"superman", "DC Comics"},
	{"image", "Image Comics"},
}

// PublisherForSeries guesses a publisher from a series name via keyword
// matching, defaulting to "Unknown".
func PublisherForSeries(series string) string {
	s := strings.ToLower(series)
	for _, rule := range publisherRules {
		if strings.Contains(s, rule.keyword) {
			return rule.publisher
		}
	}
	return "Unknown"
}

// topFrequent returns the up-to-n most frequent non-blank values,
// most frequent first. Ties keep first-appearance order so the output
// is deterministic.
func topFrequent(values []string, n int) []string {
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order[v] = i
		}
		counts[v]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return order[keys[i]] < order[keys[j]]
	})

	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// truncateBody keeps error logs readable when an upstream returns a
// large payload.
func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}

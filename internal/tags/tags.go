// Package tags extracts and matches hashtags in post bodies.
package tags

import (
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`#[\w\p{L}]+`)

// Extract returns the distinct hashtags found in text, lowercased and
// without the leading '#', in order of first appearance.
func Extract(text string) []string {
	matches := tagRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		t := strings.ToLower(strings.TrimPrefix(m, "#"))
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Normalize canonicalizes a user-supplied tag query: the leading '#' is
// optional and matching is case-insensitive.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), "#"))
}

// Match reports whether text contains the queried hashtag.
func Match(text, query string) bool {
	q := Normalize(query)
	if q == "" {
		return false
	}
	for _, t := range Extract(text) {
		if t == q {
			return true
		}
	}
	return false
}

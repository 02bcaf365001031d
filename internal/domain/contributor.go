package domain

import (
	"regexp"
	"strings"
)

var contribRe = regexp.MustCompile(`contrib/(\d+)`)

// ContributorID extracts the numeric contributor id from a Maps profile URI,
// e.g. "https://www.google.com/maps/contrib/1234/reviews" -> "1234".
func ContributorID(uri string) (string, bool) {
	m := contribRe.FindStringSubmatch(uri)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeName is the display-name form used as an identity fallback.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AuthorKey resolves the grouping key for a review author: the contributor id
// when the URI carries one, the normalized display name otherwise.
func AuthorKey(uri *string, name string) string {
	if uri != nil {
		if id, ok := ContributorID(*uri); ok {
			return id
		}
	}
	return NormalizeName(name)
}

package memories

import (
	"strings"
)

// Filter returns the records whose LocationName or Description contains
// query, case-insensitively, preserving their order. An empty (or
// whitespace-only) query returns a copy of the full list. records is never
// modified.
func Filter(records []Memory, query string) []Memory {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Memory, 0, len(records))
	for _, m := range records {
		if q == "" || Matches(m, q) {
			out = append(out, m)
		}
	}
	return out
}

// Matches reports whether m matches an already lower-cased query.
func Matches(m Memory, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(m.LocationName), lowerQuery) ||
		strings.Contains(strings.ToLower(m.Description), lowerQuery)
}

// Package normalize canonicalizes user-supplied identity fields before they
// are stored or compared.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims surrounding whitespace and lower-cases the address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses interior runs of
// whitespace to a single space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StudentID trims whitespace and upper-cases the identifier so "s-001" and
// "S-001" collide on the unique index.
func StudentID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Category trims and lower-cases a club category. An empty result means
// "uncategorized".
func Category(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Search trims a free-text search term and drops control characters.
func Search(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

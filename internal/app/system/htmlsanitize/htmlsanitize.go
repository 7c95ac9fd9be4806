// Package htmlsanitize scrubs user-supplied text with bluemonday before it is
// stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps user-generated-content formatting (paragraphs, emphasis,
// safe links) and drops scripts, handlers and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText strips every tag and returns unescaped, trimmed text. Used for
// names, venues and other single-line fields.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Package sanitize strips markup from free-form text inputs before they are
// stored or echoed back: relationship details, safe-zone names, alert
// messages and reasons.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes all HTML from s and trims surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}

// TextMax sanitizes s and truncates the result to max runes.
func TextMax(s string, max int) string {
	clean := Text(s)
	runes := []rune(clean)
	if len(runes) > max {
		return string(runes[:max])
	}
	return clean
}

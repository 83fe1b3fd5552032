// Package slug normalizes free-form text into URL-safe post slugs.
package slug

import (
	"regexp"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]+`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphenRuns = regexp.MustCompile(`-{2,}`)
)

// Make normalizes raw into a URL-safe slug: lowercased, trimmed, characters
// outside [a-z0-9\s-] stripped, whitespace and hyphen runs collapsed into
// single hyphens, leading and trailing hyphens removed. An input with no
// usable characters yields ""; rejecting that is the caller's job.
func Make(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

package dedupe

import "strings"

// Fingerprint normalizes article content into a near-duplicate key:
// case-folded and trimmed of surrounding whitespace.
func Fingerprint(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

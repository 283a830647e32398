// Package snippet extracts a bounded context window around the first
// query match inside article content.
package snippet

import (
	"strings"
	"unicode/utf8"
)

// contextRadius is how many bytes of context surround the matched term
// on each side.
const contextRadius = 100

var normalizer = strings.NewReplacer("-", " ", "\n", " ", "\r", " ")

// Extract returns the excerpt of content centered on the first match of
// query, and whether a match was found. Matching happens on normalized
// text (lower-cased, hyphens and newlines folded to spaces) but the
// returned snippet is sliced from the original content, so hyphenation
// and line breaks survive in the preview. Without a match no snippet is
// produced: the caller must drop the document rather than anchor a
// window at offset zero.
func Extract(content, query string) (string, bool) {
	normContent := normalize(content)
	normQuery := normalize(query)
	if strings.TrimSpace(normQuery) == "" {
		return "", false
	}

	idx := strings.Index(normContent, normQuery)
	if idx < 0 {
		return "", false
	}

	start := idx - contextRadius
	if start < 0 {
		start = 0
	}
	end := idx + len(normQuery) + contextRadius

	// Lower-casing can shift byte offsets for a handful of unicode
	// characters, so clamp against the original content, not the
	// normalized copy.
	if start > len(content) {
		start = len(content)
	}
	if end > len(content) {
		end = len(content)
	}
	if start > end {
		start = end
	}

	start = alignRune(content, start)
	end = alignRune(content, end)

	return content[start:end], true
}

func normalize(s string) string {
	return normalizer.Replace(strings.ToLower(s))
}

// alignRune moves a byte offset left until it sits on a rune boundary.
func alignRune(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

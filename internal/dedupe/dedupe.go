// Package dedupe collapses duplicate articles, both within one request's
// ranked hit list and across notifier runs.
package dedupe

import "github.com/civiclens/article-search/internal/models"

// ByURL keeps at most one article per distinct URL, preserving the order
// of first occurrence. The input is never mutated.
func ByURL(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ByURLAndContent additionally drops articles whose normalized content
// fingerprint was already seen, suppressing near-duplicates that differ
// only in URL.
func ByURLAndContent(articles []models.Article) []models.Article {
	seenURL := make(map[string]struct{}, len(articles))
	seenContent := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := seenURL[a.URL]; ok {
			continue
		}
		fp := Fingerprint(a.Content)
		if _, ok := seenContent[fp]; ok {
			continue
		}
		seenURL[a.URL] = struct{}{}
		seenContent[fp] = struct{}{}
		out = append(out, a)
	}
	return out
}

package models

import "time"

// Article is the canonical document shape stored in the articles index.
// The index does not guarantee URL uniqueness; the API layer deduplicates.
type Article struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Content  string    `json:"content"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Type     string    `json:"type"`
}

// SearchQuery carries a normalized search request: required free text,
// optional inclusive date bounds (UTC midnight) and facet value sets.
type SearchQuery struct {
	Text      string
	DateFrom  *time.Time
	DateTo    *time.Time
	Sources   []string
	Types     []string
	Locations []string
}

// SearchResult is the per-request response shape for /search_articles.
// Date is rendered date-only; MatchContext is a bounded snippet around
// the first query match.
type SearchResult struct {
	UUID         string `json:"uuid"`
	Source       string `json:"source"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	MatchContext string `json:"match_context"`
	Location     string `json:"location"`
	Date         string `json:"date"`
	Type         string `json:"type"`
}

// GenerativeAnswer pairs a source article with a short synthesized answer.
type GenerativeAnswer struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Answer string `json:"answer"`
}

// Listener is a saved query subscription held in the listeners index.
type Listener struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

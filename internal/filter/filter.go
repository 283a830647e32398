// Package filter composes the boolean predicate handed to the document index.
//
// The predicate is an immutable tree of typed nodes. Every node knows two
// things: how to render itself as an Elasticsearch query clause, and how to
// evaluate itself against an article in memory. The second form is what the
// tests and the notifier lean on; the first is what actually ships to the
// index on the search path.
package filter

import (
	"strings"
	"time"

	"github.com/civiclens/article-search/internal/models"
)

// Node is one predicate in the composed filter tree.
type Node interface {
	// Clause renders the node as an Elasticsearch query fragment.
	Clause() map[string]any
	// Matches evaluates the node against an article.
	Matches(a models.Article) bool
}

// Conjunction requires every child predicate to hold.
type Conjunction struct {
	Nodes []Node
}

func (c Conjunction) Clause() map[string]any {
	clauses := make([]map[string]any, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		clauses = append(clauses, n.Clause())
	}
	return map[string]any{"bool": map[string]any{"filter": clauses}}
}

func (c Conjunction) Matches(a models.Article) bool {
	for _, n := range c.Nodes {
		if !n.Matches(a) {
			return false
		}
	}
	return true
}

// DateRange bounds a date field inclusively. A nil bound is open.
// Bounds are calendar days: To covers the whole of its day.
type DateRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

func (d DateRange) Clause() map[string]any {
	bounds := map[string]any{"format": "yyyy-MM-dd"}
	if d.From != nil {
		bounds["gte"] = d.From.UTC().Format("2006-01-02")
	}
	if d.To != nil {
		// With a date-only format the index rounds lte up to end of day,
		// keeping the upper bound inclusive.
		bounds["lte"] = d.To.UTC().Format("2006-01-02")
	}
	return map[string]any{"range": map[string]any{d.Field: bounds}}
}

func (d DateRange) Matches(a models.Article) bool {
	if d.From != nil && a.Date.Before(*d.From) {
		return false
	}
	if d.To != nil {
		endOfDay := d.To.UTC().Add(24*time.Hour - time.Nanosecond)
		if a.Date.After(endOfDay) {
			return false
		}
	}
	return true
}

// Membership requires a facet field to hold at least one of the given values.
type Membership struct {
	Field  string
	Values []string
}

func (m Membership) Clause() map[string]any {
	return map[string]any{"terms": map[string]any{m.Field: m.Values}}
}

func (m Membership) Matches(a models.Article) bool {
	got := facetValue(a, m.Field)
	for _, v := range m.Values {
		if got == v {
			return true
		}
	}
	return false
}

// TextContains requires the content field to contain the query tokens.
// RequireAll demands every token; otherwise one suffices.
type TextContains struct {
	Field      string
	Query      string
	RequireAll bool
}

func (t TextContains) Clause() map[string]any {
	operator := "or"
	if t.RequireAll {
		operator = "and"
	}
	return map[string]any{
		"match": map[string]any{
			t.Field: map[string]any{
				"query":    t.Query,
				"operator": operator,
			},
		},
	}
}

func (t TextContains) Matches(a models.Article) bool {
	content := strings.ToLower(a.Content)
	tokens := strings.Fields(strings.ToLower(t.Query))
	if len(tokens) == 0 {
		return true
	}
	for _, tok := range tokens {
		found := strings.Contains(content, tok)
		if t.RequireAll && !found {
			return false
		}
		if !t.RequireAll && found {
			return true
		}
	}
	return t.RequireAll
}

// Compose builds the predicate tree for a normalized query. Absent
// constraints are dropped from the conjunction, never defaulted.
// The text predicate uses contains-all semantics: every token of the
// query must appear in the content.
func Compose(q models.SearchQuery) Node {
	nodes := []Node{
		TextContains{Field: "content", Query: q.Text, RequireAll: true},
	}

	if q.DateFrom != nil || q.DateTo != nil {
		nodes = append(nodes, DateRange{Field: "date", From: q.DateFrom, To: q.DateTo})
	}
	if len(q.Sources) > 0 {
		nodes = append(nodes, Membership{Field: "source", Values: q.Sources})
	}
	if len(q.Types) > 0 {
		nodes = append(nodes, Membership{Field: "type", Values: q.Types})
	}
	if len(q.Locations) > 0 {
		nodes = append(nodes, Membership{Field: "location", Values: q.Locations})
	}

	return Conjunction{Nodes: nodes}
}

// Clauses flattens a tree into the clause list for a bool filter context.
// A nil node yields no clauses.
func Clauses(n Node) []map[string]any {
	switch v := n.(type) {
	case nil:
		return nil
	case Conjunction:
		clauses := make([]map[string]any, 0, len(v.Nodes))
		for _, child := range v.Nodes {
			clauses = append(clauses, child.Clause())
		}
		return clauses
	default:
		return []map[string]any{n.Clause()}
	}
}

func facetValue(a models.Article, field string) string {
	switch field {
	case "source":
		return a.Source
	case "type":
		return a.Type
	case "location":
		return a.Location
	default:
		return ""
	}
}

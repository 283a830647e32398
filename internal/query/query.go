// Package query validates and normalizes raw search parameters.
package query

import (
	"net/url"
	"strings"
	"time"

	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/models"
)

const dateLayout = "2006-01-02"

// Parse turns URL query parameters into a normalized SearchQuery.
// q is required; date_from/date_to must be ISO calendar dates; the facet
// parameters source, type and location are repeatable and may also hold
// comma-separated lists.
func Parse(values url.Values) (models.SearchQuery, error) {
	q := models.SearchQuery{}

	q.Text = strings.TrimSpace(values.Get("q"))
	if q.Text == "" {
		return q, &errs.ValidationError{Field: "q", Reason: "query text is required"}
	}

	from, err := parseDate(values.Get("date_from"), "date_from")
	if err != nil {
		return q, err
	}
	q.DateFrom = from

	to, err := parseDate(values.Get("date_to"), "date_to")
	if err != nil {
		return q, err
	}
	q.DateTo = to

	q.Sources = parseFacet(values, "source")
	q.Types = parseFacet(values, "type")
	q.Locations = parseFacet(values, "location")

	return q, nil
}

func parseDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, &errs.ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return &ts, nil
}

func parseFacet(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

package elasticsearch_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiclens/article-search/internal/elasticsearch"
	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/filter"
	"github.com/civiclens/article-search/internal/models"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *elasticsearch.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.New(srv.URL, "articles", "listeners", nil)
	require.NoError(t, err)
	return srv, client
}

func hitsBody(hits ...map[string]any) string {
	body := map[string]any{
		"hits": map[string]any{"hits": hits},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestDistinctValuesScansUntilEmptyBatch(t *testing.T) {
	var requestedFrom []float64
	_, client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		from := body["from"].(float64)
		requestedFrom = append(requestedFrom, from)

		if from == 0 {
			fmt.Fprint(w, hitsBody(
				map[string]any{"_source": map[string]any{"location": "Oakland"}},
				map[string]any{"_source": map[string]any{"location": "oakland "}},
				map[string]any{"_source": map[string]any{"location": ""}},
			))
			return
		}
		fmt.Fprint(w, hitsBody())
	})

	values, err := client.DistinctValues(context.Background(), "location", 500)
	require.NoError(t, err)
	// trimmed, empties excluded, exact-string dedup (no case folding), sorted
	require.Equal(t, []string{"Oakland", "oakland"}, values)
	require.Equal(t, []float64{0, 500}, requestedFrom)
}

func TestSearchArticlesSendsCapAndFilters(t *testing.T) {
	var gotBody map[string]any
	_, client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, hitsBody(
			map[string]any{
				"_id": "id-1",
				"_source": map[string]any{
					"title":   "Re-Zoning approved",
					"url":     "https://example.org/1",
					"content": "Re-Zoning approved for Lot 4",
					"date":    "2024-03-15T00:00:00Z",
				},
			},
			map[string]any{
				"_id":     "id-2",
				"_source": map[string]any{"url": "https://example.org/2"},
			},
		))
	})

	node := filter.Compose(models.SearchQuery{Text: "zoning", Sources: []string{"gazette"}})
	articles, err := client.SearchArticles(context.Background(), "zoning", node, 10000)
	require.NoError(t, err)

	require.Len(t, articles, 2)
	require.Equal(t, "id-1", articles[0].ID)
	require.Equal(t, "id-2", articles[1].ID)
	require.Equal(t, "Re-Zoning approved", articles[0].Title)

	require.Equal(t, float64(10000), gotBody["size"])
	boolQuery := gotBody["query"].(map[string]any)["bool"].(map[string]any)
	require.Len(t, boolQuery["must"], 1)
	require.Len(t, boolQuery["filter"], 2)
}

func TestSearchArticlesNilFilterOmitsFilterContext(t *testing.T) {
	var gotBody map[string]any
	_, client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, hitsBody())
	})

	_, err := client.SearchArticles(context.Background(), "zoning", nil, 20)
	require.NoError(t, err)

	boolQuery := gotBody["query"].(map[string]any)["bool"].(map[string]any)
	_, hasFilter := boolQuery["filter"]
	require.False(t, hasFilter)
}

func TestSearchArticlesIndexErrorIsTyped(t *testing.T) {
	_, client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	})

	_, err := client.SearchArticles(context.Background(), "zoning", nil, 20)
	var unavailable *errs.IndexUnavailable
	require.ErrorAs(t, err, &unavailable)
}

func TestGetArticlePropertiesNotFound(t *testing.T) {
	_, client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"found":false}`)
	})

	_, err := client.GetArticleProperties(context.Background(), "missing-id")
	var notFound *errs.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "article", notFound.Kind)
}

func TestDeleteListenerNotFound(t *testing.T) {
	_, client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"result":"not_found"}`)
	})

	err := client.DeleteListener(context.Background(), "missing-id")
	var notFound *errs.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "listener", notFound.Kind)
}

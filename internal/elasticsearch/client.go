package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/filter"
	"github.com/civiclens/article-search/internal/models"
)

// searchFields is the projection requested for every ranked search.
var searchFields = []string{"source", "title", "url", "content", "location", "date", "type"}

// Client is the process-wide session to the document index. It is safe
// for concurrent use; the underlying transport pools connections.
type Client struct {
	es        *elasticsearch.Client
	articles  string
	listeners string
	log       *slog.Logger
}

// New instantiates the Elasticsearch session.
func New(addr, articlesIndex, listenersIndex string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, articles: articlesIndex, listeners: listenersIndex, log: logger}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &errs.IndexUnavailable{Err: fmt.Errorf("ping failed: %s", res.Status())}
	}

	return nil
}

// Health checks cluster health for the readiness endpoint.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return &errs.IndexUnavailable{Err: fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))}
	}
	return nil
}

// SearchArticles runs a ranked full-text search of content against q,
// constrained by the composed predicate tree (nil means unfiltered).
// The index owns relevance order; hits come back in rank order with the
// projected fields only, capped at limit.
func (c *Client) SearchArticles(ctx context.Context, q string, node filter.Node, limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 100
	}

	boolQuery := map[string]any{
		"must": []map[string]any{
			{"match": map[string]any{"content": q}},
		},
	}
	if clauses := filter.Clauses(node); len(clauses) > 0 {
		boolQuery["filter"] = clauses
	}

	body := map[string]any{
		"size":    limit,
		"_source": searchFields,
		"query": map[string]any{
			"bool": boolQuery,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.articles),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))}
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source models.Article `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("decode search response: %w", err)}
	}

	articles := make([]models.Article, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		a := hit.Source
		a.ID = hit.ID
		articles = append(articles, a)
	}

	return articles, nil
}

// GetArticleProperties fetches one article by id and returns its stored
// properties verbatim.
func (c *Client) GetArticleProperties(ctx context.Context, id string) (map[string]any, error) {
	req := esapi.GetRequest{Index: c.articles, DocumentID: id}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, &errs.NotFoundError{Kind: "article", ID: id}
	}
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("get article failed: %s", strings.TrimSpace(string(data)))}
	}

	var parsed struct {
		Source map[string]any `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("decode article: %w", err)}
	}

	return parsed.Source, nil
}

// DistinctValues pages through the whole articles index in fixed-size
// batches and collects the distinct, trimmed, non-empty values of one
// field, sorted ascending. The scan stops at the first empty batch.
func (c *Client) DistinctValues(ctx context.Context, field string, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	seen := make(map[string]struct{})
	for from := 0; ; from += batchSize {
		batch, err := c.fetchFieldBatch(ctx, field, from, batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, v := range batch {
			trimmed := strings.TrimSpace(v)
			if trimmed != "" {
				seen[trimmed] = struct{}{}
			}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func (c *Client) fetchFieldBatch(ctx context.Context, field string, from, size int) ([]string, error) {
	body := map[string]any{
		"from":    from,
		"size":    size,
		"_source": []string{field},
		"query":   map[string]any{"match_all": map[string]any{}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal scan body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.articles),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("scan failed: %s", strings.TrimSpace(string(data)))}
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("decode scan response: %w", err)}
	}

	values := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if raw, ok := hit.Source[field].(string); ok {
			values = append(values, raw)
		}
	}
	return values, nil
}

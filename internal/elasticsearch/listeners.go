package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/models"
)

type listenerDoc struct {
	Query     string    `json:"query"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateListener stores a saved-query subscription and returns it with
// its generated id.
func (c *Client) CreateListener(ctx context.Context, query, email string) (models.Listener, error) {
	l := models.Listener{
		ID:        uuid.NewString(),
		Query:     query,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(listenerDoc{Query: l.Query, Email: l.Email, CreatedAt: l.CreatedAt})
	if err != nil {
		return models.Listener{}, fmt.Errorf("marshal listener: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.listeners,
		DocumentID: l.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return models.Listener{}, &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return models.Listener{}, &errs.IndexUnavailable{Err: fmt.Errorf("create listener failed: %s", strings.TrimSpace(string(data)))}
	}

	return l, nil
}

// Listeners returns every stored subscription, capped at limit.
func (c *Client) Listeners(ctx context.Context, limit int) ([]models.Listener, error) {
	if limit <= 0 {
		limit = 100
	}

	body := map[string]any{
		"size":  limit,
		"query": map[string]any{"match_all": map[string]any{}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal listeners body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.listeners),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("list listeners failed: %s", strings.TrimSpace(string(data)))}
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string      `json:"_id"`
				Source listenerDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &errs.IndexUnavailable{Err: fmt.Errorf("decode listeners: %w", err)}
	}

	out := make([]models.Listener, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, models.Listener{
			ID:        hit.ID,
			Query:     hit.Source.Query,
			Email:     hit.Source.Email,
			CreatedAt: hit.Source.CreatedAt,
		})
	}
	return out, nil
}

// DeleteListener removes a subscription by id.
func (c *Client) DeleteListener(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: c.listeners, DocumentID: id, Refresh: "true"}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return &errs.IndexUnavailable{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return &errs.NotFoundError{Kind: "listener", ID: id}
	}
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return &errs.IndexUnavailable{Err: fmt.Errorf("delete listener failed: %s", strings.TrimSpace(string(data)))}
	}

	return nil
}

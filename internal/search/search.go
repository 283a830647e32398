// Package search orchestrates one request's pass through the pipeline:
// compose the filter, run the ranked index call, dedupe, and either cut
// snippets or hand the hits to the answer composer.
package search

import (
	"context"
	"errors"

	"github.com/civiclens/article-search/internal/dedupe"
	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/filter"
	"github.com/civiclens/article-search/internal/models"
	"github.com/civiclens/article-search/internal/snippet"
)

const dateLayout = "2006-01-02"

// Index is the ranked-retrieval surface the orchestrator needs from the
// document index.
type Index interface {
	SearchArticles(ctx context.Context, q string, node filter.Node, limit int) ([]models.Article, error)
}

// Answerer builds generative answers from a retrieved document set.
type Answerer interface {
	Answer(ctx context.Context, question, instruction string, docs []models.Article) ([]models.GenerativeAnswer, error)
}

// Service runs the search and answer pipelines.
type Service struct {
	idx         Index
	composer    Answerer
	searchLimit int
	ragLimit    int
}

// New wires the orchestrator. searchLimit caps ranked hits per query,
// ragLimit caps the document set fed to the answer composer.
func New(idx Index, composer Answerer, searchLimit, ragLimit int) *Service {
	if searchLimit <= 0 {
		searchLimit = 10000
	}
	if ragLimit <= 0 {
		ragLimit = 20
	}
	return &Service{idx: idx, composer: composer, searchLimit: searchLimit, ragLimit: ragLimit}
}

// Search executes a filtered ranked search and post-processes the hits:
// stable dedup by URL, then a context snippet per hit. Hits whose content
// never matches the normalized query are dropped, and the index's rank
// order is preserved throughout.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error) {
	node := filter.Compose(q)

	hits, err := s.idx.SearchArticles(ctx, q.Text, node, s.searchLimit)
	if err != nil {
		return nil, err
	}

	hits = dedupe.ByURL(hits)

	results := make([]models.SearchResult, 0, len(hits))
	for _, a := range hits {
		matchContext, ok := snippet.Extract(a.Content, q.Text)
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{
			UUID:         a.ID,
			Source:       a.Source,
			Title:        a.Title,
			URL:          a.URL,
			MatchContext: matchContext,
			Location:     a.Location,
			Date:         a.Date.UTC().Format(dateLayout),
			Type:         a.Type,
		})
	}

	return results, nil
}

// Answer retrieves a capped ranked document set for the question (no
// filters on this path) and delegates synthesis to the composer.
func (s *Service) Answer(ctx context.Context, question, instruction string) ([]models.GenerativeAnswer, error) {
	if s.composer == nil {
		return nil, &errs.AnswerServiceError{Err: errors.New("no answer composer configured")}
	}
	docs, err := s.idx.SearchArticles(ctx, question, nil, s.ragLimit)
	if err != nil {
		return nil, err
	}
	return s.composer.Answer(ctx, question, instruction, docs)
}

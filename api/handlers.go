package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civiclens/article-search/internal/config"
	"github.com/civiclens/article-search/internal/errs"
	"github.com/civiclens/article-search/internal/models"
	"github.com/civiclens/article-search/internal/query"
)

const listenerListLimit = 10000

type articleService interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error)
	Answer(ctx context.Context, question, instruction string) ([]models.GenerativeAnswer, error)
}

type articleStore interface {
	GetArticleProperties(ctx context.Context, id string) (map[string]any, error)
	DistinctValues(ctx context.Context, field string, batchSize int) ([]string, error)
	Health(ctx context.Context) error
}

type listenerStore interface {
	CreateListener(ctx context.Context, query, email string) (models.Listener, error)
	Listeners(ctx context.Context, limit int) ([]models.Listener, error)
	DeleteListener(ctx context.Context, id string) error
}

type server struct {
	log   *slog.Logger
	cfg   *config.API
	svc   articleService
	store articleStore
	subs  listenerStore
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Search API!"})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearchArticles keeps the historical degraded-error contract: on
// backend failure the route answers 200 with a single-element error
// array instead of an HTTP error. Validation failures are real 400s.
func (s *server) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q, err := query.Parse(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	results, err := s.svc.Search(ctx, q)
	if err != nil {
		s.log.Error("search articles", slog.Any("err", err))
		writeJSON(w, http.StatusOK, []errorResponse{{Error: err.Error()}})
		return
	}

	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	raw := strings.TrimSpace(r.URL.Query().Get("uuid"))
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid uuid"})
		return
	}

	props, err := s.store.GetArticleProperties(ctx, id.String())
	if err != nil {
		var notFound *errs.NotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Article not found."})
			return
		}
		s.log.Error("get article", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uuid":       id.String(),
		"properties": props,
	})
}

// handleRAGSearchArticles shares the degraded-error contract with
// handleSearchArticles.
func (s *server) handleRAGSearchArticles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		verr := &errs.ValidationError{Field: "q", Reason: "query text is required"}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
		return
	}
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))

	answers, err := s.svc.Answer(ctx, q, prompt)
	if err != nil {
		s.log.Error("rag search articles", slog.Any("err", err))
		writeJSON(w, http.StatusOK, []errorResponse{{Error: err.Error()}})
		return
	}

	if answers == nil {
		answers = []models.GenerativeAnswer{}
	}
	writeJSON(w, http.StatusOK, answers)
}

func (s *server) handleDistinct(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		values, err := s.store.DistinctValues(ctx, field, s.cfg.DistinctBatch)
		if err != nil {
			s.log.Error("distinct values", slog.String("field", field), slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		if values == nil {
			values = []string{}
		}
		writeJSON(w, http.StatusOK, values)
	}
}

type listenerIn struct {
	Query string `json:"query"`
	Email string `json:"email"`
}

func (s *server) handleCreateListener(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in listenerIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid email"})
		return
	}

	l, err := s.subs.CreateListener(ctx, in.Query, in.Email)
	if err != nil {
		s.log.Error("create listener", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "added", "id": l.ID})
}

func (s *server) handleGetAllListeners(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	listeners, err := s.subs.Listeners(ctx, listenerListLimit)
	if err != nil {
		s.log.Error("list listeners", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if listeners == nil {
		listeners = []models.Listener{}
	}
	writeJSON(w, http.StatusOK, listeners)
}

func (s *server) handleDeleteListener(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := strings.TrimSpace(r.URL.Query().Get("listener_id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "listener_id is required"})
		return
	}

	if err := s.subs.DeleteListener(ctx, id); err != nil {
		var notFound *errs.NotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Listener not found"})
			return
		}
		s.log.Error("delete listener", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}

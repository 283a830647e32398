package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/civiclens/article-search/internal/config"
	"github.com/civiclens/article-search/internal/elasticsearch"
	"github.com/civiclens/article-search/internal/logger"
	"github.com/civiclens/article-search/internal/rag"
	"github.com/civiclens/article-search/internal/search"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ArticlesIndex, cfg.ListenersIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	modelOpts := []openai.Option{
		openai.WithToken(cfg.OpenAIKey),
		openai.WithModel(cfg.OpenAIModel),
	}
	if cfg.OpenAIBaseURL != "" {
		modelOpts = append(modelOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	model, err := openai.New(modelOpts...)
	if err != nil {
		log.Error("init openai client", slog.Any("err", err))
		os.Exit(1)
	}

	composer := rag.New(model, cfg.RAGDocLimit, cfg.AnswerMaxLen, log)
	svc := search.New(esClient, composer, cfg.SearchLimit, cfg.RAGDocLimit)

	srv := &server{log: log, cfg: cfg, svc: svc, store: esClient, subs: esClient}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", srv.handleRoot)
	r.Get("/health", srv.handleHealth)
	r.Get("/search_articles", srv.handleSearchArticles)
	r.Get("/get_article", srv.handleGetArticle)
	r.Get("/RAG_search_articles", srv.handleRAGSearchArticles)
	r.Get("/locations", srv.handleDistinct("location"))
	r.Get("/types", srv.handleDistinct("type"))
	r.Get("/sources", srv.handleDistinct("source"))
	r.Post("/create_listener", srv.handleCreateListener)
	r.Get("/get_all_listeners", srv.handleGetAllListeners)
	r.Delete("/delete_listener", srv.handleDeleteListener)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

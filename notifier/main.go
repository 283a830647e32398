package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/civiclens/article-search/internal/config"
	"github.com/civiclens/article-search/internal/dedupe"
	"github.com/civiclens/article-search/internal/elasticsearch"
	"github.com/civiclens/article-search/internal/logger"
	"github.com/civiclens/article-search/internal/models"
	"github.com/civiclens/article-search/internal/search"
)

const listenerListLimit = 10000

// matchEvent is the notification payload published for a downstream mailer.
type matchEvent struct {
	ListenerID  string `json:"listener_id"`
	Email       string `json:"email"`
	Query       string `json:"query"`
	ArticleUUID string `json:"article_uuid"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Date        string `json:"date"`
}

type searcher interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error)
}

type subscriptionStore interface {
	Listeners(ctx context.Context, limit int) ([]models.Listener, error)
}

type matchWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("notifier")
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Retry Elasticsearch connection with backoff
	var esClient *elasticsearch.Client
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		esClient, err = elasticsearch.New(cfg.ElasticsearchAddr, cfg.ArticlesIndex, cfg.ListenersIndex, log)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := esClient.Ping(pingCtx)
			cancel()
			if pingErr == nil {
				break
			}
			log.Warn("elasticsearch ping failed, retrying",
				slog.Any("err", pingErr),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_in", retryDelay),
			)
		} else {
			log.Warn("failed to create elasticsearch client, retrying",
				slog.Any("err", err),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
			)
		}

		select {
		case <-time.After(retryDelay):
			// Continue to next attempt
		case <-ctx.Done():
			log.Info("shutdown signal received during startup")
			os.Exit(0)
		}
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if esClient == nil || esClient.Ping(pingCtx) != nil {
		log.Error("failed to connect to elasticsearch after retries")
		os.Exit(1)
	}

	log.Info("connected to elasticsearch")

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		MaxAttempts: 3,
	})
	defer writer.Close()

	svc := search.New(esClient, nil, cfg.QueryLimit, 0)
	cache := dedupe.NewSeenCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("notifier running",
		slog.String("topic", cfg.KafkaTopic),
		slog.Duration("interval", cfg.Interval),
	)

	runOnce(ctx, log, esClient, svc, cache, writer)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, esClient, svc, cache, writer)
		}
	}
}

func runOnce(ctx context.Context, log *slog.Logger, store subscriptionStore, svc searcher, cache *dedupe.SeenCache, w matchWriter) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	listeners, err := store.Listeners(subCtx, listenerListLimit)
	if err != nil {
		log.Warn("listing listeners failed (will retry on next interval)", slog.Any("err", err))
		return
	}

	total := 0
	for _, l := range listeners {
		sent, err := processListener(subCtx, cache, svc, w, l)
		if err != nil {
			log.Warn("listener run failed",
				slog.String("listener_id", l.ID),
				slog.Any("err", err),
			)
			continue
		}
		total += sent
	}

	if total > 0 {
		log.Info("notifier run completed", slog.Int("notifications", total))
	} else {
		log.Debug("notifier run completed, nothing new")
	}
}

// processListener runs one saved query through the search pipeline and
// publishes an event per article this listener has not seen yet. A pair
// is marked seen only after its event is written, so delivery failures
// stay eligible for the next run.
func processListener(ctx context.Context, cache *dedupe.SeenCache, svc searcher, w matchWriter, l models.Listener) (int, error) {
	results, err := svc.Search(ctx, models.SearchQuery{Text: l.Query})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, res := range results {
		key := l.ID + "|" + res.UUID
		if cache.Seen(key) {
			continue
		}

		payload, err := json.Marshal(matchEvent{
			ListenerID:  l.ID,
			Email:       l.Email,
			Query:       l.Query,
			ArticleUUID: res.UUID,
			Title:       res.Title,
			URL:         res.URL,
			Date:        res.Date,
		})
		if err != nil {
			return sent, err
		}

		if err := w.WriteMessages(ctx, kafka.Message{
			Key:   []byte(l.ID),
			Value: payload,
		}); err != nil {
			return sent, err
		}

		cache.Mark(key)
		sent++
	}

	return sent, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr string
	ArticlesIndex     string
	ListenersIndex    string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr string

	// SearchLimit bounds how many ranked hits one query may pull from the index.
	SearchLimit int
	// RAGDocLimit bounds how many retrieved articles feed one generative request.
	RAGDocLimit int
	// AnswerMaxLen trims each synthesized answer to this many characters.
	AnswerMaxLen int
	// DistinctBatch is the page size of the distinct-value scan.
	DistinctBatch int

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
}

// Notifier holds configuration for the listener-notification loop.
type Notifier struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	Interval       time.Duration
	QueryLimit     int
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:        loadCommon(),
		BindAddr:      getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		SearchLimit:   getInt("SEARCH_RESULT_LIMIT", 10000),
		RAGDocLimit:   getInt("RAG_DOC_LIMIT", 20),
		AnswerMaxLen:  getInt("RAG_ANSWER_MAX_LEN", 200),
		DistinctBatch: getInt("DISTINCT_SCAN_BATCH", 500),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
	}

	if c.SearchLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_RESULT_LIMIT must be positive")
	}
	if c.RAGDocLimit <= 0 {
		return nil, fmt.Errorf("RAG_DOC_LIMIT must be positive")
	}
	if c.AnswerMaxLen <= 0 {
		return nil, fmt.Errorf("RAG_ANSWER_MAX_LEN must be positive")
	}
	if c.DistinctBatch <= 0 {
		return nil, fmt.Errorf("DISTINCT_SCAN_BATCH must be positive")
	}
	if c.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY must be set")
	}

	return c, nil
}

// LoadNotifier builds a Notifier config from environment variables.
func LoadNotifier() (*Notifier, error) {
	c := &Notifier{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "listener_matches"),
		Interval:       getDuration("NOTIFIER_INTERVAL", "10m"),
		QueryLimit:     getInt("NOTIFIER_QUERY_LIMIT", 100),
		DedupeCapacity: getInt("NOTIFIER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("NOTIFIER_DEDUPE_TTL", "168h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("NOTIFIER_INTERVAL must be positive")
	}
	if c.QueryLimit <= 0 {
		return nil, fmt.Errorf("NOTIFIER_QUERY_LIMIT must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("NOTIFIER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr: getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ArticlesIndex:     getEnv("ARTICLES_INDEX", "articles"),
		ListenersIndex:    getEnv("LISTENERS_INDEX", "listeners"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

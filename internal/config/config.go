package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DBPath     string // path to the sqlite database file
	SeedFile   string // path to the seed keywords/filters yaml (optional, empty = disabled)
	CORSOrigin string // dashboard origin allowed for CORS (ex: http://localhost:5173)

	// Crawler
	UserAgent    string        // User-Agent sent on every outbound fetch
	FetchTimeout time.Duration // per-request timeout for outbound fetches
	CrawlDelay   time.Duration // minimum interval between outbound fetches
	RetryMax     int           // max retry attempts for transient fetch failures
	RetryWait    time.Duration // initial backoff wait, grows exponentially
	RetryMaxWait time.Duration // cap on backoff wait

	// Discovery
	ExhaustionThreshold int // consecutive no-new pages before a keyword is exhausted
	MaxPagesPerRun      int // page cap for a single pass when run_until_stopped is false

	// Enrichment
	EnrichWorkers     int // size of the enrichment worker pool
	EnrichQueueSize   int // buffered job queue; full queue blocks producers
	RecentVideosLimit int // long-form videos sampled per channel during enrichment

	// Filter defaults (per-request configs override these)
	MinSubscribers    int64
	MinLongformVideos int64
	MaxUploadAge      time.Duration
	DenyLanguages     []string

	// Redis page cache (optional, empty addr = disabled)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisWarnThreshold  int           // warn after this many attempts
	PageCacheTTL        time.Duration // TTL for cached page fetches
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("HARVESTER_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("HARVESTER_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("HARVESTER_LOG_LEVEL", "info"),
		PrettyLog: mustBool("HARVESTER_PRETTY_LOG", true),

		// Storage and inputs
		DBPath:     getenv("HARVESTER_DB_PATH", "harvester.db"),
		SeedFile:   getenv("HARVESTER_SEED_FILE", ""), // Optional, empty = no seeding
		CORSOrigin: getenv("HARVESTER_CORS_ORIGIN", "http://localhost:5173"),

		// Crawler
		UserAgent: getenv("HARVESTER_USER_AGENT",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 "+
				"(KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"),
		FetchTimeout: mustDuration("HARVESTER_FETCH_TIMEOUT", 15*time.Second),
		CrawlDelay:   mustDuration("HARVESTER_CRAWL_DELAY", 800*time.Millisecond),
		RetryMax:     getenvInt("HARVESTER_RETRY_MAX", 3),
		RetryWait:    mustDuration("HARVESTER_RETRY_WAIT", 500*time.Millisecond),
		RetryMaxWait: mustDuration("HARVESTER_RETRY_MAX_WAIT", 10*time.Second),

		// Discovery
		ExhaustionThreshold: getenvInt("HARVESTER_EXHAUSTION_THRESHOLD", 5),
		MaxPagesPerRun:      getenvInt("HARVESTER_MAX_PAGES_PER_RUN", 5),

		// Enrichment
		EnrichWorkers:     getenvInt("HARVESTER_ENRICH_WORKERS", 4),
		EnrichQueueSize:   getenvInt("HARVESTER_ENRICH_QUEUE_SIZE", 256),
		RecentVideosLimit: getenvInt("HARVESTER_RECENT_VIDEOS_LIMIT", 3),

		// Filter defaults
		MinSubscribers:    getenvInt64("HARVESTER_MIN_SUBSCRIBERS", 1000),
		MinLongformVideos: getenvInt64("HARVESTER_MIN_LONGFORM_VIDEOS", 5),
		MaxUploadAge:      mustDuration("HARVESTER_MAX_UPLOAD_AGE", 30*24*time.Hour),
		DenyLanguages:     splitAndTrim(getenv("HARVESTER_DENY_LANGUAGES", "")),

		// Redis page cache (optional)
		RedisAddr:           getenv("HARVESTER_REDIS_ADDR", ""),
		RedisUser:           getenv("HARVESTER_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("HARVESTER_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("HARVESTER_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
		PageCacheTTL:        mustDuration("HARVESTER_PAGE_CACHE_TTL", 6*time.Hour),
	}

	if cfg.ExhaustionThreshold < 1 {
		panic(fmt.Sprintf("❌ FATAL: HARVESTER_EXHAUSTION_THRESHOLD must be >= 1, got %d", cfg.ExhaustionThreshold))
	}
	if cfg.EnrichWorkers < 1 {
		panic(fmt.Sprintf("❌ FATAL: HARVESTER_ENRICH_WORKERS must be >= 1, got %d", cfg.EnrichWorkers))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tubeharvest/harvester/internal/config"
	"github.com/tubeharvest/harvester/internal/crawler"
	"github.com/tubeharvest/harvester/internal/domain"
	"github.com/tubeharvest/harvester/internal/enrich"
	"github.com/tubeharvest/harvester/internal/httpserver"
	"github.com/tubeharvest/harvester/internal/httpserver/deps"
	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/redis"
	"github.com/tubeharvest/harvester/internal/scheduler"
	"github.com/tubeharvest/harvester/internal/sources/seedfile"
	"github.com/tubeharvest/harvester/internal/store/rediscache"
	"github.com/tubeharvest/harvester/internal/store/sqlite"
	"github.com/tubeharvest/harvester/internal/version"
)

type App struct {
	cfg        *config.Config
	logger     logger.Logger
	server     *httpserver.Server
	store      *sqlite.Store
	pageCache  *rediscache.Store
	supervisor *scheduler.Supervisor
	pool       *scheduler.EnrichPool
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		loggerClient.Errorf("Failed to open store at %s: %v", cfg.DBPath, err)
		os.Exit(1)
	}
	loggerClient.Info("store opened", logger.String("path", cfg.DBPath))

	// Redis page cache is optional: when unreachable the harvester runs
	// without caching instead of refusing to start.
	pageCache := openPageCache(cfg, loggerClient)

	seed := loadSeed(cfg, loggerClient)
	filter, err := resolveFilter(cfg, seed)
	if err != nil {
		loggerClient.Errorf("Invalid filter configuration: %v", err)
		os.Exit(1)
	}
	seedKeywords := registerSeedKeywords(cfg, seed, store, loggerClient)

	crawlOpts := crawler.Options{
		UserAgent:    cfg.UserAgent,
		FetchTimeout: cfg.FetchTimeout,
		CrawlDelay:   cfg.CrawlDelay,
		Retry: crawler.RetryConfig{
			MaxRetries:  cfg.RetryMax,
			InitialWait: cfg.RetryWait,
			MaxWait:     cfg.RetryMaxWait,
			Multiplier:  2.0,
		},
		Logger: loggerClient,
	}
	if pageCache != nil {
		crawlOpts.Cache = pageCache
	}
	client := crawler.New(crawlOpts)

	pipeline := enrich.NewPipeline(client, store, filter, cfg.RecentVideosLimit, loggerClient)

	// Background work runs under its own context; shutdown goes through
	// StopAll/Close rather than cancellation so in-flight pages commit.
	base := context.Background()
	pool := scheduler.NewEnrichPool(base, pipeline, cfg.EnrichWorkers, cfg.EnrichQueueSize, loggerClient)
	supervisor := scheduler.NewSupervisor(
		base, client, store, pool, filter,
		cfg.MaxPagesPerRun, cfg.ExhaustionThreshold, loggerClient,
	)

	if len(seedKeywords) > 0 {
		loggerClient.Info("seed keywords registered", logger.Int("count", len(seedKeywords)))
	}

	d := deps.Deps{
		Logger:     loggerClient,
		StartTime:  time.Now(),
		Version:    version.Version,
		Commit:     version.Commit,
		BuildDate:  version.BuildDate,
		GoVersion:  version.GoVersion,
		CORSOrigin: cfg.CORSOrigin,
		Store:      store,
		Supervisor: supervisor,
		Pool:       pool,
		Filters:    filter,
		PageCache:  pageCache,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:        cfg,
		logger:     loggerClient,
		server:     server,
		store:      store,
		pageCache:  pageCache,
		supervisor: supervisor,
		pool:       pool,
	}
}

// openPageCache connects the optional Redis page cache. An empty address
// disables it; a connection failure degrades to no caching.
func openPageCache(cfg *config.Config, log logger.Logger) *rediscache.Store {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, page cache disabled")
		return nil
	}

	client, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		log.Warnf("Redis unavailable, continuing without page cache: %v", err)
		return nil
	}

	return rediscache.NewStore(client, cfg.PageCacheTTL, log)
}

// loadSeed reads the optional seed yaml. Returns nil when no seed file is
// configured.
func loadSeed(cfg *config.Config, log logger.Logger) *seedfile.SeedConfig {
	if cfg.SeedFile == "" {
		return nil
	}
	seed, err := seedfile.NewLoader(cfg.SeedFile).Load()
	if err != nil {
		log.Errorf("Failed to load seed file %s: %v", cfg.SeedFile, err)
		os.Exit(1)
	}
	return &seed
}

// resolveFilter assembles the admission thresholds from env defaults plus
// the optional seed-file overlay, and validates the result so nonsense
// thresholds never reach the pipeline.
func resolveFilter(cfg *config.Config, seed *seedfile.SeedConfig) (domain.FilterConfig, error) {
	filter := domain.FilterConfig{
		MinSubscribers:    cfg.MinSubscribers,
		MinLongformVideos: cfg.MinLongformVideos,
		MaxUploadAge:      cfg.MaxUploadAge,
		DenyLanguages:     cfg.DenyLanguages,
	}
	if seed != nil {
		filter = seedfile.NewMapper().MapFilters(*seed, filter)
	}
	if err := filter.Validate(); err != nil {
		return domain.FilterConfig{}, err
	}
	return filter, nil
}

// registerSeedKeywords ensures a keyword row exists for every seed term.
// Discovery for seeded keywords still starts from the API, never implicitly
// on boot.
func registerSeedKeywords(cfg *config.Config, seed *seedfile.SeedConfig, store *sqlite.Store, log logger.Logger) []string {
	if seed == nil {
		return nil
	}

	keywords := seedfile.NewMapper().MapKeywords(*seed)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, text := range keywords {
		kw := &domain.Keyword{
			Text:                text,
			State:               domain.KeywordIdle,
			ExhaustionThreshold: cfg.ExhaustionThreshold,
		}
		if err := store.UpsertKeyword(ctx, kw); err != nil {
			log.Errorf("Failed to register seed keyword %q: %v", text, err)
			os.Exit(1)
		}
	}
	return keywords
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Harvester v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Harvester %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Let in-flight discovery pages and enrichment jobs finish.
	a.supervisor.StopAll()
	a.pool.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.pageCache != nil {
		if err := a.pageCache.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close store: %v", err)
	}

	a.logger.Info("✅ Harvester stopped cleanly")
	return nil
}

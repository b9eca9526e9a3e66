package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"minerva/internal/adapters/ai"
	"minerva/internal/adapters/config"
	"minerva/internal/adapters/duckduckgo"
	"minerva/internal/adapters/errors/noop"
	"minerva/internal/adapters/errors/sentry"
	"minerva/internal/adapters/postgres"
	"minerva/internal/adapters/redis"
	s3adapter "minerva/internal/adapters/s3"
	"minerva/internal/adapters/yahoo"
	"minerva/internal/agents"
	"minerva/internal/api"
	"minerva/internal/api/health"
	"minerva/internal/artifacts"
	"minerva/internal/domain/memory"
	"minerva/internal/metrics"
	pgrepo "minerva/internal/repository/postgres"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
	"minerva/pkg/templates"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize metrics
	metrics.Init()

	// PostgreSQL (memory persistence)
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	// Redis (optional quote/search cache)
	cache := initCache(cfg, log)
	var rawCache *goredis.Client
	if cache != nil {
		defer cache.Close()
		rawCache = cache.Client()
	}

	// AI providers
	registry, err := ai.BuildRegistry(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize AI providers: %v", err)
	}

	providerName := ai.NormalizeProviderName(cfg.AI.DefaultProvider)
	chat, err := registry.GetChat(providerName)
	if err != nil {
		log.Fatalf("Default AI provider %q is not available: %v", providerName, err)
	}

	model := cfg.AI.DefaultModel
	if model == "" {
		model = ai.DefaultModelFor(providerName)
	}
	log.Infof("Using AI provider %s with model %s", providerName, model)

	// Market data and web search providers
	market := yahoo.NewClient(cfg.MarketData, cache)
	search := duckduckgo.NewClient(cfg.Search)

	// Report publication (optional, pipeline degrades without it)
	publisher := initPublisher(cfg, log)

	// Agent tools
	toolRegistry := tools.NewRegistry()
	toolRegistry.Register(tools.NewWebSearchTool(search))
	toolRegistry.Register(tools.NewPriceHistoryTool(market, cfg.MarketData.HistoryDays))

	// Pipeline
	invoker := agents.NewInvoker(chat, model, templates.Get(), toolRegistry)
	memorySvc := memory.NewService(pgrepo.NewMemoryRepository(pgClient.DB()), cfg.Memory.RetentionDays)
	orchestrator := agents.NewOrchestrator(invoker, market, memorySvc, publisher, cfg.Memory)

	// HTTP server
	healthHandler := health.New(log, pgClient.DB(), rawCache, cfg.App.Name, version)
	server := api.NewServer(api.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ServiceName:  cfg.App.Name,
		Version:      version,
	}, healthHandler, orchestrator, market, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(server, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initCache connects to Redis when configured. The service runs without a
// cache; every quote and search then hits the upstream APIs directly.
func initCache(cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		log.Info("Redis cache disabled")
		return nil
	}

	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Warnf("Failed to connect to Redis, continuing without cache: %v", err)
		return nil
	}

	log.Info("Redis cache initialized")
	return client
}

// initPublisher wires S3-backed report publication when a bucket is
// configured and credentials resolve. Analysis still runs without it, the
// report link is just omitted from the response.
func initPublisher(cfg *config.Config, log *logger.Logger) *artifacts.Publisher {
	store, err := s3adapter.NewClient(context.Background(), cfg.Storage)
	if err != nil {
		log.Warnf("Report publication disabled: %v", err)
		return artifacts.NewPublisher(nil)
	}

	log.Infof("Report publication initialized (bucket %s)", cfg.Storage.Bucket)
	return artifacts.NewPublisher(store)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("HTTP server shutdown failed: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}

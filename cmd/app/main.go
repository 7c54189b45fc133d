package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/config"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
	aiAdapters "github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/adapters/ai"
	searchAdapters "github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/adapters/search"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/api"
	pg "github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/db/postgres"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/logging"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/metrics"
	red "github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/redis"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/sched"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/worker"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop providers allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = redisClient.Close() }()
	rateLimiter := red.NewRateLimiter(redisClient)
	linkCache := red.NewLinkCache(redisClient, cfg.Augment.CacheTTL)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool, txManager)
	batchRepo := pg.NewBatchRepo(pool)
	quotaRepo := pg.NewQuotaRepo(pool)

	// ---- Generation provider ----
	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("generation provider setup failed")
	}
	gen = aiAdapters.NewLimitedGenerator(gen, cfg.AI.ConcurrentLimit)
	logger.Info().Str("provider", cfg.AI.Provider).Str("model", gen.ModelName()).Msg("generation provider ready")

	// ---- Search provider ----
	var search adapter.WebSearchAdapter
	if cfg.Search.SerperKey != "" {
		search, err = searchAdapters.NewSerperAdapter(cfg.Search.SerperKey, cfg.Search.BaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("search adapter setup failed")
		}
	} else {
		logger.Warn().Msg("no search key configured, link augmentation disabled")
		search = searchAdapters.NewNoopSearchAdapter()
	}

	// ---- Use cases ----
	events := usecase.NewBroadcaster(256)
	defer events.Close()

	quota := usecase.NewQuotaTracker(quotaRepo, cfg.Augment.MonthlyQuota)
	augment := usecase.NewAugmentUseCase(linkCache, search, quota, cfg.Augment.CacheTTL, cfg.Augment.TopLinks, logger)
	jobUC := usecase.NewJobUseCase(jobRepo, events, logger)
	batchUC := usecase.NewBatchUseCase(batchRepo, jobRepo, jobUC, events, cfg.Batch.MaxItems, logger)
	jobUC.AttachBatchSettlement(batchUC)
	runner := usecase.NewGenerationUseCase(jobUC, augment, gen, usecase.GenerationConfig{
		QualityThreshold:  cfg.Generation.QualityThreshold,
		MinRetryThreshold: cfg.Generation.MinRetryThreshold,
		MaxAttempts:       cfg.Generation.MaxAttempts,
		ImproveBudget:     cfg.Generation.ImproveBudget,
		OverallBudget:     cfg.Generation.OverallBudget,
		MaxTokens:         cfg.Generation.MaxTokens,
	}, logger)

	// ---- Batch workers ----
	workerPool := worker.NewPool(cfg.Batch.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	dispatcher := worker.NewDispatcher(jobRepo, runner, batchUC, cfg.Batch.PollInterval, logger)
	go dispatcher.Start(ctx, workerPool)

	// ---- Stale job reaper ----
	reaper := sched.NewStaleJobReaper(cfg.Reaper.Interval, cfg.Reaper.StaleAfter, jobRepo, jobUC, batchUC, logger)
	go reaper.Run(ctx)

	// ---- HTTP ----
	srv := api.NewServer(jobUC, batchUC, runner, events, rateLimiter, cfg.RateLimit.SubmissionsPerMinute, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
}

func buildGenerator(ctx context.Context, cfg *config.Config) (adapter.TextGenerator, error) {
	switch cfg.AI.Provider {
	case "openai":
		return aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Model)
	case "gemini":
		return aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model)
	case "compat":
		return aiAdapters.NewCompatAdapter(cfg.AI.CompatKey, cfg.AI.Model, cfg.AI.CompatBaseURL)
	case "noop":
		if !cfg.Runtime.Dev {
			return nil, fmt.Errorf("ai.provider=noop is only allowed with -dev")
		}
		return aiAdapters.NewNoopAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/price-radar/price-radar/internal/api"
	"github.com/price-radar/price-radar/internal/batch"
	"github.com/price-radar/price-radar/internal/breaker"
	"github.com/price-radar/price-radar/internal/cache"
	"github.com/price-radar/price-radar/internal/collector"
	"github.com/price-radar/price-radar/internal/config"
	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/httpclient"
	"github.com/price-radar/price-radar/internal/logging"
	"github.com/price-radar/price-radar/internal/pipeline/stages"
	"github.com/price-radar/price-radar/internal/provider"
	"github.com/price-radar/price-radar/internal/storage"
	"github.com/price-radar/price-radar/pkg/models"
)

// seedProviders are the known catalog sources with their trust scores.
var seedProviders = []models.Provider{
	{Slug: "sport-direct", Name: "SportDirect", ReliabilityScore: 0.99, DataQualityScore: 95},
	{Slug: "outdoor-pro", Name: "OutdoorPro", ReliabilityScore: 0.95, DataQualityScore: 90},
	{Slug: "dag-spor", Name: "DagSpor", ReliabilityScore: 0.85, DataQualityScore: 75},
	{Slug: "alpine-gear", Name: "AlpineGear", ReliabilityScore: 0.70, DataQualityScore: 60},
}

// seedCurrencies are the currencies the providers quote prices in.
var seedCurrencies = []models.Currency{
	{Code: "TRY", Symbol: "₺", Name: "Türk Lirası"},
	{Code: "USD", Symbol: "$", Name: "US Dollar"},
	{Code: "EUR", Symbol: "€", Name: "Euro"},
	{Code: "GBP", Symbol: "£", Name: "Pound Sterling"},
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.Info("starting price radar server",
		slog.String("version", "0.1.0"),
		slog.Int("port", cfg.Server.Port))

	// Database
	db, err := storage.New(cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := storage.NewProviderStore(db).Seed(ctx, seedProviders); err != nil {
		logger.Error("failed to seed providers", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := storage.NewCurrencyStore(db).Seed(ctx, seedCurrencies); err != nil {
		logger.Error("failed to seed currencies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Cache
	store, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("failed to connect to cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	// Circuit breakers: historically unreliable sources trip sooner.
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		Timeout:          cfg.Breaker.Timeout,
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
	})
	breakers.SetOverride("alpine-gear", breaker.Config{
		FailureThreshold: max(2, cfg.Breaker.FailureThreshold/2),
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		Timeout:          cfg.Breaker.Timeout,
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
	})

	// Collector
	coll := collector.New(collector.Config{
		BaseURL:   cfg.Providers.BaseURL,
		Endpoints: cfg.Providers.Endpoints,
		CacheTTL:  cfg.Collector.CacheTTL,
		Client: httpclient.Config{
			Timeout:    cfg.Collector.Timeout,
			MaxRetries: cfg.Collector.MaxRetries,
		},
	}, provider.DefaultRegistry(), store, breakers, collector.WithLogger(logger))

	currencySvc := currency.New(cfg.Currency.ExchangeRateURL, store,
		currency.WithRatesTTL(cfg.Currency.RatesTTL),
		currency.WithLogger(logger))

	runner := batch.NewRunner(batch.Config{
		Interval: cfg.Collector.Interval,
		Analysis: stages.AnalysisConfig{
			HistoryLimit:       cfg.Analysis.HistoryLimit,
			TrendingLimit:      cfg.Analysis.TrendingLimit,
			ArbitrageThreshold: cfg.Analysis.ArbitrageThreshold,
		},
	}, coll, db, currencySvc, logger)

	// Root context cancelled on SIGINT/SIGTERM; the collector fan-out and
	// in-flight HTTP calls unwind from it.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go runner.Run(runCtx)

	server := api.New(coll, runner, db, store,
		api.WithLogger(logger),
		api.WithHost(cfg.Server.Host),
		api.WithPort(cfg.Server.Port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", slog.String("error", err.Error()))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}

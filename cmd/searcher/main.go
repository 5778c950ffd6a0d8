// Command searcher serves positional queries over indexed documents.
//
// Documents in indexer.sourceDir are indexed at startup; more arrive through
// PUT /api/v1/documents/{name} or, with Kafka enabled, from the ingest topic.
// Redis caches query results, PostgreSQL keeps document status and analytics
// snapshots. All three are optional.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion/store"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	docs := catalog.New(cfg.Indexer.MaxDocumentSize, cfg.Indexer.BuildConcurrency, m)
	if cfg.Indexer.SourceDir != "" {
		n, err := docs.LoadDir(ctx, cfg.Indexer.SourceDir)
		if err != nil {
			slog.Error("failed to index source directory", "dir", cfg.Indexer.SourceDir, "error", err)
			os.Exit(1)
		}
		slog.Info("source directory indexed", "dir", cfg.Indexer.SourceDir, "documents", n)
	}
	exec := executor.New(docs, cfg.Search.MaxResults, m)

	checker := health.NewChecker(5 * time.Second)
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", docs.Len())}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.Ping(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var snapshots analytics.SnapshotLister
	var statuses consumer.StatusUpdater
	var background errgroup.Group

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		snapStore := snapshot.NewStore(db.DB)
		if latest, err := snapStore.Latest(ctx); err != nil {
			slog.Warn("failed to load analytics snapshot", "error", err)
		} else if latest != nil {
			aggregator.Restore(*latest)
			slog.Info("analytics restored from snapshot", "captured_at", latest.CapturedAt)
		}
		snapshots = snapStore
		statuses = store.New(db)
		checker.Register("postgres", health.Ping(db.Ping, false))
		background.Go(func() error {
			snapStore.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval)
			return nil
		})
	}

	var publisher analytics.Publisher = aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer

		// Every instance reads the whole analytics topic so each can answer
		// /api/v1/analytics for the cluster.
		host, _ := os.Hostname()
		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
			fmt.Sprintf("%s-analytics-%s", cfg.Kafka.ConsumerGroup, host), analytics.HandleEvent(aggregator))
		background.Go(func() error {
			return analyticsConsumer.Start(ctx)
		})
	}

	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()

	if cfg.Kafka.Enabled {
		ingestConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, "",
			consumer.HandleMessage(docs, statuses, collector))
		background.Go(func() error {
			return ingestConsumer.Start(ctx)
		})
		slog.Info("kafka consumers started",
			"ingest_topic", cfg.Kafka.Topics.DocumentIngest,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	}

	h := handler.New(exec, docs, queryCache, collector, handler.Options{
		DefaultLimit:    cfg.Search.DefaultLimit,
		MaxResults:      cfg.Search.MaxResults,
		SearchTimeout:   cfg.Search.Timeout,
		MaxDocumentSize: cfg.Indexer.MaxDocumentSize,
	})
	analyticsH := analytics.NewHandler(aggregator, snapshots)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsH.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Run(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ListenAndServe returns as soon as Shutdown starts; handlers still
	// draining may track analytics, so the deferred closes wait for
	// shutdownDone.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		stop()
	}
	<-shutdownDone

	if err := background.Wait(); err != nil {
		slog.Error("background worker error", "error", err)
	}
	slog.Info("search service stopped")
}

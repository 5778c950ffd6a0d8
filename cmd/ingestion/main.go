// Command ingestion starts the document ingestion HTTP service.
//
// The service accepts documents via POST /api/v1/documents, validates them,
// records them in PostgreSQL and publishes them to the ingest topic, where
// every searcher instance picks them up for indexing. GET
// /api/v1/documents/{id} reports the indexing status of a document.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion/store"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/resilience"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

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
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	documents := store.New(db)
	pub := publisher.New(documents, producer, resilience.RetryConfig{
		MaxAttempts:    5,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	})
	h := handler.New(pub, documents, cfg.Indexer.MaxDocumentSize)

	checker := health.NewChecker(5 * time.Second)
	checker.Register("postgres", health.Ping(db.Ping, true))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Status)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}

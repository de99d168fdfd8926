// Command analytics aggregates the search events every search replica
// publishes to Kafka and serves the combined totals.
//
// Usage:
//
//	analytics [-config config.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service",
		"port", cfg.Server.Port,
		"topic", cfg.Kafka.AnalyticsTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.AnalyticsTopic, analytics.HandleMessage(aggregator))

	var consuming atomic.Bool
	consuming.Store(true)
	go func() {
		defer consuming.Store(false)
		if err := consumer.Run(ctx); err != nil {
			slog.Error("analytics consumer stopped", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		if !consuming.Load() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "consumer stopped"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics/stats", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.CORS(middleware.DefaultCORSConfig())),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}

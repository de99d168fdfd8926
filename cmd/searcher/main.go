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

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	src, closeSource, err := source.New(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to create corpus source", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	docs, err := source.Load(ctx, src, cfg.Source.LoadTimeout)
	if err != nil {
		slog.Error("failed to load corpus", "error", err)
		os.Exit(1)
	}

	engine := indexer.NewEngine(docs, m)
	exec := executor.New(engine, m)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms),
		}
	})
	if pinger, ok := src.(health.Pinger); ok {
		checker.Register(src.Name(), health.PingCheck(pinger, false))
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			// Keys are scoped to this build so a restarted service never
			// serves results computed against an older corpus.
			generation := engine.BuiltAt().Format(time.RFC3339Nano)
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, generation, m)
			checker.Register("redis", health.PingCheck(redisClient, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.AnalyticsTopic)
		defer producer.Close()
		publisher = producer
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.AnalyticsTopic, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(aggregator, publisher, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	collector.Start(ctx)

	h := handler.New(exec, engine, queryCache, collector, cfg.Search.DefaultTopK, cfg.Search.MaxTopK)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics/stats", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Trace,
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.Metrics(m),
	}
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 10*time.Minute)
		middlewares = append(middlewares, middleware.RateLimit(limiter))
	}
	middlewares = append(middlewares, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middlewares...),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	collector.Wait()
	slog.Info("search service stopped")
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/inspect"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

// Tracker receives one event per answered search.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

type Handler struct {
	executor    SearchExecutor
	engine      *indexer.Engine
	cache       *cache.QueryCache
	tracker     Tracker
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

// New builds the HTTP handler. queryCache and tracker may be nil.
func New(exec SearchExecutor, engine *indexer.Engine, queryCache *cache.QueryCache, tracker Tracker, defaultTopK, maxTopK int) *Handler {
	return &Handler{
		executor:    exec,
		engine:      engine,
		cache:       queryCache,
		tracker:     tracker,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search and index routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/inverted", h.InvertedIndex)
	mux.HandleFunc("GET /api/v1/index/matrix", h.OccurrenceMatrix)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := h.parseRequest(r)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, req)
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, compute)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		log.Error("search failed", "query", req.Query, "mode", req.Mode, "error", err)
		h.writeErr(w, err)
		return
	}

	if cacheHit && result.Query != req.Query {
		echoed := *result
		echoed.Query = req.Query
		result = &echoed
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", req.Query,
		"mode", req.Mode,
		"total_hits", result.TotalHits,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.NewSearchEvent(
			req.Query, string(req.Mode), req.TopK, result.TotalHits, latency, cacheHit, logger.RequestID(ctx),
		))
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseRequest(r *http.Request) (executor.Request, error) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		return executor.Request{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	}
	mode, err := executor.ParseMode(q.Get("mode"))
	if err != nil {
		return executor.Request{}, err
	}
	topK := h.defaultTopK
	if raw := q.Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			return executor.Request{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "k must be a positive integer")
		}
		topK = min(k, h.maxTopK)
	}
	if mode == executor.ModeBoolean {
		topK = 0
	}
	return executor.Request{Query: query, Mode: mode, TopK: topK}, nil
}

func (h *Handler) InvertedIndex(w http.ResponseWriter, r *http.Request) {
	h.writeDump(w, "inverted index", func(buf *bytes.Buffer) error {
		return inspect.DumpInvertedIndex(buf, h.engine.Index())
	})
}

func (h *Handler) OccurrenceMatrix(w http.ResponseWriter, r *http.Request) {
	h.writeDump(w, "occurrence matrix", func(buf *bytes.Buffer) error {
		return inspect.DumpOccurrenceMatrix(buf, h.engine.Index())
	})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents":     stats.Documents,
		"terms":         stats.Terms,
		"tokens":        stats.Tokens,
		"built_at":      h.engine.BuiltAt().Format(time.RFC3339),
		"build_time_ms": h.engine.BuildDuration().Milliseconds(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  stats.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeErr(w, apperrors.New(apperrors.ErrCacheDisabled, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeDump(w http.ResponseWriter, what string, dump func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := dump(&buf); err != nil {
		h.logger.Error("dump failed", "what", what, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "dump failed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeErr answers with the status carried by err. Internal details of
// unexpected errors are not echoed to the client.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/tracing"
)

// Mode selects how a query is evaluated.
type Mode string

const (
	ModeBoolean Mode = "boolean"
	ModeRanked  Mode = "ranked"
)

// ParseMode maps a user-supplied mode name to a Mode. The empty string
// selects ranked search.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRanked:
		return ModeRanked, nil
	case ModeBoolean:
		return ModeBoolean, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown search mode %q", s)
	}
}

type Request struct {
	Query string
	Mode  Mode
	TopK  int
}

type SearchResult struct {
	Query     string             `json:"query"`
	Mode      Mode               `json:"mode"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

// Executor answers boolean and ranked queries against one built index. It
// holds no mutable state, so it is safe for concurrent use.
type Executor struct {
	idx     *index.Index
	ranker  *ranker.Ranker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires an Executor to engine. m may be nil.
func New(engine *indexer.Engine, m *metrics.Metrics) *Executor {
	return &Executor{
		idx:     engine.Index(),
		ranker:  ranker.New(engine.Index()),
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// BooleanSearch evaluates a flat AND/OR/NOT query left to right. Every
// returned document scores 1.0 and results are in ascending document ID.
func (e *Executor) BooleanSearch(query string) []ranker.ScoredDoc {
	ids := Evaluate(e.idx, parser.Parse(query))
	results := make([]ranker.ScoredDoc, 0, len(ids))
	for _, id := range ids {
		results = append(results, ranker.ScoredDoc{DocID: id, Score: 1.0})
	}
	return results
}

// RankedSearch returns up to topK documents by TF-IDF cosine similarity.
func (e *Executor) RankedSearch(query string, topK int) []ranker.ScoredDoc {
	return e.ranker.Rank(query, topK)
}

// Execute runs req and records latency and result metrics.
func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	start := time.Now()
	_, span := tracing.StartChild(ctx, "execute")
	span.SetAttr("mode", req.Mode)
	defer span.End()

	var results []ranker.ScoredDoc
	switch req.Mode {
	case ModeBoolean:
		results = e.BooleanSearch(req.Query)
	case ModeRanked:
		results = e.RankedSearch(req.Query, req.TopK)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown search mode %q", req.Mode)
	}

	elapsed := time.Since(start)
	span.SetAttr("results", len(results))
	if e.metrics != nil {
		resultType := "hit"
		if len(results) == 0 {
			resultType = "zero_result"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(string(req.Mode), resultType).Inc()
		e.metrics.SearchLatency.WithLabelValues(string(req.Mode)).Observe(elapsed.Seconds())
		e.metrics.SearchResultsCount.WithLabelValues(string(req.Mode)).Observe(float64(len(results)))
	}
	e.logger.Debug("query executed",
		"query", req.Query,
		"mode", req.Mode,
		"top_k", req.TopK,
		"results", len(results),
		"latency_us", elapsed.Microseconds(),
	)
	return &SearchResult{
		Query:     req.Query,
		Mode:      req.Mode,
		TotalHits: len(results),
		Results:   results,
	}, nil
}

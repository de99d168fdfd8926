// Package indexer turns a corpus into an immutable index. The Engine builds
// the index once at construction; there is no API to add or remove
// documents afterwards, so a new corpus needs a new Engine.
package indexer

import (
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
)

type Engine struct {
	idx       *index.Index
	builtAt   time.Time
	buildTime time.Duration
	logger    *slog.Logger
}

// NewEngine indexes docs in input order. m may be nil.
func NewEngine(docs []index.Document, m *metrics.Metrics) *Engine {
	logger := slog.Default().With("component", "indexer")
	start := time.Now()
	idx := index.Build(docs)
	elapsed := time.Since(start)

	stats := idx.Stats()
	if m != nil {
		m.DocsIndexedTotal.Add(float64(stats.Documents))
		m.IndexTerms.Set(float64(stats.Terms))
		m.IndexBuildDuration.Observe(elapsed.Seconds())
	}
	if stats.Documents == 0 {
		logger.Warn("corpus is empty, every query will return no results")
	}
	logger.Info("index built",
		"input_docs", len(docs),
		"documents", stats.Documents,
		"terms", stats.Terms,
		"tokens", stats.Tokens,
		"build_ms", elapsed.Milliseconds(),
	)
	return &Engine{
		idx:       idx,
		builtAt:   time.Now().UTC(),
		buildTime: elapsed,
		logger:    logger,
	}
}

// Index returns the read-only index.
func (e *Engine) Index() *index.Index {
	return e.idx
}

func (e *Engine) Stats() index.Stats {
	return e.idx.Stats()
}

func (e *Engine) BuiltAt() time.Time {
	return e.builtAt
}

func (e *Engine) BuildDuration() time.Duration {
	return e.buildTime
}

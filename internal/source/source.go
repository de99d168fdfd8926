// Package source acquires the corpus the index is built from. Every source
// hands back one completed, ordered batch of documents; the index never
// sees a partial stream.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/resilience"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]index.Document, error)
}

// New builds the source selected by cfg.Source.Kind. The returned close
// function releases any connection the source holds.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source.Kind {
	case config.SourceWikipedia:
		client := &http.Client{Timeout: cfg.Source.FetchTimeout}
		return NewWikipedia(client, cfg.Source, m), noop, nil
	case config.SourceFile:
		return NewFile(cfg.Source.FilePath), noop, nil
	case config.SourcePostgres:
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting corpus database: %w", err)
		}
		return NewPostgres(pg, cfg.Source.Table), pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// Load runs src.Fetch bounded by timeout.
func Load(ctx context.Context, src Source, timeout time.Duration) ([]index.Document, error) {
	docs, err := resilience.WithTimeout(ctx, timeout, "load-"+src.Name(), src.Fetch)
	if err != nil {
		return nil, fmt.Errorf("loading corpus from %s: %w", src.Name(), err)
	}
	return docs, nil
}

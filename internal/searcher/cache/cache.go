// Package cache memoises search results in Redis. Keys are derived from a
// canonical form of the request, so queries that evaluate identically share
// an entry, and are scoped to the index generation so a rebuilt corpus
// never serves stale results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/tracing"
)

const keyPrefix = "irsearch:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Breaker string `json:"breaker"`
}

type QueryCache struct {
	store      Store
	ttl        time.Duration
	generation string
	breaker    *resilience.Breaker
	group      singleflight.Group
	metrics    *metrics.Metrics
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

// New returns a cache over store. generation identifies the index the
// cached results were computed from; m may be nil.
func New(store Store, ttl time.Duration, generation string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:      store,
		ttl:        ttl,
		generation: generation,
		breaker:    resilience.NewBreaker("query-cache", resilience.BreakerConfig{FailureThreshold: 5, CoolDown: 30 * time.Second}),
		metrics:    m,
		logger:     slog.Default().With("component", "query-cache"),
	}
}

// Get looks req up. Backend failures are logged and reported as misses.
func (c *QueryCache) Get(ctx context.Context, req executor.Request) (*executor.SearchResult, bool) {
	key := c.Key(req)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache entry corrupt", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", req.Query, "mode", req.Mode)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req executor.Request, result *executor.SearchResult) {
	key := c.Key(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req or computes, stores and
// returns it. Concurrent misses for the same key share one computation,
// which runs detached from any single caller's cancellation; each caller
// stops waiting when its own ctx ends. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req executor.Request,
	compute func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	ctx, span := tracing.StartChild(ctx, "cache")
	defer span.End()
	if result, ok := c.Get(ctx, req); ok {
		span.SetAttr("hit", true)
		return result, true, nil
	}
	span.SetAttr("hit", false)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.Key(req), func() (any, error) {
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, req, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	}
}

// Invalidate drops every entry written by any generation.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Breaker: c.breaker.State().String(),
	}
}

// Key returns the storage key for req.
func (c *QueryCache) Key(req executor.Request) string {
	topK := req.TopK
	if req.Mode == executor.ModeBoolean {
		topK = 0
	}
	raw := fmt.Sprintf("%s|%s|k=%d|%s", c.generation, req.Mode, topK, canonicalQuery(req))
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

// canonicalQuery reduces a query to the form its mode actually evaluates.
// Boolean queries are order sensitive, so only case and spacing are
// normalised. Ranked queries are a bag of tokens.
func canonicalQuery(req executor.Request) string {
	if req.Mode == executor.ModeBoolean {
		return strings.Join(strings.Fields(strings.ToLower(req.Query)), " ")
	}
	tokens := tokenizer.Tokenize(req.Query)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

package cache

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/redis"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	err     error
	getCall atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.getCall.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult(q string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     q,
		Mode:      executor.ModeRanked,
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: 1, Score: 0.5}},
	}
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemStore(), time.Minute, "gen1", m)
	req := executor.Request{Query: "cat", Mode: executor.ModeRanked, TopK: 10}

	computed := 0
	compute := func(context.Context) (*executor.SearchResult, error) {
		computed++
		return sampleResult("cat"), nil
	}

	res, hit, err := c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sampleResult("cat"), res)

	res, hit, err = c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResult("cat"), res)
	assert.Equal(t, 1, computed)

	assert.Equal(t, Stats{Hits: 1, Misses: 1, Breaker: "closed"}, c.Stats())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := New(newMemStore(), time.Minute, "gen1", nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), executor.Request{Query: "x", Mode: executor.ModeRanked},
		func(context.Context) (*executor.SearchResult, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGetOrComputeSurvivesFirstCallerCancel(t *testing.T) {
	c := New(newMemStore(), time.Minute, "gen1", nil)
	req := executor.Request{Query: "cat", Mode: executor.ModeRanked, TopK: 10}

	var (
		startOnce sync.Once
		computed  atomic.Int32
	)
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		computed.Add(1)
		startOnce.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sampleResult("cat"), nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, req, compute)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		res *executor.SearchResult
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), req, compute)
		second <- outcome{res, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(50 * time.Millisecond)
	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, sampleResult("cat"), got.res)
	assert.Equal(t, int32(1), computed.Load(), "second caller joins the in-flight computation")

	res, hit, err := c.GetOrCompute(context.Background(), req, compute)
	require.NoError(t, err)
	assert.True(t, hit, "shared result is cached after the first caller left")
	assert.Equal(t, sampleResult("cat"), res)
}

func TestKeyCanonicalisation(t *testing.T) {
	c := New(newMemStore(), time.Minute, "gen1", nil)
	key := func(q string, mode executor.Mode, k int) string {
		return c.Key(executor.Request{Query: q, Mode: mode, TopK: k})
	}

	assert.Equal(t, key("Information Retrieval", executor.ModeRanked, 10), key("retrieval,  information!", executor.ModeRanked, 10))
	assert.NotEqual(t, key("cat", executor.ModeRanked, 5), key("cat", executor.ModeRanked, 10))

	assert.Equal(t, key("cat AND dog", executor.ModeBoolean, 5), key("  CAT and   dog ", executor.ModeBoolean, 50))
	assert.NotEqual(t, key("cat AND dog", executor.ModeBoolean, 0), key("dog AND cat", executor.ModeBoolean, 0),
		"boolean evaluation is order sensitive")
	assert.NotEqual(t, key("cat,", executor.ModeBoolean, 0), key("cat", executor.ModeBoolean, 0))
	assert.NotEqual(t, key("cat", executor.ModeBoolean, 0), key("cat", executor.ModeRanked, 0))

	other := New(newMemStore(), time.Minute, "gen2", nil)
	assert.NotEqual(t, key("cat", executor.ModeRanked, 10), other.Key(executor.Request{Query: "cat", Mode: executor.ModeRanked, TopK: 10}))
	assert.True(t, strings.HasPrefix(key("cat", executor.ModeRanked, 10), keyPrefix))
}

func TestBackendFailureDegradesToMiss(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Minute, "gen1", nil)
	req := executor.Request{Query: "cat", Mode: executor.ModeRanked, TopK: 10}

	for i := 0; i < 8; i++ {
		_, hit, err := c.GetOrCompute(context.Background(), req, func(context.Context) (*executor.SearchResult, error) {
			return sampleResult("cat"), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, "open", c.Stats().Breaker)
	assert.Equal(t, int64(3), store.getCall.Load(), "breaker stops calling the backend once open")
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, "gen1", nil)
	c.Set(context.Background(), executor.Request{Query: "a", Mode: executor.ModeRanked}, sampleResult("a"))
	c.Set(context.Background(), executor.Request{Query: "b", Mode: executor.ModeBoolean}, sampleResult("b"))
	store.data["unrelated"] = []byte("x")

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, store.data, 1)
}

func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("IRS_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	client, err := pkgredis.NewClient(ctx, config.RedisConfig{Addr: addr, PoolSize: 2})
	if err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	defer client.Close()

	c := New(client, time.Minute, "it-"+time.Now().Format(time.RFC3339Nano), nil)
	req := executor.Request{Query: "cat", Mode: executor.ModeRanked, TopK: 3}
	c.Set(ctx, req, sampleResult("cat"))

	got, ok := c.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, sampleResult("cat"), got)

	_, err = c.Invalidate(ctx)
	require.NoError(t, err)
	_, ok = c.Get(ctx, req)
	assert.False(t, ok)
}

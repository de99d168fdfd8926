package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestNewSearchEvent(t *testing.T) {
	e := NewSearchEvent("cat", "ranked", 5, 0, 12*time.Millisecond, true, "req-1")
	assert.Equal(t, EventZeroResult, e.Type)
	assert.Equal(t, int64(12), e.LatencyMs)
	assert.False(t, e.Timestamp.IsZero())

	e = NewSearchEvent("cat", "boolean", 0, 3, time.Millisecond, false, "")
	assert.Equal(t, EventSearch, e.Type)
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	a.Record(NewSearchEvent("cat", "ranked", 10, 2, 10*time.Millisecond, false, ""))
	a.Record(NewSearchEvent("cat", "ranked", 10, 2, 20*time.Millisecond, true, ""))
	a.Record(NewSearchEvent("zebra", "boolean", 0, 0, 30*time.Millisecond, false, ""))

	s := a.Stats()
	assert.Equal(t, int64(3), s.TotalSearches)
	assert.Equal(t, int64(1), s.BooleanSearches)
	assert.Equal(t, int64(2), s.RankedSearches)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.InDelta(t, 20.0, s.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(20), s.P50LatencyMs)
	assert.Equal(t, int64(30), s.P99LatencyMs)
	assert.Equal(t, []QueryCount{{"cat", 2}, {"zebra", 1}}, s.TopQueries)
	assert.Equal(t, []QueryCount{{"zebra", 1}}, s.ZeroResultQueries)
}

func TestCollectorFlushesToPublisher(t *testing.T) {
	pub := &fakePublisher{}
	agg := NewAggregator()
	c := NewCollector(agg, pub, 100, time.Hour)

	c.Track(NewSearchEvent("cat", "ranked", 10, 1, 0, false, ""))
	c.Track(NewSearchEvent("dog", "ranked", 10, 1, 0, false, ""))
	assert.Equal(t, 2, c.Buffered())

	c.Flush(context.Background())
	assert.Equal(t, 0, c.Buffered())
	assert.Equal(t, 2, pub.published())
	assert.Equal(t, int64(2), agg.Stats().TotalSearches)
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(nil, pub, 2, time.Hour)

	for i := 0; i < 5; i++ {
		c.mu.Lock()
		c.buffer = append(c.buffer, kafka.Event{Key: "ranked"})
		c.mu.Unlock()
		c.Flush(context.Background())
	}
	assert.Equal(t, 5, c.Buffered())

	for i := 0; i < 3; i++ {
		c.mu.Lock()
		c.buffer = append(c.buffer, kafka.Event{Key: "ranked"})
		c.mu.Unlock()
	}
	c.Flush(context.Background())
	assert.Equal(t, 6, c.Buffered(), "buffer is capped at three batches")

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	c.Flush(context.Background())
	assert.Equal(t, 6, pub.published())
}

func TestCollectorStartStop(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(NewAggregator(), pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(NewSearchEvent("cat", "ranked", 10, 1, 0, false, ""))
	cancel()
	c.Wait()
	assert.Equal(t, 1, pub.published(), "pending events are flushed on shutdown")
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(NewSearchEvent("cat", "ranked", 10, 1, 0, false, ""))

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(1), got.TotalSearches)
}

func TestHandleMessage(t *testing.T) {
	a := NewAggregator()
	handle := HandleMessage(a)

	value, err := json.Marshal(NewSearchEvent("cat", "ranked", 10, 0, 5*time.Millisecond, false, "req-7"))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), []byte("ranked"), value))
	assert.Error(t, handle(context.Background(), nil, []byte("{")))

	stats := a.Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, []QueryCount{{Query: "cat", Count: 1}}, stats.ZeroResultQueries)
}

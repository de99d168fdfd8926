package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/irsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
)

func newExecutor(t *testing.T, docs []index.Document) *Executor {
	t.Helper()
	return New(indexer.NewEngine(docs, nil), nil)
}

func scenarioDocs() []index.Document {
	return []index.Document{
		{ID: 1, Content: "cat dog cat"},
		{ID: 2, Content: "dog bird"},
	}
}

func ids(results []ranker.ScoredDoc) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.DocID
	}
	return out
}

func TestBooleanSearchScenario(t *testing.T) {
	e := newExecutor(t, scenarioDocs())

	assert.Equal(t, []ranker.ScoredDoc{{DocID: 1, Score: 1.0}}, e.BooleanSearch("cat AND dog"))
	assert.Equal(t, []ranker.ScoredDoc{{DocID: 1, Score: 1.0}, {DocID: 2, Score: 1.0}}, e.BooleanSearch("cat OR bird"))
	assert.Equal(t, []ranker.ScoredDoc{{DocID: 2, Score: 1.0}}, e.BooleanSearch("dog NOT cat"))
}

func TestBooleanSearchEdgeCases(t *testing.T) {
	e := newExecutor(t, []index.Document{
		{ID: 1, Content: "cat dog cat"},
		{ID: 2, Content: "dog bird"},
		{ID: 3, Content: "bird fish"},
	})

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"empty", "", []int{}},
		{"operators only", "AND OR NOT", []int{}},
		{"unknown term", "zebra", []int{}},
		{"single term", "bird", []int{2, 3}},
		{"case insensitive", "CAT and DOG", []int{1}},
		{"leading operator ignored when seeding", "AND bird", []int{2, 3}},
		{"leading NOT seeds instead of complementing", "NOT cat", []int{1}},
		{"missing operator drops the term", "cat bird", []int{1}},
		{"operator stays pending", "dog AND cat bird", []int{}},
		{"sticky OR", "cat OR bird fish", []int{1, 2, 3}},
		{"left to right, no precedence", "cat OR fish AND bird", []int{3}},
		{"and with unknown term empties", "dog AND zebra", []int{}},
		{"not unknown keeps result", "dog NOT zebra", []int{1, 2}},
		{"unknown seed then or", "zebra OR fish", []int{3}},
		{"punctuation is not stripped", "cat,", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.BooleanSearch(tt.query)
			assert.Equal(t, tt.want, ids(got))
			for _, r := range got {
				assert.Equal(t, 1.0, r.Score)
			}
		})
	}
}

func TestBooleanSearchIdempotent(t *testing.T) {
	e := newExecutor(t, scenarioDocs())
	for _, q := range []string{"cat OR bird", "dog NOT cat", "cat AND dog", "bird OR cat OR dog"} {
		assert.Equal(t, e.BooleanSearch(q), e.BooleanSearch(q), q)
	}
}

func TestRankedSearchScenario(t *testing.T) {
	e := newExecutor(t, scenarioDocs())
	got := e.RankedSearch("cat", 5)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].DocID)
}

func TestEmptyCorpus(t *testing.T) {
	e := newExecutor(t, nil)
	for _, q := range []string{"cat", "cat AND dog", "NOT cat", ""} {
		assert.Empty(t, e.BooleanSearch(q), q)
		assert.Empty(t, e.RankedSearch(q, 10), q)
	}
}

func TestExecute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := New(indexer.NewEngine(scenarioDocs(), m), m)

	res, err := e.Execute(context.Background(), Request{Query: "cat OR bird", Mode: ModeBoolean})
	require.NoError(t, err)
	assert.Equal(t, ModeBoolean, res.Mode)
	assert.Equal(t, 2, res.TotalHits)

	res, err = e.Execute(context.Background(), Request{Query: "zebra", Mode: ModeRanked, TopK: 3})
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
	assert.NotNil(t, res.Results)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("boolean", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("ranked", "zero_result")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))

	_, err = e.Execute(context.Background(), Request{Query: "cat", Mode: "fuzzy"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, Request{Query: "cat", Mode: ModeRanked})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeRanked, m)

	m, err = ParseMode("boolean")
	require.NoError(t, err)
	assert.Equal(t, ModeBoolean, m)

	_, err = ParseMode("vector")
	assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
}

func benchmarkDocs(n int) []index.Document {
	words := []string{"search", "ranking", "index", "query", "retrieval", "learning", "processing", "data"}
	docs := make([]index.Document, n)
	for i := range docs {
		docs[i] = index.Document{
			ID:      i + 1,
			Content: fmt.Sprintf("%s %s %s information %d", words[i%len(words)], words[(i*3)%len(words)], words[(i*5)%len(words)], i),
		}
	}
	return docs
}

// BenchmarkExecute measures end-to-end query latency for both modes over
// corpora of increasing size.
func BenchmarkExecute(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		exec := New(indexer.NewEngine(benchmarkDocs(numDocs), nil), nil)
		for _, req := range []Request{
			{Query: "search AND information NOT data", Mode: ModeBoolean},
			{Query: "information retrieval ranking", Mode: ModeRanked, TopK: 10},
		} {
			b.Run(fmt.Sprintf("%s/docs_%d", req.Mode, numDocs), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := exec.Execute(context.Background(), req); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkExecuteParallel measures concurrent ranked search throughput
// against one shared index.
func BenchmarkExecuteParallel(b *testing.B) {
	exec := New(indexer.NewEngine(benchmarkDocs(5000), nil), nil)
	req := Request{Query: "learning processing", Mode: ModeRanked, TopK: 10}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := exec.Execute(context.Background(), req); err != nil {
				b.Fatal(err)
			}
		}
	})
}

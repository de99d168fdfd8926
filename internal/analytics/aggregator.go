package analytics

import (
	"sort"
	"sync"
	"time"
)

// maxLatencySamples bounds memory; the oldest samples are discarded first.
const maxLatencySamples = 10000

type Stats struct {
	TotalSearches     int64        `json:"total_searches"`
	BooleanSearches   int64        `json:"boolean_searches"`
	RankedSearches    int64        `json:"ranked_searches"`
	CacheHits         int64        `json:"cache_hits"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over search events in memory.
type Aggregator struct {
	mu          sync.Mutex
	total       int64
	byMode      map[string]int64
	cacheHits   int64
	zeroResults int64
	latencies   []int64
	queries     map[string]int64
	zeroQueries map[string]int64
	start       time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byMode:      make(map[string]int64),
		latencies:   make([]int64, 0, 1024),
		queries:     make(map[string]int64),
		zeroQueries: make(map[string]int64),
		start:       time.Now(),
	}
}

func (a *Aggregator) Record(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.byMode[event.Mode]++
	if event.CacheHit {
		a.cacheHits++
	}
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroQueries[event.Query]++
	}
	a.queries[event.Query]++
	if len(a.latencies) == maxLatencySamples {
		a.latencies = append(a.latencies[:0], a.latencies[1:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMs)
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		TotalSearches:     a.total,
		BooleanSearches:   a.byMode["boolean"],
		RankedSearches:    a.byMode["ranked"],
		CacheHits:         a.cacheHits,
		ZeroResultCount:   a.zeroResults,
		TopQueries:        topN(a.queries, 10),
		ZeroResultQueries: topN(a.zeroQueries, 10),
	}
	if len(a.latencies) > 0 {
		sorted := append([]int64(nil), a.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if minutes := time.Since(a.start).Minutes(); minutes > 0 {
		stats.QueriesPerMinute = float64(a.total) / minutes
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	i := pct * len(sorted) / 100
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

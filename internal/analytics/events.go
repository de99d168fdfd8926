// Package analytics records one event per answered search. Events are
// aggregated in process for the stats endpoint and, when Kafka is
// configured, shipped in batches to the analytics topic.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Mode      string    `json:"mode"`
	TopK      int       `json:"top_k,omitempty"`
	TotalHits int       `json:"total_hits"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// NewSearchEvent stamps an event, typing it as a zero-result search when
// nothing matched.
func NewSearchEvent(query, mode string, topK, totalHits int, latency time.Duration, cacheHit bool, requestID string) SearchEvent {
	typ := EventSearch
	if totalHits == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:      typ,
		Query:     query,
		Mode:      mode,
		TopK:      topK,
		TotalHits: totalHits,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

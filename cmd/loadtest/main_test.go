package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoadTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") == "boolean" {
			fmt.Fprint(w, `{"total_hits":0,"results":[]}`)
			return
		}
		fmt.Fprint(w, `{"total_hits":2,"results":[]}`)
	}))
	defer srv.Close()

	cfg := Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		RPS:         200,
		TopK:        5,
		Targets:     []Target{{"a AND b", "boolean"}, {"a b", "ranked"}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	stats := runLoadTest(ctx, cfg, srv.Client())
	require.Positive(t, stats.totalRequests.Load())
	assert.Zero(t, stats.errorCount.Load())
	assert.Equal(t, stats.successCount.Load(), stats.statusCodes[http.StatusOK])
	assert.Positive(t, stats.zeroResults.Load())
	assert.Less(t, stats.zeroResults.Load(), stats.successCount.Load())

	var out bytes.Buffer
	assert.True(t, printReport(&out, stats, 200*time.Millisecond))
	assert.Contains(t, out.String(), "=== P95 by Mode ===")
	assert.Contains(t, out.String(), "  200: ")
}

func TestRecordRequestCountsFailures(t *testing.T) {
	stats := NewStats()
	stats.RecordRequest("ranked", time.Millisecond, 0, 0, assert.AnError)
	stats.RecordRequest("ranked", time.Millisecond, http.StatusTooManyRequests, 0, nil)
	assert.Equal(t, int64(2), stats.errorCount.Load())
	assert.Zero(t, stats.zeroResults.Load())
	assert.Equal(t, int64(1), stats.statusCodes[http.StatusTooManyRequests])
}

func TestPrintReportEmpty(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, printReport(&out, NewStats(), time.Second))
	assert.Contains(t, out.String(), "No requests completed")
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

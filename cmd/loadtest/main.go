package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Target is one request shape the workers cycle through.
type Target struct {
	Query string
	Mode  string
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	// RPS caps the aggregate request rate; 0 means as fast as possible.
	RPS     float64
	TopK    int
	Targets []Target
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	zeroResults   atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
	byMode      map[string][]time.Duration
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
		byMode:      make(map[string][]time.Duration),
	}
}

// RecordRequest folds one request outcome into the totals. totalHits is
// only meaningful for 2xx responses.
func (s *Stats) RecordRequest(mode string, duration time.Duration, statusCode, totalHits int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
		if totalHits == 0 {
			s.zeroResults.Add(1)
		}
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.byMode[mode] = append(s.byMode[mode], duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

var defaultTargets = []Target{
	{"information AND retrieval", "boolean"},
	{"learning OR processing", "boolean"},
	{"data NOT mining", "boolean"},
	{"search AND engine OR index", "boolean"},
	{"information retrieval", "ranked"},
	{"learning processing", "ranked"},
	{"natural language processing", "ranked"},
	{"machine learning models", "ranked"},
	{"search engine ranking", "ranked"},
	{"data mining patterns", "ranked"},
	{"inverted index", "ranked"},
	{"term frequency", "ranked"},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "aggregate requests per second, 0 for unlimited")
	topK := flag.Int("k", 10, "ranked result count")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		RPS:         *rps,
		TopK:        *topK,
		Targets:     defaultTargets,
	}

	fmt.Println("=== irsearch Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	if cfg.RPS > 0 {
		fmt.Printf("Rate:        %.0f req/s\n", cfg.RPS)
	}
	fmt.Printf("Queries:     %d unique\n", len(cfg.Targets))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	stats := runLoadTest(ctx, cfg, newHTTPClient(cfg.Concurrency))
	if !printReport(os.Stdout, stats, cfg.Duration) {
		os.Exit(1)
	}
}

func newHTTPClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// runLoadTest drives cfg.Concurrency workers until ctx ends.
func runLoadTest(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	limiter := rate.NewLimiter(limit, max(1, cfg.Concurrency))

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		w := w
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				target := cfg.Targets[i%len(cfg.Targets)]
				start := time.Now()
				status, hits, err := doSearch(ctx, client, cfg.BaseURL, target, cfg.TopK)
				if ctx.Err() != nil {
					return nil
				}
				stats.RecordRequest(target.Mode, time.Since(start), status, hits, err)
			}
		})
	}
	g.Wait()
	return stats
}

func doSearch(ctx context.Context, client *http.Client, baseURL string, target Target, topK int) (int, int, error) {
	params := url.Values{}
	params.Set("q", target.Query)
	params.Set("mode", target.Mode)
	params.Set("k", fmt.Sprint(topK))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, 0, nil
	}
	var body struct {
		TotalHits int `json:"total_hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, 0, errors.Join(errors.New("decoding search response"), err)
	}
	return resp.StatusCode, body.TotalHits, nil
}

// printReport writes the summary and reports whether any request completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Fprintf(w, "Zero Results:    %.2f%%\n", float64(stats.zeroResults.Load())/float64(success)*100)
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if len(stats.latencies) > 0 {
		latencies := slices.Clone(stats.latencies)
		slices.Sort(latencies)

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])

		modes := make([]string, 0, len(stats.byMode))
		for mode := range stats.byMode {
			modes = append(modes, mode)
		}
		slices.Sort(modes)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== P95 by Mode ===")
		for _, mode := range modes {
			byMode := slices.Clone(stats.byMode[mode])
			slices.Sort(byMode)
			fmt.Fprintf(w, "  %-8s %s (%d requests)\n", mode, percentile(byMode, 95), len(byMode))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, stats.statusCodes[code])
	}

	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/kafka"
)

// Publisher ships a batch of events; *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector feeds every tracked event to the aggregator and, when a
// publisher is set, buffers it for batched delivery. A batch is flushed
// when it reaches batchSize or every flushInterval. Failed batches are
// re-queued up to three batches' worth; older events beyond that are dropped.
type Collector struct {
	aggregator    *Aggregator
	publisher     Publisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	buffer []kafka.Event

	flushMu sync.Mutex
	done    chan struct{}
}

// NewCollector builds a collector; publisher may be nil to aggregate only.
func NewCollector(aggregator *Aggregator, publisher Publisher, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		aggregator:    aggregator,
		publisher:     publisher,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		buffer:        make([]kafka.Event, 0, batchSize),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled, then flushes once more.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		if c.publisher == nil {
			<-ctx.Done()
			return
		}
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"publishing", c.publisher != nil,
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) Track(event SearchEvent) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{Key: event.Mode, Value: event})
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()
	if full {
		go c.Flush(context.Background())
	}
}

// Flush publishes everything buffered so far.
func (c *Collector) Flush(ctx context.Context) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics flush failed", "events", len(batch), "error", err)
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if limit := c.batchSize * 3; len(c.buffer) > limit {
			dropped := len(c.buffer) - limit
			c.buffer = c.buffer[dropped:]
			c.logger.Warn("analytics buffer overflow, events dropped", "dropped", dropped)
		}
		c.mu.Unlock()
		return
	}
	c.logger.Debug("analytics batch flushed", "events", len(batch))
}

func (c *Collector) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Wait blocks until the loop started by Start has exited.
func (c *Collector) Wait() {
	<-c.done
}

package analytics

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
)

// Publisher sends a batch of events downstream.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// CollectorConfig sizes the collector. Zero fields take defaults.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector buffers QueryEvents and publishes them in batches, when a batch
// fills or the flush interval passes. Track never blocks: events arriving on
// a full buffer are dropped and counted.
type Collector struct {
	pub       Publisher
	events    chan QueryEvent
	batchSize int
	interval  time.Duration
	logger    *slog.Logger

	dropped   atomic.Int64
	published atomic.Int64
	failed    atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewCollector(pub Publisher, cfg CollectorConfig) *Collector {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BufferSize < cfg.BatchSize {
		cfg.BufferSize = cfg.BatchSize * 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	return &Collector{
		pub:       pub,
		events:    make(chan QueryEvent, cfg.BufferSize),
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start runs the publish loop in the background until Close.
func (c *Collector) Start() {
	go c.loop()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.events),
		"batch_size", c.batchSize,
		"flush_interval", c.interval,
	)
}

// Track queues ev for publishing. Events tracked after Close are dropped.
func (c *Collector) Track(ev QueryEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.events <- ev:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("analytics buffer full, dropping events", "dropped_total", c.dropped.Load())
		}
	}
}

// Close stops accepting events, publishes what is buffered and waits for the
// loop to exit. It is safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()
	<-c.done
}

// Counts returns published, failed and dropped event totals.
func (c *Collector) Counts() (published, failed, dropped int64) {
	return c.published.Load(), c.failed.Load(), c.dropped.Load()
}

func (c *Collector) loop() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.pub.PublishBatch(ctx, batch); err != nil {
			c.failed.Add(int64(len(batch)))
			c.logger.Error("analytics batch publish failed", "events", len(batch), "error", err)
		} else {
			c.published.Add(int64(len(batch)))
		}
		batch = make([]kafka.Event, 0, c.batchSize)
	}

	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, kafka.Event{
				Key:   strings.Join(ev.Keywords, ","),
				Type:  EventTypeQuery,
				Value: ev,
			})
			if len(batch) >= c.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

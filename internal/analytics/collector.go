package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/kafka"
)

// Publisher delivers a batch of events. *kafka.Producer and *Aggregator
// both satisfy it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events without blocking the caller and publishes them
// in batches, when a batch fills up or every flush interval.
type Collector struct {
	publisher     Publisher
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	// mu guards closed; senders hold it shared so Close cannot close
	// eventCh under them.
	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publishing loop. It runs until Close is called; ctx
// bounds each publish call.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				c.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			c.flush(ctx, batch)
			batch = batch[:0]
		}
	}
}

// TrackSearch queues a search event. It never blocks; when the buffer is
// full the event is dropped.
func (c *Collector) TrackSearch(event SearchEvent) {
	event.Type = EventSearch
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.track(kafka.Event{Key: event.Document, Value: event, RequestID: event.RequestID})
}

// TrackIndex queues an index event.
func (c *Collector) TrackIndex(event IndexEvent) {
	event.Type = EventIndex
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.track(kafka.Event{Key: event.Document, Value: event})
}

func (c *Collector) track(event kafka.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "document", event.Key)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "document", event.Key)
	}
}

// Close stops accepting events, publishes what is buffered and waits for
// the loop to exit. Events tracked after Close are dropped. Close must
// only be called after Start.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics batch dropped", "events", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics batch published", "events", len(batch))
}

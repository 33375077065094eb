package outbox

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// MetricsCollector receives publish outcomes.
type MetricsCollector interface {
	RecordPublish(eventType string, success bool, duration time.Duration)
}

// Counters is a MetricsCollector that keeps running totals. The zero value
// stamps publishes with the real clock.
type Counters struct {
	clock     clockwork.Clock
	published atomic.Uint64
	failed    atomic.Uint64
	lastNanos atomic.Int64
}

func NewCounters(clock clockwork.Clock) *Counters {
	return &Counters{clock: clock}
}

func (c *Counters) RecordPublish(_ string, success bool, _ time.Duration) {
	if !success {
		c.failed.Add(1)
		return
	}
	c.published.Add(1)
	clock := c.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c.lastNanos.Store(clock.Now().UnixNano())
}

// Stats is a point-in-time view of Counters.
type Stats struct {
	Published     uint64     `json:"published"`
	Failed        uint64     `json:"failed"`
	LastPublished *time.Time `json:"last_published,omitempty"`
}

func (c *Counters) Stats() Stats {
	s := Stats{Published: c.published.Load(), Failed: c.failed.Load()}
	if n := c.lastNanos.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		s.LastPublished = &t
	}
	return s
}

// MetricPublisher wraps an EventPublisher with metrics collection
type MetricPublisher struct {
	publisher EventPublisher
	metrics   MetricsCollector
	clock     clockwork.Clock
}

func NewMetricPublisher(publisher EventPublisher, metrics MetricsCollector, clock clockwork.Clock) *MetricPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
		clock:     clock,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	start := p.clock.Now()
	err := p.publisher.Publish(ctx, event)
	p.metrics.RecordPublish(event.EventType, err == nil, p.clock.Since(start))
	return err
}

package streaming

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
)

// Transform is the pure scoring stage of the dataflow graph.
type Transform func(ev *models.MarketEvent) *models.RiskAssessment

// Sink is the terminal stage. It must isolate its own failures.
type Sink func(ctx context.Context, a *models.RiskAssessment)

// Dataflow runs a three-stage channel graph: a timed feeder reads the
// source, a transform stage scores events, and the sink stage dispatches
// them. Stages are connected by buffered channels and shut down by closing
// upstream; in-flight events drain before Run returns.
type Dataflow struct {
	source    Source
	transform Transform
	sink      Sink
	buffer    int

	mu      sync.Mutex
	stopCh  chan struct{}
	pending bool
}

// NewDataflow validates and assembles the graph. A construction error means
// the caller should fall back to the polling loop.
func NewDataflow(source Source, transform Transform, sink Sink, buffer int) (*Dataflow, error) {
	if source == nil || transform == nil || sink == nil {
		return nil, fmt.Errorf("dataflow: source, transform and sink are required")
	}
	if buffer <= 0 {
		return nil, fmt.Errorf("dataflow: buffer size must be positive, got %d", buffer)
	}
	return &Dataflow{
		source:    source,
		transform: transform,
		sink:      sink,
		buffer:    buffer,
	}, nil
}

func (d *Dataflow) Name() string { return "dataflow" }

// Run drives the graph until Stop or context cancellation. The feeder emits
// one event per interval; closing the ingest channel cascades through the
// stages so every generated event reaches the sink before Run returns. A
// Stop that arrived before Run makes it return immediately.
func (d *Dataflow) Run(ctx context.Context, interval time.Duration) error {
	d.mu.Lock()
	if d.pending {
		d.pending = false
		d.mu.Unlock()
		return nil
	}
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.stopCh = nil
		d.mu.Unlock()
	}()

	ingest := make(chan *models.MarketEvent, d.buffer)
	scored := make(chan *models.RiskAssessment, d.buffer)

	go d.feed(ctx, stopCh, ingest, interval)

	go func() {
		defer close(scored)
		for ev := range ingest {
			scored <- d.transform(ev)
		}
	}()

	for a := range scored {
		d.sink(ctx, a)
	}
	return nil
}

// feed emits events on a fixed cadence and owns the ingest channel.
func (d *Dataflow) feed(ctx context.Context, stopCh chan struct{}, ingest chan<- *models.MarketEvent, interval time.Duration) {
	defer close(ingest)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			ingest <- d.source.NextEvent()
		}
	}
}

// Stop signals the feeder; safe to call more than once. When Run has not
// entered yet the stop is latched so the pending run exits at once.
func (d *Dataflow) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopCh == nil {
		d.pending = true
		return
	}
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
}

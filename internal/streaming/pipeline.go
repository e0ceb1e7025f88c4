package streaming

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"RiskPulse/internal/domain/models"
	applogger "RiskPulse/pkg/logger"
)

// Source supplies the next raw event. The pipeline is the only caller, so
// sources do not need to be safe for concurrent use.
type Source interface {
	NextEvent() *models.MarketEvent
}

// Processor scores events and runs the sink actions. Split in two so the
// dataflow strategy can schedule scoring and dispatch as separate stages.
type Processor interface {
	Assess(ev *models.MarketEvent) *models.RiskAssessment
	Dispatch(ctx context.Context, a *models.RiskAssessment) error
}

// Strategy drives event flow from source to sink. Run blocks the calling
// goroutine until Stop is called or the context is cancelled; cancellation is
// observed within at most one interval.
type Strategy interface {
	Run(ctx context.Context, interval time.Duration) error
	Stop()
	Name() string
}

// Pipeline state machine: Stopped -> Running -> Stopping -> Stopped.
const (
	stateStopped int32 = iota
	stateRunning
	stateStopping
)

// Pipeline owns the streaming run loop and its counters. One dedicated
// worker goroutine calls Start; events are processed strictly in generation
// order with no internal parallelism.
type Pipeline struct {
	strategy Strategy
	proc     Processor
	logger   *applogger.Logger

	state  atomic.Int32
	events atomic.Uint64
	errors atomic.Uint64
}

// NewPipeline selects an execution strategy and wires it to the processor.
// The dataflow strategy is preferred; if its graph cannot be built the
// pipeline silently falls back to the polling loop.
func NewPipeline(source Source, proc Processor, logger *applogger.Logger, opts ...PipelineOption) *Pipeline {
	cfg := &pipelineConfig{engine: "auto", bufferSize: 64}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Pipeline{proc: proc, logger: logger}

	if cfg.engine != "polling" {
		df, err := NewDataflow(source, proc.Assess, p.sink, cfg.bufferSize)
		if err == nil {
			p.strategy = df
			return p
		}
		logger.Debug("dataflow engine unavailable, falling back to polling",
			applogger.Error(err))
	}
	p.strategy = NewPollingLoop(source, proc.Assess, p.sink)
	return p
}

type pipelineConfig struct {
	engine     string // auto, dataflow, polling
	bufferSize int
}

type PipelineOption func(*pipelineConfig)

// WithEngine forces a strategy: "dataflow", "polling" or "auto".
func WithEngine(engine string) PipelineOption {
	return func(c *pipelineConfig) {
		if engine != "" {
			c.engine = engine
		}
	}
}

// WithBufferSize sets the dataflow stage buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(c *pipelineConfig) { c.bufferSize = n }
}

// Start runs the pipeline, blocking the calling goroutine until Stop. Only
// valid from the Stopped state.
func (p *Pipeline) Start(ctx context.Context, interval time.Duration) error {
	if err := p.acquire(interval); err != nil {
		return err
	}
	return p.run(ctx, interval)
}

// Launch starts the pipeline on its own goroutine. Same state rules as
// Start; the synchronous error covers only the state transition.
func (p *Pipeline) Launch(ctx context.Context, interval time.Duration) error {
	if err := p.acquire(interval); err != nil {
		return err
	}
	go func() { _ = p.run(ctx, interval) }()
	return nil
}

func (p *Pipeline) acquire(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	if !p.state.CompareAndSwap(stateStopped, stateRunning) {
		return fmt.Errorf("pipeline already running")
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, interval time.Duration) error {
	defer p.state.Store(stateStopped)

	p.logger.Info("pipeline starting",
		applogger.String("engine", p.strategy.Name()),
		applogger.Duration("interval", interval))

	return p.strategy.Run(ctx, interval)
}

// Stop signals cancellation. Valid from Running; the run loop observes the
// signal within one interval and Start returns.
func (p *Pipeline) Stop() {
	if !p.state.CompareAndSwap(stateRunning, stateStopping) {
		return
	}
	p.strategy.Stop()
	p.logger.Info("pipeline stop requested")
}

// sink dispatches a scored assessment and keeps the counters. A failed event
// increments errors_count and never aborts the loop.
func (p *Pipeline) sink(ctx context.Context, a *models.RiskAssessment) {
	if err := p.proc.Dispatch(ctx, a); err != nil {
		p.errors.Add(1)
		p.logger.Error("event processing failed",
			applogger.String("entity_id", a.EntityID),
			applogger.Error(err))
		return
	}
	p.events.Add(1)
}

// IsRunning reports whether the run loop is active.
func (p *Pipeline) IsRunning() bool {
	return p.state.Load() == stateRunning
}

// Engine returns the name of the selected strategy.
func (p *Pipeline) Engine() string { return p.strategy.Name() }

// Stats returns a snapshot of the pipeline counters. Safe to call from any
// goroutine; counters may race ahead between reads.
func (p *Pipeline) Stats() models.PipelineStats {
	events := p.events.Load()
	errs := p.errors.Load()

	var rate float64
	if total := events + errs; total > 0 {
		rate = float64(errs) / float64(total)
	}
	return models.PipelineStats{
		IsRunning:       p.IsRunning(),
		Engine:          p.strategy.Name(),
		EventsProcessed: events,
		ErrorsCount:     errs,
		ErrorRate:       rate,
	}
}

package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
	applogger "RiskPulse/pkg/logger"
)

type fakeSource struct {
	counter atomic.Uint64
}

func (s *fakeSource) NextEvent() *models.MarketEvent {
	n := s.counter.Add(1)
	return &models.MarketEvent{
		EntityID:   fmt.Sprintf("txn_%d", n),
		EntityType: "transaction",
		Features:   models.FeatureSet{"velocity": float64(n)},
		Timestamp:  time.Now().UTC(),
	}
}

// fakeProcessor fails Dispatch for every event whose velocity is a multiple
// of failEvery.
type fakeProcessor struct {
	failEvery  uint64
	dispatched atomic.Uint64
}

func (p *fakeProcessor) Assess(ev *models.MarketEvent) *models.RiskAssessment {
	return &models.RiskAssessment{
		ID:         ev.EntityID,
		EntityID:   ev.EntityID,
		EntityType: ev.EntityType,
		RiskScore:  0.5,
		RiskLevel:  models.LevelMedium,
		Features:   ev.Features,
	}
}

func (p *fakeProcessor) Dispatch(ctx context.Context, a *models.RiskAssessment) error {
	n := p.dispatched.Add(1)
	if p.failEvery > 0 && n%p.failEvery == 0 {
		return errors.New("sink unavailable")
	}
	return nil
}

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestPipelineProcessesEvents(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background(), 2*time.Millisecond) }()

	waitFor(t, 2*time.Second, func() bool { return p.Stats().EventsProcessed >= 5 })
	if !p.IsRunning() {
		t.Fatalf("pipeline should report running")
	}

	p.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pipeline did not stop")
	}
	if p.IsRunning() {
		t.Fatalf("pipeline should report stopped")
	}

	stats := p.Stats()
	if stats.EventsProcessed < 5 || stats.ErrorsCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStopLatencyWithinInterval(t *testing.T) {
	interval := 50 * time.Millisecond
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background(), interval) }()
	waitFor(t, 2*time.Second, func() bool { return p.Stats().EventsProcessed >= 1 })

	started := time.Now()
	p.Stop()
	select {
	case <-done:
	case <-time.After(2 * interval):
		t.Fatalf("stop took longer than one interval")
	}
	if elapsed := time.Since(started); elapsed > 2*interval {
		t.Fatalf("stop latency %v exceeds interval %v", elapsed, interval)
	}
}

func TestEventFailureIsolation(t *testing.T) {
	proc := &fakeProcessor{failEvery: 2}
	p := NewPipeline(&fakeSource{}, proc, newTestLogger(t))

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background(), 2*time.Millisecond) }()
	waitFor(t, 2*time.Second, func() bool {
		s := p.Stats()
		return s.EventsProcessed >= 3 && s.ErrorsCount >= 3
	})
	p.Stop()
	<-done

	stats := p.Stats()
	if stats.ErrorRate <= 0 || stats.ErrorRate >= 1 {
		t.Fatalf("error rate %v outside (0,1)", stats.ErrorRate)
	}
}

func TestContextCancelStopsRun(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx, 2*time.Millisecond) }()
	waitFor(t, 2*time.Second, func() bool { return p.Stats().EventsProcessed >= 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("pipeline did not observe context cancellation")
	}
}

func TestEngineSelection(t *testing.T) {
	log := newTestLogger(t)

	if got := NewPipeline(&fakeSource{}, &fakeProcessor{}, log).Engine(); got != "dataflow" {
		t.Fatalf("default engine = %q, want dataflow", got)
	}
	if got := NewPipeline(&fakeSource{}, &fakeProcessor{}, log, WithEngine("polling")).Engine(); got != "polling" {
		t.Fatalf("forced engine = %q, want polling", got)
	}
	// Invalid buffer makes the dataflow graph unbuildable; construction must
	// silently fall back instead of failing.
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, log, WithBufferSize(-1))
	if got := p.Engine(); got != "polling" {
		t.Fatalf("fallback engine = %q, want polling", got)
	}
}

func TestStartWhileRunningFails(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background(), 5*time.Millisecond) }()
	waitFor(t, 2*time.Second, func() bool { return p.IsRunning() })

	if err := p.Start(context.Background(), 5*time.Millisecond); err == nil {
		t.Fatalf("second start should fail while running")
	}
	p.Stop()
	<-done
}

func TestRestartAfterStop(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))

	for i := 0; i < 2; i++ {
		done := make(chan error, 1)
		go func() { done <- p.Start(context.Background(), 2*time.Millisecond) }()
		waitFor(t, 2*time.Second, func() bool { return p.Stats().EventsProcessed >= uint64(i+1) })
		p.Stop()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run %d returned error: %v", i, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("run %d did not stop", i)
		}
	}
}

func TestInvalidInterval(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))
	if err := p.Start(context.Background(), 0); err == nil {
		t.Fatalf("zero interval should be rejected")
	}
	if p.IsRunning() {
		t.Fatalf("failed start must leave pipeline stopped")
	}
}

func TestStopBeforeRunReturnsImmediately(t *testing.T) {
	proc := &fakeProcessor{}
	noop := func(context.Context, *models.RiskAssessment) {}

	df, err := NewDataflow(&fakeSource{}, proc.Assess, noop, 8)
	if err != nil {
		t.Fatalf("dataflow: %v", err)
	}
	for _, s := range []Strategy{NewPollingLoop(&fakeSource{}, proc.Assess, noop), df} {
		s.Stop()

		done := make(chan error, 1)
		go func() { done <- s.Run(context.Background(), time.Hour) }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("%s: run returned error: %v", s.Name(), err)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: run ignored stop issued before it started", s.Name())
		}

		// The latch is consumed: a fresh run must keep going until stopped.
		go func() { done <- s.Run(context.Background(), time.Millisecond) }()
		select {
		case <-done:
			t.Fatalf("%s: second run exited without a stop", s.Name())
		case <-time.After(50 * time.Millisecond):
		}
		s.Stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("%s: second run did not stop", s.Name())
		}
	}
}

func TestLaunchThenImmediateStop(t *testing.T) {
	p := NewPipeline(&fakeSource{}, &fakeProcessor{}, newTestLogger(t))

	if err := p.Launch(context.Background(), 2*time.Millisecond); err != nil {
		t.Fatalf("launch: %v", err)
	}
	p.Stop()

	// Wait for the run to wind down and the in-flight drain to finish.
	waitFor(t, time.Second, func() bool {
		n := p.Stats().EventsProcessed
		time.Sleep(10 * time.Millisecond)
		return !p.IsRunning() && p.Stats().EventsProcessed == n
	})

	n := p.Stats().EventsProcessed
	time.Sleep(20 * time.Millisecond)
	if got := p.Stats().EventsProcessed; got != n {
		t.Fatalf("events advanced after stop: %d -> %d", n, got)
	}
}

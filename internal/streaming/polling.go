package streaming

import (
	"context"
	"sync"
	"time"
)

// PollingLoop is the fallback strategy: a single goroutine that generates,
// scores and dispatches one event per interval inline.
type PollingLoop struct {
	source    Source
	transform Transform
	sink      Sink

	mu      sync.Mutex
	stopCh  chan struct{}
	pending bool
}

func NewPollingLoop(source Source, transform Transform, sink Sink) *PollingLoop {
	return &PollingLoop{source: source, transform: transform, sink: sink}
}

func (l *PollingLoop) Name() string { return "polling" }

// Run processes one event per tick until Stop or context cancellation. The
// wait is interruptible, so shutdown takes at most one interval. A Stop that
// arrived before Run makes it return immediately.
func (l *PollingLoop) Run(ctx context.Context, interval time.Duration) error {
	l.mu.Lock()
	if l.pending {
		l.pending = false
		l.mu.Unlock()
		return nil
	}
	l.stopCh = make(chan struct{})
	stopCh := l.stopCh
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.stopCh = nil
		l.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.sink(ctx, l.transform(l.source.NextEvent()))
		}
	}
}

// Stop signals the loop; safe to call more than once. When Run has not
// entered yet the stop is latched so the pending run exits at once.
func (l *PollingLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopCh == nil {
		l.pending = true
		return
	}
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
}

package usecase

import (
	"context"
	"sync"
	"time"

	drepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// FeedCollector drains an external event stream through the processor. It is
// an alternative event source to the built-in simulator: the stream pushes,
// the collector scores.
type FeedCollector struct {
	stream    drepo.EventStream
	processor *EventProcessor
	logger    *applogger.Logger

	reconnectDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

func NewFeedCollector(stream drepo.EventStream, processor *EventProcessor, reconnectDelay time.Duration, logger *applogger.Logger) *FeedCollector {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &FeedCollector{
		stream:         stream,
		processor:      processor,
		reconnectDelay: reconnectDelay,
		logger:         logger,
	}
}

// Start connects, subscribes and launches the drain loop.
func (c *FeedCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	c.mu.Unlock()

	if err := c.stream.Connect(runCtx); err != nil {
		c.markStopped()
		return err
	}
	if err := c.stream.Subscribe(runCtx); err != nil {
		_ = c.stream.Close()
		c.markStopped()
		return err
	}

	c.wg.Add(1)
	go c.drain(runCtx)
	return nil
}

func (c *FeedCollector) drain(ctx context.Context) {
	defer c.wg.Done()

	for {
		events, errs := c.stream.Read(ctx)
	inner:
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					break inner
				}
				if err := c.processor.Process(ctx, ev); err != nil {
					c.logger.Error("feed event failed",
						applogger.String("entity_id", ev.EntityID),
						applogger.Error(err))
				}
			case err, ok := <-errs:
				if !ok {
					break inner
				}
				if err != nil {
					c.logger.Error("feed stream error", applogger.Error(err))
				}
				break inner
			}
		}

		// Stream broke; back off and reconnect until cancelled.
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.logger.Error("feed reconnect failed", applogger.Error(err))
		}
	}
}

// Stop cancels the drain loop and closes the stream.
func (c *FeedCollector) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	_ = c.stream.Close()
	c.markStopped()
	c.logger.Info("feed collector stopped")
}

func (c *FeedCollector) markStopped() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
}

// IsRunning reports whether the drain loop is active.
func (c *FeedCollector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

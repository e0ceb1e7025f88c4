package usecase

import (
	"context"
	"testing"
	"time"

	applogger "RiskPulse/pkg/logger"
)

func newEventsHandler(t *testing.T) (*KafkaEventsHandler, *processorFixture) {
	t.Helper()
	f := newFixture(t)
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewKafkaEventsHandler("riskpulse.entity.events", f.proc, log), f
}

func TestKafkaHandlerScoresEvent(t *testing.T) {
	h, f := newEventsHandler(t)

	msg := []byte(`{"entity_id":"acct_9","entity_type":"account","features":{"velocity":5,"amount":100,"anomaly_score":0.05,"reputation":0.95},"ts":1700000000000}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.store.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(f.store.inserted))
	}
	a := f.store.inserted[0]
	if a.EntityID != "acct_9" || a.EntityType != "account" {
		t.Fatalf("unexpected assessment identity: %+v", a)
	}
}

func TestKafkaHandlerRejectsMalformed(t *testing.T) {
	h, _ := newEventsHandler(t)

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("malformed payload should fail")
	}
	if err := h.Handle(context.Background(), []byte(`{"features":{}}`)); err == nil {
		t.Fatalf("missing identity should fail")
	}
}

func TestKafkaHandlerDefaultsTimestamp(t *testing.T) {
	h, f := newEventsHandler(t)

	before := time.Now().UTC()
	msg := []byte(`{"entity_id":"acct_1","entity_type":"account","features":{"velocity":1}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.store.inserted[0].CreatedAt; got.Before(before.Add(-time.Second)) {
		t.Fatalf("timestamp not defaulted to now: %v", got)
	}
}

func TestKafkaHandlerTopic(t *testing.T) {
	h, _ := newEventsHandler(t)
	if h.Topic() != "riskpulse.entity.events" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/risk"
	applogger "RiskPulse/pkg/logger"
)

type fakeStore struct {
	inserted []*models.RiskAssessment
	err      error
}

func (s *fakeStore) Init(ctx context.Context) error { return nil }
func (s *fakeStore) Insert(ctx context.Context, a *models.RiskAssessment) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, a)
	return nil
}
func (s *fakeStore) Latest(ctx context.Context, limit int) ([]*models.RiskAssessment, error) {
	return s.inserted, nil
}
func (s *fakeStore) QueryByEntity(ctx context.Context, entityID string, from, to time.Time, limit int) ([]*models.RiskAssessment, error) {
	return nil, nil
}
func (s *fakeStore) Health(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                     { return nil }

type fakeAudit struct {
	entries []*models.AuditEntry
	err     error
}

func (a *fakeAudit) Record(ctx context.Context, e *models.AuditEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, e)
	return nil
}

type fakeAlerts struct {
	created []*models.RiskAssessment
	err     error
}

func (f *fakeAlerts) CreateAlert(ctx context.Context, a *models.RiskAssessment) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, a)
	return "alert_1", nil
}

type fakeBroadcaster struct {
	sent []*models.RiskAssessment
	err  error
}

func (b *fakeBroadcaster) BroadcastRiskUpdate(ctx context.Context, a *models.RiskAssessment) error {
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, a)
	return nil
}

type fakeMetrics struct {
	processed map[string]int
	errs      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{processed: map[string]int{}, errs: map[string]int{}}
}
func (m *fakeMetrics) RecordEventProcessed(level string)             { m.processed[level]++ }
func (m *fakeMetrics) RecordError(kind string)                       { m.errs[kind]++ }
func (m *fakeMetrics) RecordLastPrice(symbol string, price float64)  {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)      {}

type processorFixture struct {
	proc      *EventProcessor
	store     *fakeStore
	audit     *fakeAudit
	alerts    *fakeAlerts
	broadcast *fakeBroadcaster
	metrics   *fakeMetrics
}

func newFixture(t *testing.T) *processorFixture {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	f := &processorFixture{
		store:     &fakeStore{},
		audit:     &fakeAudit{},
		alerts:    &fakeAlerts{},
		broadcast: &fakeBroadcaster{},
		metrics:   newFakeMetrics(),
	}
	f.proc = NewEventProcessor(
		risk.NewEngine(risk.DefaultThresholds()),
		f.store, f.audit, f.alerts, f.broadcast, f.metrics, log,
	)
	return f
}

func lowRiskEvent() *models.MarketEvent {
	return &models.MarketEvent{
		EntityID:   "txn_1",
		EntityType: "transaction",
		Features: models.FeatureSet{
			"velocity":      float64(5),
			"amount":        float64(100),
			"anomaly_score": 0.05,
			"reputation":    0.95,
		},
		Timestamp: time.Now().UTC(),
	}
}

func criticalEvent() *models.MarketEvent {
	ev := lowRiskEvent()
	ev.EntityID = "txn_2"
	ev.Features["blacklist_match"] = true
	return ev
}

func TestProcessPersistsAndAudits(t *testing.T) {
	f := newFixture(t)

	if err := f.proc.Process(context.Background(), lowRiskEvent()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(f.store.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(f.store.inserted))
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(f.audit.entries))
	}
	entry := f.audit.entries[0]
	if entry.Action != "risk_assessed" || entry.EntityID != "txn_1" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if len(f.alerts.created) != 0 {
		t.Fatalf("low risk event must not create alerts")
	}
	if len(f.broadcast.sent) != 1 {
		t.Fatalf("expected broadcast, got %d", len(f.broadcast.sent))
	}
	if f.metrics.processed[string(models.LevelLow)] != 1 {
		t.Fatalf("processed counter not recorded: %v", f.metrics.processed)
	}
}

func TestAlertOnCritical(t *testing.T) {
	f := newFixture(t)

	if err := f.proc.Process(context.Background(), criticalEvent()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(f.alerts.created) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(f.alerts.created))
	}
	if got := f.alerts.created[0].RiskLevel; got != models.LevelCritical {
		t.Fatalf("alert level = %s, want critical", got)
	}
}

func TestPersistFailureFailsEvent(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("clickhouse down")

	if err := f.proc.Process(context.Background(), lowRiskEvent()); err == nil {
		t.Fatalf("expected error when persistence fails")
	}
	if len(f.audit.entries) != 0 || len(f.broadcast.sent) != 0 {
		t.Fatalf("downstream actions must not run after failed persist")
	}
	if f.metrics.errs["persist"] != 1 {
		t.Fatalf("persist error not counted: %v", f.metrics.errs)
	}
}

func TestAlertFailureFailsEvent(t *testing.T) {
	f := newFixture(t)
	f.alerts.err = errors.New("alert service down")

	if err := f.proc.Process(context.Background(), criticalEvent()); err == nil {
		t.Fatalf("expected error when alert creation fails")
	}
	if f.metrics.errs["alert"] != 1 {
		t.Fatalf("alert error not counted: %v", f.metrics.errs)
	}
}

func TestAuditAndBroadcastBestEffort(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("queue full")
	f.broadcast.err = errors.New("no subscribers")

	if err := f.proc.Process(context.Background(), lowRiskEvent()); err != nil {
		t.Fatalf("audit/broadcast failures must not fail the event: %v", err)
	}
	if f.metrics.errs["audit"] != 1 || f.metrics.errs["broadcast"] != 1 {
		t.Fatalf("best effort errors not counted: %v", f.metrics.errs)
	}
	if len(f.store.inserted) != 1 {
		t.Fatalf("event should still persist")
	}
}

func TestNilEventRejected(t *testing.T) {
	f := newFixture(t)
	if err := f.proc.Process(context.Background(), nil); err == nil {
		t.Fatalf("nil event should be rejected")
	}
}

func TestNilBroadcasterSkipped(t *testing.T) {
	f := newFixture(t)
	f.proc.broadcast = nil

	if err := f.proc.Process(context.Background(), lowRiskEvent()); err != nil {
		t.Fatalf("nil broadcaster should be skipped: %v", err)
	}
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/risk"
	applogger "RiskPulse/pkg/logger"
)

// EventProcessor turns market events into persisted risk assessments and
// fans the result out to the external collaborators: store, audit log, alert
// creator and broadcaster. Scoring and dispatch are split so the dataflow
// strategy can run them as separate stages.
type EventProcessor struct {
	engine    *risk.Engine
	store     drepo.AssessmentStore
	audit     drepo.AuditLog
	alerts    drepo.AlertCreator
	broadcast drepo.Broadcaster
	metrics   drepo.Metrics
	logger    *applogger.Logger
}

// NewEventProcessor creates an EventProcessor. The broadcaster may be nil
// when no transport layer is attached.
func NewEventProcessor(
	engine *risk.Engine,
	store drepo.AssessmentStore,
	audit drepo.AuditLog,
	alerts drepo.AlertCreator,
	broadcast drepo.Broadcaster,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *EventProcessor {
	return &EventProcessor{
		engine:    engine,
		store:     store,
		audit:     audit,
		alerts:    alerts,
		broadcast: broadcast,
		metrics:   metrics,
		logger:    logger,
	}
}

// Assess scores one event. Pure transform stage: no I/O.
func (p *EventProcessor) Assess(ev *models.MarketEvent) *models.RiskAssessment {
	a := p.engine.Assess(ev.EntityID, ev.EntityType, ev.Features)
	return &a
}

// Dispatch runs the sink actions for a scored assessment: persist, audit,
// alert on high/critical, broadcast. Persistence failure fails the event;
// audit and broadcast are best effort.
func (p *EventProcessor) Dispatch(ctx context.Context, a *models.RiskAssessment) error {
	start := time.Now()

	if err := p.store.Insert(ctx, a); err != nil {
		p.metrics.RecordError("persist")
		return fmt.Errorf("persist assessment: %w", err)
	}

	if err := p.audit.Record(ctx, &models.AuditEntry{
		Action:     "risk_assessed",
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Details:    map[string]any{"assessment_id": a.ID, "risk_score": a.RiskScore},
		CreatedAt:  a.CreatedAt,
	}); err != nil {
		p.metrics.RecordError("audit")
		p.logger.Warn("audit record failed", applogger.Error(err))
	}

	if a.RiskLevel == models.LevelHigh || a.RiskLevel == models.LevelCritical {
		alertID, err := p.alerts.CreateAlert(ctx, a)
		if err != nil {
			p.metrics.RecordError("alert")
			return fmt.Errorf("create alert: %w", err)
		}
		p.logger.Warn("alert created",
			applogger.String("alert_id", alertID),
			applogger.String("entity_id", a.EntityID),
			applogger.String("level", string(a.RiskLevel)))
	}

	if p.broadcast != nil {
		if err := p.broadcast.BroadcastRiskUpdate(ctx, a); err != nil {
			p.metrics.RecordError("broadcast")
			p.logger.Warn("broadcast failed", applogger.Error(err))
		}
	}

	if symbol, ok := a.Features["symbol"].(string); ok {
		p.metrics.RecordLastPrice(symbol, a.Features.Float("spot_price", 0))
	}
	p.metrics.RecordEventProcessed(string(a.RiskLevel))
	p.metrics.RecordLatency("dispatch", time.Since(start).Seconds())

	p.logger.Debug("risk processed",
		applogger.String("assessment_id", a.ID),
		applogger.String("entity_id", a.EntityID),
		applogger.String("level", string(a.RiskLevel)))
	return nil
}

// Process scores and dispatches one event inline. Used by the polling
// strategy and by external feed collectors.
func (p *EventProcessor) Process(ctx context.Context, ev *models.MarketEvent) error {
	if ev == nil {
		return fmt.Errorf("event is nil")
	}
	return p.Dispatch(ctx, p.Assess(ev))
}

// ProcessManual scores an operator-submitted event and runs the full sink
// sequence, returning the assessment.
func (p *EventProcessor) ProcessManual(ctx context.Context, ev *models.MarketEvent) (*models.RiskAssessment, error) {
	if ev == nil {
		return nil, fmt.Errorf("event is nil")
	}
	a := p.Assess(ev)
	a.Source = "manual"
	if err := p.Dispatch(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

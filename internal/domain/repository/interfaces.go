package repository

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
)

// EventStream is an external feed of entity events (WebSocket, replay, ...).
type EventStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// AssessmentStore persists scored assessments. The store is append-only:
// records are inserted once and never updated.
type AssessmentStore interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, a *models.RiskAssessment) error
	Latest(ctx context.Context, limit int) ([]*models.RiskAssessment, error)
	QueryByEntity(ctx context.Context, entityID string, from, to time.Time, limit int) ([]*models.RiskAssessment, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertCreator is the external alert collaborator. It owns severity
// derivation and returns the identifier of the created alert.
type AlertCreator interface {
	CreateAlert(ctx context.Context, a *models.RiskAssessment) (string, error)
}

// AuditLog accepts audit entries fire-and-forget; delivery is best effort.
type AuditLog interface {
	Record(ctx context.Context, e *models.AuditEntry) error
}

// Broadcaster publishes structured risk updates to the transport layer.
// Broadcast failures are logged and counted, never escalated.
type Broadcaster interface {
	BroadcastRiskUpdate(ctx context.Context, a *models.RiskAssessment) error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordEventProcessed(level string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

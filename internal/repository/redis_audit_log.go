package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/queue"
)

const auditMessageType = "audit_entry"

// QueueAuditLog pushes audit entries onto the Redis queue. Writing the entry
// to ClickHouse happens in the queue consumer, off the scoring path.
type QueueAuditLog struct {
	publisher queue.QueueService
}

var _ repository.AuditLog = (*QueueAuditLog)(nil)

func NewQueueAuditLog(publisher queue.QueueService) *QueueAuditLog {
	return &QueueAuditLog{publisher: publisher}
}

func (l *QueueAuditLog) Record(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := l.publisher.PublishMessage(ctx, auditMessageType, e); err != nil {
		return fmt.Errorf("enqueue audit entry: %w", err)
	}
	return nil
}

// AuditJob consumes queued audit entries and writes them to ClickHouse.
type AuditJob struct {
	store *ClickHouseAssessmentStore
}

var _ queue.Job = (*AuditJob)(nil)

func NewAuditJob(store *ClickHouseAssessmentStore) *AuditJob {
	return &AuditJob{store: store}
}

func (j *AuditJob) Name() string { return "audit_writer" }
func (j *AuditJob) Type() string { return auditMessageType }

func (j *AuditJob) Handle(ctx context.Context, payload interface{}) error {
	entry, err := queue.ParsePayload[models.AuditEntry](payload)
	if err != nil {
		return fmt.Errorf("parse audit payload: %w", err)
	}
	return j.store.InsertAuditEntry(ctx, entry)
}

// LogAuditLog is the fallback when no queue is configured: entries go to the
// structured log only.
type LogAuditLog struct {
	logger *applogger.Logger
}

var _ repository.AuditLog = (*LogAuditLog)(nil)

func NewLogAuditLog(logger *applogger.Logger) *LogAuditLog {
	return &LogAuditLog{logger: logger}
}

func (l *LogAuditLog) Record(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	l.logger.Debug("audit",
		applogger.String("action", e.Action),
		applogger.String("entity_type", e.EntityType),
		applogger.String("entity_id", e.EntityID),
		applogger.Any("details", e.Details))
	return nil
}

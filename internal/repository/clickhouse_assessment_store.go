package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	pkgch "RiskPulse/pkg/clickhouse"
)

var assessmentSchema = []string{
	`CREATE TABLE IF NOT EXISTS risk_assessments (
		id           String,
		entity_id    String,
		entity_type  LowCardinality(String),
		risk_score   Float64,
		risk_level   LowCardinality(String),
		risk_factors Array(String),
		features     String,
		source       LowCardinality(String),
		created_at   DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	PARTITION BY toYYYYMMDD(created_at)
	ORDER BY (entity_id, created_at)
	TTL toDateTime(created_at) + INTERVAL 90 DAY`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id          String,
		actor       LowCardinality(String),
		action      LowCardinality(String),
		entity_type LowCardinality(String),
		entity_id   String,
		details     String,
		created_at  DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	PARTITION BY toYYYYMMDD(created_at)
	ORDER BY (created_at)
	TTL toDateTime(created_at) + INTERVAL 365 DAY`,
}

// ClickHouseAssessmentStore persists risk assessments in ClickHouse. The
// table is append-only; history is never rewritten.
type ClickHouseAssessmentStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
}

var _ repository.AssessmentStore = (*ClickHouseAssessmentStore)(nil)

// NewClickHouseAssessmentStore creates the store on an existing client.
func NewClickHouseAssessmentStore(client *pkgch.Client) *ClickHouseAssessmentStore {
	return &ClickHouseAssessmentStore{
		client: client,
		db:     client.DB(),
		table:  "risk_assessments",
	}
}

// Init creates the assessment and audit tables if missing.
func (s *ClickHouseAssessmentStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, assessmentSchema)
}

func (s *ClickHouseAssessmentStore) Insert(ctx context.Context, a *models.RiskAssessment) error {
	features, err := json.Marshal(a.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s
		(id, entity_id, entity_type, risk_score, risk_level, risk_factors, features, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	_, err = s.db.ExecContext(ctx, q,
		a.ID,
		a.EntityID,
		a.EntityType,
		a.RiskScore,
		string(a.RiskLevel),
		a.RiskFactors,
		string(features),
		a.Source,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *ClickHouseAssessmentStore) Latest(ctx context.Context, limit int) ([]*models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT id, entity_id, entity_type, risk_score, risk_level, risk_factors, features, source, created_at
		FROM %s ORDER BY created_at DESC LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	return scanAssessments(rows)
}

func (s *ClickHouseAssessmentStore) QueryByEntity(ctx context.Context, entityID string, from, to time.Time, limit int) ([]*models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT id, entity_id, entity_type, risk_score, risk_level, risk_factors, features, source, created_at
		FROM %s WHERE entity_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, q, entityID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query by entity: %w", err)
	}
	defer rows.Close()

	return scanAssessments(rows)
}

func scanAssessments(rows *sql.Rows) ([]*models.RiskAssessment, error) {
	var out []*models.RiskAssessment
	for rows.Next() {
		var (
			a        models.RiskAssessment
			level    string
			features string
		)
		if err := rows.Scan(&a.ID, &a.EntityID, &a.EntityType, &a.RiskScore,
			&level, &a.RiskFactors, &features, &a.Source, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.RiskLevel = models.RiskLevel(level)
		if features != "" {
			if err := json.Unmarshal([]byte(features), &a.Features); err != nil {
				return nil, fmt.Errorf("unmarshal features: %w", err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *ClickHouseAssessmentStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAssessmentStore) Close() error {
	return nil // pool owned by pkg client
}

// InsertAuditEntry writes one audit row. Called from the audit queue
// consumer, not from the hot path.
func (s *ClickHouseAssessmentStore) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor, action, entity_type, entity_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Actor, e.Action, e.EntityType, e.EntityID, string(details), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

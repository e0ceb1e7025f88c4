package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/pkg/cache"
	applogger "RiskPulse/pkg/logger"
)

const (
	latestCacheKey = "assessments:latest"
	latestCacheTTL = 2 * time.Second
)

// AssessmentQuery serves read paths over stored assessments. The latest-page
// query is cached briefly; per-entity history always hits the store.
type AssessmentQuery struct {
	store  drepo.AssessmentStore
	cache  cache.Service
	logger *applogger.Logger
}

func NewAssessmentQuery(store drepo.AssessmentStore, c cache.Service, logger *applogger.Logger) *AssessmentQuery {
	return &AssessmentQuery{store: store, cache: c, logger: logger}
}

// Latest returns the most recent assessments across all entities.
func (q *AssessmentQuery) Latest(ctx context.Context, limit int) ([]*models.RiskAssessment, error) {
	key := cache.GenerateKeyWithParams(latestCacheKey, limit)

	if q.cache != nil {
		var cached []*models.RiskAssessment
		err := q.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			q.logger.Warn("assessment cache read failed", applogger.Error(err))
		}
	}

	out, err := q.store.Latest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("latest assessments: %w", err)
	}

	if q.cache != nil && len(out) > 0 {
		if err := q.cache.Set(ctx, key, out, latestCacheTTL); err != nil {
			q.logger.Warn("assessment cache write failed", applogger.Error(err))
		}
	}
	return out, nil
}

// ByEntity returns the assessment history of one entity within [from, to].
// Zero bounds default to the trailing 24 hours.
func (q *AssessmentQuery) ByEntity(ctx context.Context, entityID string, from, to time.Time, limit int) ([]*models.RiskAssessment, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	if from.After(to) {
		return nil, fmt.Errorf("invalid range: from %s after to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	out, err := q.store.QueryByEntity(ctx, entityID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("assessments for %s: %w", entityID, err)
	}
	return out, nil
}

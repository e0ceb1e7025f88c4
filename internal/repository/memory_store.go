package repository

import (
	"context"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
)

// MemoryAssessmentStore keeps the most recent assessments in a ring buffer.
// Used in development when ClickHouse is disabled; history is bounded and
// lost on restart.
type MemoryAssessmentStore struct {
	mu   sync.RWMutex
	buf  []*models.RiskAssessment
	next int
	full bool
}

var _ repository.AssessmentStore = (*MemoryAssessmentStore)(nil)

func NewMemoryAssessmentStore(capacity int) *MemoryAssessmentStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryAssessmentStore{buf: make([]*models.RiskAssessment, capacity)}
}

func (s *MemoryAssessmentStore) Init(ctx context.Context) error { return nil }

func (s *MemoryAssessmentStore) Insert(ctx context.Context, a *models.RiskAssessment) error {
	s.mu.Lock()
	s.buf[s.next] = a
	s.next++
	if s.next == len(s.buf) {
		s.next = 0
		s.full = true
	}
	s.mu.Unlock()
	return nil
}

// snapshot returns stored assessments newest first.
func (s *MemoryAssessmentStore) snapshot() []*models.RiskAssessment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = len(s.buf)
	}
	out := make([]*models.RiskAssessment, 0, size)
	for i := 1; i <= size; i++ {
		idx := (s.next - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	return out
}

func (s *MemoryAssessmentStore) Latest(ctx context.Context, limit int) ([]*models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	all := s.snapshot()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryAssessmentStore) QueryByEntity(ctx context.Context, entityID string, from, to time.Time, limit int) ([]*models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*models.RiskAssessment
	for _, a := range s.snapshot() {
		if a.EntityID != entityID {
			continue
		}
		if a.CreatedAt.Before(from) || a.CreatedAt.After(to) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryAssessmentStore) Health(ctx context.Context) error { return nil }
func (s *MemoryAssessmentStore) Close() error                     { return nil }

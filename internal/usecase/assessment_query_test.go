package usecase

import (
	"context"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"
	pkgcache "RiskPulse/pkg/cache"
	applogger "RiskPulse/pkg/logger"
)

func newQuery(t *testing.T, store *fakeStore, c pkgcache.Service) *AssessmentQuery {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewAssessmentQuery(store, c, log)
}

func storedAssessment(id string) *models.RiskAssessment {
	return &models.RiskAssessment{
		ID:         id,
		EntityID:   "txn_1",
		EntityType: "transaction",
		RiskScore:  0.2,
		RiskLevel:  models.LevelLow,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestLatestReadsThroughCache(t *testing.T) {
	store := &fakeStore{inserted: []*models.RiskAssessment{storedAssessment("a1")}}
	q := newQuery(t, store, pkgcache.NewMemoryCache())

	first, err := q.Latest(context.Background(), 10)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(first) != 1 || first[0].ID != "a1" {
		t.Fatalf("unexpected result: %+v", first)
	}

	// Second read must come from cache, not the store.
	store.inserted = nil
	second, err := q.Latest(context.Background(), 10)
	if err != nil {
		t.Fatalf("cached latest: %v", err)
	}
	if len(second) != 1 || second[0].ID != "a1" {
		t.Fatalf("cache not used: %+v", second)
	}
}

func TestLatestWithoutCache(t *testing.T) {
	store := &fakeStore{inserted: []*models.RiskAssessment{storedAssessment("a1")}}
	q := newQuery(t, store, nil)

	out, err := q.Latest(context.Background(), 10)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(out))
	}
}

func TestByEntityDefaultsRange(t *testing.T) {
	store := &fakeStore{}
	q := newQuery(t, store, nil)

	if _, err := q.ByEntity(context.Background(), "txn_1", time.Time{}, time.Time{}, 10); err != nil {
		t.Fatalf("default range should be valid: %v", err)
	}
}

func TestByEntityRejectsBadInput(t *testing.T) {
	q := newQuery(t, &fakeStore{}, nil)

	if _, err := q.ByEntity(context.Background(), "", time.Time{}, time.Time{}, 10); err == nil {
		t.Fatalf("empty entity id should fail")
	}

	from := time.Now().UTC()
	to := from.Add(-time.Hour)
	if _, err := q.ByEntity(context.Background(), "txn_1", from, to, 10); err == nil {
		t.Fatalf("inverted range should fail")
	}
}

package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"intakedesk/internal/intake/models"
	"intakedesk/pkg/platform/sentinel"
)

// InMemoryStore keeps submissions in process memory for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.Record
	now     func() time.Time
	last    time.Time
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

func (s *InMemoryStore) Insert(_ context.Context, rec models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now().UTC()
	// keep creation times strictly increasing so recency order is total
	if !created.After(s.last) {
		created = s.last.Add(time.Microsecond)
	}
	s.last = created

	rec.ID = uuid.New()
	rec.CreatedAt = created
	rec.ReferralSource = slices.Clone(rec.ReferralSource)
	rec.PreferredContact = slices.Clone(rec.PreferredContact)
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, 0, max(0, min(limit, len(s.records))))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Record{}, sentinel.ErrNotFound
}

// Delete removes the record if present. Unknown ids are not an error.
func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.DeleteFunc(s.records, func(r models.Record) bool { return r.ID == id })
	return nil
}

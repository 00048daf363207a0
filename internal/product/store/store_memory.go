package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"certsync/internal/product/models"
)

// InMemoryStore mirrors PostgresStore semantics without a database. It backs
// dry runs and tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[string]models.Product
}

// NewInMemory constructs an empty in-memory product store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string]models.Product)}
}

func (s *InMemoryStore) EnsureSchema(context.Context) error {
	return nil
}

func (s *InMemoryStore) Upsert(_ context.Context, products []models.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if existing, ok := s.rows[p.ID]; ok && !p.CertifiedOn.Valid {
			p.CertifiedOn = existing.CertifiedOn
		}
		s.rows[p.ID] = p
	}
	return len(products), nil
}

func (s *InMemoryStore) ListByMonth(_ context.Context, m models.Month) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Product
	for _, p := range s.rows {
		if m.Contains(p.CertifiedOn) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Product) int {
		if c := b.CertifiedOn.Time.Compare(a.CertifiedOn.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *InMemoryStore) DeleteByMonth(_ context.Context, m models.Month) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.rows {
		if m.Contains(p.CertifiedOn) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

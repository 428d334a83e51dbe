// internal/patrons/memory.go
package patrons

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and -mem dev mode.
type MemoryStore struct {
	mu      sync.Mutex
	patrons map[uuid.UUID]*Patron
}

// NewMemoryStore creates an empty in-memory patron store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{patrons: make(map[uuid.UUID]*Patron)}
}

func (s *MemoryStore) Insert(ctx context.Context, p *Patron) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.patrons {
		if strings.EqualFold(existing.Email, p.Email) {
			return ErrDuplicateEmail
		}
	}
	p.CreatedAt = time.Now().UTC()
	cp := *p
	s.patrons[p.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Patron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patrons[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*Patron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.patrons {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patrons[id]; !ok {
		return ErrNotFound
	}
	delete(s.patrons, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Patron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Patron, 0, len(s.patrons))
	for _, p := range s.patrons {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

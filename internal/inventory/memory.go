// internal/inventory/memory.go
package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and by the -mem dev mode.
// A single mutex serializes every check-and-update, which is all the
// exclusion the reserve/release contract needs.
type MemoryStore struct {
	mu    sync.Mutex
	books map[uuid.UUID]*Book
}

// NewMemoryStore creates an empty in-memory inventory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[uuid.UUID]*Book)}
}

func (s *MemoryStore) Add(ctx context.Context, book *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.AccessionNo == book.AccessionNo {
			return ErrDuplicateAccession
		}
	}

	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	cp := *book
	s.books[book.ID] = &cp
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) GetByAccession(ctx context.Context, accNo string) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.AccessionNo == accNo {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Search(ctx context.Context, query string) ([]*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []*Book
	for _, b := range s.books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.AccessionNo), q) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccessionNo < out[j].AccessionNo })
	return out, nil
}

func (s *MemoryStore) Reserve(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	if b.AvailableCopies <= 0 {
		return ErrInsufficientCopies
	}
	b.AvailableCopies--
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return ErrNotFound
	}
	if b.AvailableCopies >= b.TotalCopies {
		return ErrInvariantViolation
	}
	b.AvailableCopies++
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Totals(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available := 0
	for _, b := range s.books {
		available += b.AvailableCopies
	}
	return len(s.books), available, nil
}

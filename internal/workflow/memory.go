// internal/workflow/memory.go
package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and -mem dev mode.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*BorrowRequest
}

// NewMemoryStore creates an empty in-memory request store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[uuid.UUID]*BorrowRequest)}
}

func (s *MemoryStore) Insert(ctx context.Context, req *BorrowRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.PatronID == req.PatronID && r.BookID == req.BookID && r.Status == StatusPending {
			return ErrDuplicatePending
		}
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) MarkDecided(ctx context.Context, id uuid.UUID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = status
	return nil
}

func (s *MemoryStore) Pending(ctx context.Context) ([]*BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked(func(*BorrowRequest) bool { return true }), nil
}

func (s *MemoryStore) PendingByPatron(ctx context.Context, patronID uuid.UUID) ([]*BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked(func(r *BorrowRequest) bool { return r.PatronID == patronID }), nil
}

func (s *MemoryStore) PendingCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error) {
	reqs, err := s.PendingByPatron(ctx, patronID)
	return len(reqs), err
}

func (s *MemoryStore) PendingCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingLocked(func(r *BorrowRequest) bool { return r.BookID == bookID })), nil
}

func (s *MemoryStore) pendingLocked(match func(*BorrowRequest) bool) []*BorrowRequest {
	var out []*BorrowRequest
	for _, r := range s.requests {
		if r.Status == StatusPending && match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

// internal/ledger/memory.go
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and -mem dev mode.
type MemoryStore struct {
	mu    sync.Mutex
	loans map[uuid.UUID]*Loan
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{loans: make(map[uuid.UUID]*Loan)}
}

func (s *MemoryStore) Insert(ctx context.Context, loan *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.loans {
		if l.PatronID == loan.PatronID && l.BookID == loan.BookID && l.Status != StatusReturned {
			return ErrDuplicateActiveLoan
		}
	}
	cp := *loan
	s.loans[loan.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) MarkReturnRequested(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.loans[id]
	if !ok {
		return ErrNotFound
	}
	if l.Status != StatusIssued {
		return ErrInvalidState
	}
	l.Status = StatusReturnRequested
	return nil
}

func (s *MemoryStore) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.loans[id]
	if !ok {
		return ErrNotFound
	}
	if l.Status == StatusReturned {
		return ErrInvalidState
	}
	l.Status = StatusReturned
	t := returnedAt
	l.ReturnDate = &t
	l.Fine = fine
	return nil
}

func (s *MemoryStore) ActiveByPatron(ctx context.Context, patronID uuid.UUID) ([]*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Loan
	for _, l := range s.loans {
		if l.PatronID == patronID && l.Status != StatusReturned {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByIssueDate(out)
	return out, nil
}

func (s *MemoryStore) ActiveCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error) {
	loans, _ := s.ActiveByPatron(ctx, patronID)
	return len(loans), nil
}

func (s *MemoryStore) UnreturnedCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, l := range s.loans {
		if l.BookID == bookID && l.Status != StatusReturned {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Active(ctx context.Context) ([]*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Loan
	for _, l := range s.loans {
		if l.Status != StatusReturned {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByIssueDate(out)
	return out, nil
}

func (s *MemoryStore) ReturnRequested(ctx context.Context) ([]*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Loan
	for _, l := range s.loans {
		if l.Status == StatusReturnRequested {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortByIssueDate(out)
	return out, nil
}

func sortByIssueDate(loans []*Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].IssueDate.Equal(loans[j].IssueDate) {
			return loans[i].ID.String() < loans[j].ID.String()
		}
		return loans[i].IssueDate.Before(loans[j].IssueDate)
	})
}

// internal/workflow/store.go
package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Store persists borrow requests. MarkDecided is a guarded update so two
// racing decisions on the same request cannot both take effect.
type Store interface {
	// Insert records a new pending request, failing with ErrDuplicatePending
	// when the patron already has one pending for the same book.
	Insert(ctx context.Context, req *BorrowRequest) error

	// Get returns the request with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*BorrowRequest, error)

	// MarkDecided transitions Pending -> status, failing with
	// ErrInvalidState when the request was already decided.
	MarkDecided(ctx context.Context, id uuid.UUID, status Status) error

	// Pending lists every pending request, oldest first.
	Pending(ctx context.Context) ([]*BorrowRequest, error)

	// PendingByPatron lists a patron's pending requests, oldest first.
	PendingByPatron(ctx context.Context, patronID uuid.UUID) ([]*BorrowRequest, error)

	// PendingCountByPatron counts the patron's pending requests.
	PendingCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error)

	// PendingCountByBook counts pending requests for the book.
	PendingCountByBook(ctx context.Context, bookID uuid.UUID) (int, error)
}

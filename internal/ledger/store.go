// internal/ledger/store.go
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists loan records. Both transition methods are guarded updates:
// the status check and the write happen in one atomic step, so two racing
// transitions on the same loan cannot both succeed.
type Store interface {
	// Insert records a new loan. Fails with ErrDuplicateActiveLoan when the
	// patron already has an unreturned loan on the same book.
	Insert(ctx context.Context, loan *Loan) error

	// Get returns the loan with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Loan, error)

	// MarkReturnRequested transitions Issued -> ReturnRequested, failing
	// with ErrInvalidState for any other current status.
	MarkReturnRequested(ctx context.Context, id uuid.UUID) error

	// MarkReturned closes the loan from Issued or ReturnRequested, recording
	// the return date and the fine. Fails with ErrInvalidState when the loan
	// is already Returned.
	MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine float64) error

	// ActiveByPatron lists the patron's unreturned loans, oldest first.
	ActiveByPatron(ctx context.Context, patronID uuid.UUID) ([]*Loan, error)

	// ActiveCountByPatron counts the patron's unreturned loans.
	ActiveCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error)

	// UnreturnedCountByBook counts loans on the book that still hold a copy.
	UnreturnedCountByBook(ctx context.Context, bookID uuid.UUID) (int, error)

	// Active lists every unreturned loan, oldest first.
	Active(ctx context.Context) ([]*Loan, error)

	// ReturnRequested lists loans awaiting return approval, oldest first.
	ReturnRequested(ctx context.Context) ([]*Loan, error)
}

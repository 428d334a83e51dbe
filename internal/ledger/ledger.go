// internal/ledger/ledger.go
package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"biblios/internal/fines"
	"biblios/internal/inventory"
)

// Ledger owns the loan lifecycle. Issuing assumes the caller has already
// reserved a copy through the inventory; approving a return hands the copy
// back by calling inventory.Release after the loan is closed.
type Ledger struct {
	store Store
	inv   inventory.Store
	calc  fines.Calculator
}

// NewLedger creates a ledger over the given store and inventory.
func NewLedger(store Store, inv inventory.Store, calc fines.Calculator) *Ledger {
	return &Ledger{store: store, inv: inv, calc: calc}
}

// Issue creates a loan due periodDays after today. The copy must already be
// reserved; on ErrDuplicateActiveLoan the caller rolls the reservation back.
func (l *Ledger) Issue(ctx context.Context, patronID, bookID uuid.UUID, periodDays int) (*Loan, error) {
	now := time.Now().UTC()
	loan := &Loan{
		ID:        uuid.New(),
		PatronID:  patronID,
		BookID:    bookID,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, periodDays),
		Status:    StatusIssued,
	}
	if err := l.store.Insert(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// RequestReturn transitions the patron's own loan from Issued to
// ReturnRequested.
func (l *Ledger) RequestReturn(ctx context.Context, loanID, patronID uuid.UUID) error {
	loan, err := l.store.Get(ctx, loanID)
	if err != nil {
		return err
	}
	if loan.PatronID != patronID {
		return ErrForbidden
	}
	return l.store.MarkReturnRequested(ctx, loanID)
}

// ApproveReturn closes the loan, computing the fine as of evaluatedAt, and
// releases the copy back to the inventory. It accepts loans in
// ReturnRequested or, as the admin force-close path, still Issued.
func (l *Ledger) ApproveReturn(ctx context.Context, loanID uuid.UUID, evaluatedAt time.Time) (float64, error) {
	loan, err := l.store.Get(ctx, loanID)
	if err != nil {
		return 0, err
	}
	if loan.Status == StatusReturned {
		return 0, ErrInvalidState
	}

	fine := l.calc.Compute(loan.DueDate, evaluatedAt)
	if err := l.store.MarkReturned(ctx, loanID, evaluatedAt, fine); err != nil {
		return 0, err
	}

	if err := l.inv.Release(ctx, loan.BookID); err != nil {
		// The loan is closed but the copy was not restocked. This never
		// happens while the ledger invariant holds, so treat it as fatal
		// rather than a user-facing failure.
		log.Printf("[ERROR] release after return of loan %s: %v", loanID, err)
		return 0, fmt.Errorf("release copy for book %s: %w", loan.BookID, err)
	}
	return fine, nil
}

// Get returns a loan by id.
func (l *Ledger) Get(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	return l.store.Get(ctx, loanID)
}

// ActiveByPatron lists a patron's unreturned loans.
func (l *Ledger) ActiveByPatron(ctx context.Context, patronID uuid.UUID) ([]*Loan, error) {
	return l.store.ActiveByPatron(ctx, patronID)
}

// ActiveCountByPatron counts a patron's unreturned loans.
func (l *Ledger) ActiveCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error) {
	return l.store.ActiveCountByPatron(ctx, patronID)
}

// UnreturnedCountByBook counts loans still holding copies of a book.
func (l *Ledger) UnreturnedCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	return l.store.UnreturnedCountByBook(ctx, bookID)
}

// Active lists every unreturned loan.
func (l *Ledger) Active(ctx context.Context) ([]*Loan, error) {
	return l.store.Active(ctx)
}

// ReturnRequested lists loans awaiting return approval.
func (l *Ledger) ReturnRequested(ctx context.Context) ([]*Loan, error) {
	return l.store.ReturnRequested(ctx)
}

// EstimateFine computes the advisory fine a loan would owe if evaluated now.
// It never mutates the stored fine, which is only set at return approval.
func (l *Ledger) EstimateFine(loan *Loan, now time.Time) float64 {
	if loan.Status == StatusReturned {
		return loan.Fine
	}
	return l.calc.Compute(loan.DueDate, now)
}

// internal/workflow/workflow.go
package workflow

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"biblios/internal/inventory"
	"biblios/internal/ledger"
	"biblios/internal/patrons"
)

// Policy carries the configured loan periods and token allowances per role.
type Policy struct {
	StudentLoanDays   int
	FacultyLoanDays   int
	StudentTokenLimit int
	FacultyTokenLimit int
}

// DefaultPolicy matches the documented configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		StudentLoanDays:   14,
		FacultyLoanDays:   30,
		StudentTokenLimit: 3,
		FacultyTokenLimit: 10,
	}
}

// LoanDays returns the loan period for a role.
func (p Policy) LoanDays(role patrons.Role) int {
	if role == patrons.RoleFaculty {
		return p.FacultyLoanDays
	}
	return p.StudentLoanDays
}

// TokenLimit returns the borrowing allowance for a role. Admins issue books,
// they do not borrow them.
func (p Policy) TokenLimit(role patrons.Role) int {
	switch role {
	case patrons.RoleStudent:
		return p.StudentTokenLimit
	case patrons.RoleFaculty:
		return p.FacultyTokenLimit
	default:
		return 0
	}
}

// Workflow owns borrow requests and is the only writer path that creates
// loans. Approval and direct issue share one reserve-then-issue helper with
// identical rollback behavior.
type Workflow struct {
	store   Store
	inv     inventory.Store
	ledger  *ledger.Ledger
	patrons *patrons.Registry
	policy  Policy
}

// NewWorkflow wires the request workflow over its collaborators.
func NewWorkflow(store Store, inv inventory.Store, led *ledger.Ledger, reg *patrons.Registry, policy Policy) *Workflow {
	return &Workflow{store: store, inv: inv, ledger: led, patrons: reg, policy: policy}
}

// Create queues a pending request for the patron. No stock is claimed here;
// a book may be requested even while momentarily out of stock.
func (w *Workflow) Create(ctx context.Context, patronID, bookID uuid.UUID) (*BorrowRequest, error) {
	patron, err := w.patrons.Get(ctx, patronID)
	if err != nil {
		return nil, err
	}
	if _, err := w.inv.Get(ctx, bookID); err != nil {
		return nil, err
	}
	if err := w.checkTokenLimit(ctx, patron, 1); err != nil {
		return nil, err
	}

	req := &BorrowRequest{
		ID:          uuid.New(),
		PatronID:    patronID,
		BookID:      bookID,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := w.store.Insert(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Decide resolves a pending request. Rejection only flips the status. On
// approval the reserve-then-issue sequence runs; any failure leaves the
// request Pending and surfaces the error so the admin can retry or reject.
func (w *Workflow) Decide(ctx context.Context, requestID uuid.UUID, decision Decision) (*ledger.Loan, error) {
	req, err := w.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrInvalidState
	}

	if decision == DecisionReject {
		return nil, w.store.MarkDecided(ctx, requestID, StatusRejected)
	}

	patron, err := w.patrons.Get(ctx, req.PatronID)
	if err != nil {
		return nil, err
	}
	loan, err := w.issueTo(ctx, patron, req.BookID)
	if err != nil {
		return nil, err
	}
	if err := w.store.MarkDecided(ctx, requestID, StatusApproved); err != nil {
		return loan, err
	}
	return loan, nil
}

// DirectIssue is the librarian fast path: it skips the queue but follows
// the identical reserve-then-issue sequence, including token limits.
func (w *Workflow) DirectIssue(ctx context.Context, patronEmail, accessionNo string) (*ledger.Loan, error) {
	patron, err := w.patrons.GetByEmail(ctx, patronEmail)
	if err != nil {
		return nil, err
	}
	book, err := w.inv.GetByAccession(ctx, accessionNo)
	if err != nil {
		return nil, err
	}
	if err := w.checkTokenLimit(ctx, patron, 1); err != nil {
		return nil, err
	}
	return w.issueTo(ctx, patron, book.ID)
}

// issueTo reserves one copy and creates the loan. The two steps form one
// logical transaction: when Issue fails the reservation is released, so no
// state is ever exposed where a copy is claimed without a loan.
func (w *Workflow) issueTo(ctx context.Context, patron *patrons.Patron, bookID uuid.UUID) (*ledger.Loan, error) {
	if err := w.inv.Reserve(ctx, bookID); err != nil {
		return nil, err
	}

	loan, err := w.ledger.Issue(ctx, patron.ID, bookID, w.policy.LoanDays(patron.Role))
	if err != nil {
		if relErr := w.inv.Release(ctx, bookID); relErr != nil {
			log.Printf("[ERROR] rollback reservation for book %s: %v", bookID, relErr)
		}
		return nil, err
	}
	return loan, nil
}

// checkTokenLimit fails when the patron's active loans plus pending requests
// plus extra would exceed their allowance.
func (w *Workflow) checkTokenLimit(ctx context.Context, patron *patrons.Patron, extra int) error {
	limit := w.policy.TokenLimit(patron.Role)
	active, err := w.ledger.ActiveCountByPatron(ctx, patron.ID)
	if err != nil {
		return err
	}
	pending, err := w.store.PendingCountByPatron(ctx, patron.ID)
	if err != nil {
		return err
	}
	if active+pending+extra > limit {
		return ErrTokenLimitExceeded
	}
	return nil
}

// Policy exposes the configured loan periods and token allowances.
func (w *Workflow) Policy() Policy {
	return w.policy
}

// Get returns a request by id.
func (w *Workflow) Get(ctx context.Context, id uuid.UUID) (*BorrowRequest, error) {
	return w.store.Get(ctx, id)
}

// Pending lists all pending requests.
func (w *Workflow) Pending(ctx context.Context) ([]*BorrowRequest, error) {
	return w.store.Pending(ctx)
}

// PendingByPatron lists a patron's pending requests.
func (w *Workflow) PendingByPatron(ctx context.Context, patronID uuid.UUID) ([]*BorrowRequest, error) {
	return w.store.PendingByPatron(ctx, patronID)
}

// PendingCountByBook counts pending requests for a book.
func (w *Workflow) PendingCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	return w.store.PendingCountByBook(ctx, bookID)
}

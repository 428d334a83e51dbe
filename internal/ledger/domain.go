// internal/ledger/domain.go
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a loan. The only legal transitions are
// Issued -> ReturnRequested -> Returned, plus the admin force-close
// Issued -> Returned. Nothing leaves Returned.
type Status string

const (
	StatusIssued          Status = "Issued"
	StatusReturnRequested Status = "ReturnRequested"
	StatusReturned        Status = "Returned"
)

// Loan records one copy of one book held by one patron. Loans are never
// deleted; a Returned loan stays in the ledger as history.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PatronID   uuid.UUID  `json:"patron_id" db:"patron_id"`
	BookID     uuid.UUID  `json:"book_id" db:"book_id"`
	IssueDate  time.Time  `json:"issue_date" db:"issue_date"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Status     Status     `json:"status" db:"status"`
	Fine       float64    `json:"fine" db:"fine"`
}

// Active reports whether the loan still holds a copy.
func (l *Loan) Active() bool {
	return l.Status != StatusReturned
}

var (
	// ErrNotFound is returned when no loan matches the given id.
	ErrNotFound = errors.New("loan not found")

	// ErrDuplicateActiveLoan is returned when the patron already holds an
	// unreturned copy of the same book.
	ErrDuplicateActiveLoan = errors.New("patron already holds this book")

	// ErrInvalidState is returned when the loan's current status does not
	// permit the requested transition.
	ErrInvalidState = errors.New("loan is not in a valid state for this operation")

	// ErrForbidden is returned when a patron acts on a loan they do not own.
	ErrForbidden = errors.New("loan belongs to another patron")
)

// internal/workflow/domain.go
package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a borrow request. Approved and Rejected
// are terminal; a failed approval leaves the request Pending so an admin can
// retry once stock returns.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Decision is an admin's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// BorrowRequest is a queue entry, not a reservation: no stock is claimed
// until the request is approved.
type BorrowRequest struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PatronID    uuid.UUID `json:"patron_id" db:"patron_id"`
	BookID      uuid.UUID `json:"book_id" db:"book_id"`
	Status      Status    `json:"status" db:"status"`
	RequestedAt time.Time `json:"requested_at" db:"requested_at"`
}

var (
	// ErrNotFound is returned when no request matches the given id.
	ErrNotFound = errors.New("borrow request not found")

	// ErrDuplicatePending is returned when the patron already has a pending
	// request for the same book.
	ErrDuplicatePending = errors.New("a pending request for this book already exists")

	// ErrInvalidState is returned when the request has already been decided.
	ErrInvalidState = errors.New("request is not pending")

	// ErrTokenLimitExceeded is returned when active loans plus pending
	// requests would exceed the patron's token allowance.
	ErrTokenLimitExceeded = errors.New("token limit reached")
)

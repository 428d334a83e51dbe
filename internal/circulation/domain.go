// internal/circulation/domain.go
package circulation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"biblios/internal/patrons"
)

// Principal is the already-authenticated identity a request acts as. The
// transport layer extracts it from the bearer token; the core never touches
// credentials.
type Principal struct {
	ID   uuid.UUID
	Role patrons.Role
}

// Admin reports whether the principal may perform librarian operations.
func (p Principal) Admin() bool {
	return p.Role == patrons.RoleAdmin
}

// ErrForbidden is returned when a principal lacks the role an operation
// requires. It is independent of any business-state error.
var ErrForbidden = errors.New("operation not permitted for this role")

// ErrInvalidBook is returned when add-book input fails validation.
var ErrInvalidBook = errors.New("invalid book")

// AddBookInput is the admin add-book form.
type AddBookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	AccessionNo string `json:"acc_no"`
	Department  string `json:"department"`
	TotalCopies int    `json:"total_copies"`
}

// RequestView is a pending borrow request decorated for the dashboard.
type RequestView struct {
	RequestID   uuid.UUID `json:"request_id"`
	PatronName  string    `json:"patron_name"`
	PatronEmail string    `json:"patron_email"`
	BookTitle   string    `json:"book_title"`
	BookAccNo   string    `json:"book_acc_no"`
	RequestedAt time.Time `json:"requested_at"`
}

// LoanView is a loan decorated for the dashboard. FineEstimate is advisory,
// computed live against the current date; the stored fine is only written at
// return approval.
type LoanView struct {
	LoanID       uuid.UUID `json:"loan_id"`
	PatronName   string    `json:"patron_name"`
	PatronEmail  string    `json:"patron_email"`
	BookTitle    string    `json:"book_title"`
	BookAccNo    string    `json:"book_acc_no"`
	IssueDate    time.Time `json:"issue_date"`
	DueDate      time.Time `json:"due_date"`
	Status       string    `json:"status"`
	FineEstimate float64   `json:"fine_est"`
}

// DashboardStats is the admin overview aggregate.
type DashboardStats struct {
	TotalBooks      int           `json:"total_books"`
	AvailableCopies int           `json:"available_copies"`
	BooksLent       int           `json:"books_lent"`
	BorrowRequests  []RequestView `json:"borrow_requests"`
	ReturnRequests  []LoanView    `json:"return_requests"`
	ActiveLoans     []LoanView    `json:"active_loans"`
}

// ProfileLoan is one of the caller's own active loans.
type ProfileLoan struct {
	LoanID       uuid.UUID `json:"loan_id"`
	Title        string    `json:"title"`
	AccessionNo  string    `json:"acc_no"`
	IssueDate    time.Time `json:"issue_date"`
	DueDate      time.Time `json:"due_date"`
	Status       string    `json:"status"`
	FineEstimate float64   `json:"fine_est"`
}

// ProfileRequest is one of the caller's own pending requests.
type ProfileRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	Title       string    `json:"title"`
	AccessionNo string    `json:"acc_no"`
	RequestedAt time.Time `json:"requested_at"`
}

// Profile is the self view returned by /users/me.
type Profile struct {
	FullName        string           `json:"full_name"`
	Email           string           `json:"email"`
	Role            patrons.Role     `json:"role"`
	TokensTotal     int              `json:"tokens_total"`
	TokensUsed      int              `json:"tokens_used"`
	ActiveLoans     []ProfileLoan    `json:"active_loans"`
	PendingRequests []ProfileRequest `json:"pending_requests"`
}

// UserView is one row of the admin user-management table.
type UserView struct {
	ID          uuid.UUID    `json:"id"`
	FullName    string       `json:"full_name"`
	Email       string       `json:"email"`
	Role        patrons.Role `json:"role"`
	ActiveLoans int          `json:"active_loans"`
}

// internal/inventory/domain.go
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Book represents one title in the catalog together with its copy counts.
// AvailableCopies is mutated only through Store.Reserve and Store.Release.
type Book struct {
	ID              uuid.UUID `json:"id" db:"id"`
	AccessionNo     string    `json:"acc_no" db:"accession_no"`
	Title           string    `json:"title" db:"title"`
	Author          string    `json:"author" db:"author"`
	Department      string    `json:"department" db:"department"`
	TotalCopies     int       `json:"total_copies" db:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Departments lists the catalog sections books are filed under.
var Departments = []string{"CSE", "ECE", "EEE", "CIVIL", "MECH", "MBA", "MCA", "GENERAL"}

// ValidDepartment reports whether dept is a known catalog section.
func ValidDepartment(dept string) bool {
	for _, d := range Departments {
		if d == dept {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned when no book matches the given id or accession number.
	ErrNotFound = errors.New("book not found")

	// ErrInsufficientCopies is returned by Reserve when no copy is available
	// at the instant of the check.
	ErrInsufficientCopies = errors.New("no copies available")

	// ErrDuplicateAccession is returned by Add when the accession number is taken.
	ErrDuplicateAccession = errors.New("accession number already exists")

	// ErrBookInUse is returned when a book cannot be removed because
	// unreturned loans or pending requests still reference it.
	ErrBookInUse = errors.New("book has unreturned loans or pending requests")

	// ErrInvariantViolation indicates a ledger bug: a release that would push
	// available_copies past total_copies, or a reserve that would go negative.
	// It is never expected to surface to a caller.
	ErrInvariantViolation = errors.New("inventory invariant violated")
)

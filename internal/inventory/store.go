// internal/inventory/store.go
package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Store owns all mutation of per-title copy counts. Reserve and Release are
// the only paths that touch AvailableCopies, and both are atomic
// check-and-update operations: when available_copies = K and more than K
// reservations race, exactly K succeed.
type Store interface {
	// Add inserts a new book. Fails with ErrDuplicateAccession when the
	// accession number is already catalogued.
	Add(ctx context.Context, book *Book) error

	// Remove deletes a book record. The caller is responsible for checking
	// that no unreturned loans or pending requests reference it.
	Remove(ctx context.Context, id uuid.UUID) error

	// Get returns the book with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Book, error)

	// GetByAccession returns the book with the given accession number, or ErrNotFound.
	GetByAccession(ctx context.Context, accNo string) (*Book, error)

	// Search matches query case-insensitively against title, author and
	// accession number. Results are ordered by accession number so repeated
	// searches are deterministic.
	Search(ctx context.Context, query string) ([]*Book, error)

	// Reserve atomically claims one copy: it checks available_copies > 0 and
	// decrements in the same step, failing with ErrInsufficientCopies when
	// no stock remains.
	Reserve(ctx context.Context, id uuid.UUID) error

	// Release returns one copy to the shelf. Releasing past total_copies
	// fails with ErrInvariantViolation.
	Release(ctx context.Context, id uuid.UUID) error

	// Totals reports the number of titles and the sum of available copies.
	Totals(ctx context.Context) (titles int, available int, err error)
}

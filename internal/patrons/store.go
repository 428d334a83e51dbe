// internal/patrons/store.go
package patrons

import (
	"context"

	"github.com/google/uuid"
)

// Store persists patron accounts.
type Store interface {
	// Insert records a new patron, failing with ErrDuplicateEmail when the
	// email is taken.
	Insert(ctx context.Context, p *Patron) error

	// Get returns the patron with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Patron, error)

	// GetByEmail returns the patron with the given email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Patron, error)

	// Delete removes a patron record, or returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns every patron ordered by email.
	List(ctx context.Context) ([]*Patron, error)
}

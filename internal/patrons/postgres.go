// internal/patrons/postgres.go
package patrons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const patronColumns = "id, full_name, email, role, mobile, registration_no, branch, year, password_hash, password_salt, created_at"

// PostgresStore persists patrons in the patrons table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a Store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, p *Patron) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patrons (id, full_name, email, role, mobile, registration_no, branch, year, password_hash, password_salt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.FullName, p.Email, p.Role, p.Mobile, p.RegistrationNo, p.Branch, p.Year, p.PasswordHash, p.PasswordSalt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert patron: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Patron, error) {
	p := &Patron{}
	err := s.db.GetContext(ctx, p, `SELECT `+patronColumns+` FROM patrons WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get patron: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Patron, error) {
	p := &Patron{}
	err := s.db.GetContext(ctx, p, `SELECT `+patronColumns+` FROM patrons WHERE lower(email) = lower($1)`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get patron by email: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patrons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patron: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete patron: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Patron, error) {
	var out []*Patron
	err := s.db.SelectContext(ctx, &out, `SELECT `+patronColumns+` FROM patrons ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list patrons: %w", err)
	}
	return out, nil
}

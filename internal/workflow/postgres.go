// internal/workflow/postgres.go
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const requestColumns = "id, patron_id, book_id, status, requested_at"

// PostgresStore persists borrow requests. The duplicate-pending rule is a
// partial unique index on (patron_id, book_id) WHERE status = 'Pending'.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a Store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, req *BorrowRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO borrow_requests (id, patron_id, book_id, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, req.PatronID, req.BookID, req.Status, req.RequestedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePending
		}
		return fmt.Errorf("insert borrow request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*BorrowRequest, error) {
	req := &BorrowRequest{}
	err := s.db.GetContext(ctx, req, `SELECT `+requestColumns+` FROM borrow_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get borrow request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) MarkDecided(ctx context.Context, id uuid.UUID, status Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE borrow_requests SET status = $1 WHERE id = $2 AND status = $3
	`, status, id, StatusPending)
	if err != nil {
		return fmt.Errorf("decide borrow request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide borrow request: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) Pending(ctx context.Context) ([]*BorrowRequest, error) {
	var out []*BorrowRequest
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+requestColumns+` FROM borrow_requests WHERE status = $1 ORDER BY requested_at, id
	`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PendingByPatron(ctx context.Context, patronID uuid.UUID) ([]*BorrowRequest, error) {
	var out []*BorrowRequest
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+requestColumns+` FROM borrow_requests
		WHERE status = $1 AND patron_id = $2 ORDER BY requested_at, id
	`, StatusPending, patronID)
	if err != nil {
		return nil, fmt.Errorf("pending requests by patron: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PendingCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM borrow_requests WHERE status = $1 AND patron_id = $2
	`, StatusPending, patronID)
	if err != nil {
		return 0, fmt.Errorf("pending count by patron: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PendingCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM borrow_requests WHERE status = $1 AND book_id = $2
	`, StatusPending, bookID)
	if err != nil {
		return 0, fmt.Errorf("pending count by book: %w", err)
	}
	return count, nil
}

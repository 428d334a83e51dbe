// internal/inventory/postgres.go
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PostgresStore backs the inventory with the books table. Reserve and
// Release each run as a single guarded UPDATE, so the check and the count
// change commit in one atomic statement.
type PostgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a Store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("biblios/inventory"),
	}
}

func (s *PostgresStore) Add(ctx context.Context, book *Book) error {
	ctx, span := s.tracer.Start(ctx, "inventory.add",
		trace.WithAttributes(attribute.String("book.accession_no", book.AccessionNo)),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, accession_no, title, author, department, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, book.ID, book.AccessionNo, book.Title, book.Author, book.Department, book.TotalCopies, book.AvailableCopies)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAccession
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "inventory.remove",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	// The guard mirrors the façade's in-use check so a request or loan that
	// lands between the check and the delete still blocks removal.
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM books b
		WHERE b.id = $1
		AND NOT EXISTS (SELECT 1 FROM loans l WHERE l.book_id = b.id AND l.status <> 'Returned')
		AND NOT EXISTS (SELECT 1 FROM borrow_requests r WHERE r.book_id = b.id AND r.status = 'Pending')
	`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrBookInUse
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	err := s.db.GetContext(ctx, book, `
		SELECT id, accession_no, title, author, department, total_copies, available_copies, created_at, updated_at
		FROM books WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

func (s *PostgresStore) GetByAccession(ctx context.Context, accNo string) (*Book, error) {
	book := &Book{}
	err := s.db.GetContext(ctx, book, `
		SELECT id, accession_no, title, author, department, total_copies, available_copies, created_at, updated_at
		FROM books WHERE accession_no = $1
	`, accNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book by accession: %w", err)
	}
	return book, nil
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]*Book, error) {
	pattern := "%" + query + "%"
	var books []*Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, accession_no, title, author, department, total_copies, available_copies, created_at, updated_at
		FROM books
		WHERE title ILIKE $1 OR author ILIKE $1 OR accession_no ILIKE $1
		ORDER BY accession_no
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

func (s *PostgresStore) Reserve(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "inventory.reserve",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = NOW()
		WHERE id = $1 AND available_copies > 0
	`, id)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		span.SetAttributes(attribute.Bool("reserve.exhausted", true))
		return ErrInsufficientCopies
	}
	return nil
}

func (s *PostgresStore) Release(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "inventory.release",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1, updated_at = NOW()
		WHERE id = $1 AND available_copies < total_copies
	`, id)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvariantViolation
	}
	return nil
}

func (s *PostgresStore) Totals(ctx context.Context) (int, int, error) {
	var totals struct {
		Titles    int `db:"titles"`
		Available int `db:"available"`
	}
	err := s.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS titles, COALESCE(SUM(available_copies), 0) AS available FROM books
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("inventory totals: %w", err)
	}
	return totals.Titles, totals.Available, nil
}

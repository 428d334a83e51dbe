// internal/ledger/postgres.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const loanColumns = "id, patron_id, book_id, issue_date, due_date, return_date, status, fine"

// PostgresStore persists loans in the loans table. The duplicate-active-loan
// rule is enforced by a partial unique index on (patron_id, book_id) WHERE
// status <> 'Returned', and transitions are single guarded UPDATEs.
type PostgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a Store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("biblios/ledger"),
	}
}

func (s *PostgresStore) Insert(ctx context.Context, loan *Loan) error {
	ctx, span := s.tracer.Start(ctx, "ledger.insert",
		trace.WithAttributes(
			attribute.String("loan.id", loan.ID.String()),
			attribute.String("loan.book_id", loan.BookID.String()),
		),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loans (id, patron_id, book_id, issue_date, due_date, status, fine)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, loan.ID, loan.PatronID, loan.BookID, loan.IssueDate, loan.DueDate, loan.Status, loan.Fine)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateActiveLoan
		}
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	loan := &Loan{}
	err := s.db.GetContext(ctx, loan, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

func (s *PostgresStore) MarkReturnRequested(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "ledger.mark_return_requested",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE loans SET status = $1 WHERE id = $2 AND status = $3
	`, StatusReturnRequested, id, StatusIssued)
	if err != nil {
		return fmt.Errorf("mark return requested: %w", err)
	}
	return s.transitionOutcome(ctx, res, id)
}

func (s *PostgresStore) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine float64) error {
	ctx, span := s.tracer.Start(ctx, "ledger.mark_returned",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE loans SET status = $1, return_date = $2, fine = $3
		WHERE id = $4 AND status <> $1
	`, StatusReturned, returnedAt, fine, id)
	if err != nil {
		return fmt.Errorf("mark returned: %w", err)
	}
	return s.transitionOutcome(ctx, res, id)
}

// transitionOutcome distinguishes a missing loan from a guard failure when a
// guarded UPDATE touched no rows.
func (s *PostgresStore) transitionOutcome(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition outcome: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ActiveByPatron(ctx context.Context, patronID uuid.UUID) ([]*Loan, error) {
	var loans []*Loan
	err := s.db.SelectContext(ctx, &loans, `
		SELECT `+loanColumns+` FROM loans
		WHERE patron_id = $1 AND status <> $2
		ORDER BY issue_date, id
	`, patronID, StatusReturned)
	if err != nil {
		return nil, fmt.Errorf("active loans by patron: %w", err)
	}
	return loans, nil
}

func (s *PostgresStore) ActiveCountByPatron(ctx context.Context, patronID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM loans WHERE patron_id = $1 AND status <> $2
	`, patronID, StatusReturned)
	if err != nil {
		return 0, fmt.Errorf("active loan count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UnreturnedCountByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM loans WHERE book_id = $1 AND status <> $2
	`, bookID, StatusReturned)
	if err != nil {
		return 0, fmt.Errorf("unreturned count by book: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Active(ctx context.Context) ([]*Loan, error) {
	var loans []*Loan
	err := s.db.SelectContext(ctx, &loans, `
		SELECT `+loanColumns+` FROM loans WHERE status <> $1 ORDER BY issue_date, id
	`, StatusReturned)
	if err != nil {
		return nil, fmt.Errorf("active loans: %w", err)
	}
	return loans, nil
}

func (s *PostgresStore) ReturnRequested(ctx context.Context) ([]*Loan, error) {
	var loans []*Loan
	err := s.db.SelectContext(ctx, &loans, `
		SELECT `+loanColumns+` FROM loans WHERE status = $1 ORDER BY issue_date, id
	`, StatusReturnRequested)
	if err != nil {
		return nil, fmt.Errorf("return requested loans: %w", err)
	}
	return loans, nil
}

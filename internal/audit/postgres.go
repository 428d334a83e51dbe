// internal/audit/postgres.go
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PostgresLog appends events to the audit_events table.
type PostgresLog struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresLog creates a Log backed by the given database.
func NewPostgresLog(db *sqlx.DB) *PostgresLog {
	return &PostgresLog{
		db:     db,
		tracer: otel.Tracer("biblios/audit"),
	}
}

func (l *PostgresLog) Record(ctx context.Context, event Event) error {
	ctx, span := l.tracer.Start(ctx, "audit.record",
		trace.WithAttributes(
			attribute.String("event.type", string(event.Type)),
			attribute.String("event.subject_id", event.SubjectID.String()),
		),
	)
	defer span.End()

	var eventID int64
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (event_type, subject_id, actor_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, event.Type, event.SubjectID, event.ActorID, event.Detail, time.Now().UTC()).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	span.SetAttributes(attribute.Int64("event.id", eventID))
	return nil
}

func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, span := l.tracer.Start(ctx, "audit.recent",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	var events []Event
	err := l.db.SelectContext(ctx, &events, `
		SELECT id, event_type, subject_id, actor_id, detail, created_at
		FROM audit_events ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent audit events: %w", err)
	}
	return events, nil
}

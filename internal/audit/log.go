// internal/audit/log.go
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a circulation fact worth keeping.
type EventType string

const (
	EventBookAdded       EventType = "BookAdded"
	EventBookRemoved     EventType = "BookRemoved"
	EventRequestCreated  EventType = "RequestCreated"
	EventRequestDecided  EventType = "RequestDecided"
	EventLoanIssued      EventType = "LoanIssued"
	EventReturnRequested EventType = "ReturnRequested"
	EventLoanReturned    EventType = "LoanReturned"
)

// Event is one entry in the append-only circulation trail. Subject is the
// book, loan or request the event is about; Actor is the principal who
// caused it.
type Event struct {
	ID        int64           `json:"id" db:"id"`
	Type      EventType       `json:"type" db:"event_type"`
	SubjectID uuid.UUID       `json:"subject_id" db:"subject_id"`
	ActorID   uuid.UUID       `json:"actor_id" db:"actor_id"`
	Detail    json.RawMessage `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Log is an append-only sink for circulation events. Recording is
// best-effort bookkeeping after the fact; it never vetoes an operation.
type Log interface {
	Record(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Detail marshals v for an Event's Detail field, swallowing marshal errors
// since the trail is advisory.
func Detail(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

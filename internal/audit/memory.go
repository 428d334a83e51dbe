// internal/audit/memory.go
package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryLog keeps the audit trail in memory for tests and -mem dev mode.
type MemoryLog struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

// NewMemoryLog creates an empty in-memory audit log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextID: 1}
}

func (l *MemoryLog) Record(ctx context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.ID = l.nextID
	l.nextID++
	event.CreatedAt = time.Now().UTC()
	l.events = append(l.events, event)
	return nil
}

func (l *MemoryLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]Event, 0, limit)
	for i := len(l.events) - 1; i >= len(l.events)-limit; i-- {
		out = append(out, l.events[i])
	}
	return out, nil
}

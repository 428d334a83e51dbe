package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogRecentNewestFirst(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	types := []EventType{EventBookAdded, EventLoanIssued, EventLoanReturned}
	for _, typ := range types {
		require.NoError(t, log.Record(ctx, Event{
			Type:      typ,
			SubjectID: uuid.New(),
			ActorID:   uuid.New(),
			Detail:    Detail(map[string]string{"k": "v"}),
		}))
	}

	all, err := log.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, EventLoanReturned, all[0].Type)
	assert.Equal(t, EventBookAdded, all[2].Type)
	assert.Equal(t, int64(3), all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero())

	last, err := log.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, EventLoanReturned, last[0].Type)
	assert.Equal(t, EventLoanIssued, last[1].Type)
}

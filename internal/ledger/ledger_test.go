package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblios/internal/fines"
	"biblios/internal/inventory"
)

func setup(t *testing.T, copies int) (*Ledger, *inventory.MemoryStore, uuid.UUID) {
	t.Helper()
	inv := newMemInventory(t, copies)
	led := NewLedger(NewMemoryStore(), inv.store, fines.NewCalculator(5.0))
	return led, inv.store, inv.bookID
}

type memInventory struct {
	store  *inventory.MemoryStore
	bookID uuid.UUID
}

func newMemInventory(t *testing.T, copies int) *memInventory {
	t.Helper()
	store := inventory.NewMemoryStore()
	book := &inventory.Book{
		ID:              uuid.New(),
		AccessionNo:     "CSE-100",
		Title:           "Python Programming",
		Author:          "Guido",
		Department:      "CSE",
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, store.Add(context.Background(), book))
	return &memInventory{store: store, bookID: book.ID}
}

func issueReserved(t *testing.T, led *Ledger, inv inventory.Store, patronID, bookID uuid.UUID) *Loan {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, inv.Reserve(ctx, bookID))
	loan, err := led.Issue(ctx, patronID, bookID, 14)
	require.NoError(t, err)
	return loan
}

func TestIssueSetsDueDate(t *testing.T) {
	led, inv, bookID := setup(t, 1)
	loan := issueReserved(t, led, inv, uuid.New(), bookID)

	assert.Equal(t, StatusIssued, loan.Status)
	assert.Equal(t, loan.IssueDate.AddDate(0, 0, 14), loan.DueDate)
	assert.Nil(t, loan.ReturnDate)
	assert.Zero(t, loan.Fine)
}

func TestIssueDuplicateActiveLoan(t *testing.T) {
	led, inv, bookID := setup(t, 3)
	ctx := context.Background()
	patron := uuid.New()

	issueReserved(t, led, inv, patron, bookID)
	require.NoError(t, inv.Reserve(ctx, bookID))
	_, err := led.Issue(ctx, patron, bookID, 14)
	assert.ErrorIs(t, err, ErrDuplicateActiveLoan)
}

func TestRequestReturnOwnership(t *testing.T) {
	led, inv, bookID := setup(t, 1)
	ctx := context.Background()
	owner := uuid.New()
	loan := issueReserved(t, led, inv, owner, bookID)

	assert.ErrorIs(t, led.RequestReturn(ctx, loan.ID, uuid.New()), ErrForbidden)
	require.NoError(t, led.RequestReturn(ctx, loan.ID, owner))

	got, err := led.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturnRequested, got.Status)

	// A second request finds the loan no longer Issued.
	assert.ErrorIs(t, led.RequestReturn(ctx, loan.ID, owner), ErrInvalidState)
}

func TestApproveReturnComputesFineAndReleases(t *testing.T) {
	led, inv, bookID := setup(t, 2)
	ctx := context.Background()
	owner := uuid.New()
	loan := issueReserved(t, led, inv, owner, bookID)
	require.NoError(t, led.RequestReturn(ctx, loan.ID, owner))

	// Six days past due at five rupees a day.
	fine, err := led.ApproveReturn(ctx, loan.ID, loan.DueDate.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, 30.0, fine)

	got, err := led.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, got.Status)
	require.NotNil(t, got.ReturnDate)
	assert.Equal(t, 30.0, got.Fine)

	book, err := inv.Get(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies, "copy back on the shelf")
}

func TestApproveReturnForceClosesIssuedLoan(t *testing.T) {
	led, inv, bookID := setup(t, 1)
	ctx := context.Background()
	loan := issueReserved(t, led, inv, uuid.New(), bookID)

	// No prior return request: the admin override path.
	fine, err := led.ApproveReturn(ctx, loan.ID, loan.DueDate)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fine)

	got, err := led.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, got.Status)
}

func TestApproveReturnTwiceIsInvalidState(t *testing.T) {
	led, inv, bookID := setup(t, 1)
	ctx := context.Background()
	loan := issueReserved(t, led, inv, uuid.New(), bookID)

	_, err := led.ApproveReturn(ctx, loan.ID, loan.DueDate)
	require.NoError(t, err)
	_, err = led.ApproveReturn(ctx, loan.ID, loan.DueDate)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveReturnUnknownLoan(t *testing.T) {
	led, _, _ := setup(t, 1)
	_, err := led.ApproveReturn(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEstimateFineDoesNotMutate(t *testing.T) {
	led, inv, bookID := setup(t, 1)
	ctx := context.Background()
	loan := issueReserved(t, led, inv, uuid.New(), bookID)

	est := led.EstimateFine(loan, loan.DueDate.AddDate(0, 0, 3))
	assert.Equal(t, 15.0, est)

	got, err := led.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Fine, "stored fine only set at return approval")
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblios/internal/fines"
	"biblios/internal/inventory"
	"biblios/internal/ledger"
	"biblios/internal/patrons"
)

type fixture struct {
	ctx      context.Context
	inv      *inventory.MemoryStore
	ledger   *ledger.Ledger
	patrons  *patrons.MemoryStore
	registry *patrons.Registry
	wf       *Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inv := inventory.NewMemoryStore()
	led := ledger.NewLedger(ledger.NewMemoryStore(), inv, fines.NewCalculator(5.0))
	pstore := patrons.NewMemoryStore()
	registry := patrons.NewRegistry(pstore, "cbit.edu.in")
	wf := NewWorkflow(NewMemoryStore(), inv, led, registry, DefaultPolicy())
	return &fixture{
		ctx:      context.Background(),
		inv:      inv,
		ledger:   led,
		patrons:  pstore,
		registry: registry,
		wf:       wf,
	}
}

func (f *fixture) addBook(t *testing.T, accNo string, copies int) *inventory.Book {
	t.Helper()
	book := &inventory.Book{
		ID:              uuid.New(),
		AccessionNo:     accNo,
		Title:           "Title " + accNo,
		Author:          "Author",
		Department:      "CSE",
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, f.inv.Add(f.ctx, book))
	return book
}

// addPatron seeds the store directly so tests are not throttled by the
// signup rate limiter.
func (f *fixture) addPatron(t *testing.T, email string, role patrons.Role) *patrons.Patron {
	t.Helper()
	p := &patrons.Patron{ID: uuid.New(), FullName: "Patron " + email, Email: email, Role: role}
	require.NoError(t, f.patrons.Insert(f.ctx, p))
	return p
}

func (f *fixture) available(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	book, err := f.inv.Get(f.ctx, bookID)
	require.NoError(t, err)
	return book.AvailableCopies
}

func TestCreateQueuesWithoutReserving(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	req, err := f.wf.Create(f.ctx, p.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 1, f.available(t, book.ID), "request must not claim stock")
}

func TestCreateAllowedWhenOutOfStock(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	require.NoError(t, f.inv.Reserve(f.ctx, book.ID))

	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)
	_, err := f.wf.Create(f.ctx, p.ID, book.ID)
	assert.NoError(t, err, "a request is a queue entry, not a reservation")
}

func TestCreateDuplicatePending(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 2)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	_, err := f.wf.Create(f.ctx, p.ID, book.ID)
	require.NoError(t, err)
	_, err = f.wf.Create(f.ctx, p.ID, book.ID)
	assert.ErrorIs(t, err, ErrDuplicatePending)
}

func TestCreateUnknownBook(t *testing.T) {
	f := newFixture(t)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)
	_, err := f.wf.Create(f.ctx, p.ID, uuid.New())
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestCreateTokenLimit(t *testing.T) {
	f := newFixture(t)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	for i := 0; i < 3; i++ {
		book := f.addBook(t, fmt.Sprintf("CSE-10%d", i), 1)
		_, err := f.wf.Create(f.ctx, p.ID, book.ID)
		require.NoError(t, err)
	}

	extra := f.addBook(t, "CSE-200", 1)
	_, err := f.wf.Create(f.ctx, p.ID, extra.ID)
	assert.ErrorIs(t, err, ErrTokenLimitExceeded)
}

func TestAdminsCannotBorrow(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	admin := f.addPatron(t, "admin@cbit.edu.in", patrons.RoleAdmin)

	_, err := f.wf.Create(f.ctx, admin.ID, book.ID)
	assert.ErrorIs(t, err, ErrTokenLimitExceeded)
}

func TestDecideReject(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)
	req, err := f.wf.Create(f.ctx, p.ID, book.ID)
	require.NoError(t, err)

	loan, err := f.wf.Decide(f.ctx, req.ID, DecisionReject)
	require.NoError(t, err)
	assert.Nil(t, loan)
	assert.Equal(t, 1, f.available(t, book.ID), "rejection has no inventory effect")

	got, err := f.wf.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
}

func TestDecideAlreadyDecided(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)
	req, err := f.wf.Create(f.ctx, p.ID, book.ID)
	require.NoError(t, err)

	_, err = f.wf.Decide(f.ctx, req.ID, DecisionReject)
	require.NoError(t, err)
	_, err = f.wf.Decide(f.ctx, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDecideUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.wf.Decide(f.ctx, uuid.New(), DecisionApprove)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Scenario: two copies, three pending requests. The first two approvals
// drain the stock; the third fails and its request stays pending.
func TestApprovalsDrainStockThenStayPending(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 2)

	var reqs []*BorrowRequest
	for i := 1; i <= 3; i++ {
		p := f.addPatron(t, fmt.Sprintf("s%d@cbit.edu.in", i), patrons.RoleStudent)
		req, err := f.wf.Create(f.ctx, p.ID, book.ID)
		require.NoError(t, err)
		reqs = append(reqs, req)
	}

	loan1, err := f.wf.Decide(f.ctx, reqs[0].ID, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusIssued, loan1.Status)
	assert.Equal(t, 1, f.available(t, book.ID))

	loan2, err := f.wf.Decide(f.ctx, reqs[1].ID, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusIssued, loan2.Status)
	assert.Equal(t, 0, f.available(t, book.ID))

	_, err = f.wf.Decide(f.ctx, reqs[2].ID, DecisionApprove)
	assert.ErrorIs(t, err, inventory.ErrInsufficientCopies)

	got, err := f.wf.Get(f.ctx, reqs[2].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status, "failed approval leaves the request pending")
	assert.Equal(t, 0, f.available(t, book.ID))
}

func TestApproveRollsBackReservationWhenIssueFails(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 2)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	// The patron already holds a copy, so issuing must fail and the
	// reservation must be rolled back.
	_, err := f.wf.DirectIssue(f.ctx, p.Email, book.AccessionNo)
	require.NoError(t, err)
	require.Equal(t, 1, f.available(t, book.ID))

	req, err := f.wf.Create(f.ctx, p.ID, book.ID)
	require.NoError(t, err)

	_, err = f.wf.Decide(f.ctx, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrDuplicateActiveLoan)
	assert.Equal(t, 1, f.available(t, book.ID), "reservation rolled back")

	got, err := f.wf.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

// With K copies and N > K pending requests approved concurrently, exactly K
// succeed and the rest fail with ErrInsufficientCopies.
func TestConcurrentApprovalsExactCount(t *testing.T) {
	f := newFixture(t)
	const copies = 3
	const requests = 12
	book := f.addBook(t, "CSE-100", copies)

	ids := make([]uuid.UUID, 0, requests)
	for i := 0; i < requests; i++ {
		p := f.addPatron(t, fmt.Sprintf("s%d@cbit.edu.in", i), patrons.RoleStudent)
		req, err := f.wf.Create(f.ctx, p.ID, book.ID)
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, requests)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.wf.Decide(f.ctx, id, DecisionApprove)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, inventory.ErrInsufficientCopies):
			losses++
		default:
			t.Errorf("unexpected decide error: %v", err)
		}
	}
	assert.Equal(t, copies, wins)
	assert.Equal(t, requests-copies, losses)
	assert.Equal(t, 0, f.available(t, book.ID))
}

func TestDirectIssueSecondCopyToSamePatron(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 5)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	_, err := f.wf.DirectIssue(f.ctx, p.Email, book.AccessionNo)
	require.NoError(t, err)

	_, err = f.wf.DirectIssue(f.ctx, p.Email, book.AccessionNo)
	assert.ErrorIs(t, err, ledger.ErrDuplicateActiveLoan)
	assert.Equal(t, 4, f.available(t, book.ID), "failed issue must not leak a copy")
}

func TestDirectIssueUnknowns(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	_, err := f.wf.DirectIssue(f.ctx, "nobody@cbit.edu.in", book.AccessionNo)
	assert.ErrorIs(t, err, patrons.ErrNotFound)

	_, err = f.wf.DirectIssue(f.ctx, p.Email, "XXX-999")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestDirectIssueRespectsTokenLimit(t *testing.T) {
	f := newFixture(t)
	p := f.addPatron(t, "s1@cbit.edu.in", patrons.RoleStudent)

	for i := 0; i < 3; i++ {
		book := f.addBook(t, fmt.Sprintf("CSE-10%d", i), 1)
		_, err := f.wf.DirectIssue(f.ctx, p.Email, book.AccessionNo)
		require.NoError(t, err)
	}

	extra := f.addBook(t, "CSE-200", 1)
	_, err := f.wf.DirectIssue(f.ctx, p.Email, extra.AccessionNo)
	assert.ErrorIs(t, err, ErrTokenLimitExceeded)
}

func TestFacultyLoanPeriod(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "CSE-100", 1)
	fac := f.addPatron(t, "rao@cbit.edu.in", patrons.RoleFaculty)

	loan, err := f.wf.DirectIssue(f.ctx, fac.Email, book.AccessionNo)
	require.NoError(t, err)
	assert.Equal(t, loan.IssueDate.AddDate(0, 0, 30), loan.DueDate)
}

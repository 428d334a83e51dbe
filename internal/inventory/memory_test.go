package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newBook(accNo, title, author string, copies int) *Book {
	return &Book{
		ID:              uuid.New(),
		AccessionNo:     accNo,
		Title:           title,
		Author:          author,
		Department:      "CSE",
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
}

func TestAddDuplicateAccession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, newBook("CSE-100", "Python Programming", "Guido", 5)))
	err := store.Add(ctx, newBook("CSE-100", "Another Title", "Someone", 1))
	assert.ErrorIs(t, err, ErrDuplicateAccession)
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	book := newBook("CSE-100", "Python Programming", "Guido", 2)
	require.NoError(t, store.Add(ctx, book))

	require.NoError(t, store.Reserve(ctx, book.ID))
	got, err := store.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)

	require.NoError(t, store.Release(ctx, book.ID))
	got, err = store.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableCopies)
}

func TestReserveExhaustion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	book := newBook("ECE-200", "Circuit Theory", "Bakshi", 1)
	require.NoError(t, store.Add(ctx, book))

	require.NoError(t, store.Reserve(ctx, book.ID))
	assert.ErrorIs(t, store.Reserve(ctx, book.ID), ErrInsufficientCopies)

	got, err := store.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
}

func TestReleasePastTotalIsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	book := newBook("ECE-200", "Circuit Theory", "Bakshi", 1)
	require.NoError(t, store.Add(ctx, book))

	assert.ErrorIs(t, store.Release(ctx, book.ID), ErrInvariantViolation)
}

func TestReserveUnknownBook(t *testing.T) {
	store := NewMemoryStore()
	assert.ErrorIs(t, store.Reserve(context.Background(), uuid.New()), ErrNotFound)
}

func TestSearchIsCaseInsensitiveAndOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Add(ctx, newBook("ECE-200", "Circuit Theory", "Bakshi", 5)))
	require.NoError(t, store.Add(ctx, newBook("CSE-100", "Python Programming", "Guido", 5)))
	require.NoError(t, store.Add(ctx, newBook("CSE-101", "Programming Pearls", "Bentley", 2)))

	books, err := store.Search(ctx, "pRoGrAm")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "CSE-100", books[0].AccessionNo)
	assert.Equal(t, "CSE-101", books[1].AccessionNo)

	byAcc, err := store.Search(ctx, "ece-")
	require.NoError(t, err)
	require.Len(t, byAcc, 1)
	assert.Equal(t, "Circuit Theory", byAcc[0].Title)
}

// With K copies and N > K racing reservations, exactly K must win.
func TestConcurrentReserveExactCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	book := newBook("CSE-100", "Python Programming", "Guido", 3)
	require.NoError(t, store.Add(ctx, book))

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Reserve(ctx, book.ID)
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInsufficientCopies):
			losses++
		default:
			t.Errorf("unexpected reserve error: %v", err)
		}
	}
	assert.Equal(t, 3, wins)
	assert.Equal(t, attempts-3, losses)

	got, err := store.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
}

// Random reserve/release interleavings never take available_copies outside
// [0, total_copies], and the count always matches successful reservations.
func TestAvailabilityInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := NewMemoryStore()
		total := rapid.IntRange(1, 10).Draw(t, "total")
		book := newBook("GEN-1", "Invariants", "Hoare", total)
		if err := store.Add(ctx, book); err != nil {
			t.Fatal(err)
		}

		outstanding := 0
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "reserve") {
				err := store.Reserve(ctx, book.ID)
				if outstanding < total {
					if err != nil {
						t.Fatalf("reserve with stock remaining failed: %v", err)
					}
					outstanding++
				} else if err != ErrInsufficientCopies {
					t.Fatalf("expected ErrInsufficientCopies, got %v", err)
				}
			} else if outstanding > 0 {
				if err := store.Release(ctx, book.ID); err != nil {
					t.Fatalf("release failed: %v", err)
				}
				outstanding--
			}

			got, err := store.Get(ctx, book.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.AvailableCopies != total-outstanding {
				t.Fatalf("available = %d, want %d", got.AvailableCopies, total-outstanding)
			}
			if got.AvailableCopies < 0 || got.AvailableCopies > total {
				t.Fatalf("available %d out of [0, %d]", got.AvailableCopies, total)
			}
		}
	})
}

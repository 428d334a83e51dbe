package fines

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestComputeBoundaries(t *testing.T) {
	calc := NewCalculator(5.0)
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, calc.Compute(due, due), "on-time return owes nothing")
	assert.Equal(t, 5.0, calc.Compute(due, due.AddDate(0, 0, 1)), "one day late owes one day's rate")
	assert.Equal(t, 0.0, calc.Compute(due, due.AddDate(0, 0, -1)), "early return never owes a negative fine")
	assert.Equal(t, 30.0, calc.Compute(due, due.AddDate(0, 0, 6)))
}

func TestComputeIgnoresTimeOfDay(t *testing.T) {
	calc := NewCalculator(5.0)
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// Returning late in the evening of the due date is still on time.
	assert.Equal(t, 0.0, calc.Compute(due, due.Add(23*time.Hour)))
	assert.Equal(t, 5.0, calc.Compute(due, due.Add(25*time.Hour)))
}

func TestComputeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := float64(rapid.IntRange(1, 100).Draw(t, "rate"))
		calc := NewCalculator(rate)
		due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		offset := rapid.IntRange(-365, 365).Draw(t, "offsetDays")
		evaluated := due.AddDate(0, 0, offset)

		fine := calc.Compute(due, evaluated)
		if fine < 0 {
			t.Fatalf("fine must never be negative, got %v", fine)
		}
		if offset <= 0 && fine != 0 {
			t.Fatalf("return %d days before due must owe nothing, got %v", -offset, fine)
		}
		if offset > 0 && fine != float64(offset)*rate {
			t.Fatalf("expected %v for %d days late, got %v", float64(offset)*rate, offset, fine)
		}

		// One more day late never decreases the fine.
		if calc.Compute(due, evaluated.AddDate(0, 0, 1)) < fine {
			t.Fatalf("fine must be monotone in evaluation date")
		}
	})
}

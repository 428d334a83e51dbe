// internal/fines/calculator.go
package fines

import "time"

// Calculator computes overdue fines. It holds no state beyond the daily
// rate, so a single value can be shared across the whole service.
type Calculator struct {
	DailyRate float64
}

// NewCalculator creates a calculator charging dailyRate per overdue day.
func NewCalculator(dailyRate float64) Calculator {
	return Calculator{DailyRate: dailyRate}
}

// Compute returns the fine owed when a loan due on dueDate is evaluated at
// evaluatedAt. Lateness is measured in whole calendar days; a return on or
// before the due date owes nothing, and the result is never negative.
func (c Calculator) Compute(dueDate, evaluatedAt time.Time) float64 {
	days := daysBetween(dueDate, evaluatedAt)
	if days <= 0 {
		return 0
	}
	return float64(days) * c.DailyRate
}

// daysBetween counts whole calendar days from a to b in UTC, negative when
// b precedes a.
func daysBetween(a, b time.Time) int {
	ad := a.UTC().Truncate(24 * time.Hour)
	bd := b.UTC().Truncate(24 * time.Hour)
	return int(bd.Sub(ad) / (24 * time.Hour))
}

package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DayLength resolves a length policy to a number of days. Monthly and any
// unknown policy use the calendar length of the start date's month; custom
// passes customDays through unchanged (callers validate customDays > 0 at
// the boundary).
func DayLength(length PeriodLength, start time.Time, customDays int) int {
	switch length {
	case Weekly:
		return 7
	case BiWeekly:
		return 14
	case Custom:
		return customDays
	default:
		return daysInMonth(start)
	}
}

// PeriodEndDate returns the last day covered by a period of dayLength days,
// so the range [start, end] holds exactly dayLength days.
func PeriodEndDate(start time.Time, dayLength int) time.Time {
	return start.AddDate(0, 0, dayLength-1)
}

// NewPeriod builds a period starting at start with derived day length and
// end date, zeroed aggregates and a fresh identity.
func NewPeriod(start time.Time, length PeriodLength, customDays int, userID uuid.UUID, now time.Time) Period {
	dayLength := DayLength(length, start, customDays)
	return Period{
		Entity:       NewEntity(now),
		StartDate:    start,
		EndDate:      PeriodEndDate(start, dayLength),
		Length:       length,
		DayLength:    dayLength,
		UserID:       userID,
		AmountSpent:  decimal.Zero,
		BudgetAmount: decimal.Zero,
	}
}

func daysInMonth(t time.Time) int {
	// Day 0 of the next month is the last day of t's month.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

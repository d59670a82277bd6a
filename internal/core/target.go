package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodTarget derives a category's per-period target amount from its
// general category.
//
// Fixed categories owe the whole general target every period. Custom
// categories without a final date take the caller's requested amount
// verbatim. Custom categories with a final date amortize the general target
// over the full periods remaining until that date, rounded to 2 decimal
// places.
//
// The calculation is always performed from scratch; targets are never
// adjusted incrementally on update.
func PeriodTarget(categoryType CategoryType, generalTarget decimal.Decimal, finalDate *time.Time, periodDayLength int, requested decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if categoryType == Fixed {
		return generalTarget, nil
	}
	if finalDate == nil {
		return requested, nil
	}
	if periodDayLength <= 0 {
		return decimal.Zero, ValidationError("CategoryTarget.PeriodDayLength", "period day length must be greater than 0")
	}
	totalDays := int(finalDate.Sub(now).Hours() / 24)
	if totalDays <= 0 {
		return decimal.Zero, BusinessError("CategoryTarget.FinalDate", "final date must be in the future")
	}
	periods := totalDays / periodDayLength
	if periods <= 0 {
		return decimal.Zero, BusinessError("CategoryTarget.NoPeriods", "no full periods remain before the final date")
	}
	return generalTarget.Div(decimal.NewFromInt(int64(periods))).Round(2), nil
}

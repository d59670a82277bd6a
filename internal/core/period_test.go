package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDayLength(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	febNonLeap := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		length     PeriodLength
		start      time.Time
		customDays int
		want       int
	}{
		{
			name:   "weekly is always 7",
			length: Weekly,
			start:  jan,
			want:   7,
		},
		{
			name:   "biweekly is always 14",
			length: BiWeekly,
			start:  jan,
			want:   14,
		},
		{
			name:   "monthly uses calendar days of start month",
			length: Monthly,
			start:  jan,
			want:   31,
		},
		{
			name:   "monthly in leap february",
			length: Monthly,
			start:  feb,
			want:   29,
		},
		{
			name:   "monthly in non-leap february",
			length: Monthly,
			start:  febNonLeap,
			want:   28,
		},
		{
			name:       "custom passes through",
			length:     Custom,
			start:      jan,
			customDays: 10,
			want:       10,
		},
		{
			name:   "unknown policy falls back to calendar month",
			length: PeriodLength("fortnightly"),
			start:  jan,
			want:   31,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DayLength(tt.length, tt.start, tt.customDays)
			if got != tt.want {
				t.Errorf("DayLength() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPeriodEndDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := PeriodEndDate(start, 7)
	want := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("PeriodEndDate() = %v, want %v", got, want)
	}
}

func TestNewPeriod(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	p := NewPeriod(start, Monthly, 0, userID, now)

	if p.DayLength != 31 {
		t.Errorf("DayLength = %d, want 31", p.DayLength)
	}
	wantEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if !p.EndDate.Equal(wantEnd) {
		t.Errorf("EndDate = %v, want %v", p.EndDate, wantEnd)
	}
	if !p.IsActive {
		t.Error("new period should be active")
	}
	if p.UserID != userID {
		t.Errorf("UserID = %v, want %v", p.UserID, userID)
	}
	if !p.AmountSpent.IsZero() || !p.BudgetAmount.IsZero() {
		t.Error("new period aggregates should be zero")
	}
}

func TestPeriodExpired(t *testing.T) {
	p := Period{EndDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)}

	if p.Expired(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Error("period should not be expired on its end date")
	}
	if !p.Expired(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("period should be expired after its end date")
	}
}

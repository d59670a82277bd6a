package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Weekly   PeriodLength = "weekly"
	BiWeekly PeriodLength = "biweekly"
	Monthly  PeriodLength = "monthly"
	Custom   PeriodLength = "custom"
)

const (
	Fixed      CategoryType = "fixed"
	CustomType CategoryType = "custom"
)

const (
	Income       TransactionType = "income"
	Expense      TransactionType = "expense"
	NotTrackable TransactionType = "not_trackable"
)

const (
	BankAccount AccountKind = "bank"
	CreditCard  AccountKind = "credit_card"
)

type (
	PeriodLength    string
	CategoryType    string
	TransactionType string
	AccountKind     string

	// Entity carries the fields shared by every persisted record.
	Entity struct {
		ID         uuid.UUID
		IsActive   bool
		CreatedOn  time.Time
		ModifiedOn time.Time
	}

	// Period is one budgeting window. EndDate is derived from StartDate and
	// DayLength and covers DayLength days inclusive.
	Period struct {
		Entity
		StartDate    time.Time
		EndDate      time.Time
		Length       PeriodLength
		DayLength    int
		UserID       uuid.UUID
		AmountSpent  decimal.Decimal
		BudgetAmount decimal.Decimal
	}

	// Folder groups categories inside a period. GeneralID identifies the
	// folder across period clones; ID is unique per row.
	Folder struct {
		Entity
		GeneralID uuid.UUID
		Name      string
		PeriodID  uuid.UUID
		UserID    uuid.UUID
	}

	// GeneralCategory is the persistent, cross-period budgeting goal a
	// Category materializes for one period.
	GeneralCategory struct {
		Entity
		TargetAmount decimal.Decimal
		CategoryType CategoryType
		FinalDate    *time.Time
		Currency     string
		UserID       uuid.UUID
	}

	// Category is one period's slice of a general category.
	Category struct {
		Entity
		GeneralID         uuid.UUID
		Name              string
		FolderID          uuid.UUID
		GeneralCategoryID uuid.UUID
		TargetAmount      decimal.Decimal
		BudgetAmount      decimal.Decimal
		AmountSpent       decimal.Decimal
		AmountRemaining   decimal.Decimal
	}

	// BankDetails holds the fields specific to plain bank accounts.
	BankDetails struct {
		BankName string
	}

	// CardDetails holds the fields specific to credit cards.
	CardDetails struct {
		CreditLimit         decimal.Decimal
		StatementClosingDay int // day of month, 1-31
		PaymentOffset       int // days after statement close
		SupportedCurrencies []string
	}

	// Account is a tagged variant: Kind selects which of Bank or Card is set.
	Account struct {
		Entity
		Kind           AccountKind
		Name           string
		CurrentBalance decimal.Decimal
		Currency       string
		AccountNumber  string // last 4 digits only
		Notes          string
		UserID         uuid.UUID
		Bank           *BankDetails
		Card           *CardDetails
	}

	// Transaction is a posted movement against an account. CategoryID is set
	// only for expenses. RequireCategoryReview marks a currency mismatch
	// whose category impact is deferred until a rate is supplied.
	Transaction struct {
		Entity
		Amount                decimal.Decimal
		Type                  TransactionType
		AccountID             uuid.UUID
		CategoryID            *uuid.UUID
		Note                  string
		RequireCategoryReview bool
	}

	// CategoryEffect records what an expense actually did to a category, so
	// deletion can reverse the applied amount rather than the face amount.
	CategoryEffect struct {
		Entity
		TransactionID  uuid.UUID
		CategoryID     uuid.UUID
		Amount         decimal.Decimal
		ConversionRate *decimal.Decimal
	}
)

// NewEntity returns an active Entity with a fresh id and now timestamps.
func NewEntity(now time.Time) Entity {
	return Entity{
		ID:         uuid.New(),
		IsActive:   true,
		CreatedOn:  now,
		ModifiedOn: now,
	}
}

// Touch updates the modification timestamp.
func (e *Entity) Touch(now time.Time) {
	e.ModifiedOn = now
}

func (l PeriodLength) Valid() bool {
	switch l {
	case Weekly, BiWeekly, Monthly, Custom:
		return true
	}
	return false
}

func (t CategoryType) Valid() bool {
	return t == Fixed || t == CustomType
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, NotTrackable:
		return true
	}
	return false
}

// RecomputeRemaining re-derives AmountRemaining. Call after every mutation of
// TargetAmount or AmountSpent; the stored value must never go stale.
func (c *Category) RecomputeRemaining() {
	c.AmountRemaining = c.TargetAmount.Sub(c.AmountSpent)
}

// Expired reports whether the period's window has passed.
func (p Period) Expired(now time.Time) bool {
	return now.After(p.EndDate)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ValidationError("Account.Name", "name is required")
	}
	if strings.TrimSpace(a.Currency) == "" {
		return ValidationError("Account.Currency", "currency is required")
	}
	if n := strings.TrimSpace(a.AccountNumber); n == "" || len(n) > 4 {
		return ValidationError("Account.AccountNumber", "account number must be the last 4 digits")
	}
	if a.CurrentBalance.IsNegative() {
		return ValidationError("Account.CurrentBalance", "current balance cannot be negative")
	}
	if a.UserID == uuid.Nil {
		return ValidationError("Account.UserID", "user id is required")
	}
	switch a.Kind {
	case BankAccount:
		if a.Bank == nil || strings.TrimSpace(a.Bank.BankName) == "" {
			return ValidationError("Account.BankName", "bank name is required")
		}
	case CreditCard:
		if a.Card == nil {
			return ValidationError("Account.Card", "card details are required")
		}
		if !a.Card.CreditLimit.IsPositive() {
			return ValidationError("Account.CreditLimit", "credit limit must be greater than 0")
		}
		if a.Card.StatementClosingDay < 1 || a.Card.StatementClosingDay > 31 {
			return ValidationError("Account.StatementClosingDay", "statement closing day must be between 1 and 31")
		}
		if len(a.Card.SupportedCurrencies) == 0 {
			return ValidationError("Account.SupportedCurrencies", "at least one supported currency is required")
		}
	default:
		return ValidationError("Account.Kind", "unknown account kind")
	}
	return nil
}

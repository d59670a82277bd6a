package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCategoryRecomputeRemaining(t *testing.T) {
	c := Category{
		TargetAmount: decimal.NewFromInt(200),
		AmountSpent:  decimal.NewFromInt(50),
	}

	c.RecomputeRemaining()

	if c.AmountRemaining.String() != "150" {
		t.Errorf("AmountRemaining = %s, want 150", c.AmountRemaining.String())
	}
}

func validBankAccount() Account {
	return Account{
		Entity:         NewEntity(time.Now()),
		Kind:           BankAccount,
		Name:           "Checking",
		CurrentBalance: decimal.NewFromInt(100),
		Currency:       "EUR",
		AccountNumber:  "1234",
		UserID:         uuid.New(),
		Bank:           &BankDetails{BankName: "Intesa"},
	}
}

func TestAccountValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Account)
		wantErr bool
	}{
		{
			name:   "valid bank account",
			mutate: func(a *Account) {},
		},
		{
			name:    "missing name",
			mutate:  func(a *Account) { a.Name = " " },
			wantErr: true,
		},
		{
			name:    "missing currency",
			mutate:  func(a *Account) { a.Currency = "" },
			wantErr: true,
		},
		{
			name:    "account number longer than 4 digits",
			mutate:  func(a *Account) { a.AccountNumber = "12345" },
			wantErr: true,
		},
		{
			name:    "negative balance",
			mutate:  func(a *Account) { a.CurrentBalance = decimal.NewFromInt(-1) },
			wantErr: true,
		},
		{
			name:    "missing user",
			mutate:  func(a *Account) { a.UserID = uuid.Nil },
			wantErr: true,
		},
		{
			name:    "bank account without bank name",
			mutate:  func(a *Account) { a.Bank = nil },
			wantErr: true,
		},
		{
			name: "credit card without limit",
			mutate: func(a *Account) {
				a.Kind = CreditCard
				a.Bank = nil
				a.Card = &CardDetails{StatementClosingDay: 15, SupportedCurrencies: []string{"EUR"}}
			},
			wantErr: true,
		},
		{
			name: "credit card with closing day out of range",
			mutate: func(a *Account) {
				a.Kind = CreditCard
				a.Bank = nil
				a.Card = &CardDetails{
					CreditLimit:         decimal.NewFromInt(1000),
					StatementClosingDay: 32,
					SupportedCurrencies: []string{"EUR"},
				}
			},
			wantErr: true,
		},
		{
			name: "valid credit card",
			mutate: func(a *Account) {
				a.Kind = CreditCard
				a.Bank = nil
				a.Card = &CardDetails{
					CreditLimit:         decimal.NewFromInt(1000),
					StatementClosingDay: 15,
					PaymentOffset:       20,
					SupportedCurrencies: []string{"EUR", "USD"},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validBankAccount()
			tt.mutate(&a)

			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

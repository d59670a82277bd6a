package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func testPeriod(userID uuid.UUID, start time.Time) core.Period {
	return core.Period{
		Entity:       core.NewEntity(start),
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, 30),
		Length:       core.Monthly,
		DayLength:    31,
		UserID:       userID,
		AmountSpent:  decimal.Zero,
		BudgetAmount: decimal.NewFromInt(1000),
	}
}

func TestPeriodRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()
			p := testPeriod(userID, now)
			if err := store.InsertPeriod(ctx, p); err != nil {
				t.Fatalf("InsertPeriod() error = %v", err)
			}

			got, err := store.Period(ctx, p.ID)
			if err != nil {
				t.Fatalf("Period() error = %v", err)
			}
			if !got.StartDate.Equal(p.StartDate) || got.Length != core.Monthly || got.DayLength != 31 {
				t.Errorf("Period() = %+v, want %+v", got, p)
			}
			if !got.BudgetAmount.Equal(p.BudgetAmount) {
				t.Errorf("BudgetAmount = %s, want %s", got.BudgetAmount, p.BudgetAmount)
			}

			got.AmountSpent = decimal.NewFromFloat(42.50)
			if err := store.UpdatePeriod(ctx, got); err != nil {
				t.Fatalf("UpdatePeriod() error = %v", err)
			}
			got, err = store.Period(ctx, p.ID)
			if err != nil {
				t.Fatalf("Period() after update error = %v", err)
			}
			if want := decimal.NewFromFloat(42.50); !got.AmountSpent.Equal(want) {
				t.Errorf("AmountSpent = %s, want %s", got.AmountSpent, want)
			}
		})
	}
}

func TestActivePeriodPicksLatest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()

			old := testPeriod(userID, now)
			old.IsActive = false
			current := testPeriod(userID, now.AddDate(0, 1, 0))
			other := testPeriod(uuid.New(), now.AddDate(0, 2, 0))

			for _, p := range []core.Period{old, current, other} {
				if err := store.InsertPeriod(ctx, p); err != nil {
					t.Fatalf("InsertPeriod() error = %v", err)
				}
			}

			got, err := store.ActivePeriod(ctx, userID)
			if err != nil {
				t.Fatalf("ActivePeriod() error = %v", err)
			}
			if got.ID != current.ID {
				t.Errorf("ActivePeriod() id = %s, want %s", got.ID, current.ID)
			}

			latest, err := store.LatestPeriod(ctx, userID)
			if err != nil {
				t.Fatalf("LatestPeriod() error = %v", err)
			}
			if latest.ID != current.ID {
				t.Errorf("LatestPeriod() id = %s, want %s", latest.ID, current.ID)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Period(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
				t.Errorf("Period() error = %v, want ErrNotFound", err)
			}
			if _, err := store.Account(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
				t.Errorf("Account() error = %v, want ErrNotFound", err)
			}
			if _, err := store.Effect(ctx, uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
				t.Errorf("Effect() error = %v, want ErrNotFound", err)
			}
			err := store.UpdateFolder(ctx, core.Folder{Entity: core.NewEntity(time.Now())})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("UpdateFolder() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestAccountVariantsRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()

			bank := core.Account{
				Entity:         core.NewEntity(now),
				Kind:           core.BankAccount,
				Name:           "Checking",
				CurrentBalance: decimal.NewFromInt(500),
				Currency:       "EUR",
				AccountNumber:  "1234",
				UserID:         userID,
				Bank:           &core.BankDetails{BankName: "Banca Sella"},
			}
			card := core.Account{
				Entity:         core.NewEntity(now),
				Kind:           core.CreditCard,
				Name:           "Travel card",
				CurrentBalance: decimal.NewFromInt(200),
				Currency:       "EUR",
				AccountNumber:  "9876",
				UserID:         userID,
				Card: &core.CardDetails{
					CreditLimit:         decimal.NewFromInt(2000),
					StatementClosingDay: 15,
					PaymentOffset:       10,
					SupportedCurrencies: []string{"EUR", "USD"},
				},
			}

			for _, a := range []core.Account{bank, card} {
				if err := store.InsertAccount(ctx, a); err != nil {
					t.Fatalf("InsertAccount() error = %v", err)
				}
			}

			gotBank, err := store.Account(ctx, bank.ID)
			if err != nil {
				t.Fatalf("Account(bank) error = %v", err)
			}
			if gotBank.Bank == nil || gotBank.Bank.BankName != "Banca Sella" {
				t.Errorf("bank details = %+v, want Banca Sella", gotBank.Bank)
			}
			if gotBank.Card != nil {
				t.Errorf("bank account has card details: %+v", gotBank.Card)
			}

			gotCard, err := store.Account(ctx, card.ID)
			if err != nil {
				t.Fatalf("Account(card) error = %v", err)
			}
			if gotCard.Card == nil {
				t.Fatal("card details missing")
			}
			if !gotCard.Card.CreditLimit.Equal(decimal.NewFromInt(2000)) {
				t.Errorf("CreditLimit = %s, want 2000", gotCard.Card.CreditLimit)
			}
			if gotCard.Card.StatementClosingDay != 15 || gotCard.Card.PaymentOffset != 10 {
				t.Errorf("card schedule = %d/%d, want 15/10",
					gotCard.Card.StatementClosingDay, gotCard.Card.PaymentOffset)
			}
			if len(gotCard.Card.SupportedCurrencies) != 2 || gotCard.Card.SupportedCurrencies[1] != "USD" {
				t.Errorf("SupportedCurrencies = %v, want [EUR USD]", gotCard.Card.SupportedCurrencies)
			}

			cards, err := store.UserAccounts(ctx, userID, core.CreditCard)
			if err != nil {
				t.Fatalf("UserAccounts(card) error = %v", err)
			}
			if len(cards) != 1 || cards[0].ID != card.ID {
				t.Errorf("UserAccounts(card) = %d accounts, want just the card", len(cards))
			}
			all, err := store.UserAccounts(ctx, userID, "")
			if err != nil {
				t.Fatalf("UserAccounts(all) error = %v", err)
			}
			if len(all) != 2 {
				t.Errorf("UserAccounts(all) = %d accounts, want 2", len(all))
			}
		})
	}
}

func TestTransactionsAndEffects(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			accountID := uuid.New()
			categoryID := uuid.New()

			income := core.Transaction{
				Entity:    core.NewEntity(now),
				Amount:    decimal.NewFromInt(100),
				Type:      core.Income,
				AccountID: accountID,
			}
			expense := core.Transaction{
				Entity:                core.NewEntity(now.Add(time.Minute)),
				Amount:                decimal.NewFromFloat(25.50),
				Type:                  core.Expense,
				AccountID:             accountID,
				CategoryID:            &categoryID,
				Note:                  "groceries",
				RequireCategoryReview: true,
			}
			for _, tr := range []core.Transaction{income, expense} {
				if err := store.InsertTransaction(ctx, tr); err != nil {
					t.Fatalf("InsertTransaction() error = %v", err)
				}
			}

			got, err := store.Transaction(ctx, income.ID)
			if err != nil {
				t.Fatalf("Transaction() error = %v", err)
			}
			if got.CategoryID != nil {
				t.Errorf("income CategoryID = %v, want nil", got.CategoryID)
			}

			list, err := store.AccountTransactions(ctx, accountID)
			if err != nil {
				t.Fatalf("AccountTransactions() error = %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("AccountTransactions() = %d, want 2", len(list))
			}
			if list[0].ID != income.ID {
				t.Errorf("AccountTransactions() not ordered by creation")
			}

			byCategory, err := store.CategoryTransactions(ctx, categoryID)
			if err != nil {
				t.Fatalf("CategoryTransactions() error = %v", err)
			}
			if len(byCategory) != 1 || byCategory[0].ID != expense.ID {
				t.Errorf("CategoryTransactions() = %d, want the expense", len(byCategory))
			}

			pending, err := store.PendingReviewCount(ctx, accountID)
			if err != nil {
				t.Fatalf("PendingReviewCount() error = %v", err)
			}
			if pending != 1 {
				t.Errorf("PendingReviewCount() = %d, want 1", pending)
			}

			effect := core.CategoryEffect{
				Entity:        core.NewEntity(now),
				TransactionID: expense.ID,
				CategoryID:    categoryID,
				Amount:        decimal.NewFromFloat(25.50),
			}
			if err := store.InsertEffect(ctx, effect); err != nil {
				t.Fatalf("InsertEffect() error = %v", err)
			}
			gotEffect, err := store.Effect(ctx, expense.ID, categoryID)
			if err != nil {
				t.Fatalf("Effect() error = %v", err)
			}
			if gotEffect.ConversionRate != nil {
				t.Errorf("ConversionRate = %v, want nil", gotEffect.ConversionRate)
			}

			rate := decimal.NewFromFloat(0.92)
			gotEffect.ConversionRate = &rate
			gotEffect.Amount = decimal.NewFromFloat(23.46)
			if err := store.UpdateEffect(ctx, gotEffect); err != nil {
				t.Fatalf("UpdateEffect() error = %v", err)
			}
			gotEffect, err = store.Effect(ctx, expense.ID, categoryID)
			if err != nil {
				t.Fatalf("Effect() after update error = %v", err)
			}
			if gotEffect.ConversionRate == nil || !gotEffect.ConversionRate.Equal(rate) {
				t.Errorf("ConversionRate = %v, want %s", gotEffect.ConversionRate, rate)
			}
		})
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	errBoom := errors.New("boom")
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := testPeriod(uuid.New(), now)
			err := store.InTx(ctx, func(tx Store) error {
				if err := tx.InsertPeriod(ctx, p); err != nil {
					return err
				}
				return errBoom
			})
			if !errors.Is(err, errBoom) {
				t.Fatalf("InTx() error = %v, want boom", err)
			}
			if _, err := store.Period(ctx, p.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Period() after rollback error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := testPeriod(uuid.New(), now)
			f := core.Folder{
				Entity:    core.NewEntity(now),
				GeneralID: uuid.New(),
				Name:      "Essentials",
				PeriodID:  p.ID,
				UserID:    p.UserID,
			}
			err := store.InTx(ctx, func(tx Store) error {
				if err := tx.InsertPeriod(ctx, p); err != nil {
					return err
				}
				return tx.InsertFolder(ctx, f)
			})
			if err != nil {
				t.Fatalf("InTx() error = %v", err)
			}
			folders, err := store.ActiveFolders(ctx, p.ID)
			if err != nil {
				t.Fatalf("ActiveFolders() error = %v", err)
			}
			if len(folders) != 1 || folders[0].Name != "Essentials" {
				t.Errorf("ActiveFolders() = %+v, want the committed folder", folders)
			}
		})
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// RateProvider supplies conversion rates between currencies.
type RateProvider interface {
	PairRate(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// AccountingService posts, reviews and deletes transactions. Every mutation
// runs in one store transaction so balances, category spend and effect rows
// never diverge.
type AccountingService struct {
	store  storage.Store
	rates  RateProvider
	logger *log.Logger
	now    func() time.Time
}

func NewAccountingService(store storage.Store, rates RateProvider, logger *log.Logger) *AccountingService {
	return &AccountingService{
		store:  store,
		rates:  rates,
		logger: logger.WithComponent(log.ComponentAccounting),
		now:    time.Now,
	}
}

// PostTransactionInput carries a transaction to record.
type PostTransactionInput struct {
	Amount     decimal.Decimal
	Type       core.TransactionType
	AccountID  uuid.UUID
	CategoryID *uuid.UUID
	Note       string
}

// InsightKind tags account insight messages.
type InsightKind string

const (
	InsightWarning InsightKind = "warning"
	InsightSuccess InsightKind = "success"
)

// Insight is a human-readable observation about an account's state.
type Insight struct {
	Kind    InsightKind `json:"kind"`
	Message string      `json:"message"`
}

// Post validates and records a transaction, applying its balance and category
// consequences.
func (s *AccountingService) Post(ctx context.Context, in PostTransactionInput) (core.Transaction, error) {
	if !in.Amount.IsPositive() {
		return core.Transaction{}, core.ValidationError("CreateTransaction.Amount",
			"amount must be greater than 0")
	}
	if !in.Type.Valid() {
		return core.Transaction{}, core.ValidationError("CreateTransaction.Type",
			fmt.Sprintf("unknown transaction type %q", in.Type))
	}
	if in.Type == core.Expense && in.CategoryID == nil {
		return core.Transaction{}, core.ValidationError("CreateTransaction.CategoryNotProvided",
			"expense transactions need a category")
	}

	var tx core.Transaction
	err := s.store.InTx(ctx, func(st storage.Store) error {
		account, err := st.Account(ctx, in.AccountID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("CreateTransaction.AccountNotFound",
				fmt.Sprintf("account with id %s not found", in.AccountID))
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if !account.IsActive {
			return core.BusinessError("CreateTransaction.InactiveAccount", "account is inactive")
		}

		now := s.now()
		tx = core.Transaction{
			Entity:     core.NewEntity(now),
			Amount:     in.Amount,
			Type:       in.Type,
			AccountID:  in.AccountID,
			CategoryID: in.CategoryID,
			Note:       in.Note,
		}

		switch in.Type {
		case core.Income:
			account.CurrentBalance = account.CurrentBalance.Add(in.Amount)
		case core.NotTrackable:
			account.CurrentBalance = account.CurrentBalance.Sub(in.Amount)
		case core.Expense:
			if err := s.postExpense(ctx, st, &tx, &account, now); err != nil {
				return err
			}
		}

		account.Touch(now)
		if err := st.UpdateAccount(ctx, account); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return st.InsertTransaction(ctx, tx)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "transaction posted",
		log.FieldOperation, log.OpCreate,
		log.FieldAccountID, in.AccountID,
		log.FieldAmount, in.Amount,
		"type", in.Type)
	return tx, nil
}

// postExpense deducts the account balance and either applies the category
// spend or, on a currency mismatch, defers it behind a review flag. Either
// way an effect row records what happened to the category.
func (s *AccountingService) postExpense(ctx context.Context, st storage.Store, tx *core.Transaction, account *core.Account, now time.Time) error {
	category, general, err := loadCategoryPair(ctx, st, *tx.CategoryID, "CreateTransaction")
	if err != nil {
		return err
	}
	if account.CurrentBalance.LessThan(tx.Amount) {
		return core.BusinessError("CreateTransaction.InsufficientFunds",
			"insufficient funds in account")
	}
	if general.TargetAmount.LessThan(tx.Amount) {
		return core.BusinessError("CreateTransaction.TargetAmountExceeded",
			"amount exceeds the target amount")
	}

	account.CurrentBalance = account.CurrentBalance.Sub(tx.Amount)

	effect := core.CategoryEffect{
		Entity:        core.NewEntity(now),
		TransactionID: tx.ID,
		CategoryID:    category.ID,
		Amount:        tx.Amount,
	}

	if general.Currency != account.Currency {
		tx.RequireCategoryReview = true
		return st.InsertEffect(ctx, effect)
	}

	category.AmountSpent = category.AmountSpent.Add(tx.Amount)
	category.RecomputeRemaining()
	category.Touch(now)
	if err := st.UpdateCategory(ctx, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	// Custom categories consume their cross-period target; fixed ones don't.
	if general.CategoryType == core.CustomType {
		general.TargetAmount = general.TargetAmount.Sub(tx.Amount)
		general.Touch(now)
		if err := st.UpdateGeneralCategory(ctx, general); err != nil {
			return fmt.Errorf("update general category: %w", err)
		}
	}

	return st.InsertEffect(ctx, effect)
}

// Review applies the deferred category impact of a currency-mismatched
// expense using the supplied exchange rate.
func (s *AccountingService) Review(ctx context.Context, transactionID uuid.UUID, rate decimal.Decimal) (core.Transaction, error) {
	if !rate.IsPositive() {
		return core.Transaction{}, core.ValidationError("ReviewCategoryOfTransaction.ExchangeRate",
			"exchange rate must be greater than 0")
	}

	var tx core.Transaction
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		tx, err = st.Transaction(ctx, transactionID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("ReviewCategoryOfTransaction.TransactionNotFound",
				fmt.Sprintf("transaction with id %s not found", transactionID))
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		// A soft-deleted expense already had its balance restored; applying
		// the category impact now would charge the category for money that
		// was never spent.
		if !tx.IsActive {
			return core.BusinessError("ReviewCategoryOfTransaction.AlreadyDeleted",
				fmt.Sprintf("transaction with id %s already deleted", transactionID))
		}
		if tx.CategoryID == nil {
			return core.BusinessError("ReviewCategoryOfTransaction.CategoryNotFound",
				"transaction has no category to review")
		}
		if !tx.RequireCategoryReview {
			return core.BusinessError("ReviewCategoryOfTransaction.TransactionAlreadyReviewed",
				fmt.Sprintf("transaction with id %s already reviewed", transactionID))
		}

		account, err := st.Account(ctx, tx.AccountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		category, general, err := loadCategoryPair(ctx, st, *tx.CategoryID, "ReviewCategoryOfTransaction")
		if err != nil {
			return err
		}
		if general.Currency == account.Currency {
			return core.BusinessError("ReviewCategoryOfTransaction.CurrencyMismatch",
				fmt.Sprintf("account currency %s and category currency %s are the same",
					account.Currency, general.Currency))
		}

		effect, err := st.Effect(ctx, tx.ID, category.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.IntegrityError("ReviewCategoryOfTransaction.EffectNotFound",
				fmt.Sprintf("effect for transaction %s and category %s not found", tx.ID, category.ID))
		}
		if err != nil {
			return fmt.Errorf("load effect: %w", err)
		}

		now := s.now()
		categoryAmount := tx.Amount.Mul(rate)

		category.AmountSpent = category.AmountSpent.Add(categoryAmount)
		category.RecomputeRemaining()
		category.Touch(now)
		if err := st.UpdateCategory(ctx, category); err != nil {
			return fmt.Errorf("update category: %w", err)
		}

		if general.CategoryType == core.CustomType {
			general.TargetAmount = general.TargetAmount.Sub(categoryAmount)
			general.Touch(now)
			if err := st.UpdateGeneralCategory(ctx, general); err != nil {
				return fmt.Errorf("update general category: %w", err)
			}
		}

		effect.Amount = categoryAmount
		effect.ConversionRate = &rate
		effect.Touch(now)
		if err := st.UpdateEffect(ctx, effect); err != nil {
			return fmt.Errorf("update effect: %w", err)
		}

		tx.RequireCategoryReview = false
		tx.Touch(now)
		return st.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "transaction reviewed",
		log.FieldOperation, log.OpReview, "transaction_id", transactionID, "rate", rate)
	return tx, nil
}

// Delete reverses a transaction's consequences and soft-deletes it. Expense
// reversal uses the effect row, not the face amount, so reviewed
// cross-currency expenses restore exactly what they took.
func (s *AccountingService) Delete(ctx context.Context, transactionID uuid.UUID) error {
	err := s.store.InTx(ctx, func(st storage.Store) error {
		tx, err := st.Transaction(ctx, transactionID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("DeleteTransaction.TransactionNotFound",
				fmt.Sprintf("transaction with id %s not found", transactionID))
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		if !tx.IsActive {
			return core.BusinessError("DeleteTransaction.AlreadyDeleted",
				fmt.Sprintf("transaction with id %s already deleted", transactionID))
		}

		account, err := st.Account(ctx, tx.AccountID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("DeleteTransaction.AccountNotFound",
				fmt.Sprintf("account with id %s not found", tx.AccountID))
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		now := s.now()
		switch tx.Type {
		case core.Income:
			account.CurrentBalance = account.CurrentBalance.Sub(tx.Amount)
		case core.NotTrackable:
			account.CurrentBalance = account.CurrentBalance.Add(tx.Amount)
		case core.Expense:
			if err := s.deleteExpense(ctx, st, tx, &account, now); err != nil {
				return err
			}
		default:
			return core.IntegrityError("DeleteTransaction.UnknownTransactionType",
				fmt.Sprintf("unknown transaction type %q", tx.Type))
		}

		account.Touch(now)
		if err := st.UpdateAccount(ctx, account); err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		tx.IsActive = false
		tx.Touch(now)
		return st.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "transaction deleted",
		log.FieldOperation, log.OpDelete, "transaction_id", transactionID)
	return nil
}

func (s *AccountingService) deleteExpense(ctx context.Context, st storage.Store, tx core.Transaction, account *core.Account, now time.Time) error {
	if tx.CategoryID == nil {
		return core.IntegrityError("DeleteTransaction.CategoryNotFound",
			fmt.Sprintf("expense transaction %s has no category", tx.ID))
	}
	category, general, err := loadCategoryPair(ctx, st, *tx.CategoryID, "DeleteTransaction")
	if err != nil {
		return err
	}

	effect, err := st.Effect(ctx, tx.ID, category.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.IntegrityError("DeleteTransaction.EffectNotFound",
			fmt.Sprintf("effect for transaction %s and category %s not found", tx.ID, category.ID))
	}
	if err != nil {
		return fmt.Errorf("load effect: %w", err)
	}

	// The effect amount is in the category's currency. Converting back with
	// the stored rate restores the exact account-currency amount deducted.
	if effect.ConversionRate != nil {
		account.CurrentBalance = account.CurrentBalance.Add(effect.Amount.Div(*effect.ConversionRate))
	} else {
		account.CurrentBalance = account.CurrentBalance.Add(effect.Amount)
	}

	// A still-unreviewed mismatch never touched the category, so there is
	// nothing to restore there.
	if tx.RequireCategoryReview {
		return nil
	}

	category.AmountSpent = category.AmountSpent.Sub(effect.Amount)
	category.RecomputeRemaining()
	category.Touch(now)
	if err := st.UpdateCategory(ctx, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	if general.CategoryType == core.CustomType {
		general.TargetAmount = general.TargetAmount.Add(effect.Amount)
		general.Touch(now)
		if err := st.UpdateGeneralCategory(ctx, general); err != nil {
			return fmt.Errorf("update general category: %w", err)
		}
	}
	return nil
}

// RecommendedRate looks up the provider rate from the transaction's account
// currency to its category currency.
func (s *AccountingService) RecommendedRate(ctx context.Context, transactionID uuid.UUID) (decimal.Decimal, error) {
	tx, err := s.store.Transaction(ctx, transactionID)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, core.NotFoundError("GetRecommendedExchangeRate.TransactionNotFound",
			fmt.Sprintf("transaction with id %s not found", transactionID))
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load transaction: %w", err)
	}
	if tx.CategoryID == nil {
		return decimal.Zero, core.BusinessError("GetRecommendedExchangeRate.CategoryNotFound",
			"transaction has no category")
	}

	account, err := s.store.Account(ctx, tx.AccountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load account: %w", err)
	}
	_, general, err := loadCategoryPair(ctx, s.store, *tx.CategoryID, "GetRecommendedExchangeRate")
	if err != nil {
		return decimal.Zero, err
	}

	return s.rates.PairRate(ctx, account.Currency, general.Currency)
}

// AccountInsights reports whether an account has transactions waiting for a
// category review.
func (s *AccountingService) AccountInsights(ctx context.Context, accountID uuid.UUID) ([]Insight, error) {
	if _, err := s.store.Account(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.NotFoundError("GetAccountInsights.AccountNotFound",
				fmt.Sprintf("account with id %s not found", accountID))
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	pending, err := s.store.PendingReviewCount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("count pending reviews: %w", err)
	}

	if pending > 0 {
		return []Insight{{
			Kind:    InsightWarning,
			Message: fmt.Sprintf("%d transactions need a category review", pending),
		}}, nil
	}
	return []Insight{{
		Kind:    InsightSuccess,
		Message: "all transactions are categorized",
	}}, nil
}

// AccountTransactions lists the active transactions of an account.
func (s *AccountingService) AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	if _, err := s.store.Account(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.NotFoundError("GetAccountTransactions.AccountNotFound",
				fmt.Sprintf("account with id %s not found", accountID))
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return s.store.AccountTransactions(ctx, accountID)
}

// CategoryTransactions lists the active transactions of a category.
func (s *AccountingService) CategoryTransactions(ctx context.Context, categoryID uuid.UUID) ([]core.Transaction, error) {
	if _, err := s.store.Category(ctx, categoryID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.NotFoundError("GetCategoryTransactions.CategoryNotFound",
				fmt.Sprintf("category with id %s not found", categoryID))
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	return s.store.CategoryTransactions(ctx, categoryID)
}

// loadCategoryPair loads a category together with its general category.
// A missing general category for an existing category is a data bug.
func loadCategoryPair(ctx context.Context, st storage.Store, categoryID uuid.UUID, op string) (core.Category, core.GeneralCategory, error) {
	category, err := st.Category(ctx, categoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Category{}, core.GeneralCategory{}, core.NotFoundError(op+".CategoryNotFound",
			fmt.Sprintf("category with id %s not found", categoryID))
	}
	if err != nil {
		return core.Category{}, core.GeneralCategory{}, fmt.Errorf("load category: %w", err)
	}

	general, err := st.GeneralCategory(ctx, category.GeneralCategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Category{}, core.GeneralCategory{}, core.IntegrityError(op+".GeneralCategoryNotFound",
			fmt.Sprintf("general category for category %s not found", categoryID))
	}
	if err != nil {
		return core.Category{}, core.GeneralCategory{}, fmt.Errorf("load general category: %w", err)
	}
	return category, general, nil
}

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

// AccountService manages bank accounts and credit cards.
type AccountService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewAccountService(store storage.Store, logger *log.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger.WithComponent(log.ComponentAccounts),
		now:    time.Now,
	}
}

// CreateBankAccountInput carries a new bank account request.
type CreateBankAccountInput struct {
	UserID         uuid.UUID
	Name           string
	BankName       string
	CurrentBalance decimal.Decimal
	Currency       string
	AccountNumber  string
	Notes          string
}

// CreateCreditCardInput carries a new credit card request.
type CreateCreditCardInput struct {
	UserID              uuid.UUID
	Name                string
	CurrentBalance      decimal.Decimal
	Currency            string
	AccountNumber       string
	Notes               string
	CreditLimit         decimal.Decimal
	StatementClosingDay int
	PaymentOffset       int
	SupportedCurrencies []string
}

// CreateBankAccount records a new bank account.
func (s *AccountService) CreateBankAccount(ctx context.Context, in CreateBankAccountInput) (core.Account, error) {
	account := core.Account{
		Entity:         core.NewEntity(s.now()),
		Kind:           core.BankAccount,
		Name:           in.Name,
		CurrentBalance: in.CurrentBalance,
		Currency:       in.Currency,
		AccountNumber:  in.AccountNumber,
		Notes:          in.Notes,
		UserID:         in.UserID,
		Bank:           &core.BankDetails{BankName: in.BankName},
	}
	return s.create(ctx, account)
}

// CreateCreditCard records a new credit card.
func (s *AccountService) CreateCreditCard(ctx context.Context, in CreateCreditCardInput) (core.Account, error) {
	account := core.Account{
		Entity:         core.NewEntity(s.now()),
		Kind:           core.CreditCard,
		Name:           in.Name,
		CurrentBalance: in.CurrentBalance,
		Currency:       in.Currency,
		AccountNumber:  in.AccountNumber,
		Notes:          in.Notes,
		UserID:         in.UserID,
		Card: &core.CardDetails{
			CreditLimit:         in.CreditLimit,
			StatementClosingDay: in.StatementClosingDay,
			PaymentOffset:       in.PaymentOffset,
			SupportedCurrencies: in.SupportedCurrencies,
		},
	}
	return s.create(ctx, account)
}

func (s *AccountService) create(ctx context.Context, account core.Account) (core.Account, error) {
	if err := account.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.InsertAccount(ctx, account); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	s.logger.InfoContext(ctx, "account created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, account.UserID,
		log.FieldAccountID, account.ID,
		"kind", account.Kind)
	return account, nil
}

// Get returns one account by id.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (core.Account, error) {
	account, err := s.store.Account(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Account{}, core.NotFoundError("GetAccount.NotFound", "account not found")
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

// List returns the user's accounts, optionally filtered by kind. An empty
// kind means all kinds.
func (s *AccountService) List(ctx context.Context, userID uuid.UUID, kind core.AccountKind) ([]core.Account, error) {
	if kind != "" && kind != core.BankAccount && kind != core.CreditCard {
		return nil, core.ValidationError("GetUserAccounts.Kind",
			fmt.Sprintf("unknown account kind %q", kind))
	}
	return s.store.UserAccounts(ctx, userID, kind)
}

// UpdateBankAccountInput carries updated bank account fields.
type UpdateBankAccountInput struct {
	ID            uuid.UUID
	Name          string
	BankName      string
	AccountNumber string
	Notes         string
}

// UpdateBankAccount updates a bank account's descriptive fields. The balance
// only moves through transactions.
func (s *AccountService) UpdateBankAccount(ctx context.Context, in UpdateBankAccountInput) (core.Account, error) {
	var account core.Account
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		account, err = st.Account(ctx, in.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("UpdateBankAccount.NotFound", "account not found")
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if account.Kind != core.BankAccount {
			return core.BusinessError("UpdateBankAccount.WrongKind",
				"account is not a bank account")
		}

		account.Name = in.Name
		account.AccountNumber = in.AccountNumber
		account.Notes = in.Notes
		account.Bank = &core.BankDetails{BankName: in.BankName}
		if err := account.Validate(); err != nil {
			return err
		}
		account.Touch(s.now())
		return st.UpdateAccount(ctx, account)
	})
	if err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// Delete soft-deletes an account. Its transactions stay readable.
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) (core.Account, error) {
	var account core.Account
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		account, err = st.Account(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("DeleteAccount.NotFound", "account not found")
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		account.IsActive = false
		account.Touch(s.now())
		return st.UpdateAccount(ctx, account)
	})
	if err != nil {
		return core.Account{}, err
	}

	s.logger.InfoContext(ctx, "account deleted",
		log.FieldOperation, log.OpDelete, log.FieldAccountID, id)
	return account, nil
}

// Package storage persists the budgeting entity graph. Two backends exist:
// a SQLite repository for real deployments and an in-memory store used as
// the default backend and as the services' test double.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// ErrNotFound is returned by lookups when no row matches. Services translate
// it into a user-facing not-found failure.
var ErrNotFound = errors.New("storage: not found")

// Store exposes the query and update operations the engines need, plus an
// atomic unit of work. Every accounting or rollover operation runs inside a
// single InTx call; a returned error rolls the whole unit back.
type Store interface {
	Period(ctx context.Context, id uuid.UUID) (core.Period, error)
	// ActivePeriod returns the user's active period with the latest end
	// date.
	ActivePeriod(ctx context.Context, userID uuid.UUID) (core.Period, error)
	// LatestPeriod returns the user's most recent period by end date,
	// active or not.
	LatestPeriod(ctx context.Context, userID uuid.UUID) (core.Period, error)
	InsertPeriod(ctx context.Context, p core.Period) error
	UpdatePeriod(ctx context.Context, p core.Period) error

	Folder(ctx context.Context, id uuid.UUID) (core.Folder, error)
	// ActiveFolders lists the active folders of one period.
	ActiveFolders(ctx context.Context, periodID uuid.UUID) ([]core.Folder, error)
	// UserFolders lists a user's active folders across all periods.
	UserFolders(ctx context.Context, userID uuid.UUID) ([]core.Folder, error)
	InsertFolder(ctx context.Context, f core.Folder) error
	UpdateFolder(ctx context.Context, f core.Folder) error

	Category(ctx context.Context, id uuid.UUID) (core.Category, error)
	// ActiveCategories lists the active categories of one folder.
	ActiveCategories(ctx context.Context, folderID uuid.UUID) ([]core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) error
	UpdateCategory(ctx context.Context, c core.Category) error

	GeneralCategory(ctx context.Context, id uuid.UUID) (core.GeneralCategory, error)
	InsertGeneralCategory(ctx context.Context, g core.GeneralCategory) error
	UpdateGeneralCategory(ctx context.Context, g core.GeneralCategory) error

	Account(ctx context.Context, id uuid.UUID) (core.Account, error)
	// UserAccounts lists a user's accounts, optionally filtered by kind
	// (empty kind means all).
	UserAccounts(ctx context.Context, userID uuid.UUID, kind core.AccountKind) ([]core.Account, error)
	InsertAccount(ctx context.Context, a core.Account) error
	UpdateAccount(ctx context.Context, a core.Account) error

	Transaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error)
	CategoryTransactions(ctx context.Context, categoryID uuid.UUID) ([]core.Transaction, error)
	// PendingReviewCount counts active transactions of an account still
	// waiting for a currency review.
	PendingReviewCount(ctx context.Context, accountID uuid.UUID) (int, error)
	InsertTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error

	// Effect returns the effect row linking a transaction to a category.
	Effect(ctx context.Context, transactionID, categoryID uuid.UUID) (core.CategoryEffect, error)
	InsertEffect(ctx context.Context, e core.CategoryEffect) error
	UpdateEffect(ctx context.Context, e core.CategoryEffect) error

	// InTx runs fn against a transactional view of the store. All writes
	// performed through the view commit together or not at all.
	InTx(ctx context.Context, fn func(Store) error) error
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// CategoryService manages categories and their cross-period general
// categories.
type CategoryService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewCategoryService(store storage.Store, logger *log.Logger) *CategoryService {
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent(log.ComponentCategories),
		now:    time.Now,
	}
}

// CreateCategoryInput carries a new category request. TargetAmount is only
// read for custom categories without a final date; everywhere else the
// per-period target is derived.
type CreateCategoryInput struct {
	UserID              uuid.UUID
	FolderID            uuid.UUID
	Name                string
	Currency            string
	CategoryType        core.CategoryType
	FinalDate           *time.Time
	GeneralTargetAmount decimal.Decimal
	TargetAmount        decimal.Decimal
}

// Create opens a general category and materializes it as a category in the
// given folder, with the per-period target derived from the active period.
func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (core.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return core.Category{}, core.ValidationError("CreateCategory.Name", "name is required")
	}
	if strings.TrimSpace(in.Currency) == "" {
		return core.Category{}, core.ValidationError("CreateCategory.Currency", "currency is required")
	}
	if !in.CategoryType.Valid() {
		return core.Category{}, core.ValidationError("CreateCategory.CategoryType",
			fmt.Sprintf("unknown category type %q", in.CategoryType))
	}
	if !in.GeneralTargetAmount.IsPositive() {
		return core.Category{}, core.ValidationError("CreateCategory.GeneralTargetAmount",
			"general target amount must be greater than 0")
	}

	var category core.Category
	err := s.store.InTx(ctx, func(st storage.Store) error {
		folder, err := st.Folder(ctx, in.FolderID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("CreateCategory.FolderNotFound", "folder not found")
		}
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}
		if folder.UserID != in.UserID {
			return core.NotFoundError("CreateCategory.FolderNotFound", "folder not found")
		}

		period, err := st.ActivePeriod(ctx, in.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("CreateCategory.ActivePeriodNotFound",
				"active period not found")
		}
		if err != nil {
			return fmt.Errorf("load active period: %w", err)
		}

		now := s.now()
		general := core.GeneralCategory{
			Entity:       core.NewEntity(now),
			TargetAmount: in.GeneralTargetAmount,
			CategoryType: in.CategoryType,
			FinalDate:    in.FinalDate,
			Currency:     in.Currency,
			UserID:       in.UserID,
		}

		target, err := core.PeriodTarget(in.CategoryType, general.TargetAmount,
			general.FinalDate, period.DayLength, in.TargetAmount, now)
		if err != nil {
			return err
		}

		if err := st.InsertGeneralCategory(ctx, general); err != nil {
			return fmt.Errorf("insert general category: %w", err)
		}

		category = core.Category{
			Entity:            core.NewEntity(now),
			GeneralID:         uuid.New(),
			Name:              in.Name,
			FolderID:          folder.ID,
			GeneralCategoryID: general.ID,
			TargetAmount:      target,
			BudgetAmount:      decimal.Zero,
			AmountSpent:       decimal.Zero,
		}
		category.RecomputeRemaining()
		return st.InsertCategory(ctx, category)
	})
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "category created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, in.UserID,
		"category_id", category.ID,
		"type", in.CategoryType)
	return category, nil
}

// Get returns one category by id.
func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (core.Category, error) {
	category, err := s.store.Category(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Category{}, core.NotFoundError("GetCategory.NotFound", "category not found")
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("load category: %w", err)
	}
	return category, nil
}

// List returns the active categories of a folder.
func (s *CategoryService) List(ctx context.Context, folderID uuid.UUID) ([]core.Category, error) {
	return s.store.ActiveCategories(ctx, folderID)
}

// Update renames a category and adjusts its informational budget amount.
// Spend and targets are only moved by transactions.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, name string, budgetAmount decimal.Decimal) (core.Category, error) {
	if strings.TrimSpace(name) == "" {
		return core.Category{}, core.ValidationError("UpdateCategory.Name", "name is required")
	}
	if budgetAmount.IsNegative() {
		return core.Category{}, core.ValidationError("UpdateCategory.BudgetAmount",
			"budget amount cannot be negative")
	}

	var category core.Category
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		category, err = st.Category(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("UpdateCategory.NotFound", "category not found")
		}
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}

		category.Name = name
		category.BudgetAmount = budgetAmount
		category.RecomputeRemaining()
		category.Touch(s.now())
		return st.UpdateCategory(ctx, category)
	})
	if err != nil {
		return core.Category{}, err
	}
	return category, nil
}

// UpdateGeneralTarget sets a new cross-period target on the category's
// general category and re-derives the per-period target from scratch.
func (s *CategoryService) UpdateGeneralTarget(ctx context.Context, categoryID uuid.UUID, newTarget decimal.Decimal) (core.Category, error) {
	if !newTarget.IsPositive() {
		return core.Category{}, core.ValidationError("UpdateGeneralTarget.TargetAmount",
			"target amount must be greater than 0")
	}

	var category core.Category
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		category, err = st.Category(ctx, categoryID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("UpdateGeneralTarget.CategoryNotFound", "category not found")
		}
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}

		general, err := st.GeneralCategory(ctx, category.GeneralCategoryID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.IntegrityError("UpdateGeneralTarget.GeneralCategoryNotFound",
				fmt.Sprintf("general category for category %s not found", categoryID))
		}
		if err != nil {
			return fmt.Errorf("load general category: %w", err)
		}

		folder, err := st.Folder(ctx, category.FolderID)
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}
		period, err := st.Period(ctx, folder.PeriodID)
		if err != nil {
			return fmt.Errorf("load period: %w", err)
		}

		now := s.now()
		general.TargetAmount = newTarget
		general.Touch(now)
		if err := st.UpdateGeneralCategory(ctx, general); err != nil {
			return fmt.Errorf("update general category: %w", err)
		}

		target, err := core.PeriodTarget(general.CategoryType, general.TargetAmount,
			general.FinalDate, period.DayLength, category.TargetAmount, now)
		if err != nil {
			return err
		}

		category.TargetAmount = target
		category.RecomputeRemaining()
		category.Touch(now)
		return st.UpdateCategory(ctx, category)
	})
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "general target updated",
		log.FieldOperation, log.OpUpdate,
		"category_id", categoryID,
		log.FieldAmount, newTarget)
	return category, nil
}

// Delete soft-deletes a category. Its transactions keep their effect rows so
// deleting them later still reverses correctly.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) (core.Category, error) {
	var category core.Category
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		category, err = st.Category(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("DeleteCategory.NotFound", "category not found")
		}
		if err != nil {
			return fmt.Errorf("load category: %w", err)
		}

		category.IsActive = false
		category.Touch(s.now())
		return st.UpdateCategory(ctx, category)
	})
	if err != nil {
		return core.Category{}, err
	}
	return category, nil
}

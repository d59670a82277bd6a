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

// PeriodService creates budgeting periods and rolls them over.
type PeriodService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewPeriodService(store storage.Store, logger *log.Logger) *PeriodService {
	return &PeriodService{
		store:  store,
		logger: logger.WithComponent(log.ComponentPeriods),
		now:    time.Now,
	}
}

// CreatePeriodInput carries a new period request. DayLength is only read for
// custom periods.
type CreatePeriodInput struct {
	StartDate time.Time
	Length    core.PeriodLength
	DayLength int
	UserID    uuid.UUID
}

// Create opens a new period. The start date may lie in the past as long as
// the resulting window has not fully elapsed.
func (s *PeriodService) Create(ctx context.Context, in CreatePeriodInput) (core.Period, error) {
	if in.UserID == uuid.Nil {
		return core.Period{}, core.ValidationError("CreatePeriod.UserID", "user id is required")
	}
	if !in.Length.Valid() {
		return core.Period{}, core.ValidationError("CreatePeriod.Length",
			fmt.Sprintf("unknown period length %q", in.Length))
	}
	if in.Length == core.Custom && in.DayLength <= 0 {
		return core.Period{}, core.ValidationError("CreatePeriod.DayLength",
			"custom periods need a day length greater than 0")
	}

	now := s.now()
	days := core.DayLength(in.Length, in.StartDate, in.DayLength)
	if now.After(in.StartDate.AddDate(0, 0, days)) {
		return core.Period{}, core.ValidationError("CreatePeriod.StartDate",
			"period would already be over")
	}

	period := core.NewPeriod(in.StartDate, in.Length, in.DayLength, in.UserID, now)
	if err := s.store.InsertPeriod(ctx, period); err != nil {
		return core.Period{}, fmt.Errorf("insert period: %w", err)
	}

	s.logger.InfoContext(ctx, "period created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, in.UserID,
		log.FieldPeriodID, period.ID,
		"length", in.Length)
	return period, nil
}

// Active returns the user's current active period. When none exists the
// error mentions the last known period, so the caller can tell "never
// started" apart from "rolled over and closed".
func (s *PeriodService) Active(ctx context.Context, userID uuid.UUID) (core.Period, error) {
	period, err := s.store.ActivePeriod(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		if last, lastErr := s.store.LatestPeriod(ctx, userID); lastErr == nil {
			return core.Period{}, core.NotFoundError("GetUserActivePeriod.NotFound",
				fmt.Sprintf("no active period found, the last one ended on %s",
					last.EndDate.Format("2006-01-02")))
		}
		return core.Period{}, core.NotFoundError("GetUserActivePeriod.NotFound",
			"no active period found")
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("load active period: %w", err)
	}
	return period, nil
}

// ValidateActive checks that the user's active period is still inside its
// window. An expired period means the user has to roll over before recording
// anything new.
func (s *PeriodService) ValidateActive(ctx context.Context, userID uuid.UUID) error {
	period, err := s.Active(ctx, userID)
	if err != nil {
		return err
	}
	if period.Expired(s.now()) {
		return core.BusinessError("ValidatePeriod.Expired",
			"active period has ended, clone it to start the next one")
	}
	return nil
}

// Clone rolls the user's active period over into the next window: active
// folders and categories are replicated with fresh ids, spend is reset,
// custom general targets are consumed by what was spent, and the outgoing
// period and its contents are deactivated. All of it commits atomically.
func (s *PeriodService) Clone(ctx context.Context, userID uuid.UUID) (core.Period, error) {
	if userID == uuid.Nil {
		return core.Period{}, core.ValidationError("ClonePeriod.UserID", "user id is required")
	}

	var newPeriod core.Period
	err := s.store.InTx(ctx, func(st storage.Store) error {
		current, err := st.ActivePeriod(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("ClonePeriod.NotFound", "no active period found")
		}
		if err != nil {
			return fmt.Errorf("load active period: %w", err)
		}

		now := s.now()
		newPeriod = core.NewPeriod(current.EndDate.AddDate(0, 0, 1), current.Length,
			current.DayLength, current.UserID, now)
		if err := st.InsertPeriod(ctx, newPeriod); err != nil {
			return fmt.Errorf("insert period: %w", err)
		}

		folders, err := st.ActiveFolders(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("load folders: %w", err)
		}
		for _, folder := range folders {
			if err := s.cloneFolder(ctx, st, folder, newPeriod, now); err != nil {
				return err
			}
		}

		current.IsActive = false
		current.Touch(now)
		if err := st.UpdatePeriod(ctx, current); err != nil {
			return fmt.Errorf("deactivate period: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Period{}, err
	}

	s.logger.InfoContext(ctx, "period cloned",
		log.FieldOperation, log.OpClone,
		log.FieldUserID, userID,
		log.FieldPeriodID, newPeriod.ID)
	return newPeriod, nil
}

func (s *PeriodService) cloneFolder(ctx context.Context, st storage.Store, folder core.Folder, newPeriod core.Period, now time.Time) error {
	newFolder := core.Folder{
		Entity:    core.NewEntity(now),
		GeneralID: folder.GeneralID,
		Name:      folder.Name,
		PeriodID:  newPeriod.ID,
		UserID:    newPeriod.UserID,
	}
	if err := st.InsertFolder(ctx, newFolder); err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}

	categories, err := st.ActiveCategories(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	for _, category := range categories {
		if err := s.cloneCategory(ctx, st, category, newFolder, now); err != nil {
			return err
		}
	}

	// Keep exactly one active folder per general id.
	folder.IsActive = false
	folder.Touch(now)
	if err := st.UpdateFolder(ctx, folder); err != nil {
		return fmt.Errorf("deactivate folder: %w", err)
	}
	return nil
}

func (s *PeriodService) cloneCategory(ctx context.Context, st storage.Store, category core.Category, newFolder core.Folder, now time.Time) error {
	general, err := st.GeneralCategory(ctx, category.GeneralCategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		// Aborting the whole clone beats carrying a category that can no
		// longer be budgeted.
		return core.IntegrityError("ClonePeriod.GeneralCategoryNotFound",
			fmt.Sprintf("general category for category %s not found", category.ID))
	}
	if err != nil {
		return fmt.Errorf("load general category: %w", err)
	}

	general.TargetAmount = general.TargetAmount.Sub(category.AmountSpent)
	general.Touch(now)
	if err := st.UpdateGeneralCategory(ctx, general); err != nil {
		return fmt.Errorf("update general category: %w", err)
	}

	newCategory := core.Category{
		Entity:            core.NewEntity(now),
		GeneralID:         category.GeneralID,
		Name:              category.Name,
		FolderID:          newFolder.ID,
		GeneralCategoryID: category.GeneralCategoryID,
		TargetAmount:      category.TargetAmount,
		BudgetAmount:      decimal.Zero,
		AmountSpent:       decimal.Zero,
	}
	newCategory.RecomputeRemaining()
	if err := st.InsertCategory(ctx, newCategory); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	category.IsActive = false
	category.Touch(now)
	if err := st.UpdateCategory(ctx, category); err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// FolderService manages the folders that group categories inside a period.
type FolderService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewFolderService(store storage.Store, logger *log.Logger) *FolderService {
	return &FolderService{
		store:  store,
		logger: logger.WithComponent(log.ComponentFolders),
		now:    time.Now,
	}
}

// Create opens a folder in the user's active period.
func (s *FolderService) Create(ctx context.Context, userID uuid.UUID, name string) (core.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return core.Folder{}, core.ValidationError("CreateFolder.Name", "name is required")
	}
	if userID == uuid.Nil {
		return core.Folder{}, core.ValidationError("CreateFolder.UserID", "user id is required")
	}

	period, err := s.store.ActivePeriod(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Folder{}, core.NotFoundError("CreateFolder.Period",
			"no active period found for the user")
	}
	if err != nil {
		return core.Folder{}, fmt.Errorf("load active period: %w", err)
	}

	folder := core.Folder{
		Entity:    core.NewEntity(s.now()),
		GeneralID: uuid.New(),
		Name:      name,
		PeriodID:  period.ID,
		UserID:    userID,
	}
	if err := s.store.InsertFolder(ctx, folder); err != nil {
		return core.Folder{}, fmt.Errorf("insert folder: %w", err)
	}

	s.logger.InfoContext(ctx, "folder created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, userID,
		log.FieldPeriodID, period.ID)
	return folder, nil
}

// List returns the user's active folders.
func (s *FolderService) List(ctx context.Context, userID uuid.UUID) ([]core.Folder, error) {
	return s.store.UserFolders(ctx, userID)
}

// Update renames a folder.
func (s *FolderService) Update(ctx context.Context, id uuid.UUID, name string) (core.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return core.Folder{}, core.ValidationError("UpdateFolder.Name", "name is required")
	}

	var folder core.Folder
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		folder, err = st.Folder(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("UpdateFolder.NotFound", "folder not found")
		}
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}

		folder.Name = name
		folder.Touch(s.now())
		return st.UpdateFolder(ctx, folder)
	})
	if err != nil {
		return core.Folder{}, err
	}
	return folder, nil
}

// Delete soft-deletes a folder and its active categories.
func (s *FolderService) Delete(ctx context.Context, id uuid.UUID) (core.Folder, error) {
	var folder core.Folder
	err := s.store.InTx(ctx, func(st storage.Store) error {
		var err error
		folder, err = st.Folder(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.NotFoundError("DeleteFolder.NotFound", "folder not found")
		}
		if err != nil {
			return fmt.Errorf("load folder: %w", err)
		}

		now := s.now()
		categories, err := st.ActiveCategories(ctx, folder.ID)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		for _, category := range categories {
			category.IsActive = false
			category.Touch(now)
			if err := st.UpdateCategory(ctx, category); err != nil {
				return fmt.Errorf("deactivate category: %w", err)
			}
		}

		folder.IsActive = false
		folder.Touch(now)
		return st.UpdateFolder(ctx, folder)
	})
	if err != nil {
		return core.Folder{}, err
	}

	s.logger.InfoContext(ctx, "folder deleted",
		log.FieldOperation, log.OpDelete, "folder_id", id)
	return folder, nil
}

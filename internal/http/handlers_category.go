package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type categoryResponse struct {
	ID                uuid.UUID       `json:"id"`
	GeneralID         uuid.UUID       `json:"general_id"`
	Name              string          `json:"name"`
	FolderID          uuid.UUID       `json:"folder_id"`
	GeneralCategoryID uuid.UUID       `json:"general_category_id"`
	TargetAmount      decimal.Decimal `json:"target_amount"`
	BudgetAmount      decimal.Decimal `json:"budget_amount"`
	AmountSpent       decimal.Decimal `json:"amount_spent"`
	AmountRemaining   decimal.Decimal `json:"amount_remaining"`
	IsActive          bool            `json:"is_active"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:                c.ID,
		GeneralID:         c.GeneralID,
		Name:              c.Name,
		FolderID:          c.FolderID,
		GeneralCategoryID: c.GeneralCategoryID,
		TargetAmount:      c.TargetAmount,
		BudgetAmount:      c.BudgetAmount,
		AmountSpent:       c.AmountSpent,
		AmountRemaining:   c.AmountRemaining,
		IsActive:          c.IsActive,
	}
}

type createCategoryRequest struct {
	UserID              uuid.UUID         `json:"user_id"`
	FolderID            uuid.UUID         `json:"folder_id"`
	Name                string            `json:"name"`
	Currency            string            `json:"currency"`
	CategoryType        core.CategoryType `json:"category_type"`
	FinalDate           *time.Time        `json:"final_date"`
	GeneralTargetAmount decimal.Decimal   `json:"general_target_amount"`
	TargetAmount        decimal.Decimal   `json:"target_amount"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.deps.Categories.Create(r.Context(), services.CreateCategoryInput{
		UserID:              req.UserID,
		FolderID:            req.FolderID,
		Name:                req.Name,
		Currency:            req.Currency,
		CategoryType:        req.CategoryType,
		FinalDate:           req.FinalDate,
		GeneralTargetAmount: req.GeneralTargetAmount,
		TargetAmount:        req.TargetAmount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toCategoryResponse(category))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.deps.Categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	categories, err := s.deps.Categories.List(r.Context(), folderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	writeValue(w, http.StatusOK, out)
}

type updateCategoryRequest struct {
	Name         string          `json:"name"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.deps.Categories.Update(r.Context(), id, req.Name, req.BudgetAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toCategoryResponse(category))
}

type updateGeneralTargetRequest struct {
	TargetAmount decimal.Decimal `json:"target_amount"`
}

func (s *Server) handleUpdateGeneralTarget(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateGeneralTargetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.deps.Categories.UpdateGeneralTarget(r.Context(), id, req.TargetAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.deps.Categories.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toCategoryResponse(category))
}

package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type periodResponse struct {
	ID        uuid.UUID         `json:"id"`
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Length    core.PeriodLength `json:"length"`
	DayLength int               `json:"day_length"`
	UserID    uuid.UUID         `json:"user_id"`
	IsActive  bool              `json:"is_active"`
}

func toPeriodResponse(p core.Period) periodResponse {
	return periodResponse{
		ID:        p.ID,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Length:    p.Length,
		DayLength: p.DayLength,
		UserID:    p.UserID,
		IsActive:  p.IsActive,
	}
}

type createPeriodRequest struct {
	UserID    uuid.UUID         `json:"user_id"`
	StartDate time.Time         `json:"start_date"`
	Length    core.PeriodLength `json:"length"`
	DayLength int               `json:"day_length"`
}

func (s *Server) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	period, err := s.deps.Periods.Create(r.Context(), services.CreatePeriodInput{
		StartDate: req.StartDate,
		Length:    req.Length,
		DayLength: req.DayLength,
		UserID:    req.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toPeriodResponse(period))
}

func (s *Server) handleClonePeriod(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := s.deps.Periods.Clone(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toPeriodResponse(period))
}

func (s *Server) handleActivePeriod(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := s.deps.Periods.Active(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toPeriodResponse(period))
}

func (s *Server) handleValidatePeriod(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.Periods.ValidateActive(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, map[string]bool{"valid": true})
}

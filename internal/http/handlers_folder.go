package http

import (
	"net/http"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

type folderResponse struct {
	ID        uuid.UUID `json:"id"`
	GeneralID uuid.UUID `json:"general_id"`
	Name      string    `json:"name"`
	PeriodID  uuid.UUID `json:"period_id"`
	UserID    uuid.UUID `json:"user_id"`
	IsActive  bool      `json:"is_active"`
}

func toFolderResponse(f core.Folder) folderResponse {
	return folderResponse{
		ID:        f.ID,
		GeneralID: f.GeneralID,
		Name:      f.Name,
		PeriodID:  f.PeriodID,
		UserID:    f.UserID,
		IsActive:  f.IsActive,
	}
}

type createFolderRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	folder, err := s.deps.Folders.Create(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toFolderResponse(folder))
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	folders, err := s.deps.Folders.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]folderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, toFolderResponse(f))
	}
	writeValue(w, http.StatusOK, out)
}

type updateFolderRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	folder, err := s.deps.Folders.Update(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toFolderResponse(folder))
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	folder, err := s.deps.Folders.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toFolderResponse(folder))
}

package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type transactionResponse struct {
	ID                    uuid.UUID            `json:"id"`
	Amount                decimal.Decimal      `json:"amount"`
	Type                  core.TransactionType `json:"type"`
	AccountID             uuid.UUID            `json:"account_id"`
	CategoryID            *uuid.UUID           `json:"category_id,omitempty"`
	Note                  string               `json:"note,omitempty"`
	RequireCategoryReview bool                 `json:"require_category_review"`
	IsActive              bool                 `json:"is_active"`
	CreatedOn             time.Time            `json:"created_on"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                    tx.ID,
		Amount:                tx.Amount,
		Type:                  tx.Type,
		AccountID:             tx.AccountID,
		CategoryID:            tx.CategoryID,
		Note:                  tx.Note,
		RequireCategoryReview: tx.RequireCategoryReview,
		IsActive:              tx.IsActive,
		CreatedOn:             tx.CreatedOn,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

type postTransactionRequest struct {
	Amount     decimal.Decimal      `json:"amount"`
	Type       core.TransactionType `json:"type"`
	AccountID  uuid.UUID            `json:"account_id"`
	CategoryID *uuid.UUID           `json:"category_id"`
	Note       string               `json:"note"`
}

func (s *Server) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.deps.Accounting.Post(r.Context(), services.PostTransactionInput{
		Amount:     req.Amount,
		Type:       req.Type,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.Accounting.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, map[string]bool{"deleted": true})
}

type reviewTransactionRequest struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

func (s *Server) handleReviewTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.deps.Accounting.Review(r.Context(), id, req.ExchangeRate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleRecommendedRate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rate, err := s.deps.Accounting.RecommendedRate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, map[string]decimal.Decimal{"rate": rate})
}

func (s *Server) handleAccountInsights(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	insights, err := s.deps.Accounting.AccountInsights(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, insights)
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.deps.Accounting.AccountTransactions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleCategoryTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.deps.Accounting.CategoryTransactions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleCurrencyCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.deps.Currencies.CurrencyCodes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, codes)
}

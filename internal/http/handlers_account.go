package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type cardResponse struct {
	CreditLimit         decimal.Decimal `json:"credit_limit"`
	StatementClosingDay int             `json:"statement_closing_day"`
	PaymentOffset       int             `json:"payment_offset"`
	SupportedCurrencies []string        `json:"supported_currencies"`
}

type accountResponse struct {
	ID             uuid.UUID        `json:"id"`
	Kind           core.AccountKind `json:"kind"`
	Name           string           `json:"name"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
	Currency       string           `json:"currency"`
	AccountNumber  string           `json:"account_number"`
	Notes          string           `json:"notes,omitempty"`
	BankName       string           `json:"bank_name,omitempty"`
	Card           *cardResponse    `json:"card,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedOn      time.Time        `json:"created_on"`
}

func toAccountResponse(a core.Account) accountResponse {
	resp := accountResponse{
		ID:             a.ID,
		Kind:           a.Kind,
		Name:           a.Name,
		CurrentBalance: a.CurrentBalance,
		Currency:       a.Currency,
		AccountNumber:  a.AccountNumber,
		Notes:          a.Notes,
		IsActive:       a.IsActive,
		CreatedOn:      a.CreatedOn,
	}
	if a.Bank != nil {
		resp.BankName = a.Bank.BankName
	}
	if a.Card != nil {
		resp.Card = &cardResponse{
			CreditLimit:         a.Card.CreditLimit,
			StatementClosingDay: a.Card.StatementClosingDay,
			PaymentOffset:       a.Card.PaymentOffset,
			SupportedCurrencies: a.Card.SupportedCurrencies,
		}
	}
	return resp
}

func toAccountResponses(accounts []core.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

type createBankAccountRequest struct {
	UserID         uuid.UUID       `json:"user_id"`
	Name           string          `json:"name"`
	BankName       string          `json:"bank_name"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Currency       string          `json:"currency"`
	AccountNumber  string          `json:"account_number"`
	Notes          string          `json:"notes"`
}

func (s *Server) handleCreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var req createBankAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.deps.Accounts.CreateBankAccount(r.Context(), services.CreateBankAccountInput{
		UserID:         req.UserID,
		Name:           req.Name,
		BankName:       req.BankName,
		CurrentBalance: req.CurrentBalance,
		Currency:       req.Currency,
		AccountNumber:  req.AccountNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toAccountResponse(account))
}

type createCreditCardRequest struct {
	UserID              uuid.UUID       `json:"user_id"`
	Name                string          `json:"name"`
	CurrentBalance      decimal.Decimal `json:"current_balance"`
	Currency            string          `json:"currency"`
	AccountNumber       string          `json:"account_number"`
	Notes               string          `json:"notes"`
	CreditLimit         decimal.Decimal `json:"credit_limit"`
	StatementClosingDay int             `json:"statement_closing_day"`
	PaymentOffset       int             `json:"payment_offset"`
	SupportedCurrencies []string        `json:"supported_currencies"`
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req createCreditCardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.deps.Accounts.CreateCreditCard(r.Context(), services.CreateCreditCardInput{
		UserID:              req.UserID,
		Name:                req.Name,
		CurrentBalance:      req.CurrentBalance,
		Currency:            req.Currency,
		AccountNumber:       req.AccountNumber,
		Notes:               req.Notes,
		CreditLimit:         req.CreditLimit,
		StatementClosingDay: req.StatementClosingDay,
		PaymentOffset:       req.PaymentOffset,
		SupportedCurrencies: req.SupportedCurrencies,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.deps.Accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	kind := core.AccountKind(r.URL.Query().Get("kind"))
	accounts, err := s.deps.Accounts.List(r.Context(), userID, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toAccountResponses(accounts))
}

type updateBankAccountRequest struct {
	Name          string `json:"name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	Notes         string `json:"notes"`
}

func (s *Server) handleUpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBankAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.deps.Accounts.UpdateBankAccount(r.Context(), services.UpdateBankAccountInput{
		ID:            id,
		Name:          req.Name,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.deps.Accounts.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, toAccountResponse(account))
}

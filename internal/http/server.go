// Package http exposes the budgeting engine as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/exchange"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

// mutatingRequestsPerMinute is the per-IP budget for POST/PUT/DELETE.
const mutatingRequestsPerMinute = 60

// CurrencyLister supplies the list of currencies the exchange provider
// supports.
type CurrencyLister interface {
	CurrencyCodes(ctx context.Context) ([]exchange.CurrencyCode, error)
}

// Deps bundles everything the server routes to.
type Deps struct {
	Accounts   *services.AccountService
	Periods    *services.PeriodService
	Folders    *services.FolderService
	Categories *services.CategoryService
	Accounting *services.AccountingService
	Currencies CurrencyLister
	Logger     *log.Logger
}

type Server struct {
	http.Server
	deps         Deps
	limiter      *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, readTimeout, writeTimeout time.Duration, deps Deps) *Server {
	s := &Server{
		deps:    deps,
		limiter: newRateLimiter(mutatingRequestsPerMinute),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/v1/accounts/bank", s.handleCreateBankAccount)
	mux.HandleFunc("PUT /api/v1/accounts/bank/{id}", s.handleUpdateBankAccount)
	mux.HandleFunc("POST /api/v1/accounts/credit-card", s.handleCreateCreditCard)
	mux.HandleFunc("GET /api/v1/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("GET /api/v1/accounts/{id}/insights", s.handleAccountInsights)
	mux.HandleFunc("GET /api/v1/accounts/{id}/transactions", s.handleAccountTransactions)
	mux.HandleFunc("GET /api/v1/users/{userID}/accounts", s.handleListAccounts)

	mux.HandleFunc("POST /api/v1/periods", s.handleCreatePeriod)
	mux.HandleFunc("POST /api/v1/users/{userID}/periods/clone", s.handleClonePeriod)
	mux.HandleFunc("GET /api/v1/users/{userID}/periods/active", s.handleActivePeriod)
	mux.HandleFunc("GET /api/v1/users/{userID}/periods/validate", s.handleValidatePeriod)

	mux.HandleFunc("POST /api/v1/folders", s.handleCreateFolder)
	mux.HandleFunc("GET /api/v1/users/{userID}/folders", s.handleListFolders)
	mux.HandleFunc("PUT /api/v1/folders/{id}", s.handleUpdateFolder)
	mux.HandleFunc("DELETE /api/v1/folders/{id}", s.handleDeleteFolder)
	mux.HandleFunc("GET /api/v1/folders/{id}/categories", s.handleListCategories)

	mux.HandleFunc("POST /api/v1/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/v1/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("PUT /api/v1/categories/{id}/general-target", s.handleUpdateGeneralTarget)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/v1/categories/{id}/transactions", s.handleCategoryTransactions)

	mux.HandleFunc("POST /api/v1/transactions", s.handlePostTransaction)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/review", s.handleReviewTransaction)
	mux.HandleFunc("GET /api/v1/transactions/{id}/exchange-rate", s.handleRecommendedRate)

	mux.HandleFunc("GET /api/v1/currencies", s.handleCurrencyCodes)

	handler := log.Middleware(deps.Logger)(
		log.RequestIDMiddleware(requestID)(
			log.RequestLogger()(
				securityHeaders(
					s.withRateLimit(mux)))))

	s.Server = http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Shutdown stops the rate limiter's cleanup goroutine before draining the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Handler returns the fully wrapped handler, for serving through httptest.
func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

// withRateLimit applies the per-IP limit to mutating requests only; reads
// stay unthrottled.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			clientIP := extractClientIP(r)
			if !s.limiter.allow(clientIP) {
				log.FromContext(r.Context()).WarnContext(r.Context(), "rate limit exceeded",
					log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeErrorBody(w, http.StatusTooManyRequests, errorBody{
					Code: "RateLimit.Exceeded", Message: "too many requests, try again later",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestID honors an inbound X-Request-ID and mints one otherwise.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

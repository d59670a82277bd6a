package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/exchange"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

type stubRates struct {
	rate decimal.Decimal
	err  error
}

func (s stubRates) PairRate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	return s.rate, s.err
}

type stubCurrencies struct {
	codes []exchange.CurrencyCode
	err   error
}

func (s stubCurrencies) CurrencyCodes(ctx context.Context) ([]exchange.CurrencyCode, error) {
	return s.codes, s.err
}

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

func newTestServer(t *testing.T, currencies CurrencyLister) *httptest.Server {
	t.Helper()

	store := storage.NewMemoryStore()
	logger := testLogger()
	if currencies == nil {
		currencies = stubCurrencies{}
	}

	s := NewServer("127.0.0.1:0", 5*time.Second, 5*time.Second, Deps{
		Accounts:   services.NewAccountService(store, logger),
		Periods:    services.NewPeriodService(store, logger),
		Folders:    services.NewFolderService(store, logger),
		Categories: services.NewCategoryService(store, logger),
		Accounting: services.NewAccountingService(store, stubRates{rate: decimal.RequireFromString("1.1")}, logger),
		Currencies: currencies,
		Logger:     logger,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Value   json.RawMessage `json:"value"`
	Error   *errorBody      `json:"error"`
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (int, testEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env testEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope for %s %s: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func unmarshalValue(t *testing.T, env testEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Value, dst); err != nil {
		t.Fatalf("decode value: %v", err)
	}
}

func wantStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d, want %d", got, want)
	}
}

func wantAPIError(t *testing.T, status, wantStatusCode int, env testEnvelope, wantCode string) {
	t.Helper()
	if status != wantStatusCode {
		t.Fatalf("status = %d, want %d", status, wantStatusCode)
	}
	if env.Success {
		t.Fatal("envelope success = true, want false")
	}
	if env.Error == nil || env.Error.Code != wantCode {
		t.Fatalf("error = %+v, want code %s", env.Error, wantCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestBankAccountLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := uuid.New()

	status, env := doJSON(t, ts, http.MethodPost, "/api/v1/accounts/bank", map[string]any{
		"user_id":         userID,
		"name":            "Checking",
		"bank_name":       "Banca Sella",
		"current_balance": "1000",
		"currency":        "EUR",
		"account_number":  "1234",
	})
	wantStatus(t, status, http.StatusCreated)
	if !env.Success {
		t.Fatalf("create failed: %+v", env.Error)
	}
	var created accountResponse
	unmarshalValue(t, env, &created)
	if created.Kind != core.BankAccount || created.BankName != "Banca Sella" {
		t.Errorf("created = %+v, want bank account", created)
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/accounts/"+created.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)
	var fetched accountResponse
	unmarshalValue(t, env, &fetched)
	if fetched.ID != created.ID {
		t.Errorf("fetched id = %s, want %s", fetched.ID, created.ID)
	}

	status, env = doJSON(t, ts, http.MethodPut, "/api/v1/accounts/bank/"+created.ID.String(), map[string]any{
		"name":           "Main checking",
		"bank_name":      "Intesa",
		"account_number": "4321",
		"notes":          "salary account",
	})
	wantStatus(t, status, http.StatusOK)
	var updated accountResponse
	unmarshalValue(t, env, &updated)
	if updated.Name != "Main checking" || updated.BankName != "Intesa" {
		t.Errorf("updated = %+v", updated)
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/users/"+userID.String()+"/accounts?kind=bank", nil)
	wantStatus(t, status, http.StatusOK)
	var listed []accountResponse
	unmarshalValue(t, env, &listed)
	if len(listed) != 1 {
		t.Errorf("listed %d accounts, want 1", len(listed))
	}

	status, env = doJSON(t, ts, http.MethodDelete, "/api/v1/accounts/"+created.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)
	var deleted accountResponse
	unmarshalValue(t, env, &deleted)
	if deleted.IsActive {
		t.Error("account still active after delete")
	}
}

func TestExpenseFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := uuid.New()

	status, env := doJSON(t, ts, http.MethodPost, "/api/v1/periods", map[string]any{
		"user_id":    userID,
		"start_date": time.Now().UTC().Format(time.RFC3339),
		"length":     "monthly",
	})
	wantStatus(t, status, http.StatusCreated)
	var period periodResponse
	unmarshalValue(t, env, &period)

	status, env = doJSON(t, ts, http.MethodPost, "/api/v1/folders", map[string]any{
		"user_id": userID,
		"name":    "Essentials",
	})
	wantStatus(t, status, http.StatusCreated)
	var folder folderResponse
	unmarshalValue(t, env, &folder)
	if folder.PeriodID != period.ID {
		t.Fatalf("folder period = %s, want %s", folder.PeriodID, period.ID)
	}

	status, env = doJSON(t, ts, http.MethodPost, "/api/v1/categories", map[string]any{
		"user_id":               userID,
		"folder_id":             folder.ID,
		"name":                  "Groceries",
		"currency":              "EUR",
		"category_type":         "fixed",
		"general_target_amount": "500",
	})
	wantStatus(t, status, http.StatusCreated)
	var category categoryResponse
	unmarshalValue(t, env, &category)

	status, env = doJSON(t, ts, http.MethodPost, "/api/v1/accounts/bank", map[string]any{
		"user_id":         userID,
		"name":            "Checking",
		"bank_name":       "Banca Sella",
		"current_balance": "1000",
		"currency":        "EUR",
		"account_number":  "1234",
	})
	wantStatus(t, status, http.StatusCreated)
	var account accountResponse
	unmarshalValue(t, env, &account)

	status, env = doJSON(t, ts, http.MethodPost, "/api/v1/transactions", map[string]any{
		"amount":      "120",
		"type":        "expense",
		"account_id":  account.ID,
		"category_id": category.ID,
		"note":        "weekly groceries",
	})
	wantStatus(t, status, http.StatusCreated)
	var tx transactionResponse
	unmarshalValue(t, env, &tx)
	if tx.RequireCategoryReview {
		t.Error("same-currency expense flagged for review")
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/categories/"+category.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)
	var spent categoryResponse
	unmarshalValue(t, env, &spent)
	if !spent.AmountSpent.Equal(decimal.RequireFromString("120")) {
		t.Errorf("amount_spent = %s, want 120", spent.AmountSpent)
	}
	if !spent.AmountRemaining.Equal(decimal.RequireFromString("380")) {
		t.Errorf("amount_remaining = %s, want 380", spent.AmountRemaining)
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/accounts/"+account.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)
	var debited accountResponse
	unmarshalValue(t, env, &debited)
	if !debited.CurrentBalance.Equal(decimal.RequireFromString("880")) {
		t.Errorf("balance = %s, want 880", debited.CurrentBalance)
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/accounts/"+account.ID.String()+"/transactions", nil)
	wantStatus(t, status, http.StatusOK)
	var txs []transactionResponse
	unmarshalValue(t, env, &txs)
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Errorf("listed transactions = %+v, want the posted one", txs)
	}

	status, _ = doJSON(t, ts, http.MethodDelete, "/api/v1/transactions/"+tx.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/accounts/"+account.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)
	var restored accountResponse
	unmarshalValue(t, env, &restored)
	if !restored.CurrentBalance.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("balance after delete = %s, want 1000", restored.CurrentBalance)
	}
}

func TestReviewFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := uuid.New()

	_, env := doJSON(t, ts, http.MethodPost, "/api/v1/periods", map[string]any{
		"user_id":    userID,
		"start_date": time.Now().UTC().Format(time.RFC3339),
		"length":     "monthly",
	})
	var period periodResponse
	unmarshalValue(t, env, &period)

	_, env = doJSON(t, ts, http.MethodPost, "/api/v1/folders", map[string]any{
		"user_id": userID, "name": "Travel",
	})
	var folder folderResponse
	unmarshalValue(t, env, &folder)

	_, env = doJSON(t, ts, http.MethodPost, "/api/v1/categories", map[string]any{
		"user_id":               userID,
		"folder_id":             folder.ID,
		"name":                  "Hotels",
		"currency":              "EUR",
		"category_type":         "fixed",
		"general_target_amount": "500",
	})
	var category categoryResponse
	unmarshalValue(t, env, &category)

	_, env = doJSON(t, ts, http.MethodPost, "/api/v1/accounts/bank", map[string]any{
		"user_id":         userID,
		"name":            "USD account",
		"bank_name":       "Chase",
		"current_balance": "1000",
		"currency":        "USD",
		"account_number":  "1234",
	})
	var account accountResponse
	unmarshalValue(t, env, &account)

	status, env := doJSON(t, ts, http.MethodPost, "/api/v1/transactions", map[string]any{
		"amount":      "100",
		"type":        "expense",
		"account_id":  account.ID,
		"category_id": category.ID,
	})
	wantStatus(t, status, http.StatusCreated)
	var tx transactionResponse
	unmarshalValue(t, env, &tx)
	if !tx.RequireCategoryReview {
		t.Fatal("cross-currency expense not flagged for review")
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/transactions/"+tx.ID.String()+"/exchange-rate", nil)
	wantStatus(t, status, http.StatusOK)
	var rate map[string]decimal.Decimal
	unmarshalValue(t, env, &rate)
	if !rate["rate"].Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("recommended rate = %s, want 1.1", rate["rate"])
	}

	status, env = doJSON(t, ts, http.MethodPost, "/api/v1/transactions/"+tx.ID.String()+"/review", map[string]any{
		"exchange_rate": "0.9",
	})
	wantStatus(t, status, http.StatusOK)
	var reviewed transactionResponse
	unmarshalValue(t, env, &reviewed)
	if reviewed.RequireCategoryReview {
		t.Error("transaction still flagged after review")
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/categories/"+category.ID.String(), nil)
	wantStatus(t, status, http.StatusOK)
	var spent categoryResponse
	unmarshalValue(t, env, &spent)
	if !spent.AmountSpent.Equal(decimal.RequireFromString("90")) {
		t.Errorf("amount_spent = %s, want 90 (100 * 0.9)", spent.AmountSpent)
	}

	status, env = doJSON(t, ts, http.MethodGet, "/api/v1/accounts/"+account.ID.String()+"/insights", nil)
	wantStatus(t, status, http.StatusOK)
	var insights []services.Insight
	unmarshalValue(t, env, &insights)
	if len(insights) != 1 || insights[0].Kind != services.InsightSuccess {
		t.Errorf("insights = %+v, want one success", insights)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, stubCurrencies{err: core.ExternalError("Exchange.Unavailable", "provider down")})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown account",
			method:     http.MethodGet,
			path:       "/api/v1/accounts/" + uuid.NewString(),
			wantStatus: http.StatusNotFound,
			wantCode:   "GetAccount.NotFound",
		},
		{
			name:       "malformed path id",
			method:     http.MethodGet,
			path:       "/api/v1/accounts/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantCode:   "Request.InvalidID",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/v1/folders",
			body:       map[string]any{"unknown_field": true},
			wantStatus: http.StatusBadRequest,
			wantCode:   "Request.Body",
		},
		{
			name:   "validation failure",
			method: http.MethodPost,
			path:   "/api/v1/transactions",
			body: map[string]any{
				"amount":     "-5",
				"type":       "expense",
				"account_id": uuid.New(),
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "CreateTransaction.Amount",
		},
		{
			name:       "upstream failure",
			method:     http.MethodGet,
			path:       "/api/v1/currencies",
			wantStatus: http.StatusBadGateway,
			wantCode:   "Exchange.Unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doJSON(t, ts, tt.method, tt.path, tt.body)
			wantAPIError(t, status, tt.wantStatus, env, tt.wantCode)
		})
	}
}

func TestCurrencyCodes(t *testing.T) {
	ts := newTestServer(t, stubCurrencies{codes: []exchange.CurrencyCode{
		{Code: "EUR", Name: "Euro"},
		{Code: "USD", Name: "United States Dollar"},
	}})

	status, env := doJSON(t, ts, http.MethodGet, "/api/v1/currencies", nil)
	wantStatus(t, status, http.StatusOK)
	var codes []exchange.CurrencyCode
	unmarshalValue(t, env, &codes)
	if len(codes) != 2 || codes[0].Code != "EUR" {
		t.Errorf("codes = %+v, want EUR and USD", codes)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	ts := newTestServer(t, nil)

	var gotLimited bool
	for i := 0; i < mutatingRequestsPerMinute+1; i++ {
		status, env := doJSON(t, ts, http.MethodPost, "/api/v1/folders", map[string]any{
			"user_id": uuid.Nil, "name": "",
		})
		if status == http.StatusTooManyRequests {
			if env.Error == nil || env.Error.Code != "RateLimit.Exceeded" {
				t.Fatalf("rate limit error = %+v", env.Error)
			}
			gotLimited = true
			break
		}
	}
	if !gotLimited {
		t.Error("never rate limited after exceeding the per-minute budget")
	}

	// Reads stay unthrottled.
	status, _ := doJSON(t, ts, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/folders", nil)
	wantStatus(t, status, http.StatusOK)
}

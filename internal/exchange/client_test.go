package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	codes := cache.NewLRUCache[[]CurrencyCode](1, time.Minute)
	return NewClient(srv.URL, "test-key", time.Second, codes, log.New(log.DefaultConfig()))
}

func TestPairRate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test-key/pair/EUR/USD" {
			t.Errorf("path = %s, want /test-key/pair/EUR/USD", r.URL.Path)
		}
		w.Write([]byte(`{"result":"success","base_code":"EUR","target_code":"USD","conversion_rate":1.0842}`))
	})

	rate, err := client.PairRate(context.Background(), "EUR", "USD")
	if err != nil {
		t.Fatalf("PairRate() error = %v", err)
	}
	if want := decimal.NewFromFloat(1.0842); !rate.Equal(want) {
		t.Errorf("PairRate() = %s, want %s", rate, want)
	}
}

func TestPairRateProviderError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "error result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.PairRate(context.Background(), "EUR", "USD")
			var coreErr *core.Error
			if !errors.As(err, &coreErr) || coreErr.Kind != core.KindExternal {
				t.Errorf("PairRate() error = %v, want external error", err)
			}
		})
	}
}

func TestCurrencyCodesCached(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/test-key/codes" {
			t.Errorf("path = %s, want /test-key/codes", r.URL.Path)
		}
		w.Write([]byte(`{"result":"success","supported_codes":[["EUR","Euro"],["USD","United States Dollar"]]}`))
	})

	for i := 0; i < 3; i++ {
		codes, err := client.CurrencyCodes(context.Background())
		if err != nil {
			t.Fatalf("CurrencyCodes() error = %v", err)
		}
		if len(codes) != 2 || codes[0].Code != "EUR" || codes[1].Name != "United States Dollar" {
			t.Errorf("CurrencyCodes() = %+v", codes)
		}
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1 (cached)", calls)
	}
}

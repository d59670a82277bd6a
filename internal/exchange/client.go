// Package exchange talks to the exchange-rate provider. The provider keys
// requests by putting the API key in the path: /{key}/pair/{FROM}/{TO} and
// /{key}/codes.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

const codesCacheKey = "currency_codes"

// CurrencyCode is one entry of the provider's supported-codes list.
type CurrencyCode struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type pairResponse struct {
	Result         string          `json:"result"`
	BaseCode       string          `json:"base_code"`
	TargetCode     string          `json:"target_code"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

type codesResponse struct {
	Result         string      `json:"result"`
	SupportedCodes [][2]string `json:"supported_codes"`
}

// Client fetches pair rates and currency codes. The code list is near-static,
// so it is served from a TTL cache between provider calls.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	codes      cache.Cache[[]CurrencyCode]
	logger     *log.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, codes cache.Cache[[]CurrencyCode], logger *log.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		codes:      codes,
		logger:     logger.WithComponent(log.ComponentExchange),
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	url := c.baseURL + "/" + c.apiKey + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.ExternalError("Exchange.Request", err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.ExternalError("Exchange.Unavailable", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ExternalError("Exchange.Status",
			fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.ExternalError("Exchange.Decode", err.Error())
	}
	return nil
}

// PairRate returns the conversion rate from base to target currency.
func (c *Client) PairRate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	var out pairResponse
	if err := c.get(ctx, "/pair/"+base+"/"+target, &out); err != nil {
		c.logger.ErrorContext(ctx, "pair rate lookup failed",
			log.FieldError, err, "base", base, "target", target)
		return decimal.Zero, err
	}
	if out.Result != "success" {
		return decimal.Zero, core.ExternalError("Exchange.Result",
			fmt.Sprintf("provider returned result %q", out.Result))
	}
	return out.ConversionRate, nil
}

// CurrencyCodes returns the provider's supported currencies, cached.
func (c *Client) CurrencyCodes(ctx context.Context) ([]CurrencyCode, error) {
	if cached, ok := c.codes.Get(codesCacheKey); ok {
		return cached, nil
	}

	var out codesResponse
	if err := c.get(ctx, "/codes", &out); err != nil {
		c.logger.ErrorContext(ctx, "currency codes lookup failed", log.FieldError, err)
		return nil, err
	}
	if out.Result != "success" {
		return nil, core.ExternalError("Exchange.Result",
			fmt.Sprintf("provider returned result %q", out.Result))
	}

	codes := make([]CurrencyCode, 0, len(out.SupportedCodes))
	for _, pair := range out.SupportedCodes {
		codes = append(codes, CurrencyCode{Code: pair[0], Name: pair[1]})
	}
	c.codes.Set(codesCacheKey, codes)
	return codes, nil
}

package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const coinGeckoBitcoinID = "bitcoin"

// CoinGeckoClient fetches prices from the CoinGecko simple price API.
type CoinGeckoClient struct {
	logger     *zap.Logger
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a CoinGecko client making at most one request
// per minInterval.
func NewCoinGeckoClient(logger *zap.Logger, baseURL string, delay time.Duration, maxRetries int, minInterval time.Duration) *CoinGeckoClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &CoinGeckoClient{
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// Name implements Provider.
func (c *CoinGeckoClient) Name() string { return ProviderCoinGecko }

// FetchPrices implements Provider.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, currencies []convert.Currency) (map[convert.Currency]float64, error) {
	vs := make([]string, len(currencies))
	for i, cur := range currencies {
		vs[i] = strings.ToLower(string(cur))
	}
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", c.baseURL, coinGeckoBitcoinID, strings.Join(vs, ","))

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// {"bitcoin":{"usd":65000,"brl":325000}}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko response: %w", err)
	}
	prices := raw[coinGeckoBitcoinID]
	out := make(map[convert.Currency]float64, len(currencies))
	for i, cur := range currencies {
		if v, ok := prices[vs[i]]; ok && usable(v) {
			out[cur] = v
		}
	}
	return out, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			c.logger.Warn("CoinGecko rate limited",
				zap.String("op", "pricefeed.CoinGecko"),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}

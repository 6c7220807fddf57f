// Package pricefeed keeps present-day BTC quotes fresh from external
// providers and applies the fallback policy when they fail.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"go.uber.org/zap"
)

// ErrNoQuote is returned by Refresh when no provider produced a usable price.
var ErrNoQuote = errors.New("no quote available")

// Provider fetches present-day BTC prices.
type Provider interface {
	Name() string
	FetchPrices(ctx context.Context, currencies []convert.Currency) (map[convert.Currency]float64, error)
}

// Provider names accepted in Config.Providers.
const (
	ProviderCoinGecko = "coingecko"
	ProviderBinance   = "binance"
)

// Config configures the feed.
type Config struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Providers  []string      `yaml:"providers" mapstructure:"providers"`
	Schedule   string        `yaml:"schedule" mapstructure:"schedule"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	StaleAfter time.Duration `yaml:"staleAfter" mapstructure:"staleAfter"`
	DBPath     string        `yaml:"dbPath" mapstructure:"dbPath"`

	CoinGeckoURL string        `yaml:"coingeckoUrl,omitempty" mapstructure:"coingeckoUrl"`
	BinanceURL   string        `yaml:"binanceUrl,omitempty" mapstructure:"binanceUrl"`
	MaxRetries   int           `yaml:"maxRetries" mapstructure:"maxRetries"`
	RetryDelay   time.Duration `yaml:"retryDelay" mapstructure:"retryDelay"`
	MinInterval  time.Duration `yaml:"minInterval" mapstructure:"minInterval"`

	// Fallback prices are used, flagged approximate, when nothing else is known.
	Fallback map[string]float64 `yaml:"fallback,omitempty" mapstructure:"fallback"`
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if len(c.Providers) == 0 {
		c.Providers = []string{ProviderCoinGecko, ProviderBinance}
	}
	if c.Schedule == "" {
		c.Schedule = constants.DefaultRefreshSchedule
	}
	if c.Timeout == 0 {
		c.Timeout = 20 * time.Second
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = 30 * time.Minute
	}
	if c.CoinGeckoURL == "" {
		c.CoinGeckoURL = constants.DefaultCoinGeckoURL
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.MinInterval == 0 {
		c.MinInterval = time.Second
	}
	return c
}

// NewProviders builds the configured providers in order.
func NewProviders(logger *zap.Logger, cfg Config) ([]Provider, error) {
	cfg = cfg.WithDefaults()
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ProviderCoinGecko:
			providers = append(providers, NewCoinGeckoClient(logger, cfg.CoinGeckoURL, cfg.RetryDelay, cfg.MaxRetries, cfg.MinInterval))
		case ProviderBinance:
			providers = append(providers, NewBinanceClient(logger, cfg.BinanceURL))
		default:
			return nil, fmt.Errorf("unknown price provider %q", name)
		}
	}
	return providers, nil
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

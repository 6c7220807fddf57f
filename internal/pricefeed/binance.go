package pricefeed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

// binanceSymbols maps a currency to the spot pair quoting BTC in it. USDT
// stands in for USD.
var binanceSymbols = map[convert.Currency]string{
	convert.USD: "BTCUSDT",
	convert.BRL: "BTCBRL",
	convert.EUR: "BTCEUR",
}

// BinanceClient reads spot ticker prices.
type BinanceClient struct {
	logger *zap.Logger
	client *binance.Client
}

// NewBinanceClient creates a public, unauthenticated spot client. An empty
// baseURL keeps the library default.
func NewBinanceClient(logger *zap.Logger, baseURL string) *BinanceClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceClient{logger: logger, client: client}
}

// Name implements Provider.
func (b *BinanceClient) Name() string { return ProviderBinance }

// FetchPrices implements Provider. Currencies without a pair are skipped and
// a failing pair does not discard the others.
func (b *BinanceClient) FetchPrices(ctx context.Context, currencies []convert.Currency) (map[convert.Currency]float64, error) {
	out := make(map[convert.Currency]float64, len(currencies))
	var lastErr error
	for _, cur := range currencies {
		symbol, ok := binanceSymbols[cur]
		if !ok {
			continue
		}
		prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			lastErr = fmt.Errorf("binance %s: %w", symbol, err)
			b.logger.Warn("binance ticker failed",
				zap.String("op", "pricefeed.Binance"),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		for _, p := range prices {
			if p.Symbol != symbol {
				continue
			}
			v, err := strconv.ParseFloat(p.Price, 64)
			if err == nil && usable(v) {
				out[cur] = v
			}
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

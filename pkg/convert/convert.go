// Package convert turns fiat amounts at historical dates into BTC and values
// BTC holdings at present-day quotes.
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/timeseries"
)

// Currency is an ISO 4217 code for a supported fiat currency.
type Currency string

const (
	USD Currency = constants.CurrencyUSD
	BRL Currency = constants.CurrencyBRL
	EUR Currency = constants.CurrencyEUR
)

// Supported lists every currency the converter understands, base first.
var Supported = []Currency{USD, BRL, EUR}

// ErrUnsupportedCurrency is returned for currency codes outside Supported.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ParseCurrency normalizes a currency code. An empty string is USD.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if c == "" {
		return USD, nil
	}
	for _, s := range Supported {
		if c == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
}

// LivePrice is the present-day BTC price in one currency.
type LivePrice struct {
	Value       float64   `json:"value"`
	Available   bool      `json:"available"`
	Approximate bool      `json:"approximate,omitempty"`
	Stale       bool      `json:"stale,omitempty"`
	Source      string    `json:"source,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Rates holds the present-day quotes. FX rates are local currency per USD.
type Rates struct {
	BTC map[Currency]LivePrice
	FX  map[Currency]float64
}

func (r Rates) fx(c Currency) float64 {
	if c == USD {
		return 1
	}
	return r.FX[c]
}

func (r Rates) clone() Rates {
	out := Rates{BTC: make(map[Currency]LivePrice, len(r.BTC)), FX: make(map[Currency]float64, len(r.FX))}
	for k, v := range r.BTC {
		out.BTC[k] = v
	}
	for k, v := range r.FX {
		out.FX[k] = v
	}
	return out
}

// Conversion is the result of ToBTC.
type Conversion struct {
	BTC           float64   `json:"btc"`
	RequestedDate time.Time `json:"requestedDate"`
	EffectiveDate time.Time `json:"effectiveDate"`
	Clamped       bool      `json:"clamped"`
	BTCPriceUSD   float64   `json:"btcPriceUsd"`
	FXRate        float64   `json:"fxRate"`
	FXFallback    bool      `json:"fxFallback"`
}

// Valuation is the result of FromBTC.
type Valuation struct {
	Value       float64 `json:"value"`
	Price       float64 `json:"price"`
	Available   bool    `json:"available"`
	Approximate bool    `json:"approximate"`
}

// Converter composes the BTC/USD series with per-currency FX series. It is
// immutable once built.
type Converter struct {
	btc   *timeseries.Series
	fx    map[Currency]*timeseries.Series
	rates Rates
	floor time.Time
}

// New builds a Converter. btcUSD must be non-empty; currencies without an FX
// series use the static rate from rates.
func New(btcUSD *timeseries.Series, fx map[Currency]*timeseries.Series, rates Rates) (*Converter, error) {
	floor, ok := btcUSD.Floor()
	if !ok {
		return nil, errors.New("BTC/USD series is empty")
	}
	series := make(map[Currency]*timeseries.Series, len(fx))
	for c, s := range fx {
		if c == USD {
			continue
		}
		series[c] = s
	}
	return &Converter{btc: btcUSD, fx: series, rates: rates.clone(), floor: floor}, nil
}

// WithRates returns a copy of c using new present-day quotes.
func (c *Converter) WithRates(rates Rates) *Converter {
	out := *c
	out.rates = rates.clone()
	return &out
}

// Rates returns the present-day quotes in use.
func (c *Converter) Rates() Rates {
	return c.rates.clone()
}

// Floor returns the first date of the BTC/USD series.
func (c *Converter) Floor() time.Time {
	return c.floor
}

// LastDate returns the last date of the BTC/USD series.
func (c *Converter) LastDate() time.Time {
	p, _ := c.btc.Last()
	return p.Date
}

// StaticRate returns the present-day FX rate for currency, local per USD.
func (c *Converter) StaticRate(currency Currency) float64 {
	return c.rates.fx(currency)
}

// fxAt resolves the FX rate at date, falling back to the static rate.
func (c *Converter) fxAt(currency Currency, date time.Time) (rate float64, fallback bool) {
	if currency == USD {
		return 1, false
	}
	if s, ok := c.fx[currency]; ok {
		if q, err := s.Resolve(date); err == nil && q.Value > 0 {
			return q.Value, false
		}
	}
	return c.rates.fx(currency), true
}

// ToBTC converts amount of currency at date into BTC using historical quotes.
// Dates before the series floor are raised to it and flagged as Clamped.
func (c *Converter) ToBTC(amount float64, currency Currency, date time.Time) (Conversion, error) {
	if _, err := ParseCurrency(string(currency)); err != nil {
		return Conversion{}, err
	}
	requested := datetime.Day(date)
	target, clamped := datetime.Clamp(requested, c.floor)

	q, err := c.btc.Resolve(target)
	if err != nil {
		return Conversion{}, fmt.Errorf("resolve BTC/USD at %s: %w", datetime.FormatDate(target), err)
	}

	// FX is aligned to the day the BTC lookup actually resolved to.
	rate, fallback := c.fxAt(currency, q.Date)
	usd := mathutil.SafeDiv(amount, rate)

	return Conversion{
		BTC:           mathutil.SafeDiv(usd, q.Value),
		RequestedDate: requested,
		EffectiveDate: q.Date,
		Clamped:       clamped,
		BTCPriceUSD:   q.Value,
		FXRate:        rate,
		FXFallback:    fallback,
	}, nil
}

// LivePrice returns the present-day BTC price in currency. When the currency
// has no live quote but USD does, the price is derived through the static FX
// rate and flagged approximate.
func (c *Converter) LivePrice(currency Currency) LivePrice {
	if p, ok := c.rates.BTC[currency]; ok && p.Available && p.Value > 0 {
		return p
	}
	if currency != USD {
		usd, ok := c.rates.BTC[USD]
		rate := c.rates.fx(currency)
		if ok && usd.Available && usd.Value > 0 && rate > 0 {
			return LivePrice{
				Value:       usd.Value * rate,
				Available:   true,
				Approximate: true,
				Stale:       usd.Stale,
				Source:      usd.Source,
				UpdatedAt:   usd.UpdatedAt,
			}
		}
	}
	return LivePrice{}
}

// FromBTC values btc at the present-day price in currency. An unavailable
// price yields a zero Valuation with Available unset.
func (c *Converter) FromBTC(btc float64, currency Currency) Valuation {
	p := c.LivePrice(currency)
	if !p.Available {
		return Valuation{}
	}
	return Valuation{
		Value:       btc * p.Value,
		Price:       p.Value,
		Available:   true,
		Approximate: p.Approximate || p.Stale,
	}
}

// PriceAt returns the historical BTC price in currency at date. It returns
// false for dates before the floor or when no FX rate is known.
func (c *Converter) PriceAt(currency Currency, date time.Time) (float64, bool) {
	q, err := c.btc.Resolve(date)
	if err != nil {
		return 0, false
	}
	rate, _ := c.fxAt(currency, q.Date)
	if rate <= 0 || q.Value <= 0 {
		return 0, false
	}
	return q.Value * rate, true
}

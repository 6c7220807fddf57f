package calculator

import (
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/accumulator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/shopspring/decimal"
)

// ConvertRequest converts an amount between BTC, satoshis and fiat at the
// present-day price.
type ConvertRequest struct {
	Amount   float64 `json:"amount" yaml:"amount" mapstructure:"amount"`
	Unit     string  `json:"unit" yaml:"unit" mapstructure:"unit"`
	Currency string  `json:"currency,omitempty" yaml:"currency,omitempty" mapstructure:"currency"`
}

var satsPerBTC = decimal.NewFromInt(constants.SatsPerBTC)

// toSats returns the whole-satoshi amount of a BTC or sats figure and whether
// rounding changed it.
func toSats(amount decimal.Decimal, unit accumulator.Unit) (decimal.Decimal, bool) {
	if unit == accumulator.UnitBTC {
		amount = amount.Mul(satsPerBTC)
	}
	rounded := amount.Round(0)
	return rounded, !rounded.Equal(amount)
}

func (e *Engine) convertUnits(conv *convert.Converter, req ConvertRequest) (Result, error) {
	if req.Amount < 0 {
		return Result{}, invalid("amount must not be negative")
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}

	res := Result{Currency: string(currency), Columns: []string{"price", "value"}}
	amount := decimal.NewFromFloat(req.Amount)

	var sats decimal.Decimal
	switch unit := accumulator.Unit(req.Unit); unit {
	case accumulator.UnitBTC, accumulator.UnitSats:
		var rounded bool
		if sats, rounded = toSats(amount, unit); rounded {
			res.note("amount rounded to %s sats", sats.String())
		}
	case accumulator.UnitFiat, "":
		live := conv.LivePrice(currency)
		if !live.Available {
			res.Degraded = true
			res.note("live %s price unavailable; cannot convert from fiat", currency)
			return res, nil
		}
		if live.Approximate {
			res.note("live %s price is approximate", currency)
		}
		sats, _ = toSats(amount.Div(decimal.NewFromFloat(live.Value)), accumulator.UnitBTC)
	default:
		return Result{}, invalid("unknown unit %q", req.Unit)
	}

	btc := sats.Div(satsPerBTC).Round(constants.BTCDecimals)
	btcFloat := btc.InexactFloat64()
	for _, c := range convert.Supported {
		v := conv.FromBTC(btcFloat, c)
		row := Row{
			Period: string(c),
			Values: map[string]float64{
				"price": v.Price,
				"value": decimal.NewFromFloat(v.Value).Round(2).InexactFloat64(),
			},
		}
		switch {
		case !v.Available:
			row.Notes = append(row.Notes, "price unavailable")
			res.Degraded = true
		case v.Approximate:
			row.Notes = append(row.Notes, "approximate")
		}
		res.Rows = append(res.Rows, row)
	}

	res.addMetric("btc", btcFloat)
	res.addMetric("sats", sats.InexactFloat64())
	if v := conv.FromBTC(btcFloat, currency); v.Available {
		res.addMetric("value", decimal.NewFromFloat(v.Value).Round(2).InexactFloat64())
	}
	return res, nil
}

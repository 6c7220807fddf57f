package calculator

import (
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
)

// RegretRequest asks what a past purchase would be worth today.
type RegretRequest struct {
	Amount   float64 `json:"amount" yaml:"amount" mapstructure:"amount"`
	Currency string  `json:"currency" yaml:"currency" mapstructure:"currency"`
	Date     string  `json:"date" yaml:"date" mapstructure:"date"`
}

func parseCurrency(code string) (convert.Currency, error) {
	c, err := convert.ParseCurrency(code)
	if err != nil {
		return "", invalid("%v", err)
	}
	return c, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := datetime.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid("%s %q is not a YYYY-MM-DD date", field, value)
	}
	return t, nil
}

// clampNote records a date substitution on res.
func clampNote(res *Result, requested, effective time.Time) {
	res.note("requested date %s predates available data; using %s",
		datetime.FormatDate(requested), datetime.FormatDate(effective))
}

// liveNote flags res when the present-day quote is missing or approximate.
func liveNote(res *Result, currency convert.Currency, v convert.Valuation) {
	switch {
	case !v.Available:
		res.Degraded = true
		res.note("live %s price unavailable; present-day values are zero", currency)
	case v.Approximate:
		res.note("live %s price is approximate", currency)
	}
}

// monthEnds returns from, every month end strictly between from and to, and to.
func monthEnds(from, to time.Time) []time.Time {
	out := []time.Time{from}
	for d := datetime.EndOfMonth(from); d.Before(to); d = datetime.EndOfMonth(d.AddDate(0, 0, 1)) {
		if d.After(from) {
			out = append(out, d)
		}
	}
	if to.After(from) {
		out = append(out, to)
	}
	return out
}

func (e *Engine) regret(conv *convert.Converter, req RegretRequest) (Result, error) {
	if req.Amount <= 0 {
		return Result{}, invalid("amount must be positive")
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return Result{}, err
	}

	res := Result{Currency: string(currency), Columns: []string{"price", "value", "roiPercent"}}

	bought, err := conv.ToBTC(req.Amount, currency, date)
	if err != nil {
		return Result{}, err
	}
	if bought.Clamped {
		clampNote(&res, bought.RequestedDate, bought.EffectiveDate)
	}
	if bought.FXFallback {
		res.note("no historical %s rate on %s; used the current rate", currency, datetime.FormatDate(bought.EffectiveDate))
	}

	for _, d := range monthEnds(bought.EffectiveDate, conv.LastDate()) {
		price, ok := conv.PriceAt(currency, d)
		if !ok {
			continue
		}
		value := bought.BTC * price
		res.Rows = append(res.Rows, Row{
			Period: datetime.FormatDate(d),
			Values: map[string]float64{
				"price":      price,
				"value":      value,
				"roiPercent": mathutil.PercentChange(req.Amount, value),
			},
		})
	}

	today := conv.FromBTC(bought.BTC, currency)
	liveNote(&res, currency, today)

	purchasePrice, _ := conv.PriceAt(currency, bought.EffectiveDate)
	res.addMetric("invested", req.Amount)
	res.addMetric("btcBought", bought.BTC)
	res.addMetric("purchasePrice", purchasePrice)
	res.addMetric("valueToday", today.Value)
	if today.Available {
		res.addMetric("roiPercent", mathutil.PercentChange(req.Amount, today.Value))
		res.addMetric("multiple", mathutil.SafeDiv(today.Value, req.Amount))
	}
	return res, nil
}

package calculator

import (
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/accumulator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
)

// DCARequest simulates buying a fixed fiat amount on a schedule.
type DCARequest struct {
	Amount         float64 `json:"amount" yaml:"amount" mapstructure:"amount"`
	Currency       string  `json:"currency" yaml:"currency" mapstructure:"currency"`
	Frequency      string  `json:"frequency" yaml:"frequency" mapstructure:"frequency"`
	StartDate      string  `json:"startDate" yaml:"startDate" mapstructure:"startDate"`
	EndDate        string  `json:"endDate,omitempty" yaml:"endDate,omitempty" mapstructure:"endDate"`
	EscalationRate float64 `json:"escalationRate,omitempty" yaml:"escalationRate,omitempty" mapstructure:"escalationRate"`
}

func (e *Engine) dca(conv *convert.Converter, req DCARequest) (Result, error) {
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}
	freq, err := accumulator.ParseFrequency(req.Frequency)
	if err != nil {
		return Result{}, invalid("%v", err)
	}
	if freq == accumulator.FrequencyNone {
		return Result{}, invalid("dca needs a recurring frequency")
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return Result{}, err
	}
	last := conv.LastDate()
	end := last
	if req.EndDate != "" {
		if end, err = parseDate("endDate", req.EndDate); err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Currency: string(currency),
		Columns:  []string{"price", "contribution", "btcAcquired", "btcHeld", "invested", "value"},
	}
	if clamped, ok := datetime.Clamp(start, conv.Floor()); ok {
		clampNote(&res, start, clamped)
		start = clamped
	}
	if end.After(last) {
		res.note("end date %s is after the last available price; stopping at %s",
			datetime.FormatDate(end), datetime.FormatDate(last))
		end = last
	}

	out, err := e.acc.Accumulate(accumulator.Config{
		Start:       start,
		End:         end,
		Granularity: accumulator.GranularityDaily,
		Schedule: accumulator.Schedule{
			Amount:               req.Amount,
			Unit:                 accumulator.UnitFiat,
			Frequency:            freq,
			AnnualEscalationRate: req.EscalationRate,
		},
		Price: func(p time.Time) (float64, bool) { return conv.PriceAt(currency, p) },
	})
	if err != nil {
		return Result{}, invalidConfig(err)
	}

	for i, row := range out.Rows {
		if row.ContributionAmount == 0 && !row.PriceMissing && i != len(out.Rows)-1 {
			continue
		}
		r := Row{
			Period: datetime.FormatDate(row.Period),
			Values: map[string]float64{
				"price":        row.Price,
				"contribution": row.ContributionAmount,
				"btcAcquired":  row.UnitsAcquired,
				"btcHeld":      row.CumulativeUnits,
				"invested":     row.CumulativeContributed,
				"value":        row.CumulativeValue,
			},
		}
		if row.PriceMissing {
			r.Notes = append(r.Notes, "no price; contribution skipped")
		}
		res.Rows = append(res.Rows, r)
	}
	if out.Degraded {
		res.Degraded = true
		res.note("%d periods had no price and were skipped", len(out.SkippedPeriods))
	}

	s := out.Summary
	today := conv.FromBTC(s.FinalUnits, currency)
	liveNote(&res, currency, today)

	res.addMetric("totalInvested", s.TotalContributed)
	res.addMetric("btcAccumulated", s.FinalUnits)
	res.addMetric("averageCost", s.AverageCost)
	res.addMetric("valueAtEnd", s.FinalValue)
	res.addMetric("valueToday", today.Value)
	if today.Available {
		res.addMetric("roiPercent", mathutil.PercentChange(s.TotalContributed, today.Value))
	} else {
		res.addMetric("roiPercent", s.ROIPercent)
	}
	res.addMetric("skippedPeriods", float64(len(out.SkippedPeriods)))
	return res, nil
}

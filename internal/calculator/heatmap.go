package calculator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/timeseries"
	"github.com/samber/lo"
)

// Confidence of a heatmap cell by source.
const (
	confidenceComputed = 1.0
	confidenceManual   = 0.5
)

// HeatmapRequest selects the year range of the monthly returns heatmap.
// Zero years mean the full history.
type HeatmapRequest struct {
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty" mapstructure:"currency"`
	FromYear int    `json:"fromYear,omitempty" yaml:"fromYear,omitempty" mapstructure:"fromYear"`
	ToYear   int    `json:"toYear,omitempty" yaml:"toYear,omitempty" mapstructure:"toYear"`
}

type heatCell struct {
	bar    timeseries.MonthlyBar
	manual bool
}

// computedMonths derives monthly bars from the daily series. A month is only
// emitted when the prior month's last day resolves, so the first partial
// month after the floor is skipped.
func computedMonths(conv *convert.Converter, currency convert.Currency) []timeseries.MonthlyBar {
	floor, last := conv.Floor(), conv.LastDate()
	var bars []timeseries.MonthlyBar
	for m := time.Date(floor.Year(), floor.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(last); m = m.AddDate(0, 1, 0) {
		open, ok := conv.PriceAt(currency, m.AddDate(0, 0, -1))
		if !ok {
			continue
		}
		closeDate := datetime.EndOfMonth(m)
		if closeDate.After(last) {
			closeDate = last
		}
		closePrice, ok := conv.PriceAt(currency, closeDate)
		if !ok {
			continue
		}
		bars = append(bars, timeseries.MonthlyBar{Year: m.Year(), Month: int(m.Month()), Open: open, Close: closePrice})
	}
	return bars
}

func (e *Engine) heatmap(conv *convert.Converter, req HeatmapRequest) (Result, error) {
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}
	if req.FromYear != 0 && req.ToYear != 0 && req.ToYear < req.FromYear {
		return Result{}, invalid("toYear %d is before fromYear %d", req.ToYear, req.FromYear)
	}

	cells := lo.SliceToMap(computedMonths(conv, currency), func(b timeseries.MonthlyBar) (string, heatCell) {
		return b.Key(), heatCell{bar: b}
	})
	// The curated months are in USD and replace anything computed for the same
	// month. Outside USD their open/close use today's rate; returns are unaffected.
	fx := conv.StaticRate(currency)
	approxFX := currency != convert.USD
	for _, b := range e.manual {
		b.Open *= fx
		b.Close *= fx
		cells[b.Key()] = heatCell{bar: b, manual: true}
	}

	inRange := func(year int) bool {
		return (req.FromYear == 0 || year >= req.FromYear) && (req.ToYear == 0 || year <= req.ToYear)
	}
	keys := lo.Filter(lo.Keys(cells), func(k string, _ int) bool { return inRange(cells[k].bar.Year) })
	sort.Strings(keys)

	res := Result{Currency: string(currency), Columns: []string{"year", "month", "open", "close", "returnPercent", "confidence"}}
	byMonth := make(map[int][]float64)
	best, worst := math.Inf(-1), math.Inf(1)
	var positive, manual int
	for _, k := range keys {
		c := cells[k]
		ret := mathutil.PercentChange(c.bar.Open, c.bar.Close)
		confidence := confidenceComputed
		row := Row{Period: k}
		if c.manual {
			confidence = confidenceManual
			manual++
			row.Notes = append(row.Notes, "source=manual")
			if approxFX {
				row.Notes = append(row.Notes, "fx=approximate")
			}
		}
		row.Values = map[string]float64{
			"year":          float64(c.bar.Year),
			"month":         float64(c.bar.Month),
			"open":          c.bar.Open,
			"close":         c.bar.Close,
			"returnPercent": ret,
			"confidence":    confidence,
		}
		res.Rows = append(res.Rows, row)

		byMonth[c.bar.Month] = append(byMonth[c.bar.Month], ret)
		best, worst = math.Max(best, ret), math.Min(worst, ret)
		if ret > 0 {
			positive++
		}
	}

	res.addMetric("months", float64(len(keys)))
	if len(keys) == 0 {
		res.note("no monthly data in range")
		return res, nil
	}
	res.addMetric("positiveMonths", float64(positive))
	res.addMetric("bestMonthPercent", best)
	res.addMetric("worstMonthPercent", worst)
	for m := 1; m <= 12; m++ {
		if rets, ok := byMonth[m]; ok {
			avg := lo.Sum(rets) / float64(len(rets))
			res.addMetric(fmt.Sprintf("avg%s", time.Month(m).String()[:3]), avg)
		}
	}
	if manual > 0 {
		res.note("%d months come from the curated early-history dataset", manual)
		if approxFX {
			res.note("curated USD open/close converted at the current %s rate; returns are exact", currency)
		}
	}
	return res, nil
}

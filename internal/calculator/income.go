package calculator

import (
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/accumulator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
)

// IncomeRequest projects a yield-paying holding with a steadily growing unit
// price. Rates are annual fractions (0.06 is 6%).
type IncomeRequest struct {
	InitialInvestment   float64 `json:"initialInvestment" yaml:"initialInvestment" mapstructure:"initialInvestment"`
	MonthlyContribution float64 `json:"monthlyContribution" yaml:"monthlyContribution" mapstructure:"monthlyContribution"`
	Currency            string  `json:"currency" yaml:"currency" mapstructure:"currency"`
	Years               int     `json:"years" yaml:"years" mapstructure:"years"`
	AnnualYieldRate     float64 `json:"annualYieldRate" yaml:"annualYieldRate" mapstructure:"annualYieldRate"`
	AnnualPriceGrowth   float64 `json:"annualPriceGrowth,omitempty" yaml:"annualPriceGrowth,omitempty" mapstructure:"annualPriceGrowth"`
	PayoutFrequency     string  `json:"payoutFrequency,omitempty" yaml:"payoutFrequency,omitempty" mapstructure:"payoutFrequency"`
	Reinvest            bool    `json:"reinvest" yaml:"reinvest" mapstructure:"reinvest"`
	EscalationRate      float64 `json:"escalationRate,omitempty" yaml:"escalationRate,omitempty" mapstructure:"escalationRate"`
	InflationRate       float64 `json:"inflationRate,omitempty" yaml:"inflationRate,omitempty" mapstructure:"inflationRate"`
	UnitPrice           float64 `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty" mapstructure:"unitPrice"`
}

// payoutMonths returns the months between yield payments.
func payoutMonths(name string) (int, bool) {
	switch name {
	case "", "monthly":
		return 1, true
	case "quarterly":
		return 3, true
	case "semiannual":
		return 6, true
	case "annual":
		return 12, true
	}
	return 0, false
}

func (r IncomeRequest) validate() error {
	switch {
	case r.Years <= 0:
		return invalid("years must be positive")
	case r.Years > constants.MaxProjectionYears:
		return invalid("years %d exceeds %d", r.Years, constants.MaxProjectionYears)
	case r.InitialInvestment < 0 || r.MonthlyContribution < 0:
		return invalid("investment and contribution must not be negative")
	case r.InitialInvestment == 0 && r.MonthlyContribution == 0:
		return invalid("an initial investment or a monthly contribution is required")
	case r.AnnualYieldRate < 0:
		return invalid("yield rate must not be negative")
	case r.AnnualPriceGrowth <= -1:
		return invalid("price growth must be greater than -100%%")
	case r.UnitPrice < 0:
		return invalid("unit price must not be negative")
	}
	if _, ok := payoutMonths(r.PayoutFrequency); !ok {
		return invalid("unknown payout frequency %q", r.PayoutFrequency)
	}
	return nil
}

func (e *Engine) income(req IncomeRequest) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}
	unitPrice := req.UnitPrice
	if unitPrice == 0 {
		unitPrice = 1
	}
	every, _ := payoutMonths(req.PayoutFrequency)

	now := e.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, req.Years*constants.MonthsPerYear-1, 0)

	monthIndex := func(p time.Time) int {
		return (p.Year()-start.Year())*constants.MonthsPerYear + int(p.Month()-start.Month())
	}
	price := func(p time.Time) float64 {
		return unitPrice * mathutil.CompoundFactor(req.AnnualPriceGrowth, float64(monthIndex(p))/constants.MonthsPerYear)
	}
	// Yield is paid on the last month of each payout interval.
	yield := func(p time.Time) float64 {
		if (monthIndex(p)+1)%every != 0 {
			return 0
		}
		return price(p) * req.AnnualYieldRate * float64(every) / constants.MonthsPerYear
	}

	freq := accumulator.FrequencyMonthly
	if req.MonthlyContribution == 0 {
		freq = accumulator.FrequencyNone
	}
	out, err := e.acc.Accumulate(accumulator.Config{
		Start:       start,
		End:         end,
		Granularity: accumulator.GranularityMonthly,
		Schedule: accumulator.Schedule{
			Amount:               req.MonthlyContribution,
			Unit:                 accumulator.UnitFiat,
			Frequency:            freq,
			AnnualEscalationRate: req.EscalationRate,
			ReinvestDividends:    req.Reinvest,
		},
		Price:         func(p time.Time) (float64, bool) { return price(p), true },
		Yield:         yield,
		InitialUnits:  req.InitialInvestment / unitPrice,
		InitialCost:   req.InitialInvestment,
		InflationRate: req.InflationRate,
	})
	if err != nil {
		return Result{}, invalidConfig(err)
	}

	res := Result{
		Currency: string(currency),
		Columns:  []string{"price", "contribution", "units", "income", "reinvestedUnits", "value", "realValue", "distributedIncome"},
	}
	var lastYearIncome float64
	for i, row := range out.Rows {
		if i >= len(out.Rows)-constants.MonthsPerYear {
			lastYearIncome += row.Income
		}
		res.Rows = append(res.Rows, Row{
			Period: row.Period.Format(constants.MonthLayout),
			Values: map[string]float64{
				"price":             row.Price,
				"contribution":      row.ContributionAmount,
				"units":             row.CumulativeUnits,
				"income":            row.Income,
				"reinvestedUnits":   row.ReinvestedUnits,
				"value":             row.CumulativeValue,
				"realValue":         row.RealValue,
				"distributedIncome": row.CumulativeIncome,
			},
		})
	}

	s := out.Summary
	res.addMetric("totalContributed", s.TotalContributed)
	res.addMetric("finalValue", s.FinalValue)
	res.addMetric("finalRealValue", s.FinalRealValue)
	res.addMetric("totalIncome", s.TotalIncome)
	res.addMetric("distributedIncome", s.DistributedIncome)
	res.addMetric("reinvestedIncome", s.TotalIncome-s.DistributedIncome)
	res.addMetric("finalYearIncome", lastYearIncome)
	res.addMetric("monthlyIncomeAtEnd", lastYearIncome/constants.MonthsPerYear)
	res.addMetric("roiPercent", s.ROIPercent)
	if req.Reinvest {
		res.note("income reinvested at each payout")
	}
	res.note("projection starts %s", datetime.FormatDate(start))
	return res, nil
}

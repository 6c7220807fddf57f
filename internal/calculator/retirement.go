package calculator

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/accumulator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
	"go.uber.org/zap"
)

// RetirementRequest plans saving BTC until retirement and drawing it down
// until life expectancy, at projected prices.
type RetirementRequest struct {
	CurrentAge          int      `json:"currentAge" yaml:"currentAge" mapstructure:"currentAge"`
	RetirementAge       int      `json:"retirementAge" yaml:"retirementAge" mapstructure:"retirementAge"`
	LifeExpectancy      int      `json:"lifeExpectancy" yaml:"lifeExpectancy" mapstructure:"lifeExpectancy"`
	CurrentBTC          float64  `json:"currentBtc" yaml:"currentBtc" mapstructure:"currentBtc"`
	MonthlyContribution float64  `json:"monthlyContribution" yaml:"monthlyContribution" mapstructure:"monthlyContribution"`
	Currency            string   `json:"currency" yaml:"currency" mapstructure:"currency"`
	EscalationRate      float64  `json:"escalationRate,omitempty" yaml:"escalationRate,omitempty" mapstructure:"escalationRate"`
	Scenario            string   `json:"scenario,omitempty" yaml:"scenario,omitempty" mapstructure:"scenario"`
	MacroEvents         []string `json:"macroEvents,omitempty" yaml:"macroEvents,omitempty" mapstructure:"macroEvents"`
	InflationRate       float64  `json:"inflationRate,omitempty" yaml:"inflationRate,omitempty" mapstructure:"inflationRate"`
	AnnualSpending      float64  `json:"annualSpending,omitempty" yaml:"annualSpending,omitempty" mapstructure:"annualSpending"`
}

func (r RetirementRequest) validate() error {
	switch {
	case r.CurrentAge <= 0:
		return invalid("current age must be positive")
	case r.RetirementAge <= r.CurrentAge:
		return invalid("retirement age %d must be after current age %d", r.RetirementAge, r.CurrentAge)
	case r.LifeExpectancy <= r.RetirementAge:
		return invalid("life expectancy %d must be after retirement age %d", r.LifeExpectancy, r.RetirementAge)
	case r.LifeExpectancy-r.CurrentAge > constants.MaxProjectionYears:
		return invalid("plan spans %d years, more than %d", r.LifeExpectancy-r.CurrentAge, constants.MaxProjectionYears)
	case r.CurrentBTC < 0 || r.MonthlyContribution < 0 || r.AnnualSpending < 0:
		return invalid("holdings, contribution and spending must not be negative")
	}
	return nil
}

// projectedPrice returns a price function in currency for scenario, anchored
// on the live USD price when one is available.
func (e *Engine) projectedPrice(conv *convert.Converter, res *Result, currency convert.Currency, scenarioName string, events []string, currentYear int) (func(year int) float64, error) {
	proj, err := e.projector()
	if err != nil {
		return nil, err
	}
	scenario, err := projection.ParseScenario(scenarioName)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if _, err := proj.ProjectPrice(currentYear, scenario, 1, currentYear, 0); err != nil {
		return nil, invalid("%v", err)
	}
	mult, unknown := projection.ComposeMultiplier(e.events, events)
	if len(unknown) > 0 {
		res.note("ignored unknown macro events: %s", strings.Join(unknown, ", "))
	}
	fx := conv.StaticRate(currency)
	if fx <= 0 {
		return nil, invalid("no current %s exchange rate configured", currency)
	}

	live := conv.LivePrice(convert.USD)
	if !live.Available {
		res.Degraded = true
		res.note("live USD price unavailable; projecting from anchors only")
	}

	return func(year int) float64 {
		// Scenario validity was checked above.
		usd, _ := proj.ProjectPrice(year, scenario, mult, currentYear, live.Value)
		return usd * fx
	}, nil
}

func (e *Engine) retirement(conv *convert.Converter, req RetirementRequest) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Currency: string(currency),
		Columns:  []string{"age", "price", "contribution", "btcAcquired", "btcWithdrawn", "btcHeld", "value", "realValue", "withdrawalValue", "spending"},
	}

	currentYear := e.now().Year()
	priceAt, err := e.projectedPrice(conv, &res, currency, req.Scenario, req.MacroEvents, currentYear)
	if err != nil {
		return Result{}, err
	}

	jan1 := func(year int) time.Time { return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC) }
	retirementYear := currentYear + req.RetirementAge - req.CurrentAge
	lastYear := currentYear + req.LifeExpectancy - req.CurrentAge - 1
	switchOver := jan1(retirementYear)

	freq := accumulator.FrequencyMonthly
	if req.MonthlyContribution == 0 {
		freq = accumulator.FrequencyNone
	}

	out, err := e.acc.Accumulate(accumulator.Config{
		Start:       jan1(currentYear),
		End:         jan1(lastYear),
		Granularity: accumulator.GranularityAnnual,
		Schedule: accumulator.Schedule{
			Amount:               req.MonthlyContribution,
			Unit:                 accumulator.UnitFiat,
			Frequency:            freq,
			AnnualEscalationRate: req.EscalationRate,
		},
		Price: func(p time.Time) (float64, bool) {
			v := priceAt(p.Year())
			return v, !math.IsInf(v, 0) && !math.IsNaN(v)
		},
		InitialUnits:  req.CurrentBTC,
		SwitchOver:    &switchOver,
		InflationRate: req.InflationRate,
	})
	if err != nil {
		return Result{}, invalidConfig(err)
	}

	var required, atRetirement float64
	atRetirement = req.CurrentBTC
	for _, row := range out.Rows {
		year := row.Period.Year()
		spending := 0.0
		if year >= retirementYear {
			spending = req.AnnualSpending * mathutil.CompoundFactor(req.InflationRate, float64(year-currentYear))
			required += mathutil.SafeDiv(spending, row.Price)
		} else {
			atRetirement = row.CumulativeUnits
		}
		res.Rows = append(res.Rows, Row{
			Period: strconv.Itoa(year),
			Values: map[string]float64{
				"age":             float64(req.CurrentAge + year - currentYear),
				"price":           row.Price,
				"contribution":    row.ContributionAmount,
				"btcAcquired":     row.UnitsAcquired,
				"btcWithdrawn":    row.UnitsWithdrawn,
				"btcHeld":         row.CumulativeUnits,
				"value":           row.CumulativeValue,
				"realValue":       row.RealValue,
				"withdrawalValue": row.WithdrawalValue,
				"spending":        spending,
			},
		})
	}

	s := out.Summary
	res.addMetric("btcAtRetirement", atRetirement)
	res.addMetric("btcRequired", required)
	res.addMetric("shortfallBtc", math.Max(required-atRetirement, 0))
	res.addMetric("surplusBtc", math.Max(atRetirement-required, 0))
	res.addMetric("totalContributed", s.TotalContributed)
	res.addMetric("valueAtRetirement", atRetirement*priceAt(retirementYear))
	if idx := retirementYear - currentYear; idx < len(out.Rows) {
		res.addMetric("firstYearWithdrawal", out.Rows[idx].WithdrawalValue)
	}
	res.addMetric("totalWithdrawnValue", s.WithdrawnValue)

	e.logger.Debug("retirement plan computed",
		zap.String("op", "calculator.retirement"),
		zap.Int("retirementYear", retirementYear),
		zap.Float64("btcRequired", required),
		zap.Float64("btcAtRetirement", atRetirement),
	)
	return res, nil
}

// Package accumulator runs contribution, reinvestment and withdrawal schedules
// over a sequence of periods and emits one row per period.
package accumulator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
	"go.uber.org/zap"
)

// ErrInvalidConfiguration is returned when a Config cannot produce meaningful rows.
var ErrInvalidConfiguration = errors.New("invalid accumulation configuration")

// Phase is the state of the schedule for a period.
type Phase string

const (
	PhaseAccumulation Phase = "accumulation"
	PhaseDecumulation Phase = "decumulation"
)

// Schedule describes a recurring contribution. Amount is in Unit.
type Schedule struct {
	Amount               float64
	Unit                 Unit
	Frequency            Frequency
	AnnualEscalationRate float64
	ReinvestDividends    bool
}

// PriceFunc returns the unit price for a period, or false when unknown.
type PriceFunc func(period time.Time) (float64, bool)

// YieldFunc returns the fiat income paid per unit held during a period.
type YieldFunc func(period time.Time) float64

// Config is the input of Accumulate.
type Config struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
	Schedule    Schedule
	Price       PriceFunc
	Yield       YieldFunc

	// InitialUnits are held before the first period; InitialCost is their
	// fiat cost basis.
	InitialUnits float64
	InitialCost  float64

	// SwitchOver starts decumulation on the first period at or after it.
	SwitchOver *time.Time

	InflationRate float64
}

// Row is one emitted period.
type Row struct {
	Period                time.Time `json:"period"`
	Phase                 Phase     `json:"phase"`
	Price                 float64   `json:"price"`
	PriceMissing          bool      `json:"priceMissing,omitempty"`
	ContributionAmount    float64   `json:"contributionAmount"`
	UnitsAcquired         float64   `json:"unitsAcquired"`
	UnitsWithdrawn        float64   `json:"unitsWithdrawn"`
	WithdrawalValue       float64   `json:"withdrawalValue"`
	Income                float64   `json:"income"`
	ReinvestedUnits       float64   `json:"reinvestedUnits"`
	CumulativeUnits       float64   `json:"cumulativeUnits"`
	CumulativeValue       float64   `json:"cumulativeValue"`
	CumulativeContributed float64   `json:"cumulativeContributed"`
	CumulativeIncome      float64   `json:"cumulativeIncome"`
	RealValue             float64   `json:"realValue"`
}

// Summary aggregates a Result.
type Summary struct {
	TotalContributed  float64 `json:"totalContributed"`
	FinalUnits        float64 `json:"finalUnits"`
	FinalValue        float64 `json:"finalValue"`
	FinalRealValue    float64 `json:"finalRealValue"`
	TotalIncome       float64 `json:"totalIncome"`
	DistributedIncome float64 `json:"distributedIncome"`
	TotalWithdrawn    float64 `json:"totalWithdrawn"`
	WithdrawnValue    float64 `json:"withdrawnValue"`
	ROIPercent        float64 `json:"roiPercent"`
	AverageCost       float64 `json:"averageCost"`
}

// Result is the output of Accumulate. Degraded is set when any period had no
// price; those periods are listed in SkippedPeriods.
type Result struct {
	Rows           []Row       `json:"rows"`
	Summary        Summary     `json:"summary"`
	Degraded       bool        `json:"degraded"`
	SkippedPeriods []time.Time `json:"skippedPeriods,omitempty"`
}

// Accumulator runs Configs.
type Accumulator struct {
	logger *zap.Logger
}

// New creates an Accumulator.
func New(logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{logger: logger}
}

// RealValue discounts nominal by inflation compounded over yearsElapsed.
func RealValue(nominal, inflationRate, yearsElapsed float64) float64 {
	return mathutil.SafeDiv(nominal, mathutil.CompoundFactor(inflationRate, yearsElapsed))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Validate reports the first structural problem with cfg.
func (cfg Config) Validate() error {
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		return invalid("start and end are required")
	}
	if cfg.End.Before(cfg.Start) {
		return invalid("end %s is before start %s", datetime.FormatDate(cfg.End), datetime.FormatDate(cfg.Start))
	}
	if _, ok := cfg.Granularity.step(); !ok {
		return invalid("unknown granularity %q", cfg.Granularity)
	}
	if _, err := ParseFrequency(string(cfg.Schedule.Frequency)); err != nil {
		return invalid("%v", err)
	}
	switch cfg.Schedule.Unit {
	case "", UnitFiat, UnitBTC, UnitSats:
	default:
		return invalid("unknown unit %q", cfg.Schedule.Unit)
	}
	if cfg.Schedule.Amount < 0 || math.IsNaN(cfg.Schedule.Amount) {
		return invalid("contribution amount must not be negative")
	}
	recurring := cfg.Schedule.Frequency != "" && cfg.Schedule.Frequency != FrequencyNone
	if recurring && cfg.Schedule.Amount == 0 {
		return invalid("contribution amount must be positive for a %s schedule", cfg.Schedule.Frequency)
	}
	if cfg.Schedule.AnnualEscalationRate <= -1 {
		return invalid("escalation rate must be greater than -100%%")
	}
	if cfg.InflationRate <= -1 {
		return invalid("inflation rate must be greater than -100%%")
	}
	if cfg.InitialUnits < 0 || cfg.InitialCost < 0 {
		return invalid("initial holdings must not be negative")
	}
	if cfg.SwitchOver != nil {
		s := datetime.Day(*cfg.SwitchOver)
		if s.Before(datetime.Day(cfg.Start)) || s.After(datetime.Day(cfg.End)) {
			return invalid("switch-over %s outside [%s, %s]", datetime.FormatDate(s), datetime.FormatDate(cfg.Start), datetime.FormatDate(cfg.End))
		}
	}
	if cfg.Price == nil {
		return invalid("price source is required")
	}
	return nil
}

// unitsFor returns how many units one contribution of amount buys at price and
// what it costs in fiat.
func (s Schedule) unitsFor(amount, price float64) (units, cost float64) {
	switch s.Unit {
	case UnitBTC:
		return amount, amount * price
	case UnitSats:
		units = amount / constants.SatsPerBTC
		return units, units * price
	default:
		return mathutil.SafeDiv(amount, price), amount
	}
}

// Accumulate walks the periods from Start to End and returns one row per
// period. An invalid cfg returns an empty Result and ErrInvalidConfiguration.
func (a *Accumulator) Accumulate(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	start, end := datetime.Day(cfg.Start), datetime.Day(cfg.End)
	periodStep, _ := cfg.Granularity.step()
	periods := periodStep.series(start, end)

	var contributions []time.Time
	if fs, ok := cfg.Schedule.Frequency.step(); ok {
		contributions = fs.series(start, end)
	}

	var switchOver time.Time
	if cfg.SwitchOver != nil {
		switchOver = datetime.Day(*cfg.SwitchOver)
	}

	var (
		result      = Result{Rows: make([]Row, 0, len(periods))}
		units       = cfg.InitialUnits
		contributed = cfg.InitialCost
		costUnits   = cfg.InitialUnits
		distributed float64
		income      float64
		withdrawn   float64
		withdrawnV  float64
		perPeriod   float64
		decumulate  bool
		next        int
	)

	for i, period := range periods {
		boundary := periodStep.nth(start, i+1)
		row := Row{Period: period, Phase: PhaseAccumulation}

		price, ok := cfg.Price(period)
		if !ok || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			price, ok = 0, false
			row.PriceMissing = true
			result.Degraded = true
			result.SkippedPeriods = append(result.SkippedPeriods, period)
		}
		row.Price = price

		if !decumulate && cfg.SwitchOver != nil && !period.Before(switchOver) {
			decumulate = true
			remaining := len(periods) - i
			perPeriod = units / float64(remaining)
			a.logger.Debug("switching to decumulation",
				zap.String("op", "accumulator.Accumulate"),
				zap.String("period", datetime.FormatDate(period)),
				zap.Float64("units", units),
				zap.Int("remainingPeriods", remaining),
			)
		}

		// Income accrues on the units held at the start of the period.
		if cfg.Yield != nil && units > 0 {
			row.Income = units * cfg.Yield(period)
			income += row.Income
			if cfg.Schedule.ReinvestDividends && ok {
				row.ReinvestedUnits = row.Income / price
				units += row.ReinvestedUnits
			} else {
				distributed += row.Income
			}
		}

		// Consume every contribution date that falls inside [period, boundary).
		for next < len(contributions) && contributions[next].Before(boundary) {
			date := contributions[next]
			next++
			if decumulate || date.Before(period) {
				continue
			}
			amount := cfg.Schedule.Amount * mathutil.CompoundFactor(cfg.Schedule.AnnualEscalationRate, float64(datetime.FullYearsBetween(start, date)))
			if !ok {
				continue
			}
			bought, cost := cfg.Schedule.unitsFor(amount, price)
			row.ContributionAmount += cost
			row.UnitsAcquired += bought
		}
		units += row.UnitsAcquired
		costUnits += row.UnitsAcquired
		contributed += row.ContributionAmount

		if decumulate {
			row.Phase = PhaseDecumulation
			row.UnitsWithdrawn = math.Min(perPeriod, units)
			units = math.Max(units-row.UnitsWithdrawn, 0)
			row.WithdrawalValue = row.UnitsWithdrawn * price
			withdrawn += row.UnitsWithdrawn
			withdrawnV += row.WithdrawalValue
		}

		row.CumulativeUnits = units
		row.CumulativeValue = units * price
		row.CumulativeContributed = contributed
		row.CumulativeIncome = distributed
		row.RealValue = RealValue(row.CumulativeValue, cfg.InflationRate, datetime.YearsBetween(start, period))
		result.Rows = append(result.Rows, row)
	}

	result.Summary = summarize(result.Rows, contributed, costUnits, income, distributed, withdrawn, withdrawnV)
	if result.Degraded {
		a.logger.Warn("accumulation skipped periods without a price",
			zap.String("op", "accumulator.Accumulate"),
			zap.Int("skipped", len(result.SkippedPeriods)),
		)
	}
	return result, nil
}

func summarize(rows []Row, contributed, costUnits, income, distributed, withdrawn, withdrawnValue float64) Summary {
	s := Summary{
		TotalContributed:  contributed,
		TotalIncome:       income,
		DistributedIncome: distributed,
		TotalWithdrawn:    withdrawn,
		WithdrawnValue:    withdrawnValue,
		AverageCost:       mathutil.SafeDiv(contributed, costUnits),
	}
	if len(rows) == 0 {
		return s
	}
	last := rows[len(rows)-1]
	s.FinalUnits = last.CumulativeUnits
	s.FinalValue = last.CumulativeValue
	s.FinalRealValue = last.RealValue
	s.ROIPercent = mathutil.PercentChange(contributed, s.FinalValue+distributed+withdrawnValue)
	return s
}

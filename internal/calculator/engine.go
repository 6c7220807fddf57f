// Package calculator runs the individual calculators (regret, DCA, retirement,
// scenarios, income, unit conversion, heatmap) over the shared converter and
// projector and returns uniformly shaped results.
package calculator

import (
	"errors"
	"fmt"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/accumulator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/timeseries"
	"go.uber.org/zap"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid calculation request")

// Kind names a calculator.
type Kind string

const (
	KindRegret     Kind = "regret"
	KindDCA        Kind = "dca"
	KindRetirement Kind = "retirement"
	KindScenarios  Kind = "scenarios"
	KindIncome     Kind = "income"
	KindConvert    Kind = "convert"
	KindHeatmap    Kind = "heatmap"
)

// Kinds lists every calculator.
var Kinds = []Kind{KindRegret, KindDCA, KindRetirement, KindScenarios, KindIncome, KindConvert, KindHeatmap}

// Request is one calculation as configured in YAML or posted to the API.
// Exactly the section matching Type is read.
type Request struct {
	Name   string `json:"name" yaml:"name" mapstructure:"name"`
	Type   Kind   `json:"type" yaml:"type" mapstructure:"type"`
	Active bool   `json:"active" yaml:"active" mapstructure:"active"`

	Regret     *RegretRequest     `json:"regret,omitempty" yaml:"regret,omitempty" mapstructure:"regret"`
	DCA        *DCARequest        `json:"dca,omitempty" yaml:"dca,omitempty" mapstructure:"dca"`
	Retirement *RetirementRequest `json:"retirement,omitempty" yaml:"retirement,omitempty" mapstructure:"retirement"`
	Scenarios  *ScenariosRequest  `json:"scenarios,omitempty" yaml:"scenarios,omitempty" mapstructure:"scenarios"`
	Income     *IncomeRequest     `json:"income,omitempty" yaml:"income,omitempty" mapstructure:"income"`
	Convert    *ConvertRequest    `json:"convert,omitempty" yaml:"convert,omitempty" mapstructure:"convert"`
	Heatmap    *HeatmapRequest    `json:"heatmap,omitempty" yaml:"heatmap,omitempty" mapstructure:"heatmap"`
}

// Row is one output period. Values are keyed by Result.Columns.
type Row struct {
	Period string             `json:"period"`
	Values map[string]float64 `json:"values"`
	Notes  []string           `json:"notes,omitempty"`
}

// Metric is a named summary figure.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Result is the output of one calculator.
type Result struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Currency string   `json:"currency,omitempty"`
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
	Summary  []Metric `json:"summary"`
	Notes    []string `json:"notes,omitempty"`
	Degraded bool     `json:"degraded"`
}

// Metric returns the summary value with the given name.
func (r Result) Metric(name string) (float64, bool) {
	for _, m := range r.Summary {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

func (r *Result) addMetric(name string, value float64) {
	r.Summary = append(r.Summary, Metric{Name: name, Value: value})
}

func (r *Result) note(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Engine runs calculations. It never mutates its converter; live quotes are
// applied to a copy per run.
type Engine struct {
	logger *zap.Logger
	conv   *convert.Converter
	proj   *projection.Projector
	acc    *accumulator.Accumulator
	events []projection.MacroEvent
	manual []timeseries.MonthlyBar
	rates  func() convert.Rates
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMacroEvents sets the toggleable macro events.
func WithMacroEvents(events []projection.MacroEvent) Option {
	return func(e *Engine) { e.events = append([]projection.MacroEvent(nil), events...) }
}

// WithManualMonths sets the hand-curated monthly history used by the heatmap.
func WithManualMonths(bars []timeseries.MonthlyBar) Option {
	return func(e *Engine) { e.manual = append([]timeseries.MonthlyBar(nil), bars...) }
}

// WithRatesSource makes every run use the quotes returned by source.
func WithRatesSource(source func() convert.Rates) Option {
	return func(e *Engine) { e.rates = source }
}

// WithClock overrides the current time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine. The projector is only required by the
// retirement and scenarios calculators.
func NewEngine(logger *zap.Logger, conv *convert.Converter, proj *projection.Projector, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conv == nil {
		return nil, errors.New("calculator engine requires a converter")
	}
	e := &Engine{
		logger: logger,
		conv:   conv,
		proj:   proj,
		acc:    accumulator.New(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MacroEvents returns the configured macro events.
func (e *Engine) MacroEvents() []projection.MacroEvent {
	return append([]projection.MacroEvent(nil), e.events...)
}

// Rates returns the present-day quotes a run would use.
func (e *Engine) Rates() convert.Rates {
	return e.converter().Rates()
}

// LivePrices returns the present-day BTC price in every supported currency,
// deriving missing ones through the static exchange rates.
func (e *Engine) LivePrices() map[convert.Currency]convert.LivePrice {
	conv := e.converter()
	out := make(map[convert.Currency]convert.LivePrice, len(convert.Supported))
	for _, c := range convert.Supported {
		out[c] = conv.LivePrice(c)
	}
	return out
}

func (e *Engine) converter() *convert.Converter {
	if e.rates == nil {
		return e.conv
	}
	return e.conv.WithRates(e.rates())
}

func (e *Engine) projector() (*projection.Projector, error) {
	if e.proj == nil {
		return nil, fmt.Errorf("%w: no projection anchors configured", ErrInvalidRequest)
	}
	return e.proj, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// invalidConfig keeps both the request and accumulator sentinels in the chain.
func invalidConfig(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

// Run executes a single request.
func (e *Engine) Run(req Request) (Result, error) {
	start := time.Now()
	conv := e.converter()

	var (
		res Result
		err error
	)
	switch req.Type {
	case KindRegret:
		if req.Regret == nil {
			return Result{}, invalid("%s: missing regret section", req.Name)
		}
		res, err = e.regret(conv, *req.Regret)
	case KindDCA:
		if req.DCA == nil {
			return Result{}, invalid("%s: missing dca section", req.Name)
		}
		res, err = e.dca(conv, *req.DCA)
	case KindRetirement:
		if req.Retirement == nil {
			return Result{}, invalid("%s: missing retirement section", req.Name)
		}
		res, err = e.retirement(conv, *req.Retirement)
	case KindScenarios:
		if req.Scenarios == nil {
			req.Scenarios = &ScenariosRequest{}
		}
		res, err = e.scenarios(conv, *req.Scenarios)
	case KindIncome:
		if req.Income == nil {
			return Result{}, invalid("%s: missing income section", req.Name)
		}
		res, err = e.income(*req.Income)
	case KindConvert:
		if req.Convert == nil {
			return Result{}, invalid("%s: missing convert section", req.Name)
		}
		res, err = e.convertUnits(conv, *req.Convert)
	case KindHeatmap:
		if req.Heatmap == nil {
			req.Heatmap = &HeatmapRequest{}
		}
		res, err = e.heatmap(conv, *req.Heatmap)
	default:
		return Result{}, invalid("%s: unknown calculation type %q", req.Name, req.Type)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", req.Name, err)
	}

	res.Name = req.Name
	res.Kind = req.Type
	e.logger.Debug("calculation complete",
		zap.String("op", "calculator.Run"),
		zap.String("name", req.Name),
		zap.String("type", string(req.Type)),
		zap.Int("rows", len(res.Rows)),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// RunAll executes every active request in order.
func (e *Engine) RunAll(reqs []Request) ([]Result, error) {
	var results []Result
	for _, req := range reqs {
		if !req.Active {
			e.logger.Debug("skipping inactive calculation",
				zap.String("op", "calculator.RunAll"),
				zap.String("name", req.Name),
			)
			continue
		}
		res, err := e.Run(req)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

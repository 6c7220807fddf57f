// Package projection projects future BTC prices from per-scenario anchor points
// using piecewise compound annual growth between bracketing anchors.
package projection

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/samber/lo"
)

// Scenario tags an anchor set.
type Scenario string

const (
	Bear Scenario = "bear"
	Base Scenario = "base"
	Bull Scenario = "bull"
)

// Scenarios is the display order used by Compare.
var Scenarios = []Scenario{Bear, Base, Bull}

// ErrUnknownScenario is returned when no anchors exist for a scenario.
var ErrUnknownScenario = errors.New("unknown scenario")

// ParseScenario normalizes a scenario name. An empty name is Base.
func ParseScenario(name string) (Scenario, error) {
	switch Scenario(name) {
	case "", Base:
		return Base, nil
	case Bear, Bull:
		return Scenario(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// Anchor is an assumed (year, price) waypoint.
type Anchor struct {
	Year  int     `json:"year" yaml:"year" mapstructure:"year"`
	Price float64 `json:"price" yaml:"price" mapstructure:"price"`
}

// AnchorSet holds the anchors of every scenario.
type AnchorSet map[Scenario][]Anchor

// Validate checks every scenario has at least two anchors with strictly
// increasing years and positive prices.
func (a AnchorSet) Validate() error {
	if len(a) == 0 {
		return errors.New("no scenario anchors configured")
	}
	for scenario, anchors := range a {
		if len(anchors) < 2 {
			return fmt.Errorf("scenario %s: at least two anchors required, got %d", scenario, len(anchors))
		}
		for i, anchor := range anchors {
			if anchor.Price <= 0 {
				return fmt.Errorf("scenario %s: anchor %d has non-positive price %v", scenario, anchor.Year, anchor.Price)
			}
			if i > 0 && anchor.Year <= anchors[i-1].Year {
				return fmt.Errorf("scenario %s: anchor years must be strictly increasing (%d after %d)", scenario, anchor.Year, anchors[i-1].Year)
			}
		}
	}
	return nil
}

// MacroEvent is a named multiplicative adjustment a caller can toggle on.
type MacroEvent struct {
	Name        string  `json:"name" yaml:"name" mapstructure:"name"`
	Multiplier  float64 `json:"multiplier" yaml:"multiplier" mapstructure:"multiplier"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// ComposeMultiplier returns the product of the multipliers of the enabled
// events. Unknown names are skipped and returned.
func ComposeMultiplier(events []MacroEvent, enabled []string) (float64, []string) {
	byName := lo.KeyBy(events, func(e MacroEvent) string { return e.Name })
	known := lo.Filter(enabled, func(name string, _ int) bool {
		_, ok := byName[name]
		return ok
	})
	unknown := lo.Without(enabled, known...)

	mult := lo.Reduce(lo.Uniq(known), func(acc float64, name string, _ int) float64 {
		return acc * byName[name].Multiplier
	}, 1.0)
	return mult, unknown
}

// CAGR returns the constant annual growth rate taking priceLo to priceHi over
// years. Non-positive inputs yield 0.
func CAGR(priceLo, priceHi, years float64) float64 {
	if years <= 0 || priceLo <= 0 || priceHi <= 0 {
		return 0
	}
	return math.Pow(priceHi/priceLo, 1/years) - 1
}

// Interpolate returns the price at year for anchors sorted by year. Years
// outside the anchor range extend the nearest segment's growth rate. A year
// equal to an anchor's returns that anchor's price exactly.
func Interpolate(anchors []Anchor, year float64) float64 {
	switch len(anchors) {
	case 0:
		return 0
	case 1:
		return anchors[0].Price
	}

	// Largest anchor with Year <= year, bounded to a valid segment start.
	idx := sort.Search(len(anchors), func(i int) bool { return float64(anchors[i].Year) > year }) - 1
	if idx >= 0 && float64(anchors[idx].Year) == year {
		return anchors[idx].Price
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(anchors)-2 {
		idx = len(anchors) - 2
	}

	start, end := anchors[idx], anchors[idx+1]
	span := float64(end.Year - start.Year)
	if span == 0 {
		return start.Price
	}
	rate := CAGR(start.Price, end.Price, span)
	return start.Price * math.Pow(1+rate, year-float64(start.Year))
}

// YearPrice is one point of a projected path.
type YearPrice struct {
	Year  int     `json:"year"`
	Price float64 `json:"price"`
}

// ComparisonRow holds the projected price of every scenario for a year.
type ComparisonRow struct {
	Year int     `json:"year"`
	Bear float64 `json:"bear"`
	Base float64 `json:"base"`
	Bull float64 `json:"bull"`
}

// Projector projects prices from a validated AnchorSet.
type Projector struct {
	anchors AnchorSet
}

// NewProjector validates anchors and returns a Projector that owns a copy.
func NewProjector(anchors AnchorSet) (*Projector, error) {
	if err := anchors.Validate(); err != nil {
		return nil, err
	}
	owned := make(AnchorSet, len(anchors))
	for scenario, list := range anchors {
		owned[scenario] = append([]Anchor(nil), list...)
	}
	return &Projector{anchors: owned}, nil
}

// Anchors returns a copy of the anchors configured for scenario.
func (p *Projector) Anchors(scenario Scenario) []Anchor {
	return append([]Anchor(nil), p.anchors[scenario]...)
}

// effective merges the current point into the scenario anchors. An anchor in
// currentYear is replaced. A non-positive currentPrice leaves anchors as-is.
func (p *Projector) effective(scenario Scenario, currentYear int, currentPrice float64) ([]Anchor, error) {
	anchors, ok := p.anchors[scenario]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, scenario)
	}
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return anchors, nil
	}
	merged := lo.Filter(anchors, func(a Anchor, _ int) bool { return a.Year != currentYear })
	merged = append(merged, Anchor{Year: currentYear, Price: currentPrice})
	sort.Slice(merged, func(i, j int) bool { return merged[i].Year < merged[j].Year })
	return merged, nil
}

// ProjectPrice returns the projected price for targetYear under scenario,
// scaled by macroMultiplier.
func (p *Projector) ProjectPrice(targetYear int, scenario Scenario, macroMultiplier float64, currentYear int, currentPrice float64) (float64, error) {
	anchors, err := p.effective(scenario, currentYear, currentPrice)
	if err != nil {
		return 0, err
	}
	return Interpolate(anchors, float64(targetYear)) * macroMultiplier, nil
}

// Path projects every year from fromYear to toYear inclusive. The range may
// span at most constants.MaxProjectionYears years and every price must be
// finite.
func (p *Projector) Path(fromYear, toYear int, scenario Scenario, macroMultiplier float64, currentYear int, currentPrice float64) ([]YearPrice, error) {
	if toYear < fromYear {
		return nil, fmt.Errorf("invalid year range %d-%d", fromYear, toYear)
	}
	if toYear-fromYear > constants.MaxProjectionYears {
		return nil, fmt.Errorf("year range %d-%d exceeds %d years", fromYear, toYear, constants.MaxProjectionYears)
	}
	anchors, err := p.effective(scenario, currentYear, currentPrice)
	if err != nil {
		return nil, err
	}
	path := make([]YearPrice, 0, toYear-fromYear+1)
	for year := fromYear; year <= toYear; year++ {
		price := Interpolate(anchors, float64(year)) * macroMultiplier
		if math.IsInf(price, 0) || math.IsNaN(price) {
			return nil, fmt.Errorf("%s projection for %d is not a finite price", scenario, year)
		}
		path = append(path, YearPrice{Year: year, Price: price})
	}
	return path, nil
}

// Compare projects bear, base and bull side by side for every year in range.
func (p *Projector) Compare(fromYear, toYear int, macroMultiplier float64, currentYear int, currentPrice float64) ([]ComparisonRow, error) {
	paths := make(map[Scenario][]YearPrice, len(Scenarios))
	for _, scenario := range Scenarios {
		path, err := p.Path(fromYear, toYear, scenario, macroMultiplier, currentYear, currentPrice)
		if err != nil {
			return nil, err
		}
		paths[scenario] = path
	}

	rows := make([]ComparisonRow, len(paths[Base]))
	for i := range rows {
		rows[i] = ComparisonRow{
			Year: paths[Base][i].Year,
			Bear: paths[Bear][i].Price,
			Base: paths[Base][i].Price,
			Bull: paths[Bull][i].Price,
		}
	}
	return rows, nil
}

package calculator

import (
	"strconv"
	"strings"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
)

// defaultScenarioHorizon is how many years past the current one a scenario
// table covers when no range is given.
const defaultScenarioHorizon = 20

// ScenariosRequest compares bear, base and bull projections over a year range.
type ScenariosRequest struct {
	FromYear    int      `json:"fromYear,omitempty" yaml:"fromYear,omitempty" mapstructure:"fromYear"`
	ToYear      int      `json:"toYear,omitempty" yaml:"toYear,omitempty" mapstructure:"toYear"`
	Currency    string   `json:"currency,omitempty" yaml:"currency,omitempty" mapstructure:"currency"`
	MacroEvents []string `json:"macroEvents,omitempty" yaml:"macroEvents,omitempty" mapstructure:"macroEvents"`
}

func (e *Engine) scenarios(conv *convert.Converter, req ScenariosRequest) (Result, error) {
	proj, err := e.projector()
	if err != nil {
		return Result{}, err
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return Result{}, err
	}

	currentYear := e.now().Year()
	from, to := req.FromYear, req.ToYear
	if from == 0 {
		from = currentYear
	}
	if to == 0 {
		to = from + defaultScenarioHorizon
	}
	if to < from {
		return Result{}, invalid("toYear %d is before fromYear %d", to, from)
	}
	if to-from > constants.MaxProjectionYears {
		return Result{}, invalid("year range %d-%d exceeds %d years", from, to, constants.MaxProjectionYears)
	}
	fx := conv.StaticRate(currency)
	if fx <= 0 {
		return Result{}, invalid("no current %s exchange rate configured", currency)
	}

	res := Result{Currency: string(currency), Columns: []string{"bear", "base", "bull"}}

	mult, unknown := projection.ComposeMultiplier(e.events, req.MacroEvents)
	if len(unknown) > 0 {
		res.note("ignored unknown macro events: %s", strings.Join(unknown, ", "))
	}
	live := conv.LivePrice(convert.USD)
	if !live.Available {
		res.Degraded = true
		res.note("live USD price unavailable; projecting from anchors only")
	}

	rows, err := proj.Compare(from, to, mult, currentYear, live.Value)
	if err != nil {
		return Result{}, invalid("%v", err)
	}
	for _, row := range rows {
		res.Rows = append(res.Rows, Row{
			Period: strconv.Itoa(row.Year),
			Values: map[string]float64{
				"bear": row.Bear * fx,
				"base": row.Base * fx,
				"bull": row.Bull * fx,
			},
		})
	}

	res.addMetric("macroMultiplier", mult)
	if live.Available {
		res.addMetric("currentPrice", live.Value*fx)
	}
	if len(rows) > 1 {
		first, last := rows[0], rows[len(rows)-1]
		years := float64(last.Year - first.Year)
		res.addMetric("cagrBearPercent", projection.CAGR(first.Bear, last.Bear, years)*100)
		res.addMetric("cagrBasePercent", projection.CAGR(first.Base, last.Base, years)*100)
		res.addMetric("cagrBullPercent", projection.CAGR(first.Bull, last.Bull, years)*100)
	}
	return res, nil
}

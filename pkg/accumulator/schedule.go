package accumulator

import (
	"fmt"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
)

// Frequency is how often a contribution is made.
type Frequency string

const (
	FrequencyNone     Frequency = "none"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnual   Frequency = "annual"
)

// Granularity is the step between emitted rows.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityAnnual  Granularity = "annual"
)

// Unit is the denomination of a contribution amount.
type Unit string

const (
	UnitFiat Unit = "fiat"
	UnitBTC  Unit = "btc"
	UnitSats Unit = "sats"
)

// ParseFrequency validates a frequency name. An empty name is FrequencyNone.
func ParseFrequency(name string) (Frequency, error) {
	switch f := Frequency(name); f {
	case "":
		return FrequencyNone, nil
	case FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyAnnual:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", name)
}

// step is a calendar offset: n days or n months.
type step struct {
	days   int
	months int
}

func (f Frequency) step() (step, bool) {
	switch f {
	case FrequencyDaily:
		return step{days: 1}, true
	case FrequencyWeekly:
		return step{days: 7}, true
	case FrequencyBiweekly:
		return step{days: 14}, true
	case FrequencyMonthly:
		return step{months: 1}, true
	case FrequencyAnnual:
		return step{months: 12}, true
	}
	return step{}, false
}

func (g Granularity) step() (step, bool) {
	switch g {
	case GranularityDaily:
		return step{days: 1}, true
	case GranularityWeekly:
		return step{days: 7}, true
	case GranularityMonthly:
		return step{months: 1}, true
	case GranularityAnnual:
		return step{months: 12}, true
	}
	return step{}, false
}

// nth returns start advanced by k steps. Month steps keep the day of month of
// start, clamped to the month's last day, so Jan 31 is followed by Feb 28.
func (s step) nth(start time.Time, k int) time.Time {
	if s.months == 0 {
		return start.AddDate(0, 0, s.days*k)
	}
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, s.months*k, 0)
	last := datetime.EndOfMonth(first)
	if start.Day() > last.Day() {
		return last
	}
	return first.AddDate(0, 0, start.Day()-1)
}

// series returns every date start, start+step, ... up to and including end.
func (s step) series(start, end time.Time) []time.Time {
	var out []time.Time
	for k := 0; ; k++ {
		d := s.nth(start, k)
		if d.After(end) {
			return out
		}
		out = append(out, d)
	}
}

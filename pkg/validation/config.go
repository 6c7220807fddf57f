// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"strings"
)

// ValidateCalculationDate warns when date predates the data floor and will be
// clamped. Both are YYYY-MM-DD strings, which order lexically.
func ValidateCalculationDate(calcName, field, date, floor string) string {
	if date == "" || floor == "" {
		return ""
	}
	if date < floor {
		return fmt.Sprintf("Calculation '%s' %s %s predates the data floor %s and will be clamped",
			calcName, field, date, floor)
	}
	return ""
}

// ValidateDateRange warns when end is set and falls before start.
func ValidateDateRange(calcName, start, end string) string {
	if start != "" && end != "" && end < start {
		return fmt.Sprintf("Calculation '%s' ends before it starts (%s < %s)", calcName, end, start)
	}
	return ""
}

// CalculationConfig is the subset of a calculation the validator inspects.
type CalculationConfig struct {
	Name        string
	Type        string
	Active      bool
	HasSection  bool
	Currency    string
	StartDate   string
	EndDate     string
	MacroEvents []string
}

// ConfigValidator checks calculations against the loaded environment.
type ConfigValidator struct {
	FloorDate    string
	Currencies   []string
	MacroEvents  []string
	LivePrices   bool
	Calculations []CalculationConfig
}

// ValidateAll returns every warning for the active calculations.
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	known := make(map[string]bool, len(cv.Currencies))
	for _, c := range cv.Currencies {
		known[strings.ToUpper(c)] = true
	}
	events := make(map[string]bool, len(cv.MacroEvents))
	for _, e := range cv.MacroEvents {
		events[e] = true
	}

	names := make(map[string]int)
	active := 0
	for _, calc := range cv.Calculations {
		names[calc.Name]++
		if !calc.Active {
			continue
		}
		active++

		if !calc.HasSection {
			warnings = append(warnings, fmt.Sprintf("Calculation '%s' of type %s has no %s section", calc.Name, calc.Type, calc.Type))
		}
		if c := strings.ToUpper(calc.Currency); c != "" && !known[c] {
			warnings = append(warnings, fmt.Sprintf("Calculation '%s' uses currency %s which has no exchange rate", calc.Name, c))
		}
		if w := ValidateCalculationDate(calc.Name, "start date", calc.StartDate, cv.FloorDate); w != "" {
			warnings = append(warnings, w)
		}
		if w := ValidateDateRange(calc.Name, calc.StartDate, calc.EndDate); w != "" {
			warnings = append(warnings, w)
		}
		for _, e := range calc.MacroEvents {
			if !events[e] {
				warnings = append(warnings, fmt.Sprintf("Calculation '%s' enables unknown macro event '%s'", calc.Name, e))
			}
		}
	}

	for name, n := range names {
		if n > 1 {
			warnings = append(warnings, fmt.Sprintf("Calculation name '%s' is used %d times", name, n))
		}
	}
	if active == 0 {
		warnings = append(warnings, "No active calculations configured")
	}
	if !cv.LivePrices {
		warnings = append(warnings, "Live price feed disabled and no static BTC price configured; present-day values will be unavailable")
	}
	return warnings
}

package timeseries

import "fmt"

// MonthlyBar is a month's open and close, used for hand-curated early history.
type MonthlyBar struct {
	Year  int     `json:"year" yaml:"year"`
	Month int     `json:"month" yaml:"month"`
	Open  float64 `json:"open" yaml:"open"`
	Close float64 `json:"close" yaml:"close"`
}

// Key returns the YYYY-MM label of the bar.
func (b MonthlyBar) Key() string {
	return fmt.Sprintf("%04d-%02d", b.Year, b.Month)
}

// Validate rejects impossible months and non-positive prices.
func (b MonthlyBar) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return fmt.Errorf("month %d out of range in %d", b.Month, b.Year)
	}
	if b.Open <= 0 || b.Close <= 0 {
		return fmt.Errorf("non-positive open/close for %s", b.Key())
	}
	return nil
}

// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
)

// FindResult finds a result by name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []calculator.Result, name string) *calculator.Result {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// FindRow returns the row of r with the given period, or nil.
func FindRow(r *calculator.Result, period string) *calculator.Row {
	if r == nil {
		return nil
	}
	for i := range r.Rows {
		if r.Rows[i].Period == period {
			return &r.Rows[i]
		}
	}
	return nil
}

// MetricNear reports whether metric name of r exists and lies within
// tolerance of want.
func MetricNear(r *calculator.Result, name string, want, tolerance float64) bool {
	if r == nil {
		return false
	}
	got, ok := r.Metric(name)
	return ok && mathutil.WithinTolerance(got, want, tolerance)
}

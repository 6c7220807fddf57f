package testutil

import (
	"testing"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
)

func sampleResults() []calculator.Result {
	return []calculator.Result{
		{Name: "Regret A", Summary: []calculator.Metric{{Name: "valueToday", Value: 1000}}},
		{Name: "DCA B", Rows: []calculator.Row{{Period: "2020-01"}, {Period: "2020-02"}}},
		{Name: "Another Regret", Summary: []calculator.Metric{{Name: "valueToday", Value: 3000}}},
	}
}

func TestFindResult(t *testing.T) {
	results := sampleResults()

	tests := []struct {
		name        string
		searchName  string
		expectFound bool
	}{
		{name: "Find first result", searchName: "Regret A", expectFound: true},
		{name: "Find result with longer name", searchName: "Another Regret", expectFound: true},
		{name: "Search for non-existent result", searchName: "Non-existent", expectFound: false},
		{name: "Search is case sensitive", searchName: "regret a", expectFound: false},
		{name: "Empty name", searchName: "", expectFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindResult(results, tt.searchName)
			if (got != nil) != tt.expectFound {
				t.Fatalf("FindResult(%q) = %v, expectFound %v", tt.searchName, got, tt.expectFound)
			}
			if got != nil && got.Name != tt.searchName {
				t.Errorf("FindResult(%q) returned %q", tt.searchName, got.Name)
			}
		})
	}
}

func TestFindResultReturnsPointerIntoSlice(t *testing.T) {
	results := sampleResults()
	found := FindResult(results, "DCA B")
	found.Name = "changed"
	if results[1].Name != "changed" {
		t.Error("FindResult should return a pointer into the original slice")
	}
	if FindResult(nil, "x") != nil {
		t.Error("nil slice should return nil")
	}
}

func TestFindRow(t *testing.T) {
	results := sampleResults()
	r := FindResult(results, "DCA B")
	if row := FindRow(r, "2020-02"); row == nil || row.Period != "2020-02" {
		t.Errorf("FindRow() = %v", row)
	}
	if FindRow(r, "2021-01") != nil {
		t.Error("missing period should return nil")
	}
	if FindRow(nil, "2020-01") != nil {
		t.Error("nil result should return nil")
	}
}

func TestMetricNear(t *testing.T) {
	r := FindResult(sampleResults(), "Regret A")
	if !MetricNear(r, "valueToday", 1000.001, 0.01) {
		t.Error("expected valueToday near 1000")
	}
	if MetricNear(r, "valueToday", 1100, 0.01) {
		t.Error("1100 should not be near 1000")
	}
	if MetricNear(r, "missing", 0, 1) {
		t.Error("missing metric should not match")
	}
}

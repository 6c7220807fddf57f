package datetime

import (
	"math"
	"testing"
	"time"
)

func TestMustParseTime(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		dateStr  string
		expected string
	}{
		{
			name:     "Valid date",
			layout:   DateLayout,
			dateStr:  "2025-01-15",
			expected: "2025-01-15",
		},
		{
			name:     "Floor date",
			layout:   DateLayout,
			dateStr:  "2014-09-17",
			expected: "2014-09-17",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MustParseTime(tt.layout, tt.dateStr)
			if result.Format(tt.layout) != tt.expected {
				t.Errorf("MustParseTime() = %s, expected %s", result.Format(tt.layout), tt.expected)
			}
		})
	}
}

func TestMustParseTimePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParseTime to panic with invalid date")
		}
	}()

	MustParseTime(DateLayout, "invalid-date")
}

func TestClamp(t *testing.T) {
	floor := MustParseTime(DateLayout, "2014-09-17")

	tests := []struct {
		name        string
		date        string
		expected    string
		wantClamped bool
	}{
		{"Before floor", "2010-01-01", "2014-09-17", true},
		{"On floor", "2014-09-17", "2014-09-17", false},
		{"After floor", "2020-03-12", "2020-03-12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := Clamp(MustParseTime(DateLayout, tt.date), floor)
			if FormatDate(got) != tt.expected {
				t.Errorf("Clamp() = %s, expected %s", FormatDate(got), tt.expected)
			}
			if clamped != tt.wantClamped {
				t.Errorf("Clamp() clamped = %v, expected %v", clamped, tt.wantClamped)
			}
		})
	}
}

func TestDayTruncates(t *testing.T) {
	in := time.Date(2021, 5, 3, 17, 45, 12, 99, time.FixedZone("BRT", -3*3600))
	got := Day(in)
	if FormatDate(got) != "2021-05-03" || got.Hour() != 0 || got.Location() != time.UTC {
		t.Errorf("Day() = %v, expected 2021-05-03 00:00 UTC", got)
	}
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		date     string
		expected string
	}{
		{"2024-02-10", "2024-02-29"},
		{"2023-02-01", "2023-02-28"},
		{"2023-12-31", "2023-12-31"},
		{"2023-04-15", "2023-04-30"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got := EndOfMonth(MustParseTime(DateLayout, tt.date))
			if FormatDate(got) != tt.expected {
				t.Errorf("EndOfMonth(%s) = %s, expected %s", tt.date, FormatDate(got), tt.expected)
			}
		})
	}
}

func TestFullYearsBetween(t *testing.T) {
	start := MustParseTime(DateLayout, "2020-03-15")

	tests := []struct {
		name     string
		date     string
		expected int
	}{
		{"Same day", "2020-03-15", 0},
		{"Day before anniversary", "2021-03-14", 0},
		{"On anniversary", "2021-03-15", 1},
		{"Several years", "2025-12-01", 5},
		{"Before start", "2019-01-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FullYearsBetween(start, MustParseTime(DateLayout, tt.date))
			if got != tt.expected {
				t.Errorf("FullYearsBetween() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestYearsBetween(t *testing.T) {
	start := MustParseTime(DateLayout, "2020-01-01")
	end := MustParseTime(DateLayout, "2022-01-01")
	got := YearsBetween(start, end)
	if math.Abs(got-2.0) > 0.01 {
		t.Errorf("YearsBetween() = %f, expected ~2.0", got)
	}
}

// Package timeseries holds immutable date-keyed numeric series and the as-of
// lookup used by every calculator.
package timeseries

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/datetime"
	"github.com/samber/lo"
)

// ErrNotFound is returned when a lookup target predates every point of the
// series. Callers clamp to Floor() and retry.
var ErrNotFound = errors.New("no data at or before target date")

// Point is one date/value entry.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Quote is a resolved lookup. Date is the key actually used, which may be
// earlier than the requested target.
type Quote struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an immutable day-granularity series with a sorted key index.
// It is safe for concurrent use.
type Series struct {
	dates  []time.Time
	values []float64
}

// New builds a Series from ISO YYYY-MM-DD keys.
func New(data map[string]float64) (*Series, error) {
	points := make([]Point, 0, len(data))
	for _, key := range lo.Keys(data) {
		date, err := datetime.ParseDate(key)
		if err != nil {
			return nil, fmt.Errorf("invalid series key %q: %w", key, err)
		}
		points = append(points, Point{Date: date, Value: data[key]})
	}
	return FromPoints(points)
}

// FromPoints builds a Series from points in any order. Dates are truncated to
// the day; duplicates are rejected.
func FromPoints(points []Point) (*Series, error) {
	sorted := lo.Map(points, func(p Point, _ int) Point {
		return Point{Date: datetime.Day(p.Date), Value: p.Value}
	})
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	s := &Series{
		dates:  make([]time.Time, len(sorted)),
		values: make([]float64, len(sorted)),
	}
	for i, p := range sorted {
		if i > 0 && p.Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("duplicate series date %s", datetime.FormatDate(p.Date))
		}
		s.dates[i] = p.Date
		s.values[i] = p.Value
	}
	return s, nil
}

// Len returns the number of points.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// Resolve returns the value at target, or at the closest prior date when
// target is not a key. Targets after the last point resolve to the last
// point. Targets before the first point return ErrNotFound.
func (s *Series) Resolve(target time.Time) (Quote, error) {
	if s.Len() == 0 {
		return Quote{}, ErrNotFound
	}
	target = datetime.Day(target)

	// First index strictly after target; the answer sits just before it.
	idx := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(target) })
	if idx == 0 {
		return Quote{}, ErrNotFound
	}
	return Quote{Date: s.dates[idx-1], Value: s.values[idx-1]}, nil
}

// Floor returns the first date in the series.
func (s *Series) Floor() (time.Time, bool) {
	p, ok := s.First()
	return p.Date, ok
}

// First returns the earliest point.
func (s *Series) First() (Point, bool) {
	if s.Len() == 0 {
		return Point{}, false
	}
	return Point{Date: s.dates[0], Value: s.values[0]}, true
}

// Last returns the latest point.
func (s *Series) Last() (Point, bool) {
	if s.Len() == 0 {
		return Point{}, false
	}
	n := len(s.dates) - 1
	return Point{Date: s.dates[n], Value: s.values[n]}, true
}

// Points returns the stored points with from <= date <= to, in order.
func (s *Series) Points(from, to time.Time) []Point {
	if s.Len() == 0 || to.Before(from) {
		return nil
	}
	from, to = datetime.Day(from), datetime.Day(to)
	start := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(from) })
	end := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(to) })

	out := make([]Point, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, Point{Date: s.dates[i], Value: s.values[i]})
	}
	return out
}

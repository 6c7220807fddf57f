package calculator

import (
	"errors"
	"testing"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/mathutil"
	"go.uber.org/zap"
)

func TestRetirementAgeValidation(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name string
		req  RetirementRequest
	}{
		{"retire before now", RetirementRequest{CurrentAge: 40, RetirementAge: 40, LifeExpectancy: 80}},
		{"retire in the past", RetirementRequest{CurrentAge: 40, RetirementAge: 35, LifeExpectancy: 80}},
		{"die before retiring", RetirementRequest{CurrentAge: 40, RetirementAge: 65, LifeExpectancy: 65}},
		{"zero age", RetirementRequest{CurrentAge: 0, RetirementAge: 65, LifeExpectancy: 85}},
		{"negative holdings", RetirementRequest{CurrentAge: 40, RetirementAge: 65, LifeExpectancy: 85, CurrentBTC: -1}},
		{"unknown scenario", RetirementRequest{CurrentAge: 40, RetirementAge: 65, LifeExpectancy: 85, Scenario: "moon"}},
		{"centuries of retirement", RetirementRequest{CurrentAge: 40, RetirementAge: 65, LifeExpectancy: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := e.Run(Request{Name: tt.name, Type: KindRetirement, Retirement: &req})
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Run() error = %v, expected ErrInvalidRequest", err)
			}
		})
	}
}

func TestRetirementDrawdown(t *testing.T) {
	e := testEngine(t)

	res, err := e.Run(Request{Name: "plan", Type: KindRetirement, Retirement: &RetirementRequest{
		CurrentAge: 40, RetirementAge: 45, LifeExpectancy: 50, CurrentBTC: 1, AnnualSpending: 10000,
	}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Rows) != 10 {
		t.Fatalf("got %d rows, expected 10", len(res.Rows))
	}
	if res.Rows[0].Period != "2026" || res.Rows[0].Values["age"] != 40 {
		t.Errorf("first row = %s age %v", res.Rows[0].Period, res.Rows[0].Values["age"])
	}
	if got := res.Rows[0].Values["price"]; got != 60000 {
		t.Errorf("current year price = %v, expected the live 60000", got)
	}

	for i, row := range res.Rows {
		held := row.Values["btcHeld"]
		if held < 0 {
			t.Errorf("row %d btcHeld = %v, must not be negative", i, held)
		}
		if i < 5 && row.Values["btcWithdrawn"] != 0 {
			t.Errorf("row %d withdrew before retirement", i)
		}
		if i >= 5 && !mathutil.WithinTolerance(row.Values["btcWithdrawn"], 0.2, constants.BTCTolerance) {
			t.Errorf("row %d btcWithdrawn = %v, expected 0.2", i, row.Values["btcWithdrawn"])
		}
	}
	if last := res.Rows[9].Values["btcHeld"]; !mathutil.WithinTolerance(last, 0, constants.BTCTolerance) {
		t.Errorf("final btcHeld = %v, expected 0", last)
	}

	atRetirement := metric(t, res, "btcAtRetirement")
	required := metric(t, res, "btcRequired")
	if atRetirement != 1 {
		t.Errorf("btcAtRetirement = %v, expected 1", atRetirement)
	}
	var want float64
	for _, row := range res.Rows[5:] {
		want += 10000 / row.Values["price"]
	}
	if !mathutil.WithinRelative(required, want, 1e-12) {
		t.Errorf("btcRequired = %v, expected %v", required, want)
	}
	diff := metric(t, res, "surplusBtc") - metric(t, res, "shortfallBtc")
	if !mathutil.WithinTolerance(diff, atRetirement-required, 1e-12) {
		t.Errorf("surplus - shortfall = %v, expected %v", diff, atRetirement-required)
	}
}

func TestRetirementContributionsAndCurrency(t *testing.T) {
	e := testEngine(t)

	res, err := e.Run(Request{Name: "plan", Type: KindRetirement, Retirement: &RetirementRequest{
		CurrentAge: 30, RetirementAge: 32, LifeExpectancy: 34, MonthlyContribution: 1000, Currency: "BRL",
	}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := res.Rows[0].Values["price"]; got != 300000 {
		t.Errorf("BRL price = %v, expected 300000", got)
	}
	if got := res.Rows[0].Values["contribution"]; got != 12000 {
		t.Errorf("first year contribution = %v, expected 12000", got)
	}
	if got := metric(t, res, "totalContributed"); got != 24000 {
		t.Errorf("totalContributed = %v, expected 24000", got)
	}
	for _, row := range res.Rows[2:] {
		if row.Values["contribution"] != 0 {
			t.Errorf("%s: contributions must stop after retirement", row.Period)
		}
	}
}

func TestRetirementWithoutLivePrice(t *testing.T) {
	e := testEngine(t, WithRatesSource(func() convert.Rates {
		return convert.Rates{FX: map[convert.Currency]float64{convert.BRL: 5}}
	}))

	res, err := e.Run(Request{Name: "plan", Type: KindRetirement, Retirement: &RetirementRequest{
		CurrentAge: 40, RetirementAge: 45, LifeExpectancy: 50, CurrentBTC: 1,
	}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if got := res.Rows[0].Values["price"]; got != 120000 {
		t.Errorf("price = %v, expected the 2026 base anchor", got)
	}
}

func TestRetirementRequiresProjector(t *testing.T) {
	e, err := NewEngine(zap.NewNop(), testConverter(t), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	_, err = e.Run(Request{Name: "plan", Type: KindRetirement, Retirement: &RetirementRequest{
		CurrentAge: 40, RetirementAge: 45, LifeExpectancy: 50,
	}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Run() error = %v, expected ErrInvalidRequest", err)
	}
}

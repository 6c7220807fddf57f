package integration

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/config"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/dataset"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/output"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/testutil"
	"go.uber.org/zap"
)

const testConfigPath = "../test_config.yaml"

// runConfiguration wires the packages the same way the CLI does, with the
// live feed disabled.
func runConfiguration(t *testing.T, conf *config.Configuration) []calculator.Result {
	t.Helper()
	logger := zap.NewNop()

	tables, err := dataset.NewLoader(logger).Load(context.Background(), conf.Data)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	conv, err := convert.New(tables.BTCUSD, tables.FX, conf.StaticRates())
	if err != nil {
		t.Fatalf("convert.New() error = %v", err)
	}
	anchors, err := conf.AnchorSet()
	if err != nil {
		t.Fatalf("AnchorSet() error = %v", err)
	}
	proj, err := projection.NewProjector(anchors)
	if err != nil {
		t.Fatalf("NewProjector() error = %v", err)
	}
	engine, err := calculator.NewEngine(logger, conv, proj,
		calculator.WithMacroEvents(conf.Projection.MacroEvents),
		calculator.WithManualMonths(tables.Manual),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	results, err := engine.RunAll(conf.Calculations)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	return results
}

func loadTestConfig(t *testing.T) *config.Configuration {
	t.Helper()
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	return conf
}

// TestMainIntegrationBaseline checks the bundled tables produce the expected
// figures for the test configuration.
func TestMainIntegrationBaseline(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))

	expectedNames := []string{
		"bought in 2017",
		"bought before the data",
		"weekly stacking",
		"retirement plan",
		"projection table",
		"dividend income",
		"one bitcoin",
		"monthly returns",
	}
	if len(results) != len(expectedNames) {
		t.Fatalf("Expected %d results, got %d", len(expectedNames), len(results))
	}
	for i, expected := range expectedNames {
		if results[i].Name != expected {
			t.Errorf("Expected result %s, got %s", expected, results[i].Name)
		}
		if results[i].Degraded {
			t.Errorf("Result %s should not be degraded with a static BTC price", expected)
		}
	}

	baselineChecks := []struct {
		result    string
		metric    string
		expected  float64
		tolerance float64
	}{
		{"bought in 2017", "btcBought", 1.00200401, 1e-8},
		{"bought in 2017", "valueToday", 100200.40, 0.01},
		{"bought in 2017", "purchasePrice", 998, 0.001},
		{"bought before the data", "btcBought", 0.93047015, 1e-8},
		{"bought before the data", "valueToday", 465235.08, 0.01},
		{"one bitcoin", "sats", 100000000, 0},
		{"one bitcoin", "btc", 1, 0},
	}
	for _, check := range baselineChecks {
		r := testutil.FindResult(results, check.result)
		if !testutil.MetricNear(r, check.metric, check.expected, check.tolerance) {
			got, _ := r.Metric(check.metric)
			t.Errorf("%s %s = %v, expected %v (tolerance %v)", check.result, check.metric, got, check.expected, check.tolerance)
		}
	}
}

func TestClampedDateIsNoted(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))
	r := testutil.FindResult(results, "bought before the data")
	if r == nil {
		t.Fatal("missing result")
	}
	found := false
	for _, n := range r.Notes {
		if strings.Contains(n, "2014-09-17") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a note naming the floor date, got %v", r.Notes)
	}
}

func TestConvertRows(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))
	r := testutil.FindResult(results, "one bitcoin")

	checks := map[string]float64{"USD": 100000, "BRL": 500000, "EUR": 90000}
	for period, expected := range checks {
		row := testutil.FindRow(r, period)
		if row == nil {
			t.Errorf("missing %s row", period)
			continue
		}
		if row.Values["value"] != expected {
			t.Errorf("%s value = %v, expected %v", period, row.Values["value"], expected)
		}
	}
}

func TestScenarioOrdering(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))
	r := testutil.FindResult(results, "projection table")
	if len(r.Rows) != 5 {
		t.Fatalf("Expected 5 projection rows, got %d", len(r.Rows))
	}
	for _, row := range r.Rows {
		bear, base, bull := row.Values["bear"], row.Values["base"], row.Values["bull"]
		if !(bear <= base && base <= bull) {
			t.Errorf("%s: expected bear <= base <= bull, got %v %v %v", row.Period, bear, base, bull)
		}
	}
}

func TestHeatmapBlendsManualHistory(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))
	r := testutil.FindResult(results, "monthly returns")

	manual := testutil.FindRow(r, "2013-11")
	if manual == nil {
		t.Fatal("expected the curated 2013-11 month")
	}
	if manual.Values["confidence"] >= 1 {
		t.Errorf("curated months should carry lower confidence, got %v", manual.Values["confidence"])
	}
	computed := testutil.FindRow(r, "2020-06")
	if computed == nil || computed.Values["confidence"] != 1 {
		t.Errorf("computed month 2020-06 = %+v", computed)
	}
}

func TestCSVOutputFormat(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))

	csv := output.CsvString(results)
	scanner := bufio.NewScanner(strings.NewReader(csv))
	headers := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "calculation,period,") {
			headers++
		}
	}
	if headers != len(results) {
		t.Errorf("CSV has %d header lines, expected one per result (%d)", headers, len(results))
	}
	if !strings.Contains(csv, "bought in 2017,2017-01-31,") {
		t.Errorf("CSV missing the first regret month end")
	}
}

func TestPrettyOutputFormat(t *testing.T) {
	results := runConfiguration(t, loadTestConfig(t))

	var buf bytes.Buffer
	if err := output.PrettyFormat(&buf, results); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"--- Results for regret bought in 2017 ---",
		"--- Results for heatmap monthly returns ---",
		"valueToday: $100,200.40",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q", want)
		}
	}
}

func TestConfigurationValidation(t *testing.T) {
	conf := loadTestConfig(t)
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("test configuration should validate cleanly, got %v", warnings)
	}

	conf.Calculations = append(conf.Calculations, calculator.Request{
		Name:   "bad currency",
		Type:   calculator.KindRegret,
		Active: true,
		Regret: &calculator.RegretRequest{Amount: 1, Currency: "JPY", Date: "2020-01-01"},
	})
	warnings := conf.ValidateConfiguration()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "JPY") {
		t.Errorf("expected one JPY warning, got %v", warnings)
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/timeseries"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, live bool) *calculator.Engine {
	t.Helper()
	btc, err := timeseries.New(map[string]float64{
		"2014-09-17": 457.33,
		"2017-01-01": 1000,
		"2020-01-01": 7200,
	})
	if err != nil {
		t.Fatalf("timeseries.New() error = %v", err)
	}
	rates := convert.Rates{FX: map[convert.Currency]float64{convert.BRL: 5, convert.EUR: 0.9}}
	if live {
		rates.BTC = map[convert.Currency]convert.LivePrice{
			convert.USD: {Value: 60000, Available: true, Source: "test"},
		}
	}
	conv, err := convert.New(btc, nil, rates)
	if err != nil {
		t.Fatalf("convert.New() error = %v", err)
	}
	proj, err := projection.NewProjector(projection.AnchorSet{
		projection.Bear: {{Year: 2026, Price: 80000}, {Year: 2030, Price: 150000}},
		projection.Base: {{Year: 2026, Price: 120000}, {Year: 2030, Price: 300000}},
		projection.Bull: {{Year: 2026, Price: 160000}, {Year: 2030, Price: 500000}},
	})
	if err != nil {
		t.Fatalf("NewProjector() error = %v", err)
	}
	engine, err := calculator.NewEngine(zap.NewNop(), conv, proj,
		calculator.WithClock(func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }),
		calculator.WithMacroEvents([]projection.MacroEvent{{Name: "etf", Multiplier: 1.5}}),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func newTestHandler(t *testing.T, live bool) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), newTestEngine(t, live), Config{MaxCalculations: 3, uploadSizeBytes: 4096}, " 1.2.3 ")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHandleCalculate(t *testing.T) {
	handler := newTestHandler(t, true)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantResults int
		wantErr     string
	}{
		{
			name:        "single request",
			body:        `{"name":"buy","type":"regret","regret":{"amount":1000,"currency":"USD","date":"2017-01-01"}}`,
			wantStatus:  http.StatusOK,
			wantResults: 1,
		},
		{
			name: "list of requests",
			body: `[{"type":"regret","regret":{"amount":100,"currency":"BRL","date":"2020-01-01"}},
				{"type":"convert","convert":{"amount":1,"unit":"btc"}}]`,
			wantStatus:  http.StatusOK,
			wantResults: 2,
		},
		{
			name:        "calculations wrapper",
			body:        `{"calculations":[{"name":"s","type":"scenarios"}]}`,
			wantStatus:  http.StatusOK,
			wantResults: 1,
		},
		{
			name:       "invalid json",
			body:       `{"type":`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "failed to decode calculation",
		},
		{
			name:       "empty body",
			body:       "  ",
			wantStatus: http.StatusBadRequest,
			wantErr:    "empty request body",
		},
		{
			name:       "unknown type",
			body:       `{"name":"x","type":"lottery"}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "unknown calculation type",
		},
		{
			name:       "too many calculations",
			body:       `[{"type":"scenarios"},{"type":"scenarios"},{"type":"scenarios"},{"type":"scenarios"}]`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "exceeds limit of 3",
		},
		{
			name:       "body too large",
			body:       `{"name":"` + strings.Repeat("a", 5000) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantErr:    "exceeds limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, expected %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantErr != "" {
				var payload map[string]string
				decodeBody(t, rec, &payload)
				if !strings.Contains(payload["error"], tt.wantErr) {
					t.Errorf("error = %q, expected it to contain %q", payload["error"], tt.wantErr)
				}
				return
			}

			var resp calculateResponse
			decodeBody(t, rec, &resp)
			if len(resp.Results) != tt.wantResults {
				t.Fatalf("got %d results, expected %d", len(resp.Results), tt.wantResults)
			}
			if resp.CSV == "" || !strings.HasPrefix(resp.CSV, "calculation,period") {
				t.Errorf("unexpected CSV %q", resp.CSV)
			}
			if resp.Duration == "" {
				t.Error("expected a duration")
			}
			for _, res := range resp.Results {
				if res.Name == "" {
					t.Error("results should always be named")
				}
			}
		})
	}
}

func TestHandleCalculateMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculate", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, expected 405", rec.Code)
	}
}

func TestHandleCalculateDegraded(t *testing.T) {
	body := `{"name":"u","type":"convert","convert":{"amount":100,"unit":"fiat","currency":"USD"}}`
	rec := httptest.NewRecorder()
	newTestHandler(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp calculateResponse
	decodeBody(t, rec, &resp)
	if !resp.Degraded {
		t.Error("expected a degraded response without live prices")
	}
}

func TestHandlePrice(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/price", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp priceResponse
	decodeBody(t, rec, &resp)
	usd := resp.Quotes[convert.USD]
	if !usd.Available || usd.Value != 60000 || usd.Source != "test" {
		t.Errorf("USD quote = %+v", usd)
	}
	eur := resp.Quotes[convert.EUR]
	if !eur.Available || !eur.Approximate || eur.Value != 54000 {
		t.Errorf("EUR quote = %+v, expected derived approximate 54000", eur)
	}
	if resp.FX[convert.BRL] != 5 {
		t.Errorf("FX = %v", resp.FX)
	}
}

func TestHandleScenarios(t *testing.T) {
	handler := newTestHandler(t, true)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRows   int
	}{
		{"explicit range", "?from=2026&to=2030", http.StatusOK, 5},
		{"with events", "?from=2026&to=2027&events=etf,%20", http.StatusOK, 2},
		{"bad year", "?from=soon", http.StatusBadRequest, 0},
		{"reversed range", "?from=2030&to=2026", http.StatusBadRequest, 0},
		{"unbounded range", "?from=2026&to=1000000000", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scenarios"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, expected %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var res calculator.Result
			decodeBody(t, rec, &res)
			if len(res.Rows) != tt.wantRows {
				t.Fatalf("got %d rows, expected %d", len(res.Rows), tt.wantRows)
			}
		})
	}
}

func TestHandleScenariosMacroEvents(t *testing.T) {
	handler := newTestHandler(t, true)
	fetch := func(query string) calculator.Result {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scenarios"+query, nil))
		var res calculator.Result
		decodeBody(t, rec, &res)
		return res
	}

	plain := fetch("?from=2028&to=2028")
	boosted := fetch("?from=2028&to=2028&events=etf")
	if len(plain.Rows) != 1 || len(boosted.Rows) != 1 {
		t.Fatalf("rows = %d, %d", len(plain.Rows), len(boosted.Rows))
	}
	got := boosted.Rows[0].Values["base"] / plain.Rows[0].Values["base"]
	if got < 1.49 || got > 1.51 {
		t.Errorf("etf multiplier ratio = %v, expected 1.5", got)
	}
}

func TestHandleEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	var resp struct {
		Events []projection.MacroEvent `json:"events"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Events) != 1 || resp.Events[0].Name != "etf" {
		t.Errorf("events = %+v", resp.Events)
	}
}

func TestHandleVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["version"] != "1.2.3" {
		t.Errorf("version = %q, expected trimmed 1.2.3", resp["version"])
	}

	rec = httptest.NewRecorder()
	NewHandler(nil, newTestEngine(t, true), Config{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	decodeBody(t, rec, &resp)
	if resp["version"] != "dev" {
		t.Errorf("version = %q, expected dev", resp["version"])
	}
}

func TestRequestID(t *testing.T) {
	handler := newTestHandler(t, true)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	generated := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(generated); err != nil {
		t.Fatalf("generated request ID %q is not a UUID", generated)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("request ID = %q, expected %q to be echoed", got, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("invalid incoming request IDs should be replaced")
	}
}

func TestDecodeRequests(t *testing.T) {
	reqs, err := decodeRequests(bytes.TrimSpace([]byte(`{"calculations":[{"type":"heatmap"},{"type":"scenarios"}]}`)))
	if err != nil {
		t.Fatalf("decodeRequests() error = %v", err)
	}
	if len(reqs) != 2 || reqs[0].Type != calculator.KindHeatmap {
		t.Errorf("decodeRequests() = %+v", reqs)
	}
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	rec := httptest.NewRecorder()

	h.writeJSON(rec, http.StatusOK, map[string]float64{"bull": math.Inf(1)})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500", rec.Code)
	}
	var payload map[string]string
	decodeBody(t, rec, &payload)
	if payload["error"] == "" {
		t.Errorf("expected an error body, got %q", rec.Body.String())
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/output"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

type handler struct {
	logger          *zap.Logger
	engine          *calculator.Engine
	maxUploadSize   int64
	maxCalculations int
	version         string
}

// NewHandler constructs the HTTP handler that serves the calculator API.
// Zero fields in cfg take their defaults.
func NewHandler(logger *zap.Logger, engine *calculator.Engine, cfg Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxCalculations := cfg.MaxCalculations
	if maxCalculations <= 0 {
		maxCalculations = defaultMaxCalculations
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:          logger,
		engine:          engine,
		maxUploadSize:   cfg.UploadSizeBytes(),
		maxCalculations: maxCalculations,
		version:         trimmedVersion,
	}

	mux := http.NewServeMux()

	// Calculation endpoint (single request or a list)
	mux.HandleFunc("/api/calculate", h.handleCalculate)

	// Present-day quotes with their provenance flags
	mux.HandleFunc("/api/price", h.handlePrice)

	// Bear/base/bull comparison table
	mux.HandleFunc("/api/scenarios", h.handleScenarios)

	// Toggleable macro events
	mux.HandleFunc("/api/events", h.handleEvents)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return h.withRequestID(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		h.logger.Info("request served",
			zap.String("op", "server.request"),
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

type calculateResponse struct {
	Results  []calculator.Result `json:"results"`
	CSV      string              `json:"csv"`
	Degraded bool                `json:"degraded"`
	Duration string              `json:"duration"`
}

// decodeRequests accepts a single calculation object, a JSON array of them,
// or an object with a "calculations" list.
func decodeRequests(body []byte) ([]calculator.Request, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty request body")
	}
	if trimmed[0] == '[' {
		var reqs []calculator.Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}

	var wrapper struct {
		Calculations []calculator.Request `json:"calculations"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Calculations) > 0 {
		return wrapper.Calculations, nil
	}

	var req calculator.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []calculator.Request{req}, nil
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return
	}

	reqs, err := decodeRequests(buf.Bytes())
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode calculation: %v", err), op)
		return
	}
	if len(reqs) > h.maxCalculations {
		h.respondErrorWithOp(w, r, http.StatusBadRequest,
			fmt.Sprintf("%d calculations exceeds limit of %d per request", len(reqs), h.maxCalculations), op)
		return
	}

	results := make([]calculator.Result, 0, len(reqs))
	for i, req := range reqs {
		if strings.TrimSpace(req.Name) == "" {
			req.Name = fmt.Sprintf("%s-%d", req.Type, i+1)
		}
		res, err := h.engine.Run(req)
		if err != nil {
			h.respondErrorWithOp(w, r, statusFor(err), err.Error(), op)
			return
		}
		results = append(results, res)
	}

	elapsed := time.Since(start)
	response := calculateResponse{
		Results:  results,
		CSV:      output.CsvString(results),
		Degraded: lo.SomeBy(results, func(res calculator.Result) bool { return res.Degraded }),
		Duration: elapsed.String(),
	}

	h.logger.Info("calculation computed",
		zap.String("op", op),
		zap.String("request_id", requestID(r)),
		zap.Int("results", len(results)),
		zap.Bool("degraded", response.Degraded),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func statusFor(err error) int {
	if errors.Is(err, calculator.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type priceResponse struct {
	Quotes map[convert.Currency]convert.LivePrice `json:"quotes"`
	FX     map[convert.Currency]float64           `json:"fx"`
}

func (h *handler) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, priceResponse{
		Quotes: h.engine.LivePrices(),
		FX:     h.engine.Rates().FX,
	})
}

func parseYear(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s year %q", key, raw)
	}
	return year, nil
}

func (h *handler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleScenarios"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	from, err := parseYear(r, "from")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	to, err := parseYear(r, "to")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	var events []string
	if raw := r.URL.Query().Get("events"); raw != "" {
		events = lo.Compact(lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}

	res, err := h.engine.Run(calculator.Request{
		Name:   "scenarios",
		Type:   calculator.KindScenarios,
		Active: true,
		Scenarios: &calculator.ScenariosRequest{
			FromYear:    from,
			ToYear:      to,
			Currency:    r.URL.Query().Get("currency"),
			MacroEvents: events,
		},
	})
	if err != nil {
		h.respondErrorWithOp(w, r, statusFor(err), err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": h.engine.MacroEvents(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("calculation request failed",
		zap.String("op", op),
		zap.String("request_id", requestID(r)),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before writing the status, so an encoding failure
// becomes a 500 with an error body.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

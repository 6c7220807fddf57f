package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"go.uber.org/zap"
)

func TestCoinGeckoFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd,brl,eur" {
			t.Errorf("vs_currencies = %q", got)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("ids = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000,"brl":0,"eur":60000}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(zap.NewNop(), server.URL+"/", time.Millisecond, 0, 0)
	got, err := c.FetchPrices(context.Background(), convert.Supported)
	if err != nil {
		t.Fatalf("FetchPrices() error = %v", err)
	}
	if got[convert.USD] != 65000 || got[convert.EUR] != 60000 {
		t.Errorf("FetchPrices() = %v", got)
	}
	if _, ok := got[convert.BRL]; ok {
		t.Error("zero BRL price should be dropped")
	}
}

func TestCoinGeckoRetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(zap.NewNop(), server.URL, time.Millisecond, 2, 0)
	got, err := c.FetchPrices(context.Background(), []convert.Currency{convert.USD})
	if err != nil {
		t.Fatalf("FetchPrices() error = %v", err)
	}
	if got[convert.USD] != 65000 {
		t.Errorf("USD = %v, expected 65000", got[convert.USD])
	}
	if calls != 3 {
		t.Errorf("server called %d times, expected 3", calls)
	}
}

func TestCoinGeckoErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		retries int
	}{
		{"server error", http.StatusInternalServerError, "boom", 2},
		{"rate limited out of retries", http.StatusTooManyRequests, "", 1},
		{"bad json", http.StatusOK, "not json", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewCoinGeckoClient(zap.NewNop(), server.URL, time.Millisecond, tt.retries, 0)
			if _, err := c.FetchPrices(context.Background(), []convert.Currency{convert.USD}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCoinGeckoHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewCoinGeckoClient(zap.NewNop(), server.URL, time.Hour, 3, 0)
	if _, err := c.FetchPrices(ctx, []convert.Currency{convert.USD}); err == nil {
		t.Error("expected context error")
	}
}

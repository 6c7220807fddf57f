package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Quote sources besides provider names.
const (
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Service holds the latest quote per currency. Refresh applies the policy:
// providers in order with the first usable value winning per currency, then
// the last good cached value (stale past staleAfter), then the configured
// fallback flagged approximate, otherwise unavailable.
type Service struct {
	logger     *zap.Logger
	providers  []Provider
	store      QuoteStore
	currencies []convert.Currency
	fallback   map[convert.Currency]float64
	fx         map[convert.Currency]float64
	staleAfter time.Duration
	now        func() time.Time

	mu     sync.RWMutex
	cache  map[convert.Currency]StoredQuote
	latest map[convert.Currency]convert.LivePrice
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore persists and restores last good quotes.
func WithStore(store QuoteStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithFallback sets the last-resort prices.
func WithFallback(prices map[convert.Currency]float64) ServiceOption {
	return func(s *Service) { s.fallback = prices }
}

// WithStaticFX sets the local-per-USD exchange rates reported by Rates.
func WithStaticFX(fx map[convert.Currency]float64) ServiceOption {
	return func(s *Service) { s.fx = fx }
}

// WithStaleAfter sets the age past which a cached quote is flagged stale.
func WithStaleAfter(d time.Duration) ServiceOption {
	return func(s *Service) { s.staleAfter = d }
}

// WithServiceClock overrides the current time.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. Stored quotes are loaded as the initial cache
// so results are available before the first refresh.
func NewService(logger *zap.Logger, providers []Provider, opts ...ServiceOption) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		logger:     logger,
		providers:  providers,
		currencies: convert.Supported,
		staleAfter: 30 * time.Minute,
		now:        time.Now,
		cache:      make(map[convert.Currency]StoredQuote),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store != nil {
		stored, err := s.store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to load stored quotes: %w", err)
		}
		s.cache = stored
	}
	s.latest = s.settle(nil)
	return s, nil
}

type fetched struct {
	value  float64
	source string
}

// Refresh queries the providers and updates the latest quotes. It returns
// ErrNoQuote when no provider produced anything; the quotes still move to
// their cached or fallback values.
func (s *Service) Refresh(ctx context.Context) error {
	fresh := make(map[convert.Currency]fetched, len(s.currencies))
	for _, p := range s.providers {
		missing := lo.Filter(s.currencies, func(c convert.Currency, _ int) bool {
			_, ok := fresh[c]
			return !ok
		})
		if len(missing) == 0 {
			break
		}
		prices, err := p.FetchPrices(ctx, missing)
		if err != nil {
			s.logger.Warn("price provider failed",
				zap.String("op", "pricefeed.Refresh"),
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		for _, c := range missing {
			if v, ok := prices[c]; ok && usable(v) {
				fresh[c] = fetched{value: v, source: p.Name()}
			}
		}
	}

	now := s.now().UTC()
	s.mu.Lock()
	for c, f := range fresh {
		q := StoredQuote{Currency: c, Value: f.value, Source: f.source, UpdatedAt: now}
		s.cache[c] = q
		if s.store != nil {
			if err := s.store.Save(q); err != nil {
				s.logger.Error("failed to persist quote", zap.String("op", "pricefeed.Refresh"), zap.Error(err))
			}
		}
	}
	s.latest = s.settleLocked(fresh)
	s.mu.Unlock()

	s.logger.Debug("quotes refreshed",
		zap.String("op", "pricefeed.Refresh"),
		zap.Int("fresh", len(fresh)),
		zap.Int("currencies", len(s.currencies)),
	)
	if len(fresh) == 0 {
		return fmt.Errorf("%w: all %d providers failed", ErrNoQuote, len(s.providers))
	}
	return nil
}

func (s *Service) settle(fresh map[convert.Currency]fetched) map[convert.Currency]convert.LivePrice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleLocked(fresh)
}

func (s *Service) settleLocked(fresh map[convert.Currency]fetched) map[convert.Currency]convert.LivePrice {
	now := s.now().UTC()
	out := make(map[convert.Currency]convert.LivePrice, len(s.currencies))
	for _, c := range s.currencies {
		if f, ok := fresh[c]; ok {
			out[c] = convert.LivePrice{Value: f.value, Available: true, Source: f.source, UpdatedAt: now}
			continue
		}
		if q, ok := s.cache[c]; ok && usable(q.Value) {
			out[c] = convert.LivePrice{
				Value:     q.Value,
				Available: true,
				Stale:     now.Sub(q.UpdatedAt) > s.staleAfter,
				Source:    SourceCache,
				UpdatedAt: q.UpdatedAt,
			}
			continue
		}
		if v := s.fallback[c]; usable(v) {
			out[c] = convert.LivePrice{Value: v, Available: true, Approximate: true, Source: SourceFallback}
			continue
		}
		out[c] = convert.LivePrice{}
	}
	return out
}

// Quotes returns a copy of the latest quote per currency.
func (s *Service) Quotes() map[convert.Currency]convert.LivePrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Assign(s.latest)
}

// Rates returns the latest quotes as converter input. Exchange rates come from
// the static table unless both sides were fetched fresh from one provider in
// the last refresh, in which case the implied cross rate is used.
func (s *Service) Rates() convert.Rates {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rates := convert.Rates{BTC: lo.Assign(s.latest), FX: lo.Assign(s.fx)}
	usd := s.latest[convert.USD]
	if !usd.Available || usd.Stale || usd.Approximate || usd.Source == SourceCache {
		return rates
	}
	for c, q := range s.latest {
		if c == convert.USD || !q.Available || q.Source != usd.Source {
			continue
		}
		rates.FX[c] = q.Value / usd.Value
	}
	return rates
}

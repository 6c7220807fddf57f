package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/config"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/dataset"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/pricefeed"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
	"go.uber.org/zap"
)

// runtime is everything a command needs, built once from the configuration.
type runtime struct {
	engine    *calculator.Engine
	feed      *pricefeed.Service
	refresher *pricefeed.Refresher
	closers   []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildRuntime loads the static tables, wires the live feed when enabled and
// constructs the calculator engine. A missing or invalid anchor set only
// disables the projection calculators.
func buildRuntime(ctx context.Context, logger *zap.Logger, conf *config.Configuration) (*runtime, error) {
	tables, err := dataset.NewLoader(logger).Load(ctx, conf.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	conv, err := convert.New(tables.BTCUSD, tables.FX, conf.StaticRates())
	if err != nil {
		return nil, fmt.Errorf("failed to build converter: %w", err)
	}

	var proj *projection.Projector
	if anchors, err := conf.AnchorSet(); err != nil {
		logger.Warn("projection disabled",
			zap.String("op", "main.buildRuntime"),
			zap.Error(err),
		)
	} else if proj, err = projection.NewProjector(anchors); err != nil {
		return nil, fmt.Errorf("failed to build projector: %w", err)
	}

	rt := &runtime{}
	opts := []calculator.Option{
		calculator.WithMacroEvents(conf.Projection.MacroEvents),
		calculator.WithManualMonths(tables.Manual),
	}

	if conf.Feed.Enabled {
		if rt.feed, err = buildFeed(logger, conf, rt); err != nil {
			_ = rt.Close()
			return nil, err
		}
		opts = append(opts, calculator.WithRatesSource(rt.feed.Rates))
	}

	if rt.engine, err = calculator.NewEngine(logger, conv, proj, opts...); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func buildFeed(logger *zap.Logger, conf *config.Configuration, rt *runtime) (*pricefeed.Service, error) {
	providers, err := pricefeed.NewProviders(logger, conf.Feed)
	if err != nil {
		return nil, fmt.Errorf("failed to build price providers: %w", err)
	}

	svcOpts := []pricefeed.ServiceOption{
		pricefeed.WithFallback(conf.FeedFallback()),
		pricefeed.WithStaticFX(conf.FXRates()),
		pricefeed.WithStaleAfter(conf.Feed.StaleAfter),
	}
	if conf.Feed.DBPath != "" {
		store, err := pricefeed.OpenSQLiteStore(logger, conf.Feed.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open quote store: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		svcOpts = append(svcOpts, pricefeed.WithStore(store))
	}

	svc, err := pricefeed.NewService(logger, providers, svcOpts...)
	if err != nil {
		return nil, err
	}

	rt.refresher, err = pricefeed.NewRefresher(logger, svc, conf.Feed.Schedule, conf.Feed.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule price refresh: %w", err)
	}
	return svc, nil
}

// refreshOnce performs a single bounded refresh when the feed is enabled.
func (r *runtime) refreshOnce() {
	if r.refresher != nil {
		r.refresher.RunOnce()
	}
}

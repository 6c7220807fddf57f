package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Refresher runs Service.Refresh on a cron schedule. A run still in progress
// when the next tick fires causes that tick to be skipped; every run is bounded
// by timeout.
type Refresher struct {
	logger  *zap.Logger
	service *Service
	cron    *cron.Cron
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRefresher registers a refresh job on schedule (e.g. "@every 5m").
func NewRefresher(logger *zap.Logger, service *Service, schedule string, timeout time.Duration) (*Refresher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{s: logger.Sugar()}
	r := &Refresher{
		logger:  logger,
		service: service,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		timeout: timeout,
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	if _, err := r.cron.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, fmt.Errorf("register refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// RunOnce refreshes the quotes under the configured timeout.
func (r *Refresher) RunOnce() {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := r.service.Refresh(ctx); err != nil {
		r.logger.Warn("price refresh degraded",
			zap.String("op", "pricefeed.RunOnce"),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("price refresh complete",
		zap.String("op", "pricefeed.RunOnce"),
		zap.Duration("duration", time.Since(start)),
	)
}

// Start refreshes once synchronously and then starts the schedule.
func (r *Refresher) Start() {
	r.RunOnce()
	r.cron.Start()
	r.logger.Info("price refresher started", zap.String("op", "pricefeed.Start"))
}

// Stop cancels any in-flight refresh and waits for it to return.
func (r *Refresher) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("price refresher stopped", zap.String("op", "pricefeed.Stop"))
}

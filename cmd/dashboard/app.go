package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/sensor-dashboard/internal/cache"
	"github.com/kjstillabower/sensor-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/sensor-dashboard/internal/config"
	"github.com/kjstillabower/sensor-dashboard/internal/dashboard"
	"github.com/kjstillabower/sensor-dashboard/internal/dataset"
	httphandler "github.com/kjstillabower/sensor-dashboard/internal/http"
	"github.com/kjstillabower/sensor-dashboard/internal/lifecycle"
	"github.com/kjstillabower/sensor-dashboard/internal/observability"
	"github.com/kjstillabower/sensor-dashboard/internal/service"
)

// app is the wired dashboard: everything main needs to serve and shut down.
type app struct {
	router     http.Handler
	dispatcher *dashboard.Dispatcher
	memcached  *cache.MemcachedCache
}

// newApp loads the CSV and builds the layout, callbacks, figure cache and routes.
// Any data error is returned before a listener exists.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	tbl, err := dataset.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	minDate, maxDate := tbl.DateBounds()
	observability.DatasetReadings.Set(float64(tbl.Len()))
	logger.Info("dataset loaded",
		zap.String("path", cfg.DataPath),
		zap.Int("rows", tbl.Len()),
		zap.Int("locations", len(tbl.Locations())),
		zap.String("first_date", minDate.Format(dataset.DateLayout)),
		zap.String("last_date", maxDate.Format(dataset.DateLayout)))

	layout := dashboard.NewLayout(tbl, dashboard.LayoutOptions{
		LocationDomain: cfg.LocationDomain,
		LocationLabels: cfg.LocationLabels,
		HistogramBins:  cfg.HistogramBins,
	})
	reg := dashboard.NewRegistry()
	if err := dashboard.NewCharts(tbl, cfg.LocationDomain).Register(reg); err != nil {
		return nil, fmt.Errorf("register callbacks: %w", err)
	}

	a := &app{}
	var figureCache cache.Cache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		a.memcached = mc
		figureCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		figureCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}
	figures := service.NewFigureService(figureCache, cfg.CacheTTL, cfg.RequestTimeout, logger)

	a.dispatcher = dashboard.NewDispatcher(reg, figures, dashboard.DispatcherOptions{
		Defaults: layout.DefaultInputs(),
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerTimeout,
		},
		Logger: logger,
	})

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
	}
	if a.memcached != nil {
		healthConfig.CachePing = a.memcached.Ping
	}
	handler, err := httphandler.NewHandler(layout, a.dispatcher, healthConfig, logger)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	a.router = httphandler.NewRouter(handler, httphandler.RouterOptions{
		Limiter: limiter,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	return a, nil
}

// warm renders every output with the default inputs, then marks the process
// ready. With an interval it keeps refreshing until ctx is done.
func (a *app) warm(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	defer lifecycle.SetReady(true)
	if !cfg.CacheWarm {
		return
	}
	warmer := cache.NewCacheWarmer(a.dispatcher, logger)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := warmer.Warm(warmCtx); err != nil {
		logger.Warn("cache warming failed", zap.Error(err))
	}
	cancel()
	if cfg.CacheWarmInterval > 0 {
		go func() {
			if err := warmer.WarmPeriodic(ctx, cfg.CacheWarmInterval); err != nil && err != context.Canceled {
				logger.Error("periodic cache warming stopped", zap.Error(err))
			}
		}()
	}
}

func (a *app) close(logger *zap.Logger) {
	if a.memcached == nil {
		return
	}
	if err := a.memcached.Close(); err != nil {
		logger.Error("memcached close", zap.Error(err))
	}
}

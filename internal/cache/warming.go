package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sensor-dashboard/internal/observability"
)

// DefaultRenderer renders one dashboard output with the initial filter state,
// storing the result in the figure cache. Implemented by the dashboard
// dispatcher; declared here to keep cache free of a dashboard import.
type DefaultRenderer interface {
	Outputs() []string
	RenderDefault(ctx context.Context, output string) error
}

// CacheWarmer primes the figure cache with the first-render figures.
type CacheWarmer struct {
	renderer DefaultRenderer
	logger   *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given renderer and logger.
func NewCacheWarmer(renderer DefaultRenderer, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{renderer: renderer, logger: logger}
}

// Warm renders every output concurrently. Failures are joined; outputs that
// succeeded stay cached.
func (w *CacheWarmer) Warm(ctx context.Context) error {
	start := time.Now()
	outputs := w.renderer.Outputs()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming figure cache", zap.Int("outputs", len(outputs)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(outputs))
	for _, out := range outputs {
		out := out
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.renderer.RenderDefault(ctx, out); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", out, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("figure cache warming complete",
		zap.Int("outputs", len(outputs)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return errors.Join(errs...)
	}
	return nil
}

// WarmPeriodic re-warms at interval until ctx is done. The first refresh is one
// interval out; the startup warm is the caller's.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}

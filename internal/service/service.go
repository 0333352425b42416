package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sensor-dashboard/internal/cache"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
	"github.com/kjstillabower/sensor-dashboard/internal/observability"
)

// ComputeFunc builds a figure from scratch on a cache miss.
type ComputeFunc func(ctx context.Context) (figure.Figure, error)

// FigureService serves serialised figures with a cache-aside strategy.
// Concurrent misses for the same key share one computation.
type FigureService struct {
	cache           cache.Cache
	ttl             time.Duration
	stampedeTracker *stampedeTracker
	coalescer       *requestCoalescer
	logger          *zap.Logger
}

// NewFigureService creates a FigureService. ttl is the cache lifetime of a
// figure; coalesceTimeout bounds how long a caller waits on a shared computation.
func NewFigureService(c cache.Cache, ttl, coalesceTimeout time.Duration, logger *zap.Logger) *FigureService {
	if coalesceTimeout <= 0 {
		coalesceTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FigureService{
		cache:           c,
		ttl:             ttl,
		stampedeTracker: newStampedeTracker(),
		coalescer:       newRequestCoalescer(coalesceTimeout),
		logger:          logger,
	}
}

// Resolve returns the JSON figure for key, computing and caching it on a miss.
// Cache failures are logged and counted but never fail the call.
func (s *FigureService) Resolve(ctx context.Context, output, key string, compute ComputeFunc) ([]byte, error) {
	logger := observability.LoggerFrom(ctx, s.logger)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.FigureCacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("figure cache get failed",
			zap.String("output", output),
			zap.String("category", categorizeCacheError(err)),
			zap.Error(err))
	} else if ok {
		observability.FigureCacheHitsTotal.WithLabelValues(output).Inc()
		logger.Debug("figure cache hit", zap.String("output", output))
		return cached, nil
	}

	if n := s.stampedeTracker.RecordMiss(key); n > 1 {
		logger.Debug("concurrent figure cache misses", zap.String("output", output), zap.Int("concurrent", n))
	}
	defer s.stampedeTracker.RecordHit(key)

	// The computation outlives a waiter that gives up, so it must not inherit its cancellation.
	computeCtx := context.WithoutCancel(ctx)
	raw, shared, err := s.coalescer.GetOrDo(ctx, key, func() ([]byte, error) {
		fig, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(fig)
	})
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", output, err)
	}

	if !shared {
		if setErr := s.cache.Set(ctx, key, raw, s.ttl); setErr != nil {
			observability.FigureCacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("figure cache set failed",
				zap.String("output", output),
				zap.String("category", categorizeCacheError(setErr)),
				zap.Error(setErr))
		}
	}
	logger.Debug("figure computed", zap.String("output", output), zap.Bool("coalesced", shared))
	return raw, nil
}

// categorizeCacheError returns a stable label for cache error logs (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}

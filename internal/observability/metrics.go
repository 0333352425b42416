package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/sensor-dashboard/internal/overload"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 increases on the dispatch route.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Chart callbacks by output and outcome (ok, error, panic, open). Watch for: error share per output.
	DashboardCallbacksTotal *prometheus.CounterVec

	// Chart callback latency, cache hits included.
	DashboardCallbackDuration *prometheus.HistogramVec

	// Figure cache hits per output. Misses = callbacks - hits.
	FigureCacheHitsTotal *prometheus.CounterVec

	// Figure cache backend failures by operation (get, set). Requests still succeed.
	FigureCacheErrorsTotal *prometheus.CounterVec

	// Breaker state per output: 0 closed, 1 open, 2 half-open.
	BreakerState *prometheus.GaugeVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Readings loaded at startup.
	DatasetReadings prometheus.Gauge

	// Startup and periodic warm runs.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	DashboardCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardCallbacksTotal",
			Help: "Chart callbacks fired, by output id and outcome",
		},
		[]string{"output", "status"},
	)
	DashboardCallbackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboardCallbackDurationSeconds",
			Help:    "Chart callback latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"output"},
	)
	FigureCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "figureCacheHitsTotal",
			Help: "Figures served from cache, by output id",
		},
		[]string{"output"},
	)
	FigureCacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "figureCacheErrorsTotal",
			Help: "Figure cache backend errors, by operation",
		},
		[]string{"op"},
	)
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakerStateGauge",
			Help: "Circuit breaker state per output (0 closed, 1 open, 2 half-open)",
		},
		[]string{"output"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	DatasetReadings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datasetReadings",
			Help: "Number of sensor readings loaded from the CSV file",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of figure cache warm runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Warm runs where at least one output failed",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of a figure cache warm run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		DashboardCallbacksTotal, DashboardCallbackDuration,
		FigureCacheHitsTotal, FigureCacheErrorsTotal,
		BreakerState,
		RateLimitDeniedTotal,
		DatasetReadings,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited routes.
// Call from main after config load with the overload window.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited routes in sliding window; load/capacity planning",
				},
				func() float64 { return float64(overload.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(overload.DenialCount(window)) },
			),
		)
	})
}

// RecordCallback records one chart callback outcome for output.
func RecordCallback(output, status string, d time.Duration) {
	DashboardCallbacksTotal.WithLabelValues(output, status).Inc()
	DashboardCallbackDuration.WithLabelValues(output).Observe(d.Seconds())
}

// SetBreakerState exports a breaker transition. state is the numeric breaker state.
func SetBreakerState(output string, state int) {
	BreakerState.WithLabelValues(output).Set(float64(state))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

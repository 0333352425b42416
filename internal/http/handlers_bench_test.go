package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/sensor-dashboard/internal/cache"
	"github.com/kjstillabower/sensor-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/sensor-dashboard/internal/dashboard"
	"github.com/kjstillabower/sensor-dashboard/internal/dataset"
	"github.com/kjstillabower/sensor-dashboard/internal/service"
)

// setupBenchmarkRouter builds the full stack with figures resolved through an
// in-memory cache, as the default deployment does.
func setupBenchmarkRouter(b *testing.B, limiter *rate.Limiter) http.Handler {
	b.Helper()
	tbl, err := dataset.Parse(strings.NewReader(fixtureCSV))
	if err != nil {
		b.Fatal(err)
	}
	layout := dashboard.NewLayout(tbl, dashboard.LayoutOptions{})
	reg := dashboard.NewRegistry()
	if err := dashboard.NewCharts(tbl, dashboard.DefaultLocationDomain).Register(reg); err != nil {
		b.Fatal(err)
	}
	figures := service.NewFigureService(cache.NewInMemoryCache(), 5*time.Minute, time.Second, zap.NewNop())
	d := dashboard.NewDispatcher(reg, figures, dashboard.DispatcherOptions{
		Defaults: layout.DefaultInputs(),
		Breaker:  circuitbreaker.Config{FailureThreshold: 5, SuccessThreshold: 1, Timeout: time.Second},
	})
	h, err := NewHandler(layout, d, &HealthConfig{
		OverloadWindow:       60 * time.Second,
		OverloadThresholdPct: 80,
		RateLimitRPS:         100,
		DegradedWindow:       60 * time.Second,
		DegradedErrorPct:     20,
	}, zap.NewNop())
	if err != nil {
		b.Fatal(err)
	}
	return NewRouter(h, RouterOptions{Limiter: limiter, Timeout: 5 * time.Second})
}

func runBenchmark(b *testing.B, router http.Handler, method, path, body string) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set("X-Correlation-ID", "bench-id")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

// BenchmarkHandler_PostUpdate_CacheHit measures a dispatch whose figure is already cached.
func BenchmarkHandler_PostUpdate_CacheHit(b *testing.B) {
	router := setupBenchmarkRouter(b, nil)
	runBenchmark(b, router, "POST", "/_dash-update-component",
		`{"changed":["checklist.value"],"inputs":{"checklist.value":["1","2"]}}`)
}

// BenchmarkHandler_PostUpdate_Initial measures the first-load dispatch of every output.
func BenchmarkHandler_PostUpdate_Initial(b *testing.B) {
	router := setupBenchmarkRouter(b, nil)
	runBenchmark(b, router, "POST", "/_dash-update-component", `{"changed":[],"inputs":{}}`)
}

// BenchmarkHandler_PostUpdate_UnknownInput measures the rejection path.
func BenchmarkHandler_PostUpdate_UnknownInput(b *testing.B) {
	router := setupBenchmarkRouter(b, nil)
	runBenchmark(b, router, "POST", "/_dash-update-component", `{"changed":["nope.value"],"inputs":{}}`)
}

// BenchmarkHandler_PostUpdate_RateLimited measures limiter overhead on the dispatch route.
func BenchmarkHandler_PostUpdate_RateLimited(b *testing.B) {
	router := setupBenchmarkRouter(b, rate.NewLimiter(rate.Limit(100), 250))
	runBenchmark(b, router, "POST", "/_dash-update-component",
		`{"changed":["y-axis.value"],"inputs":{"y-axis.value":"tempf"}}`)
}

// BenchmarkHandler_GetFigureSVG measures server-side SVG rendering of the line chart.
func BenchmarkHandler_GetFigureSVG(b *testing.B) {
	router := setupBenchmarkRouter(b, nil)
	runBenchmark(b, router, "GET", "/figures/linechart1.svg", "")
}

// BenchmarkHandler_GetHealth benchmarks the health check endpoint.
func BenchmarkHandler_GetHealth(b *testing.B) {
	router := setupBenchmarkRouter(b, nil)
	runBenchmark(b, router, "GET", "/health", "")
}

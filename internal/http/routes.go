package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/sensor-dashboard/internal/observability"
)

// RouterOptions configures NewRouter. A nil Limiter disables rate limiting and a
// zero Timeout leaves chart requests unbounded.
type RouterOptions struct {
	Limiter *rate.Limiter
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewRouter mounts every dashboard route. Chart routes sit behind the rate
// limiter and request timeout; page, health and metrics routes do not.
func NewRouter(h *Handler, opts RouterOptions) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", h.GetIndex).Methods("GET")
	router.HandleFunc("/_dash-layout", h.GetLayout).Methods("GET")
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	charts := router.NewRoute().Subrouter()
	charts.Use(RateLimitMiddleware(opts.Limiter))
	if opts.Timeout > 0 {
		charts.Use(TimeoutMiddleware(opts.Timeout))
	}
	charts.HandleFunc("/_dash-update-component", h.PostUpdate).Methods("POST")
	charts.HandleFunc("/figures/{output}.svg", h.GetFigureSVG).Methods("GET")
	return router
}

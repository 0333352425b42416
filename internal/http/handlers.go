package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/sensor-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/sensor-dashboard/internal/dashboard"
	"github.com/kjstillabower/sensor-dashboard/internal/degraded"
	"github.com/kjstillabower/sensor-dashboard/internal/figure"
	"github.com/kjstillabower/sensor-dashboard/internal/lifecycle"
	"github.com/kjstillabower/sensor-dashboard/internal/models"
	"github.com/kjstillabower/sensor-dashboard/internal/observability"
	"github.com/kjstillabower/sensor-dashboard/internal/overload"
	"github.com/kjstillabower/sensor-dashboard/internal/validation"
)

// maxEventBytes caps a dispatch request body.
const maxEventBytes = 1 << 20

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Dispatcher runs chart callbacks. *dashboard.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev dashboard.Event) (dashboard.Result, error)
	Initial(ctx context.Context, in dashboard.Inputs) (dashboard.Result, error)
	Render(ctx context.Context, output string, in dashboard.Inputs) (json.RawMessage, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	layout       dashboard.Layout
	dispatcher   Dispatcher
	page         []byte
	healthConfig *HealthConfig
	logger       *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler renders the page once and returns a Handler serving it.
func NewHandler(layout dashboard.Layout, dispatcher Dispatcher, healthConfig *HealthConfig, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := renderPage(layout)
	if err != nil {
		return nil, err
	}
	return &Handler{
		layout:       layout,
		dispatcher:   dispatcher,
		page:         page,
		healthConfig: healthConfig,
		logger:       logger,
	}, nil
}

// GetIndex handles GET /.
func (h *Handler) GetIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}

// GetLayout handles GET /_dash-layout.
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.layout)
}

// PostUpdate handles POST /_dash-update-component. An event with no changed
// properties is the page's first load and fires every output.
func (h *Handler) PostUpdate(w http.ResponseWriter, r *http.Request) {
	var ev dashboard.Event
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes))
	if err := dec.Decode(&ev); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_EVENT", "request body must be a JSON event")
		return
	}

	var (
		res dashboard.Result
		err error
	)
	if len(ev.Changed) == 0 {
		res, err = h.dispatcher.Initial(r.Context(), ev.Inputs)
	} else {
		res, err = h.dispatcher.Dispatch(r.Context(), ev)
	}
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownInput) {
			writeError(w, r, http.StatusBadRequest, "UNKNOWN_INPUT", err.Error())
			return
		}
		observability.LoggerFrom(r.Context(), h.logger).Error("dispatch failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "dispatch failed")
		return
	}

	logger := observability.LoggerFrom(r.Context(), h.logger)
	if ce := logger.Check(zap.DebugLevel, "dispatch complete"); ce != nil {
		ce.Write(
			zap.Strings("changed", ev.Changed),
			zap.Int("outputs", len(res.Outputs)),
			zap.Int("errors", len(res.Errors)))
	}
	writeJSON(w, http.StatusOK, res)
}

// GetFigureSVG handles GET /figures/{output}.svg. The filter state comes from the
// query string: locations (comma separated, empty for none), start, end, measurement.
// Missing parameters take the page defaults.
func (h *Handler) GetFigureSVG(w http.ResponseWriter, r *http.Request) {
	output := mux.Vars(r)["output"]

	fig, err := h.figureFor(r, output)
	if err != nil {
		var ie *dashboard.InputError
		switch {
		case errors.Is(err, dashboard.ErrUnknownOutput):
			writeError(w, r, http.StatusNotFound, "UNKNOWN_OUTPUT", "no chart named "+output)
		case errors.As(err, &ie), isValidationError(err):
			writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		case errors.Is(err, circuitbreaker.ErrOpen):
			writeError(w, r, http.StatusServiceUnavailable, "CHART_UNAVAILABLE", "chart temporarily unavailable")
		default:
			observability.LoggerFrom(r.Context(), h.logger).Warn("figure render failed",
				zap.String("output", output), zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "chart could not be rendered")
		}
		return
	}

	var buf bytes.Buffer
	if err := figure.RenderSVG(&buf, fig); err != nil {
		if errors.Is(err, figure.ErrNoData) {
			writeError(w, r, http.StatusNotFound, "NO_DATA", "no readings match the selection")
			return
		}
		observability.LoggerFrom(r.Context(), h.logger).Warn("svg render failed",
			zap.String("output", output), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "chart could not be rendered")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) figureFor(r *http.Request, output string) (figure.Figure, error) {
	if g, ok := h.layout.Graph(output); ok && g.Figure != nil {
		return *g.Figure, nil
	}
	state, err := stateFromQuery(r)
	if err != nil {
		return figure.Figure{}, err
	}
	raw, err := h.dispatcher.Render(r.Context(), output, dashboard.StateInputs(state))
	if err != nil {
		return figure.Figure{}, err
	}
	var fig figure.Figure
	if err := json.Unmarshal(raw, &fig); err != nil {
		return figure.Figure{}, err
	}
	return fig, nil
}

// stateFromQuery reads a partial filter state. Zero fields are left for the defaults.
// Location labels are checked against the loaded data by the chart handler.
func stateFromQuery(r *http.Request) (models.FilterState, error) {
	q := r.URL.Query()
	var s models.FilterState
	if _, ok := q["locations"]; ok {
		s.Locations = []string{}
		if v := q.Get("locations"); v != "" {
			for _, loc := range strings.Split(v, ",") {
				s.Locations = append(s.Locations, strings.TrimSpace(loc))
			}
		}
	}
	var err error
	if v := q.Get("start"); v != "" {
		if s.Start, err = validation.ParseDate(v); err != nil {
			return s, err
		}
	}
	if v := q.Get("end"); v != "" {
		if s.End, err = validation.ParseDate(v); err != nil {
			return s, err
		}
	}
	if v := q.Get("measurement"); v != "" {
		if s.Measurement, err = validation.ValidateMeasurement(v); err != nil {
			return s, err
		}
	}
	return s, nil
}

func isValidationError(err error) bool {
	for _, target := range []error{
		validation.ErrLocationEmpty,
		validation.ErrUnknownLocation,
		validation.ErrInvalidDate,
		validation.ErrUnknownMeasurement,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"charts": "healthy"}
	if result.reason == "error_rate_breach" {
		checks["charts"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "sensor-dashboard",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if !lifecycle.IsReady() {
		return healthResult{"starting", http.StatusServiceUnavailable, "warming"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if overload.IsOverloaded(h.healthConfig.OverloadWindow, float64(h.healthConfig.RateLimitRPS), h.healthConfig.OverloadThresholdPct) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if degraded.IsDegraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// encodeFailureBody is sent when a response value cannot be marshalled.
var encodeFailureBody = []byte(`{"error":{"code":"INTERNAL","message":"response could not be encoded","requestId":""}}` + "\n")

// writeJSON writes v as JSON with the given status code. v is marshalled
// before the header goes out so an encoding failure still yields a 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		zap.L().Error("response encode failed", zap.Int("status", status), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailureBody)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// writeError writes the standard error envelope with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

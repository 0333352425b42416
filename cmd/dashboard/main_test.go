package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/sensor-dashboard/internal/config"
	"github.com/kjstillabower/sensor-dashboard/internal/lifecycle"
)

func testConfig(t *testing.T, dataPath string) *config.Config {
	t.Helper()
	t.Setenv("DATA_PATH", dataPath)
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MEMCACHED_ADDRS", "")
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return cfg
}

func TestNewApp_ServesDashboard(t *testing.T) {
	lifecycle.SetReady(false)
	t.Cleanup(func() { lifecycle.SetReady(false) })

	cfg := testConfig(t, filepath.Join("..", "..", "internal", "dataset", "testdata", "fixture.csv"))
	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), `"starting"`) {
		t.Errorf("before warm: %d %s, want 503 starting", w.Code, w.Body.String())
	}

	a.warm(context.Background(), cfg, zap.NewNop())
	if !lifecycle.IsReady() {
		t.Fatal("warm should mark the process ready")
	}

	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest("POST", "/_dash-update-component", strings.NewReader(`{"changed":[],"inputs":{}}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("initial dispatch status = %d (%s)", w.Code, w.Body.String())
	}
	var res struct {
		Outputs map[string]json.RawMessage `json:"outputs"`
		Errors  map[string]string          `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Outputs) != 3 || len(res.Errors) != 0 {
		t.Errorf("outputs = %d, errors = %v; want 3 outputs, no errors", len(res.Outputs), res.Errors)
	}
	a.close(zap.NewNop())
}

func TestNewApp_DataErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("_time,location\n2023-01-01,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for name, path := range map[string]string{
		"missing file":   filepath.Join(dir, "absent.csv"),
		"missing column": bad,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := newApp(testConfig(t, path), zap.NewNop()); err == nil {
				t.Error("newApp() error = nil, want data error")
			}
		})
	}
}

func TestApp_WarmRunsOnceAtStartup(t *testing.T) {
	lifecycle.SetReady(false)
	t.Cleanup(func() { lifecycle.SetReady(false) })

	cfg := testConfig(t, filepath.Join("..", "..", "internal", "dataset", "testdata", "fixture.csv"))
	cfg.CacheWarm = true
	cfg.CacheWarmInterval = time.Hour
	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.warm(ctx, cfg, zap.New(core))
	time.Sleep(20 * time.Millisecond)

	if n := logs.FilterMessage("figure cache warming complete").Len(); n != 1 {
		t.Errorf("warm passes at startup = %d, want 1", n)
	}
	if !lifecycle.IsReady() {
		t.Error("warm should mark the process ready")
	}
}

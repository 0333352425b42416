package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dev.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATA_PATH", "CACHE_BACKEND", "MEMCACHED_ADDRS", "ENV_NAME"} {
		t.Setenv(k, "")
	}
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Addr() != ":8050" {
		t.Errorf("Addr() = %q, want :8050", cfg.Addr())
	}
	if cfg.DataPath != "dht11-temp-data.csv" {
		t.Errorf("DataPath = %q", cfg.DataPath)
	}
	if strings.Join(cfg.LocationDomain, ",") != "1,2,3,4" {
		t.Errorf("LocationDomain = %v", cfg.LocationDomain)
	}
	if cfg.LocationLabels["2"] != "Basement" {
		t.Errorf("LocationLabels = %v", cfg.LocationLabels)
	}
	if cfg.HistogramBins != 30 || cfg.CacheBackend != "in_memory" || !cfg.CacheWarm {
		t.Errorf("bins=%d backend=%s warm=%v", cfg.HistogramBins, cfg.CacheBackend, cfg.CacheWarm)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
}

func TestLoadFile_ReadsYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9000"
data:
  path: /data/readings.csv
  location_domain: ["A", "B"]
  location_labels:
    A: Attic
charts:
  histogram_bins: 12
request:
  timeout: 2s
cache:
  backend: memcached
  ttl: 1m
  warm: false
  warm_interval: 30s
  memcached:
    addrs: "mc1:11211,mc2:11211"
    timeout: 250ms
    max_idle_conns: 8
reliability:
  rate_limit_rps: 10
  rate_limit_burst: 20
  breaker_failure_threshold: 3
  breaker_success_threshold: 1
  breaker_timeout: 5s
shutdown:
  timeout: 15s
  in_flight_timeout: 3s
  in_flight_check_interval: 50ms
lifecycle:
  overload_window: 30s
  overload_threshold_pct: 90
  degraded_window: 2m
  degraded_error_pct: 10
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"port", cfg.ServerPort, "9000"},
		{"data path", cfg.DataPath, "/data/readings.csv"},
		{"domain", strings.Join(cfg.LocationDomain, ","), "A,B"},
		{"label", cfg.LocationLabels["A"], "Attic"},
		{"bins", cfg.HistogramBins, 12},
		{"request timeout", cfg.RequestTimeout, 2 * time.Second},
		{"backend", cfg.CacheBackend, "memcached"},
		{"ttl", cfg.CacheTTL, time.Minute},
		{"warm", cfg.CacheWarm, false},
		{"warm interval", cfg.CacheWarmInterval, 30 * time.Second},
		{"memcached addrs", cfg.MemcachedAddrs, "mc1:11211,mc2:11211"},
		{"memcached timeout", cfg.MemcachedTimeout, 250 * time.Millisecond},
		{"idle conns", cfg.MemcachedMaxIdleConns, 8},
		{"rps", cfg.RateLimitRPS, 10},
		{"burst", cfg.RateLimitBurst, 20},
		{"breaker failures", cfg.BreakerFailureThreshold, 3},
		{"breaker successes", cfg.BreakerSuccessThreshold, 1},
		{"breaker timeout", cfg.BreakerTimeout, 5 * time.Second},
		{"shutdown", cfg.ShutdownTimeout, 15 * time.Second},
		{"in-flight timeout", cfg.ShutdownInFlightTimeout, 3 * time.Second},
		{"in-flight interval", cfg.ShutdownInFlightCheckInterval, 50 * time.Millisecond},
		{"overload window", cfg.OverloadWindow, 30 * time.Second},
		{"overload pct", cfg.OverloadThresholdPct, 90},
		{"degraded window", cfg.DegradedWindow, 2 * time.Minute},
		{"degraded pct", cfg.DegradedErrorPct, 10},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_PATH", "/tmp/other.csv")
	t.Setenv("CACHE_BACKEND", "MEMCACHED")
	t.Setenv("MEMCACHED_ADDRS", "cache:11211")
	path := writeConfig(t, "data:\n  path: file.csv\ncache:\n  backend: in_memory\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.DataPath != "/tmp/other.csv" || cfg.CacheBackend != "memcached" || cfg.MemcachedAddrs != "cache:11211" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadFile_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(writeConfig(t, "request:\n  timeout: soon\ncache:\n  ttl: -1s\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want default 5s", cfg.RequestTimeout)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want default 10m", cfg.CacheTTL)
	}
}

func TestLoadFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"unknown backend", "cache:\n  backend: redis\n", "cache.backend"},
		{"negative bins", "charts:\n  histogram_bins: -3\n", "histogram_bins"},
		{"empty domain", "data:\n  location_domain: []\n", "location_domain"},
		{"duplicate domain", "data:\n  location_domain: [\"1\", \"1\"]\n", "twice"},
		{"negative warm interval", "cache:\n  warm_interval: -5s\n", "warm_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := LoadFile(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatalf("LoadFile() = %+v, want error", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(writeConfig(t, "server: [unclosed\n")); err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("LoadFile() error = %v, want parse error", err)
	}
}

func TestLoad_UsesEnvName(t *testing.T) {
	clearEnv(t)
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "prod.yaml"), []byte("server:\n  port: \"80\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	t.Setenv("ENV_NAME", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "80" {
		t.Errorf("ServerPort = %q, want 80", cfg.ServerPort)
	}
}

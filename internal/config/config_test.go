package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `services:
  - id: web
    name: Web
    url: "https://example.com/health"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.BaseInterval != DefaultBaseInterval {
		t.Errorf("base_interval: got %v, want %v", cfg.Scheduler.BaseInterval, DefaultBaseInterval)
	}
	if cfg.Scheduler.MaxInterval != DefaultMaxInterval {
		t.Errorf("max_interval: got %v, want %v", cfg.Scheduler.MaxInterval, DefaultMaxInterval)
	}
	if cfg.Retention.Cap != DefaultRetention {
		t.Errorf("retention.cap: got %v, want %v", cfg.Retention.Cap, DefaultRetention)
	}
	if cfg.Retention.DefaultWindow != DefaultWindow {
		t.Errorf("retention.default_window: got %v, want %v", cfg.Retention.DefaultWindow, DefaultWindow)
	}
	if cfg.Probe.Timeout != DefaultProbeTimeout {
		t.Errorf("probe.timeout: got %v, want %v", cfg.Probe.Timeout, DefaultProbeTimeout)
	}
	if cfg.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.HTTPPort, DefaultHTTPPort)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `http_port: 9090
stream_period: 2s
scheduler:
  base_interval: 30s
  max_interval: 10m
retention:
  cap: 48h
  default_window: 1h
probe:
  timeout: 5s
  insecure_skip_verify: true
services:
  - id: api
    name: API
    url: "https://api.example.com/healthz"
  - id: prom
    name: Prometheus
    url: "http://prom:9090/metrics"
    probe: metrics
    metric: up
notify:
  webhooks:
    - type: slack
      url_env: SLACK_WEBHOOK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("http_port: got %d, want 9090", cfg.HTTPPort)
	}
	if cfg.Scheduler.MaxInterval != 10*time.Minute {
		t.Errorf("max_interval: got %v, want 10m", cfg.Scheduler.MaxInterval)
	}
	if len(cfg.Services) != 2 {
		t.Fatalf("services: got %d, want 2", len(cfg.Services))
	}
	if cfg.Services[1].Probe != ProbeMetrics || cfg.Services[1].Metric != "up" {
		t.Errorf("services[1]: got probe=%q metric=%q, want metrics/up",
			cfg.Services[1].Probe, cfg.Services[1].Metric)
	}
	if !cfg.Probe.InsecureSkipVerify {
		t.Error("probe.insecure_skip_verify: got false, want true")
	}
}

func TestLoad_RejectsDuplicateIDs(t *testing.T) {
	p := writeConfig(t, `services:
  - id: web
    url: "https://a.example.com"
  - id: web
    url: "https://b.example.com"
`)
	if _, err := Load(p); err == nil {
		t.Fatal("Load: expected duplicate-id error, got nil")
	}
}

func TestLoad_RejectsBadURLScheme(t *testing.T) {
	p := writeConfig(t, `services:
  - id: ftp
    url: "ftp://example.com"
`)
	if _, err := Load(p); err == nil {
		t.Fatal("Load: expected url scheme error, got nil")
	}
}

func TestLoad_RejectsMetricsProbeWithoutMetric(t *testing.T) {
	p := writeConfig(t, `services:
  - id: prom
    url: "http://prom:9090/metrics"
    probe: metrics
`)
	if _, err := Load(p); err == nil {
		t.Fatal("Load: expected missing-metric error, got nil")
	}
}

func TestLoad_RejectsMaxBelowBase(t *testing.T) {
	p := writeConfig(t, `scheduler:
  base_interval: 1m
  max_interval: 30s
`)
	if _, err := Load(p); err == nil {
		t.Fatal("Load: expected interval ordering error, got nil")
	}
}

func TestWebhookURL_ResolvesFromEnv(t *testing.T) {
	t.Setenv("TEST_HOOK_URL", "https://hooks.example.com/x")
	wh := WebhookConfig{Type: "http", URLEnv: "TEST_HOOK_URL"}
	if got := wh.URL(); got != "https://hooks.example.com/x" {
		t.Errorf("URL: got %q, want env value", got)
	}
	if got := (WebhookConfig{}).URL(); got != "" {
		t.Errorf("URL with no env: got %q, want empty", got)
	}
}

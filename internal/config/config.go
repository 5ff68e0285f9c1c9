package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Probe type names accepted in Service.Probe.
const (
	ProbeHTTP    = "http"
	ProbeMetrics = "metrics"
)

// Default values for the statuspulse configuration.
const (
	DefaultBaseInterval = 15 * time.Second
	DefaultMaxInterval  = 5 * time.Minute
	DefaultRetention    = 24 * time.Hour
	DefaultWindow       = 15 * time.Minute
	DefaultProbeTimeout = 10 * time.Second
	DefaultHTTPPort     = 8080
	DefaultStreamPeriod = 5 * time.Second
)

// Service describes one tracked service.
type Service struct {
	// ID is the stable, unique identifier used everywhere internally.
	ID string `yaml:"id"`

	// Name is the human-readable display name.
	Name string `yaml:"name"`

	// URL is the endpoint the prober samples.
	URL string `yaml:"url"`

	// Probe selects the prober implementation: "http" (default) judges
	// reachability from the response status; "metrics" scrapes a
	// Prometheus exposition endpoint and judges from a gauge.
	Probe string `yaml:"probe"`

	// Metric is the gauge consulted by the metrics probe. A value > 0
	// means up, a value of 0 means down. Required when Probe is "metrics".
	Metric string `yaml:"metric"`
}

// SchedulerConfig bounds the adaptive refresh cadence.
type SchedulerConfig struct {
	// BaseInterval is the cadence after a clean cycle (default 15s).
	BaseInterval time.Duration `yaml:"base_interval"`

	// MaxInterval caps the failure backoff (default 5m).
	MaxInterval time.Duration `yaml:"max_interval"`
}

// RetentionConfig controls history bounds.
type RetentionConfig struct {
	// Cap is the absolute retention window; older observations are
	// pruned after every append (default 24h).
	Cap time.Duration `yaml:"cap"`

	// DefaultWindow is the lookback used for aggregation when a caller
	// does not select one (default 15m). Always at most Cap.
	DefaultWindow time.Duration `yaml:"default_window"`
}

// ProbeConfig holds settings shared by all probers.
type ProbeConfig struct {
	// Timeout bounds a single probe attempt (default 10s). A probe that
	// exceeds it surfaces as a timeout-class collection failure.
	Timeout time.Duration `yaml:"timeout"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// WebhookConfig defines one notification delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the
	// webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// NotifyConfig holds notification delivery targets.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// Config is the full configuration tree parsed from config.yaml.
type Config struct {
	Services  []Service       `yaml:"services"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Retention RetentionConfig `yaml:"retention"`
	Probe     ProbeConfig     `yaml:"probe"`
	Notify    NotifyConfig    `yaml:"notify"`

	// HTTPPort is the REST API and WebSocket listener port (default 8080).
	HTTPPort int `yaml:"http_port"`

	// StreamPeriod is how often the WebSocket hub pushes snapshots
	// (default 5s).
	StreamPeriod time.Duration `yaml:"stream_period"`
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			BaseInterval: DefaultBaseInterval,
			MaxInterval:  DefaultMaxInterval,
		},
		Retention: RetentionConfig{
			Cap:           DefaultRetention,
			DefaultWindow: DefaultWindow,
		},
		Probe: ProbeConfig{
			Timeout: DefaultProbeTimeout,
		},
		HTTPPort:     DefaultHTTPPort,
		StreamPeriod: DefaultStreamPeriod,
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d is out of range [1, 65535]", cfg.HTTPPort)
	}
	if cfg.Scheduler.BaseInterval <= 0 {
		return fmt.Errorf("scheduler.base_interval must be positive")
	}
	if cfg.Scheduler.MaxInterval < cfg.Scheduler.BaseInterval {
		return fmt.Errorf("scheduler.max_interval %v is below base_interval %v",
			cfg.Scheduler.MaxInterval, cfg.Scheduler.BaseInterval)
	}
	if cfg.Retention.Cap <= 0 {
		return fmt.Errorf("retention.cap must be positive")
	}
	if cfg.Retention.DefaultWindow <= 0 || cfg.Retention.DefaultWindow > cfg.Retention.Cap {
		return fmt.Errorf("retention.default_window %v must be in (0, %v]",
			cfg.Retention.DefaultWindow, cfg.Retention.Cap)
	}
	if cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}

	seen := make(map[string]bool, len(cfg.Services))
	for i, svc := range cfg.Services {
		if svc.ID == "" {
			return fmt.Errorf("services[%d]: id is required", i)
		}
		if seen[svc.ID] {
			return fmt.Errorf("services[%d]: duplicate id %q", i, svc.ID)
		}
		seen[svc.ID] = true

		u, err := url.Parse(svc.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("services[%d] (%s): url must start with http or https", i, svc.ID)
		}

		switch svc.Probe {
		case "", ProbeHTTP:
		case ProbeMetrics:
			if svc.Metric == "" {
				return fmt.Errorf("services[%d] (%s): metrics probe requires a metric name", i, svc.ID)
			}
		default:
			return fmt.Errorf("services[%d] (%s): probe %q unknown: want http|metrics", i, svc.ID, svc.Probe)
		}
	}

	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: type %q unknown: want slack|http", i, wh.Type)
		}
	}

	return nil
}

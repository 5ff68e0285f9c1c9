// Package config loads and watches the statuspulse configuration file
// (config.yaml).
//
// Top-level sections:
//   - services:  the tracked service set — id, name, url, probe type
//     (http|metrics), optional metric name for metrics probes
//   - scheduler: base_interval (default 15s) and max_interval (default 5m)
//     for the adaptive refresh cadence
//   - retention: absolute history cap (default 24h) and default_window
//     (default 15m) for display aggregation
//   - probe:     timeout (default 10s) and insecure_skip_verify
//   - http_port: REST API + WebSocket listener (default 8080)
//   - notify:    webhook targets; URLs are resolved from environment
//     variables (url_env) so secrets stay out of the file
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create
// pattern used by atomic-save editors by re-adding the watch after events.
package config

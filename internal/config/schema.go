// Package config provides configuration loading and validation for ssrworker.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [pool]: executor count and per-task timeout
//   - [processing]: view handling
//   - [logging]: Logging level, format, and output
//   - [server]: HTTP listen address and request limits
//   - [metrics]: Prometheus export and the scheduled pool report
//
// Environment variables:
// String values can reference environment variables using ${VAR} or
// ${VAR:default} syntax. For example: addr = "${SSRWORKER_ADDR:127.0.0.1:8090}"
package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Pool       PoolConfig       `toml:"pool"`
	Processing ProcessingConfig `toml:"processing"`
	Logging    LoggingConfig    `toml:"logging"`
	Server     ServerConfig     `toml:"server"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// PoolConfig configures the executor pool
type PoolConfig struct {
	// Size is the executor count; 0 derives it from the CPU count.
	Size               int `toml:"size"`
	TaskTimeoutSeconds int `toml:"task_timeout_seconds"`
}

// TaskTimeout returns the per-task timeout; zero disables it.
func (p PoolConfig) TaskTimeout() time.Duration {
	return time.Duration(p.TaskTimeoutSeconds) * time.Second
}

// ProcessingConfig configures record processing
type ProcessingConfig struct {
	// StrictViews turns unknown view names into errors.
	StrictViews bool `toml:"strict_views"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr                   string `toml:"addr"`
	MaxBodyMB              int    `toml:"max_body_mb"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// MaxBodyBytes returns the request body limit in bytes.
func (s ServerConfig) MaxBodyBytes() int64 {
	return int64(s.MaxBodyMB) << 20
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// MetricsConfig configures metrics
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	// ReportSchedule is a cron expression for logging pool stats; empty disables it.
	ReportSchedule string `toml:"report_schedule"`
}

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

const maxPoolSize = 64

// Validate checks the configuration
func (c *Config) Validate() []error {
	var errs []error

	// Pool
	if c.Pool.Size < 0 || c.Pool.Size > maxPoolSize {
		errs = append(errs, fmt.Errorf("pool.size must be between 0 and %d (got %d)", maxPoolSize, c.Pool.Size))
	}
	if c.Pool.TaskTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("pool.task_timeout_seconds must be >= 0 (got %d)", c.Pool.TaskTimeoutSeconds))
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	// Server
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("invalid server.addr %q: %w", c.Server.Addr, err))
	}
	if c.Server.MaxBodyMB < 1 {
		errs = append(errs, fmt.Errorf("server.max_body_mb must be >= 1 (got %d)", c.Server.MaxBodyMB))
	}
	if c.Server.ShutdownTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout_seconds must be >= 1 (got %d)", c.Server.ShutdownTimeoutSeconds))
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, fmt.Errorf("metrics.namespace is required when metrics are enabled"))
	}
	if c.Metrics.ReportSchedule != "" {
		if err := validateSchedule(c.Metrics.ReportSchedule); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// ScheduleParser accepts standard five-field expressions, an optional
// leading seconds field and descriptors such as @every 1m.
var ScheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func validateSchedule(spec string) error {
	if _, err := ScheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid metrics.report_schedule %q: %w", spec, err)
	}
	return nil
}

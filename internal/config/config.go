package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads the configuration from a TOML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes the configuration from TOML
func Parse(data []byte) (*Config, error) {
	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	expandEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands environment variables in the configuration
func expandEnvVars(c *Config) {
	c.Logging.Level = expandEnv(c.Logging.Level)
	c.Logging.Format = expandEnv(c.Logging.Format)
	c.Logging.Output = expandEnv(c.Logging.Output)
	c.Server.Addr = expandEnv(c.Server.Addr)
	c.Metrics.Namespace = expandEnv(c.Metrics.Namespace)
	c.Metrics.ReportSchedule = expandEnv(c.Metrics.ReportSchedule)
}

// expandEnv expands a ${VAR:default} reference
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	// No default
	return os.Getenv(content)
}

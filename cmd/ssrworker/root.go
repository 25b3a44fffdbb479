package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ssrworker/internal/config"
	"github.com/aatumaykin/ssrworker/internal/logger"
)

const (
	defaultConfigPath = "./config.toml"
	defaultEnvPath    = "./.env"
)

var (
	configPath   string
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ssrworker",
	Short: "ssrworker - SSR analysis data processing worker",
	Long: `ssrworker decodes Arrow result tables from the SSR analysis service,
builds chart views and filters records on a fixed pool of background executors.
It runs as an HTTP sidecar (serve) or as one-shot commands over Arrow files.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.toml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(sampleCmd)
}

// loadConfig reads .env and the config file, applies flag overrides and
// validates the result. Without a config file the defaults are used.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvOptional(defaultEnvPath); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", defaultEnvPath, err)
	}

	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// newLogger builds the logger. One-shot commands keep stdout for results.
func newLogger(cfg *config.Config, oneShot bool) (*logger.Logger, error) {
	output := cfg.Logging.Output
	if oneShot && (output == "" || strings.EqualFold(output, "stdout")) {
		output = "stderr"
	}

	level := cfg.Logging.Level
	if oneShot && logLevel == "" {
		level = "warn"
	}

	log, err := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

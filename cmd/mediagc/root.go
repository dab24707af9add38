package main

import (
	"context"
	"fmt"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mediagc",
	Short: "Media asset garbage collector",
	Long: `mediagc finds media assets that no owner row references and deletes
their files and catalog rows. Sweeps are deferred while any edit lease is
active.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/mediagc/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(leasesCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the configuration and applies logging settings. quiet
// sends stdout logging to stderr so command output stays parseable.
func loadConfig(quiet bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	output := cfg.Logging.Output
	if quiet && output == "stdout" {
		output = "stderr"
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(output); err != nil {
		return nil, err
	}

	return cfg, nil
}

// buildRuntime loads the configuration and builds every component.
func buildRuntime(ctx context.Context, quiet bool) (*config.Runtime, error) {
	cfg, err := loadConfig(quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return config.Build(ctx, cfg)
}

// withRuntime builds the runtime for a one-shot command, runs fn and closes
// it. Logs go to stderr.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *config.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := buildRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("Close error: %v", err)
		}
	}()

	return fn(ctx, rt)
}

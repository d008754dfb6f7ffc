// Package cmd holds the growth-engine command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/config"
	"github.com/ekaya-inc/growth-engine/pkg/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// configPath is the --config flag.
var configPath string

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "growth-engine",
	Short: "Growth suggestions for Brazilian online stores.",
	Long: `growth-engine runs a six-stage analysis over a store's aggregated data
(profile, collector, analyst, similarity, strategist, critic) and produces a
curated slate of growth suggestions in Brazilian Portuguese.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"Path to the YAML config file; environment variables override it")

	rootCmd.AddCommand(serveCmd, migrateCmd, analyzeCmd)
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

// loadConfig reads --config. A missing default file falls back to
// environment variables; a missing explicit file is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.LoadEnv(Version)
	}
	return config.LoadFile(configPath, Version)
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

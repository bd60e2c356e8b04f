package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/trivium/internal/cli"
	"github.com/aretw0/trivium/internal/config"
	"github.com/aretw0/trivium/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trivium",
	Short: "Trivium writes documents paragraph by paragraph through multi-agent consensus",
	Long: `Trivium drafts every paragraph with several AI collaborators, merges the drafts,
and debates the result (review, validate, revise, vote) for a bounded number of rounds.
Every step is checkpointed, so an interrupted run continues with 'trivium resume'.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Workspace directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default <dir>/trivium.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the configuration selected by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("dir")
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = filepath.Join(dir, config.DefaultFile)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.ParseLevel(cfg.Log.Level))
}

// buildStack loads the configuration and wires the engine.
func buildStack(cmd *cobra.Command) (*cli.Stack, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)
	stack, err := cli.BuildEngine(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return stack, cfg, logger, nil
}

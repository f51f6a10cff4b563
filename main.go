package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"asyncgen/internal/app"
	"asyncgen/internal/config"
	"asyncgen/internal/logger"
)

var version = "dev"

var (
	cfgFile   string
	workspace string
	format    string
	logMode   string
)

var rootCmd = &cobra.Command{
	Use:   "asyncgen",
	Short: "Assemble AsyncAPI 2.6.0 documents from typed blocks",
	Long: `asyncgen keeps an ordered list of info, server, channel and message
blocks per workspace and compiles it into an AsyncAPI 2.6.0 document.

Configuration:
  1. --config flag (explicit path)
  2. ./config.yaml
  3. $HOME/.config/asyncgen/config.yaml

Every key can be overridden with an ASYNCGEN_ environment variable,
e.g. ASYNCGEN_EXPORT_FORMAT=json or ASYNCGEN_LOG_MODE=prod.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/asyncgen/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "export format: yaml or json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "", "log mode: dev or prod (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies persistent flag overrides on top of the loaded config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}
	if format != "" {
		cfg.Export.Format = format
	}
	if logMode != "" {
		cfg.Log.Mode = logMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp loads config and logger and returns an App that is not started yet.
func newApp() (*app.App, *logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return app.New(cfg, log), log, nil
}

// withApp runs fn against a started App and shuts it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, log, err := newApp()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if err := a.Startup(ctx, nil); err != nil {
		return err
	}
	defer a.Shutdown(ctx)
	return fn(ctx, a)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

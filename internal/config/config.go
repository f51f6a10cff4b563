// Package config loads asyncgen settings from a YAML file, ASYNCGEN_*
// environment variables and defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"asyncgen/internal/export"
	"asyncgen/internal/storage"
)

// Config holds the complete application configuration.
type Config struct {
	DataDir   string         `mapstructure:"data_dir"`
	Workspace string         `mapstructure:"workspace"`
	Log       LogConfig      `mapstructure:"log"`
	Export    ExportConfig   `mapstructure:"export"`
	Compiler  CompilerConfig `mapstructure:"compiler"`
	Undo      UndoConfig     `mapstructure:"undo"`
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	Mode string `mapstructure:"mode"` // dev, prod
}

// ExportConfig controls where and how documents are written.
type ExportConfig struct {
	Format   string `mapstructure:"format"`
	Dir      string `mapstructure:"dir"`      // empty means <data_dir>/exports
	Schedule string `mapstructure:"schedule"` // cron spec; empty disables
}

// CompilerConfig selects the section policy.
type CompilerConfig struct {
	Accumulate bool `mapstructure:"accumulate"`
}

// UndoConfig bounds undo history.
type UndoConfig struct {
	MaxNodes int `mapstructure:"max_nodes"`
}

// DefaultConfig returns a new configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "~/.local/share/asyncgen",
		Workspace: "default",
		Log:       LogConfig{Mode: "dev"},
		Export:    ExportConfig{Format: string(export.FormatYAML)},
		Undo:      UndoConfig{MaxNodes: storage.DefaultMaxUndoNodes},
	}
}

// Load reads configuration from configPath, or from config.yaml in the
// working directory or ~/.config/asyncgen when configPath is empty.
// A missing default config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ASYNCGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/asyncgen")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Log.Mode != "dev" && c.Log.Mode != "prod" {
		return fmt.Errorf("invalid log mode: %s (must be dev or prod)", c.Log.Mode)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return err
	}
	if c.Export.Schedule != "" {
		if _, err := cron.ParseStandard(c.Export.Schedule); err != nil {
			return fmt.Errorf("invalid export schedule %q: %w", c.Export.Schedule, err)
		}
	}
	if c.Workspace == "" {
		return fmt.Errorf("workspace must not be empty")
	}
	return nil
}

// DBPath is the SQLite database file inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "asyncgen.db")
}

// ExportFormat returns the parsed export format. Call after Validate.
func (c *Config) ExportFormat() export.Format {
	f, _ := export.ParseFormat(c.Export.Format)
	return f
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	return filepath.Join(homeDir(), ".config", "asyncgen", "config.yaml")
}

func (c *Config) expandPaths() {
	c.DataDir = expandHome(c.DataDir)
	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(c.DataDir, "exports")
	}
	c.Export.Dir = expandHome(c.Export.Dir)
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return home
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("workspace", defaults.Workspace)
	v.SetDefault("log.mode", defaults.Log.Mode)
	v.SetDefault("export.format", defaults.Export.Format)
	v.SetDefault("export.dir", defaults.Export.Dir)
	v.SetDefault("export.schedule", defaults.Export.Schedule)
	v.SetDefault("compiler.accumulate", defaults.Compiler.Accumulate)
	v.SetDefault("undo.max_nodes", defaults.Undo.MaxNodes)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncgen/internal/export"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.local/share/asyncgen", cfg.DataDir)
	assert.Equal(t, "default", cfg.Workspace)
	assert.Equal(t, "dev", cfg.Log.Mode)
	assert.Equal(t, "yaml", cfg.Export.Format)
	assert.Empty(t, cfg.Export.Schedule)
	assert.False(t, cfg.Compiler.Accumulate)
	assert.Equal(t, 40, cfg.Undo.MaxNodes)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local", "share", "asyncgen"), cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "exports"), cfg.Export.Dir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "asyncgen.db"), cfg.DBPath())
	assert.Equal(t, export.FormatYAML, cfg.ExportFormat())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `data_dir: /srv/asyncgen
workspace: orders
log:
  mode: prod
export:
  format: json
  dir: /srv/out
  schedule: "@every 5m"
compiler:
  accumulate: true
undo:
  max_nodes: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/asyncgen", cfg.DataDir)
	assert.Equal(t, "orders", cfg.Workspace)
	assert.Equal(t, "prod", cfg.Log.Mode)
	assert.Equal(t, export.FormatJSON, cfg.ExportFormat())
	assert.Equal(t, "/srv/out", cfg.Export.Dir)
	assert.Equal(t, "@every 5m", cfg.Export.Schedule)
	assert.True(t, cfg.Compiler.Accumulate)
	assert.Equal(t, 10, cfg.Undo.MaxNodes)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace: from-file\n"), 0o644))

	t.Setenv("ASYNCGEN_WORKSPACE", "from-env")
	t.Setenv("ASYNCGEN_EXPORT_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Workspace)
	assert.Equal(t, export.FormatJSON, cfg.ExportFormat())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		c := *DefaultConfig()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad log mode", mutate: func(c *Config) { c.Log.Mode = "verbose" }, wantErr: true, errMsg: "invalid log mode"},
		{name: "bad format", mutate: func(c *Config) { c.Export.Format = "toml" }, wantErr: true, errMsg: "unsupported export format"},
		{name: "bad schedule", mutate: func(c *Config) { c.Export.Schedule = "every day" }, wantErr: true, errMsg: "invalid export schedule"},
		{name: "cron schedule", mutate: func(c *Config) { c.Export.Schedule = "*/15 * * * *" }},
		{name: "empty workspace", mutate: func(c *Config) { c.Workspace = "" }, wantErr: true, errMsg: "workspace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester", expandHome("~"))
	assert.Equal(t, "/home/tester/data", expandHome("~/data"))
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "rel/~", expandHome("rel/~"))
}

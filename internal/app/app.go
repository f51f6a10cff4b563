package app

import (
	"context"
	"fmt"
	"os"

	"asyncgen/internal/compiler"
	"asyncgen/internal/config"
	"asyncgen/internal/logger"
	"asyncgen/internal/manifest"
	"asyncgen/internal/service"
	"asyncgen/internal/storage"
)

// App wires configuration, storage and services for one process.
type App struct {
	cfg *config.Config
	log *logger.Logger

	db     *storage.DB
	blocks *service.BlockService
}

// New creates an App. Call Startup before using it.
func New(cfg *config.Config, log *logger.Logger) *App {
	return &App{cfg: cfg, log: log}
}

// CompilerOptions maps configuration to compiler options.
func CompilerOptions(cfg *config.Config) compiler.Options {
	if cfg.Compiler.Accumulate {
		return compiler.Options{Policy: compiler.AccumulateSection}
	}
	return compiler.Options{}
}

// Startup opens the database and builds the block service. Events go to
// emitter, or to the log when emitter is nil.
func (a *App) Startup(_ context.Context, emitter service.EventEmitter) error {
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.New(a.cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db

	if emitter == nil {
		emitter = service.LogEmitter{Log: a.log}
	}
	a.blocks = service.NewBlockService(
		storage.NewWorkspaceStore(db),
		storage.NewUndoStore(db, a.cfg.Undo.MaxNodes),
		emitter,
		a.log,
		service.Options{
			Compiler:  CompilerOptions(a.cfg),
			Format:    a.cfg.ExportFormat(),
			ExportDir: a.cfg.Export.Dir,
		},
	)
	a.log.Debug("app started", "db", db.Path(), "exportDir", a.cfg.Export.Dir)
	return nil
}

// Shutdown closes the database.
func (a *App) Shutdown(_ context.Context) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", "error", err)
		}
		a.db = nil
	}
}

// Blocks returns the block service. Valid after Startup.
func (a *App) Blocks() *service.BlockService {
	return a.blocks
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// BuildManifest compiles the manifest at path to outDir. An empty outDir
// uses the configured export dir.
func (a *App) BuildManifest(path, outDir string) (string, error) {
	if outDir == "" {
		outDir = a.cfg.Export.Dir
	}
	out, err := manifest.Build(path, manifest.BuildOptions{
		OutDir:   outDir,
		Format:   a.cfg.ExportFormat(),
		Compiler: CompilerOptions(a.cfg),
	})
	if err != nil {
		return "", err
	}
	a.log.Info("manifest built", "manifest", path, "path", out)
	return out, nil
}

// WatchManifest rebuilds the manifest on every change until ctx is done.
// Build errors are logged; the watch keeps running.
func (a *App) WatchManifest(ctx context.Context, path, outDir string) error {
	if _, err := a.BuildManifest(path, outDir); err != nil {
		a.log.Error("build failed", "manifest", path, "error", err)
	}
	return manifest.Watch(ctx, path, manifest.DefaultDebounce, a.log, func() {
		if _, err := a.BuildManifest(path, outDir); err != nil {
			a.log.Error("build failed", "manifest", path, "error", err)
		}
	})
}

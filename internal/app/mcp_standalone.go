package app

import (
	"context"
	"time"

	mcpserver "asyncgen/internal/mcp"
	"asyncgen/internal/service"
)

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
// When an export schedule is configured the scheduler runs alongside it.
func (a *App) ServeMCP(ctx context.Context) error {
	notifier := mcpserver.NewNotifier(a.log)
	if err := a.Startup(ctx, notifier); err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	if spec := a.cfg.Export.Schedule; spec != "" {
		sched, err := service.NewExportScheduler(a.blocks, spec, a.log)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Blocks:    a.blocks,
		Log:       a.log,
		Workspace: a.cfg.Workspace,
		Notifier:  notifier,
	})
	return mcpSrv.ServeStdio()
}

package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Run asyncgen as a Model Context Protocol server over stdio.

Logs go to stderr. When export.schedule is set, every workspace is
re-exported on that cron schedule while the server runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := newApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return a.ServeMCP(ctx)
	},
}

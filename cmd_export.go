package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"asyncgen/internal/app"
	"asyncgen/internal/manifest"
)

var (
	exportOutDir string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Compile the workspace and write the document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			ws := a.Config().Workspace
			if exportStdout {
				out, err := a.Blocks().Render(ctx, ws, "")
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			path, err := a.Blocks().Export(ctx, ws, exportOutDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <manifest>",
	Short: "Append the blocks of a manifest to the workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Blocks().ImportManifest(ctx, a.Config().Workspace, m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d blocks\n", len(m.Blocks))
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", "", "output directory (default is <export.dir>/<workspace>)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "print the document instead of writing it")
}

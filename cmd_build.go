package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	buildOutDir string
	buildWatch  bool
)

var buildCmd = &cobra.Command{
	Use:   "build <manifest>",
	Short: "Compile a block manifest (YAML or JSON) into an AsyncAPI document",
	Long: `Replay the blocks listed in a manifest file and write the compiled
document. The manifest does not touch any workspace.

  blocks:
    - type: info
      fields: {title: Orders, version: "1.0"}
    - type: channel
      fields: {name: orders}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := newApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		if buildWatch {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.WatchManifest(ctx, args[0], buildOutDir)
		}

		path, err := a.BuildManifest(args[0], buildOutDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "", "output directory (default is export.dir)")
	buildCmd.Flags().BoolVar(&buildWatch, "watch", false, "rebuild whenever the manifest changes")
}

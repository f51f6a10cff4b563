package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"asyncgen/internal/app"
	"asyncgen/internal/domain"
	"asyncgen/internal/manifest"
)

var listAsManifest bool

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Edit the workspace's block list",
}

var blocksAddCmd = &cobra.Command{
	Use:       "add <type>",
	Short:     "Append a block (info, server, channel, message)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: blockTypeNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Blocks().AddBlock(ctx, a.Config().Workspace, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		})
	},
}

var blocksUpdateCmd = &cobra.Command{
	Use:   "update <id> <field=value>...",
	Short: "Set fields on a block",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Blocks().UpdateBlock(ctx, a.Config().Workspace, args[0], changes)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		})
	},
}

var blocksMoveCmd = &cobra.Command{
	Use:   "move <id> <index>",
	Short: "Move a block to a zero-based position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("index must be an integer: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.Blocks().MoveBlock(ctx, a.Config().Workspace, args[0], index)
		})
	},
}

var blocksRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a block",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.Blocks().RemoveBlock(ctx, a.Config().Workspace, args[0])
		})
	},
}

var blocksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List blocks in order",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list, err := a.Blocks().ListBlocks(ctx, a.Config().Workspace)
			if err != nil {
				return err
			}
			if listAsManifest {
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(manifest.FromBlocks(list))
			}
			return printJSON(cmd.OutOrStdout(), list)
		})
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the workspace's last change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list, err := a.Blocks().Undo(ctx, a.Config().Workspace)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		})
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Reapply the change undone last",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list, err := a.Blocks().Redo(ctx, a.Config().Workspace)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		})
	},
}

func init() {
	blocksListCmd.Flags().BoolVar(&listAsManifest, "manifest", false, "print as a YAML manifest usable with build and import")

	blocksCmd.AddCommand(blocksAddCmd)
	blocksCmd.AddCommand(blocksUpdateCmd)
	blocksCmd.AddCommand(blocksMoveCmd)
	blocksCmd.AddCommand(blocksRemoveCmd)
	blocksCmd.AddCommand(blocksListCmd)
}

func blockTypeNames() []string {
	names := make([]string, len(domain.BlockTypes))
	for i, t := range domain.BlockTypes {
		names[i] = string(t)
	}
	return names
}

// parseAssignments turns "field=value" arguments into a change set. The
// value may be empty or contain further '=' signs.
func parseAssignments(args []string) (map[string]string, error) {
	changes := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		changes[name] = value
	}
	return changes, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

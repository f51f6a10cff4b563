package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerWorkspaceTools() {
	// ── list_workspaces ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_workspaces",
		mcp.WithDescription("List all workspaces with their last export path"),
	), s.handleListWorkspaces)

	// ── set_active_workspace ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_workspace",
		mcp.WithDescription("Set the active workspace for subsequent tool calls. It is created on first use."),
		mcp.WithString("name",
			mcp.Description("Workspace name"),
			mcp.Required(),
		),
	), s.handleSetActiveWorkspace)
}

func (s *Server) handleListWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaces, err := s.blocks.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return jsonResult(workspaces)
}

func (s *Server) handleSetActiveWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if _, err := s.blocks.Open(ctx, name); err != nil {
		return toolError(err), nil
	}

	s.mu.Lock()
	s.activeWorkspace = name
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Active workspace set to %s", name)), nil
}

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"asyncgen/internal/export"
)

func (s *Server) registerDocumentTools() {
	// ── compile_document ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("compile_document",
		mcp.WithDescription("Compile the workspace's blocks into an AsyncAPI 2.6.0 document and return it as text"),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
		mcp.WithString("format", mcp.Description("yaml or json (optional, defaults to the configured format)")),
	), s.handleCompileDocument)

	// ── export_document ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_document",
		mcp.WithDescription("Compile the workspace and write it to disk. Returns the written path."),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
		mcp.WithString("dir", mcp.Description("Output directory (optional, defaults to the configured export dir)")),
	), s.handleExportDocument)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Revert the workspace to the state before its last change"),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Reapply the change undone last"),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
	), s.handleRedo)
}

func (s *Server) handleCompileDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}

	var format export.Format
	if raw, _ := args["format"].(string); raw != "" {
		if format, err = export.ParseFormat(raw); err != nil {
			return toolError(err), nil
		}
	}

	out, err := s.blocks.Render(ctx, ws, format)
	if err != nil {
		return toolError(err), nil
	}
	return textResult(string(out)), nil
}

func (s *Server) handleExportDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}
	dir, _ := args["dir"].(string)

	path, err := s.blocks.Export(ctx, ws, dir)
	if err != nil {
		return toolError(err), nil
	}
	return textResult(fmt.Sprintf("Exported %s to %s", ws, path)), nil
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(req.GetArguments())
	if err != nil {
		return nil, err
	}
	list, err := s.blocks.Undo(ctx, ws)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(summarizeAll(list))
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(req.GetArguments())
	if err != nil {
		return nil, err
	}
	list, err := s.blocks.Redo(ctx, ws)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(summarizeAll(list))
}

package mcpserver

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"asyncgen/internal/logger"
	"asyncgen/internal/service"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// Server is the MCP server for asyncgen.
// It exposes tools, resources, and prompts so AI agents can assemble
// AsyncAPI documents block by block.
type Server struct {
	mcp    *server.MCPServer
	blocks *service.BlockService
	log    *logger.Logger

	mu              sync.Mutex
	activeWorkspace string
}

// Deps holds everything the MCP server needs from the command layer.
type Deps struct {
	Blocks *service.BlockService
	Log    *logger.Logger

	// Workspace is the initial active workspace.
	Workspace string

	// Notifier, when set, is bound to the server so service events reach
	// connected clients.
	Notifier *Notifier
}

// New creates and configures a new MCP server with all tools and resources.
func New(_ context.Context, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		blocks:          deps.Blocks,
		log:             log.Named("mcp"),
		activeWorkspace: deps.Workspace,
	}

	s.mcp = server.NewMCPServer(
		"asyncgen-mcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)
	if deps.Notifier != nil {
		deps.Notifier.bind(s.mcp)
	}

	s.registerWorkspaceTools()
	s.registerBlockTools()
	s.registerDocumentTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// toolError reports a rejected operation to the client as a tool error
// rather than a protocol failure.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// resolveWorkspace returns the workspace from tool args or falls back to the
// active workspace.
func (s *Server) resolveWorkspace(args map[string]any) (string, error) {
	if ws, ok := args["workspace"].(string); ok && ws != "" {
		return ws, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeWorkspace != "" {
		return s.activeWorkspace, nil
	}
	return "", fmt.Errorf("no workspace provided and no active workspace set (use set_active_workspace first)")
}

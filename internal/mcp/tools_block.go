package mcpserver

import (
	"context"
	"fmt"
	"math"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"asyncgen/internal/domain"
)

func blockTypeList() string {
	names := make([]string, len(domain.BlockTypes))
	for i, t := range domain.BlockTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func (s *Server) registerBlockTools() {
	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Append a new block to the workspace. Every schema field starts empty."),
		mcp.WithString("type",
			mcp.Description("Block type: "+blockTypeList()),
			mcp.Required(),
		),
		mcp.WithString("workspace",
			mcp.Description("Workspace name (optional, defaults to active workspace)"),
		),
	), s.handleAddBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Set fields on a block. Unknown field names reject the whole update."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("changes",
			mcp.Description(`JSON object of field names to string values, e.g. {"title":"Orders","version":"1.0"}`),
			mcp.Required(),
		),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
	), s.handleUpdateBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to a new zero-based position in the list"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Target index"), mcp.Required()),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
	), s.handleMoveBlock)

	// ── remove_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("Remove a block. Use undo to bring it back."),
		mcp.WithString("blockId", mcp.Description("Block ID to remove"), mcp.Required()),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)

	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List the blocks of a workspace in order, optionally filtered by type"),
		mcp.WithString("workspace", mcp.Description("Workspace name (optional, defaults to active workspace)")),
		mcp.WithString("type", mcp.Description("Filter by block type (optional)")),
	), s.handleListBlocks)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockType, _ := args["type"].(string)
	if blockType == "" {
		return nil, fmt.Errorf("type is required")
	}
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}

	block, err := s.blocks.AddBlock(ctx, ws, blockType)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(block)
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, _ := args["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}
	changes, err := parseChanges(args["changes"])
	if err != nil {
		return toolError(err), nil
	}

	block, err := s.blocks.UpdateBlock(ctx, ws, blockID, changes)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(block)
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, _ := args["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	raw, ok := args["index"].(float64)
	if !ok {
		return nil, fmt.Errorf("index is required")
	}
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}

	if raw != math.Trunc(raw) {
		return toolError(fmt.Errorf("index must be a whole number, got %v", raw)), nil
	}
	index := int(raw)
	if err := s.blocks.MoveBlock(ctx, ws, blockID, index); err != nil {
		return toolError(err), nil
	}
	return textResult(fmt.Sprintf("Block %s moved to index %d", blockID, index)), nil
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, _ := args["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}

	if err := s.blocks.RemoveBlock(ctx, ws, blockID); err != nil {
		return toolError(err), nil
	}
	return textResult(fmt.Sprintf("Block %s removed", blockID)), nil
}

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}

	list, err := s.blocks.ListBlocks(ctx, ws)
	if err != nil {
		return toolError(err), nil
	}

	filterType, _ := args["type"].(string)
	summaries := make([]blockSummary, 0, len(list))
	for i, b := range list {
		if filterType != "" && string(b.Type) != filterType {
			continue
		}
		summaries = append(summaries, summarizeBlock(i, b))
	}
	return jsonResult(summaries)
}

// ── Helper types ───────────────────────────────────────────

type blockSummary struct {
	Index  int               `json:"index"`
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

func summarizeBlock(index int, b domain.Block) blockSummary {
	return blockSummary{
		Index:  index,
		ID:     b.ID,
		Type:   string(b.Type),
		Fields: b.Fields,
	}
}

func summarizeAll(list []domain.Block) []blockSummary {
	out := make([]blockSummary, len(list))
	for i, b := range list {
		out[i] = summarizeBlock(i, b)
	}
	return out
}

// parseChanges accepts the changes argument either as a JSON-encoded string
// or as an object the client already decoded. Values must be strings.
func parseChanges(raw any) (map[string]string, error) {
	var obj map[string]any
	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, fmt.Errorf("changes must be a JSON object: %w", err)
		}
	case map[string]any:
		obj = v
	default:
		return nil, fmt.Errorf("changes is required")
	}

	changes := make(map[string]string, len(obj))
	for k, v := range obj {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: value must be a string", k)
		}
		changes[k] = str
	}
	return changes, nil
}

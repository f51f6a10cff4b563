package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("describe_api",
		mcp.WithPromptDescription("Guide through describing an event-driven API as AsyncAPI blocks"),
		mcp.WithArgument("apiName",
			mcp.ArgumentDescription("Name of the API to describe"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("workspace",
			mcp.ArgumentDescription("Workspace to build in (defaults to the API name)"),
		),
	), s.handleDescribeAPIPrompt)
}

func (s *Server) handleDescribeAPIPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	apiName := req.Params.Arguments["apiName"]
	workspace := req.Params.Arguments["workspace"]
	if workspace == "" {
		workspace = apiName
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Describe the %s API", apiName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Describe the "%s" API as an AsyncAPI document. Follow these steps:

1. Call set_active_workspace with name "%s"
2. Add an info block (add_block type "info") and set title and version with update_block
3. Add a server block with its url and protocol (for example kafka or mqtt)
4. Add a channel block and give it a name and description
5. Add a message block with name and payload

By default only the last block of each kind ends up in the document, so update an existing block instead of adding a second one.
Finish with compile_document to review the YAML, then export_document to write it.`, apiName, workspace),
				},
			},
		},
	}, nil
}

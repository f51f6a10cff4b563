package mcpserver

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"asyncgen/internal/export"
)

const (
	workspacesURI       = "asyncapi://workspaces"
	documentURIPrefix   = "asyncapi://workspace/"
	documentURISuffix   = "/document"
	documentURITemplate = documentURIPrefix + "{name}" + documentURISuffix
)

func (s *Server) registerResources() {
	// ── asyncapi://workspaces ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		workspacesURI,
		"All Workspaces",
		mcp.WithMIMEType("application/json"),
	), s.handleWorkspacesResource)

	// ── asyncapi://workspace/{name}/document ───────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			documentURITemplate,
			"Compiled AsyncAPI document",
		),
		s.handleDocumentResource,
	)
}

func (s *Server) handleWorkspacesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workspaces, err := s.blocks.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}

	type workspaceSummary struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		LastExport string `json:"lastExport,omitempty"`
	}

	summaries := make([]workspaceSummary, len(workspaces))
	for i, w := range workspaces {
		summaries[i] = workspaceSummary{ID: w.ID, Name: w.Name, LastExport: w.LastExportPath}
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      workspacesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	name := workspaceFromURI(uri)
	if name == "" {
		return nil, fmt.Errorf("could not extract workspace from URI: %s", uri)
	}

	out, err := s.blocks.Render(ctx, name, export.FormatYAML)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: export.FormatYAML.MIMEType(),
			Text:     string(out),
		},
	}, nil
}

// workspaceFromURI extracts name from "asyncapi://workspace/{name}/document".
func workspaceFromURI(uri string) string {
	if !strings.HasPrefix(uri, documentURIPrefix) || !strings.HasSuffix(uri, documentURISuffix) {
		return ""
	}
	name := strings.TrimSuffix(strings.TrimPrefix(uri, documentURIPrefix), documentURISuffix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}

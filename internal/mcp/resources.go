package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"genesis/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	documentURI    = "genesis://document"
	historyURI     = "genesis://history"
	blockURIPrefix = "genesis://block/"
)

func (s *Server) registerResources() {
	// ── genesis://document ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		documentURI,
		"Current Document",
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	// ── genesis://history ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		historyURI,
		"Undo History",
		mcp.WithMIMEType("application/json"),
	), s.handleHistoryResource)

	// ── genesis://block/{blockId} ──────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			blockURIPrefix+"{blockId}",
			"One Block",
		),
		s.handleBlockResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.sync(ctx)
	return jsonContents(documentURI, s.builder.State())
}

func (s *Server) handleHistoryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.sync(ctx)
	type historyView struct {
		domain.HistoryState
		Stats map[domain.BlockType]int `json:"stats"`
	}
	return jsonContents(historyURI, historyView{
		HistoryState: s.builder.History(),
		Stats:        s.builder.Stats(),
	})
}

func (s *Server) handleBlockResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	blockID := extractBlockIDFromURI(uri)
	if blockID == "" {
		return nil, fmt.Errorf("could not extract blockId from URI: %s", uri)
	}
	s.sync(ctx)
	blocks := s.builder.Document().Blocks
	i := domain.FindBlock(blocks, blockID)
	if i < 0 {
		return nil, fmt.Errorf("block %s not found", blockID)
	}
	return jsonContents(uri, blocks[i])
}

// extractBlockIDFromURI extracts the block ID from "genesis://block/{id}".
func extractBlockIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, blockURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the page"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("history_diff",
		mcp.WithDescription("Show which blocks were added, removed or modified between two history entries"),
		mcp.WithNumber("from", mcp.Description("Older history index"), mcp.Required()),
		mcp.WithNumber("to", mcp.Description("Newer history index"), mcp.Required()),
	), s.handleHistoryDiff)

	s.mcp.AddTool(mcp.NewTool("reset_document",
		mcp.WithDescription("🛑 DESTRUCTIVE: Clear every block, image and the whole undo history. Requires user approval."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleResetDocument)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	if !s.builder.Undo(ctx) {
		return textResult("Nothing to undo"), nil
	}
	return jsonResult(s.builder.History())
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	if !s.builder.Redo(ctx) {
		return textResult("Nothing to redo"), nil
	}
	return jsonResult(s.builder.History())
}

func (s *Server) handleHistoryDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	from, ok1 := args["from"].(float64)
	to, ok2 := args["to"].(float64)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("from and to are required")
	}
	d, err := s.builder.HistoryDiff(int(from), int(to))
	if err != nil {
		return nil, err
	}
	return jsonResult(d)
}

func (s *Server) handleResetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	n := len(s.builder.Document().Blocks)
	approved, err := s.approval.Request("reset_document",
		fmt.Sprintf("Clear all %d blocks and the undo history", n))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}
	s.builder.ResetDocument(ctx)
	return textResult(fmt.Sprintf("Document reset, %d blocks removed", n)), nil
}

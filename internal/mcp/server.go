package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"genesis/internal/domain"
	"genesis/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the page builder.
// It exposes tools, resources, and prompts so AI agents can edit and export
// the document.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue
	logger   *slog.Logger

	builder  *service.BuilderService
	exporter *service.ExportService

	// syncStore re-reads the shared session before every tool call, so edits
	// made in the desktop app are seen by a standalone server.
	syncStore bool
}

// Deps holds all dependencies passed from the host to the MCP server.
type Deps struct {
	Emitter    EventEmitter
	Builder    *service.BuilderService
	Exporter   *service.ExportService
	Logger     *slog.Logger
	ApprovalDB *sql.DB // When set, use SQLite-based approval (standalone mode)
	SyncStore  bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	approval := NewApprovalQueue(ctx, emitter)
	if deps.ApprovalDB != nil {
		approval.SetDB(deps.ApprovalDB)
	}
	s := &Server{
		emitter:   emitter,
		approval:  approval,
		logger:    logger,
		builder:   deps.Builder,
		exporter:  deps.Exporter,
		syncStore: deps.SyncStore,
	}

	s.mcp = server.NewMCPServer(
		"genesis-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerBlockTools()
	s.registerHistoryTools()
	s.registerSiteTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting mcp stdio server")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// sync pulls in edits made by other processes before a tool runs.
func (s *Server) sync(ctx context.Context) {
	if !s.syncStore {
		return
	}
	if _, err := s.builder.SyncFromStore(ctx); err != nil {
		s.logger.Warn("sync session before tool call", "error", err)
	}
}

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

// requireString returns a non-empty string argument.
func requireString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// getBlockForTool retrieves a block of the live document by the blockId
// argument.
func (s *Server) getBlockForTool(args map[string]any) (domain.Block, error) {
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return domain.Block{}, err
	}
	blocks := s.builder.Document().Blocks
	i := domain.FindBlock(blocks, blockID)
	if i < 0 {
		return domain.Block{}, fmt.Errorf("%w: %s", service.ErrBlockNotFound, blockID)
	}
	return blocks[i], nil
}

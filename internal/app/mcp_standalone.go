package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"genesis/internal/config"
	mcpserver "genesis/internal/mcp"
)

// ServeMCP runs genesis as a standalone MCP server on stdin/stdout with no
// GUI. It shares the configured session with a running desktop app: edits
// are synced before every tool call and destructive calls wait for approval
// through the database. Logs go to stderr, stdout belongs to the protocol.
func ServeMCP(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := cfg.NewLogger(os.Stderr)
	rt, err := OpenRuntime(cfg, logger, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	srv := mcpserver.New(ctx, mcpserver.Deps{
		Builder:    rt.Builder,
		Exporter:   rt.Exporter,
		Logger:     logger.With("component", "mcp"),
		ApprovalDB: rt.DB.Conn(),
		SyncStore:  true,
	})

	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

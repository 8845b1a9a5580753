package app

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	mcpserver "genesis/internal/mcp"
	"genesis/internal/service"
)

// EventMCPActivity tells the frontend a standalone MCP server touched the
// session.
const EventMCPActivity = "mcp:activity"

type storeSyncer interface {
	SyncFromStore(ctx context.Context) (bool, error)
}

// sessionWatcher polls the shared session for changes made by another
// process (a standalone MCP server) and for approvals it is waiting on.
type sessionWatcher struct {
	ctx      context.Context
	builder  storeSyncer
	db       *sql.DB
	emitter  service.EventEmitter
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
	// Approval IDs already shown, so each is emitted once.
	emittedApprovals map[string]bool
}

func newSessionWatcher(ctx context.Context, builder storeSyncer, db *sql.DB, emitter service.EventEmitter, logger *slog.Logger) *sessionWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionWatcher{
		ctx:              ctx,
		builder:          builder,
		db:               db,
		emitter:          emitter,
		logger:           logger,
		interval:         2 * time.Second,
		emittedApprovals: map[string]bool{},
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *sessionWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	go w.pollLoop(w.stopCh)
}

// Stop terminates the polling loop.
func (w *sessionWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *sessionWatcher) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *sessionWatcher) check() {
	// SyncFromStore emits document:changed itself when something moved.
	changed, err := w.builder.SyncFromStore(w.ctx)
	if err != nil {
		w.logger.Warn("sync session", "error", err)
	}
	if changed {
		w.emitter.Emit(w.ctx, EventMCPActivity, map[string]int{"changes": 1})
	}

	pending, err := mcpserver.PendingApprovals(w.db)
	if err != nil {
		w.logger.Debug("list pending approvals", "error", err)
		return
	}

	live := make(map[string]bool, len(pending))
	var fresh []mcpserver.PendingAction
	w.mu.Lock()
	for _, a := range pending {
		live[a.ID] = true
		if !w.emittedApprovals[a.ID] {
			w.emittedApprovals[a.ID] = true
			fresh = append(fresh, a)
		}
	}
	// Resolved or expired requests disappear from the table.
	for id := range w.emittedApprovals {
		if !live[id] {
			delete(w.emittedApprovals, id)
		}
	}
	w.mu.Unlock()

	for _, a := range fresh {
		w.emitter.Emit(w.ctx, EventMCPActivity, map[string]int{"changes": 1})
		w.emitter.Emit(w.ctx, mcpserver.EventApprovalRequired, a)
	}
}

// ============================================================
// MCP approvals
// ============================================================

// PendingApprovals lists destructive MCP calls waiting for the user.
func (a *App) PendingApprovals() ([]mcpserver.PendingAction, error) {
	return mcpserver.PendingApprovals(a.rt.DB.Conn())
}

// ApproveMCPAction lets a waiting standalone MCP call proceed.
func (a *App) ApproveMCPAction(id string) error {
	return mcpserver.ResolveApproval(a.rt.DB.Conn(), id, true)
}

// RejectMCPAction turns a waiting standalone MCP call down.
func (a *App) RejectMCPAction(id string) error {
	return mcpserver.ResolveApproval(a.rt.DB.Conn(), id, false)
}

package main

import (
	"context"
	"time"

	"genesis/internal/app"
)

// followSession polls the shared session so edits made by another process
// reach the preview's event feed. The returned func stops it.
func followSession(ctx context.Context, rt *app.Runtime) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := rt.Builder.SyncFromStore(ctx); err != nil {
					rt.Logger.Warn("sync session", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// projectDebounce coalesces the bursts of writes editors produce on save.
const projectDebounce = 500 * time.Millisecond

// ProjectWatcher re-imports a project.json whenever it changes on disk.
type ProjectWatcher struct {
	builder *BuilderService
	logger  *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	timer   *time.Timer
}

func NewProjectWatcher(builder *BuilderService, logger *slog.Logger) *ProjectWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectWatcher{builder: builder, logger: logger}
}

// Watch starts watching path, replacing any previous watch. The directory is
// watched rather than the file so atomic renames are seen too.
func (w *ProjectWatcher) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("bad project path %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", filepath.Dir(absPath), err)
	}

	w.Stop()
	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(watchCtx, watcher, absPath)
	w.logger.Info("watching project", "path", absPath)
	return nil
}

func (w *ProjectWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, absPath string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, _ := filepath.Abs(event.Name); p != absPath {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(projectDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				n, err := ImportProjectFile(ctx, w.builder, absPath)
				if err != nil {
					w.logger.Warn("project re-import failed", "path", absPath, "error", err)
					return
				}
				w.logger.Info("project re-imported", "path", absPath, "images", n)
			})
			w.mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("project watcher error", "error", err)
		}
	}
}

// Stop tears the watch down.
func (w *ProjectWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"genesis/internal/config"
	"genesis/internal/export"
	"genesis/internal/service"
)

// ErrDownloadCancelled is returned when the user closes the save dialog.
var ErrDownloadCancelled = errors.New("download cancelled")

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx     context.Context
	rt      *Runtime
	watcher *sessionWatcher
}

// New creates a new App.
func New() *App {
	return &App{}
}

// wailsEmitter forwards editor events to the frontend.
type wailsEmitter struct {
	ctx context.Context
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// dialogDownloader asks where to save every archive.
type dialogDownloader struct {
	ctx        context.Context
	defaultDir string
}

func (d dialogDownloader) Download(ctx context.Context, filename string, data []byte) (string, error) {
	path, err := wailsRuntime.SaveFileDialog(d.ctx, wailsRuntime.SaveDialogOptions{
		Title:            "Save Site",
		DefaultDirectory: d.defaultDir,
		DefaultFilename:  filename,
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Zip Archive", Pattern: "*.zip"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("save dialog: %w", err)
	}
	if path == "" {
		return "", ErrDownloadCancelled
	}
	return export.DirDownloader{Dir: filepath.Dir(path)}.Download(ctx, filepath.Base(path), data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load(config.DefaultDir())
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load config: %v", err)
		return
	}

	rt, err := OpenRuntime(cfg, nil, RuntimeOptions{
		Emitter:    wailsEmitter{ctx: ctx},
		Downloader: dialogDownloader{ctx: ctx, defaultDir: cfg.DownloadDir},
		Target:     "dialog",
	})
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	a.rt = rt
	rt.StartBackground(ctx, true)

	// Standalone MCP servers write to the same session; pick their edits up.
	a.watcher = newSessionWatcher(ctx, rt.Builder, rt.DB.Conn(), wailsEmitter{ctx: ctx}, rt.Logger)
	a.watcher.Start()
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.rt != nil {
		a.rt.Close(ctx)
	}
}

// ImageHandler serves ephemeral image handles to the WebView under
// /handles/<handle>, so the editor can show images before they are encoded.
func (a *App) ImageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle, ok := strings.CutPrefix(r.URL.Path, "/handles/")
		if !ok || a.rt == nil {
			http.NotFound(w, r)
			return
		}
		data, mime, err := a.rt.Builder.ImageByHandle("blob:" + handle)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", mime)
		w.Write(data)
	})
}

// ============================================================
// Window
// ============================================================

func (a *App) LoadWindowSize() service.WindowSize {
	return a.rt.Window.LoadWindowSize()
}

func (a *App) SaveWindowSize(width, height int) error {
	return a.rt.Window.SaveWindowSize(width, height)
}

// PreviewURL is the address of the live preview, or "" when disabled.
func (a *App) PreviewURL() string {
	if a.rt.Config.PreviewAddr == "" {
		return ""
	}
	return "http://" + a.rt.Config.PreviewAddr + "/"
}

// ============================================================
// Project files
// ============================================================

// ImportProject loads a project.json chosen in a file picker.
func (a *App) ImportProject() (int, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Open Project",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Genesis Project", Pattern: "project.json;*.json"},
		},
	})
	if err != nil || path == "" {
		return 0, err
	}
	return service.ImportProjectFile(a.ctx, a.rt.Builder, path)
}

// WatchProject re-imports path whenever it changes on disk. "" stops it.
func (a *App) WatchProject(path string) error {
	if path == "" {
		a.rt.Watcher.Stop()
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watch project: %w", err)
	}
	return a.rt.Watcher.Watch(a.ctx, path)
}

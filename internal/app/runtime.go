package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"genesis/internal/config"
	"genesis/internal/export"
	"genesis/internal/metrics"
	"genesis/internal/preview"
	"genesis/internal/service"
	"genesis/internal/storage"
)

// Runtime is everything a genesis process runs on, whichever host drives it:
// the desktop app, the standalone MCP server or the CLI.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *storage.DB
	Registry *prom.Registry
	Builder  *service.BuilderService
	Exporter *service.ExportService
	Preview  *preview.Server
	Sweeper  *service.SessionSweeper
	Watcher  *service.ProjectWatcher
	Window   *service.WindowSettingsService
}

// RuntimeOptions picks the host-specific parts of a Runtime.
type RuntimeOptions struct {
	// Emitter receives every editor event next to the preview feed.
	Emitter service.EventEmitter
	// Downloader hands finished archives over. Defaults to the download dir.
	Downloader export.Downloader
	Target     string
}

// OpenRuntime opens the database and wires every service around it.
func OpenRuntime(cfg *config.Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	if logger == nil {
		logger = cfg.NewLogger(os.Stderr)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	hub := preview.NewHub(logger.With("component", "preview"))

	emitters := service.MultiEmitter{hub}
	if opts.Emitter != nil {
		emitters = append(emitters, opts.Emitter)
	}

	builder := service.NewBuilderService(service.BuilderOptions{
		Session:      storage.NewSessionKV(db, cfg.SessionID),
		Durable:      storage.NewDurableKV(db),
		HistoryLimit: cfg.HistoryLimit,
		Emitter:      emitters,
		Recorder:     recorder,
		Logger:       logger.With("component", "builder"),
	})

	dl := opts.Downloader
	target := opts.Target
	if dl == nil {
		dl = export.DirDownloader{Dir: cfg.DownloadDir}
		target = "dir"
	}
	exporter := service.NewExportService(builder, export.NewPipeline(dl), service.ExportOptions{
		SessionID: cfg.SessionID,
		Target:    target,
		AssetWait: cfg.AssetWait,
		Logs:      storage.NewExportLogStore(db),
		Emitter:   emitters,
		Recorder:  recorder,
		Logger:    logger.With("component", "export"),
	})

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Registry: reg,
		Builder:  builder,
		Exporter: exporter,
		Preview: preview.New(builder, preview.Options{
			Hub:     hub,
			Metrics: metrics.HTTPHandler(reg),
			Logger:  logger.With("component", "preview"),
		}),
		Sweeper: service.NewSessionSweeper(db, cfg.SessionTTL, cfg.SessionID, logger.With("component", "sweeper")),
		Watcher: service.NewProjectWatcher(builder, logger.With("component", "watcher")),
		Window:  service.NewWindowSettingsService(storage.NewDurableKV(db)),
	}, nil
}

// StartBackground starts the session sweeper and, when configured, the
// project watcher and the preview server. They stop with ctx or Close.
func (r *Runtime) StartBackground(ctx context.Context, withPreview bool) {
	if err := r.Sweeper.Start(r.Config.SweepSchedule); err != nil {
		r.Logger.Warn("session sweeper not started", "error", err)
	}
	if path := r.Config.WatchProject; path != "" {
		if err := r.Watcher.Watch(ctx, path); err != nil {
			r.Logger.Warn("project watcher not started", "path", path, "error", err)
		}
	}
	if withPreview && r.Config.PreviewAddr != "" {
		go func() {
			if err := r.Preview.ListenAndServe(ctx, r.Config.PreviewAddr); err != nil {
				r.Logger.Warn("preview server stopped", "error", err)
			}
		}()
	}
}

// Close waits for in-flight exports and encodings, then closes the database.
func (r *Runtime) Close(ctx context.Context) {
	r.Watcher.Stop()
	r.Sweeper.Stop()
	r.Exporter.WaitRunning(ctx)
	r.Builder.Close()
	if err := r.DB.Close(); err != nil {
		r.Logger.Warn("close database", "error", err)
	}
}

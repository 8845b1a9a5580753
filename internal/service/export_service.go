package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"genesis/internal/domain"
	"genesis/internal/export"
	"genesis/internal/metrics"
	"genesis/internal/storage"
)

// ErrExportBusy is returned when an export is requested while another one
// for the same session is still running.
var ErrExportBusy = errors.New("an export is already in progress")

// DefaultAssetWait bounds how long an export waits for pending image
// encodings.
const DefaultAssetWait = 5 * time.Second

// ExportOptions configures an ExportService.
type ExportOptions struct {
	SessionID string
	// Target names where archives go, for the export log ("dir", "dialog").
	Target    string
	AssetWait time.Duration
	Logs      *storage.ExportLogStore
	Emitter   EventEmitter
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// ExportService packages the session's document into a downloadable static
// site. It only reads the document; history is never touched.
type ExportService struct {
	builder  *BuilderService
	pipeline *export.Pipeline

	sessionID string
	target    string
	assetWait time.Duration
	logs      *storage.ExportLogStore

	emitter  EventEmitter
	recorder metrics.Recorder
	logger   *slog.Logger

	running runningJobsGuard
}

func NewExportService(builder *BuilderService, pipeline *export.Pipeline, opts ExportOptions) *ExportService {
	s := &ExportService{
		builder:   builder,
		pipeline:  pipeline,
		sessionID: opts.SessionID,
		target:    opts.Target,
		assetWait: opts.AssetWait,
		logs:      opts.Logs,
		emitter:   opts.Emitter,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}
	if s.assetWait <= 0 {
		s.assetWait = DefaultAssetWait
	}
	if s.emitter == nil {
		s.emitter = NopEmitter{}
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ── Run ────────────────────────────────────────────────────

// ExportSite renders the current document and hands the archive to the
// pipeline's downloader. A request made while another export is running
// fails with ErrExportBusy. Without an active template it fails with
// export.ErrNoTemplate before doing any work.
func (s *ExportService) ExportSite(ctx context.Context) (export.Result, error) {
	if !s.running.TryLock(s.sessionID) {
		s.recorder.IncExportOutcome(metrics.OutcomeBusy)
		return export.Result{}, ErrExportBusy
	}
	defer s.running.Unlock(s.sessionID)

	observe := func(st export.State) {
		s.emitter.Emit(ctx, EventExportState, map[string]string{"state": string(st)})
	}

	start := time.Now()
	doc, assets, err := s.builder.ExportSnapshot(ctx, s.assetWait)
	if err != nil {
		err = fmt.Errorf("%w: %w", export.ErrPackaging, err)
		observe(export.StateIdle)
		s.finish(ctx, doc, export.Result{}, start, err)
		return export.Result{}, err
	}

	result, err := s.pipeline.Run(ctx, doc, assets, observe)
	if errors.Is(err, export.ErrNoTemplate) {
		s.recorder.IncExportOutcome(metrics.OutcomeFailed)
		s.emitter.Emit(ctx, EventExportFailed, map[string]string{"error": err.Error()})
		return export.Result{}, err
	}
	s.finish(ctx, doc, result, start, err)
	if err != nil {
		return export.Result{}, err
	}

	s.builder.MarkDownloaded(ctx)
	return result, nil
}

// finish records the outcome of an export that got past validation.
func (s *ExportService) finish(ctx context.Context, doc domain.Document, result export.Result, start time.Time, runErr error) {
	finished := time.Now()
	s.recorder.ObserveExportDuration(finished.Sub(start))

	rec := &domain.ExportRecord{
		SessionID:  s.sessionID,
		Filename:   result.Filename,
		Location:   result.Location,
		Target:     s.target,
		Template:   doc.ActiveTemplate,
		BlockCount: len(doc.Blocks),
		ImageCount: result.Images,
		SizeBytes:  result.Size,
		Status:     domain.ExportSucceeded,
		StartedAt:  start,
		FinishedAt: finished,
	}
	if runErr != nil {
		rec.Status = domain.ExportFailed
		rec.Error = runErr.Error()
	}
	if s.logs != nil {
		if err := s.logs.Create(rec); err != nil {
			s.logger.Warn("record export", "error", err)
		}
	}

	if runErr != nil {
		s.recorder.IncExportOutcome(metrics.OutcomeFailed)
		s.logger.Warn("export failed", "session_id", s.sessionID, "error", runErr)
		s.emitter.Emit(ctx, EventExportFailed, map[string]string{"error": runErr.Error()})
		return
	}
	s.recorder.IncExportOutcome(metrics.OutcomeSuccess)
	s.logger.Info("export finished", "filename", result.Filename, "location", result.Location, "images", result.Images)
	s.emitter.Emit(ctx, EventExportCompleted, result)
}

// Running reports whether an export is in flight.
func (s *ExportService) Running() bool {
	return s.running.Running(s.sessionID)
}

// History returns the most recent export records, newest first.
func (s *ExportService) History(limit int) ([]domain.ExportRecord, error) {
	if s.logs == nil {
		return nil, nil
	}
	return s.logs.List(limit)
}

// WaitRunning blocks until the running export finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

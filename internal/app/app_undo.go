package app

import (
	"genesis/internal/domain"
	"genesis/internal/export"
)

// ============================================================
// History
// ============================================================

func (a *App) Undo() bool {
	return a.rt.Builder.Undo(a.ctx)
}

func (a *App) Redo() bool {
	return a.rt.Builder.Redo(a.ctx)
}

func (a *App) GetHistory() domain.HistoryState {
	return a.rt.Builder.History()
}

func (a *App) HistoryDiff(from, to int) (domain.HistoryDiff, error) {
	return a.rt.Builder.HistoryDiff(from, to)
}

// ResetDocument clears blocks, images and history. The template survives.
func (a *App) ResetDocument() {
	a.rt.Builder.ResetDocument(a.ctx)
}

// ============================================================
// Export
// ============================================================

// ExportSite packages the page and asks where to save it. Progress arrives
// as export:state events.
func (a *App) ExportSite() (export.Result, error) {
	return a.rt.Exporter.ExportSite(a.ctx)
}

func (a *App) IsExporting() bool {
	return a.rt.Exporter.Running()
}

func (a *App) ListExports(limit int) ([]domain.ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return a.rt.Exporter.History(limit)
}

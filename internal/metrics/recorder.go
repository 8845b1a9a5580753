// Package metrics defines observability hooks for editing and export. Components
// receive a Recorder and default to NoopRecorder, so no nil checks are needed.
package metrics

import "time"

// Outcome labels used by counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeBusy    = "busy"
	OutcomeNoop    = "noop"
)

// Recorder receives editing and export events.
type Recorder interface {
	IncHistoryOp(op, outcome string) // op: commit|undo|redo|reset
	ObserveExportDuration(d time.Duration)
	IncExportOutcome(outcome string)
	IncAssetEncode(outcome string)
	SetDocumentBlocks(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncHistoryOp(string, string) {}
func (NoopRecorder) ObserveExportDuration(time.Duration) {}
func (NoopRecorder) IncExportOutcome(string) {}
func (NoopRecorder) IncAssetEncode(string) {}
func (NoopRecorder) SetDocumentBlocks(int) {}

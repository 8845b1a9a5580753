package domain

import "time"

type ExportStatus string

const (
	ExportSucceeded ExportStatus = "succeeded"
	ExportFailed    ExportStatus = "failed"
)

// ExportRecord is one row of the export audit log.
type ExportRecord struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"sessionId"`
	Filename   string       `json:"filename"`
	Location   string       `json:"location"`
	Target     string       `json:"target"`
	Template   Template     `json:"template"`
	BlockCount int          `json:"blockCount"`
	ImageCount int          `json:"imageCount"`
	SizeBytes  int64        `json:"sizeBytes"`
	Status     ExportStatus `json:"status"`
	Error      string       `json:"error"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

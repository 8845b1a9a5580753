package storage

import (
	"fmt"
	"time"

	"genesis/internal/domain"

	"github.com/google/uuid"
)

// ExportLogStore persists the audit trail of site exports.
type ExportLogStore struct {
	db *DB
}

// NewExportLogStore creates a new ExportLogStore.
func NewExportLogStore(db *DB) *ExportLogStore {
	return &ExportLogStore{db: db}
}

// Create inserts rec, assigning an id when it has none.
func (s *ExportLogStore) Create(rec *domain.ExportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}

	_, err := s.db.conn.Exec(
		`INSERT INTO export_logs (id, session_id, filename, location, target, template,
		 block_count, image_count, size_bytes, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Filename, rec.Location, rec.Target, string(rec.Template),
		rec.BlockCount, rec.ImageCount, rec.SizeBytes, string(rec.Status), rec.Error,
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export log: %w", err)
	}
	return nil
}

// List returns the most recent records first. limit <= 0 means 20.
func (s *ExportLogStore) List(limit int) ([]domain.ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, session_id, filename, location, target, template, block_count,
		 image_count, size_bytes, status, error, started_at, finished_at
		 FROM export_logs ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list export logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ExportRecord
	for rows.Next() {
		var r domain.ExportRecord
		var tpl, status string
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.Filename, &r.Location, &r.Target, &tpl,
			&r.BlockCount, &r.ImageCount, &r.SizeBytes, &status, &r.Error,
			&r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export log: %w", err)
		}
		r.Template = domain.Template(tpl)
		r.Status = domain.ExportStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

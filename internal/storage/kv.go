package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	scopeSession = "session"
	scopeDurable = "durable"
)

// KV is a string key/value store. Values are opaque to it; callers store JSON.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// ScopedKV is a KV over the kv table, bound to one scope and session.
type ScopedKV struct {
	db        *DB
	scope     string
	sessionID string
}

// NewSessionKV returns the store for state that lives as long as the editing
// session. Expired sessions are purged by ExpireSessions.
func NewSessionKV(db *DB, sessionID string) *ScopedKV {
	return &ScopedKV{db: db, scope: scopeSession, sessionID: sessionID}
}

// NewDurableKV returns the store for state that outlives any session.
func NewDurableKV(db *DB) *ScopedKV {
	return &ScopedKV{db: db, scope: scopeDurable}
}

func (s *ScopedKV) Get(key string) (string, bool, error) {
	var value string
	err := s.db.conn.QueryRow(
		`SELECT value FROM kv WHERE scope = ? AND session_id = ? AND key = ?`,
		s.scope, s.sessionID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *ScopedKV) Set(key, value string) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO kv (scope, session_id, key, value, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(scope, session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, s.sessionID, key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *ScopedKV) Delete(key string) error {
	_, err := s.db.conn.Exec(
		`DELETE FROM kv WHERE scope = ? AND session_id = ? AND key = ?`,
		s.scope, s.sessionID, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ExpireSessions drops every session other than live whose most recent write
// is older than before. Durable keys are never touched. Returns the number of
// rows removed.
func (db *DB) ExpireSessions(before time.Time, live string) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM kv WHERE scope = ? AND session_id <> ? AND session_id IN (
			SELECT session_id FROM kv WHERE scope = ?
			GROUP BY session_id HAVING MAX(updated_at) < ?
		)`,
		scopeSession, live, scopeSession, before.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return res.RowsAffected()
}

// ── In-memory ──────────────────────────────────────────────

// MemoryKV keeps values in process memory only.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

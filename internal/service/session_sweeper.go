package service

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"genesis/internal/storage"

	"github.com/robfig/cron/v3"
)

// ─────────────────────────────────────────────────────────────
// SessionSweeper: purges session state nobody touched in a while
// ─────────────────────────────────────────────────────────────

// SessionSweeper periodically deletes every session whose newest key is
// older than the TTL. Durable keys and the live session are never swept.
type SessionSweeper struct {
	db     *storage.DB
	ttl    time.Duration
	live   string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSessionSweeper(db *storage.DB, ttl time.Duration, live string, logger *slog.Logger) *SessionSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{db: db, ttl: ttl, live: live, logger: logger, now: time.Now}
}

// Sweep deletes expired sessions once and returns how many rows went away.
func (s *SessionSweeper) Sweep() (int64, error) {
	n, err := s.db.ExpireSessions(s.now().Add(-s.ttl), s.live)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("swept expired sessions", "rows", n, "ttl", s.ttl)
	}
	return n, nil
}

// Start schedules Sweep on a cron expression such as "@hourly". Calling
// Start again replaces the previous schedule.
func (s *SessionSweeper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Warn("session sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cron = c
	c.Start()
	s.logger.Debug("session sweeper scheduled", "schedule", schedule)
	return nil
}

// Stop cancels the schedule. A sweep already running finishes on its own.
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

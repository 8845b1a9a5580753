// Package history keeps a bounded linear log of block-list snapshots with a
// cursor, giving undo and redo over whole-document states.
package history

import "genesis/internal/domain"

// DefaultLimit is the number of snapshots kept when no limit is configured.
const DefaultLimit = 50

// Engine is not safe for concurrent use; the owner serializes access.
type Engine struct {
	limit  int
	log    [][]domain.Block
	cursor int
	live   []domain.Block
}

// New returns an engine holding a single empty snapshot.
func New(limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	e := &Engine{limit: limit}
	e.Reset()
	return e
}

// Seed replaces the log with one snapshot of blocks, used when a session is
// restored so the first undo cannot step back past the loaded document.
func (e *Engine) Seed(blocks []domain.Block) {
	e.log = [][]domain.Block{domain.CloneBlocks(blocks)}
	e.cursor = 0
	e.live = domain.CloneBlocks(blocks)
}

// Commit records blocks as the new present. It returns false, leaving the log
// untouched, when blocks deep-equals the live document. Any redo branch is
// discarded, and the oldest snapshots are evicted once the log exceeds the
// limit.
func (e *Engine) Commit(blocks []domain.Block) bool {
	if domain.EqualBlocks(e.live, blocks) {
		return false
	}

	log := make([][]domain.Block, 0, e.cursor+2)
	log = append(log, e.log[:e.cursor+1]...)
	log = append(log, domain.CloneBlocks(blocks))
	cursor := len(log) - 1

	if over := len(log) - e.limit; over > 0 {
		log = log[over:]
		cursor -= over
	}

	e.log = log
	e.cursor = cursor
	e.live = domain.CloneBlocks(blocks)
	return true
}

// Undo moves the cursor back one snapshot. It is a no-op at the oldest one.
func (e *Engine) Undo() bool {
	if e.cursor == 0 {
		return false
	}
	e.cursor--
	e.live = domain.CloneBlocks(e.log[e.cursor])
	return true
}

// Redo moves the cursor forward one snapshot. It is a no-op at the newest one.
func (e *Engine) Redo() bool {
	if e.cursor >= len(e.log)-1 {
		return false
	}
	e.cursor++
	e.live = domain.CloneBlocks(e.log[e.cursor])
	return true
}

// Reset empties the log back to a single empty snapshot.
func (e *Engine) Reset() {
	e.log = [][]domain.Block{{}}
	e.cursor = 0
	e.live = []domain.Block{}
}

// Current returns a copy of the document at the cursor.
func (e *Engine) Current() []domain.Block {
	return domain.CloneBlocks(e.live)
}

// Snapshot returns a copy of the snapshot at index i of the log.
func (e *Engine) Snapshot(i int) ([]domain.Block, bool) {
	if i < 0 || i >= len(e.log) {
		return nil, false
	}
	return domain.CloneBlocks(e.log[i]), true
}

func (e *Engine) State() domain.HistoryState {
	return domain.HistoryState{
		Cursor:  e.cursor,
		Length:  len(e.log),
		CanUndo: e.cursor > 0,
		CanRedo: e.cursor < len(e.log)-1,
	}
}

func (e *Engine) Limit() int { return e.limit }

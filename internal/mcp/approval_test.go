package mcpserver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/service"
	"genesis/internal/storage"
)

func dbQueue(t *testing.T) (*ApprovalQueue, *storage.DB) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "genesis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q := NewApprovalQueue(ctx, service.NopEmitter{})
	q.SetDB(db.Conn())
	q.SetTimeout(2 * time.Second)
	q.poll = 5 * time.Millisecond
	return q, db
}

type outcome struct {
	approved bool
	err      error
}

func requestAsync(q *ApprovalQueue) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		ok, err := q.Request("reset_document", "Clear 3 blocks")
		ch <- outcome{ok, err}
	}()
	return ch
}

func awaitPending(t *testing.T, db *storage.DB) PendingAction {
	t.Helper()
	var pending []PendingAction
	require.Eventually(t, func() bool {
		var err error
		pending, err = PendingApprovals(db.Conn())
		return err == nil && len(pending) == 1
	}, time.Second, 5*time.Millisecond)
	return pending[0]
}

func TestApprovalQueue_DBApproved(t *testing.T) {
	q, db := dbQueue(t)
	done := requestAsync(q)

	a := awaitPending(t, db)
	assert.Equal(t, "reset_document", a.Tool)
	assert.Equal(t, "{}", a.Metadata)
	require.NoError(t, ResolveApproval(db.Conn(), a.ID, true))

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.approved)

	left, err := PendingApprovals(db.Conn())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestApprovalQueue_DBRejected(t *testing.T) {
	q, db := dbQueue(t)
	done := requestAsync(q)

	a := awaitPending(t, db)
	require.NoError(t, ResolveApproval(db.Conn(), a.ID, false))

	res := <-done
	assert.False(t, res.approved)
	assert.ErrorIs(t, res.err, ErrRejected)
}

func TestApprovalQueue_DBTimeout(t *testing.T) {
	q, _ := dbQueue(t)
	q.SetTimeout(30 * time.Millisecond)

	ok, err := q.Request("remove_block", "Remove Header block b1")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "timed out")
}

func TestResolveApproval_Unknown(t *testing.T) {
	_, db := dbQueue(t)
	assert.Error(t, ResolveApproval(db.Conn(), "nope", true))
}

func TestApprovalQueue_ChannelTimeoutDismisses(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)
	q.SetTimeout(20 * time.Millisecond)

	ok, err := q.Request("reset_document", "Clear everything")
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, []string{EventApprovalRequired, EventApprovalDismissed}, emitter.Names())
}

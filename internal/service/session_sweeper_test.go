package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/storage"
)

func TestSessionSweeper_Sweep(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "genesis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewSessionKV(db, "old").Set("blocks", "[]"))
	require.NoError(t, storage.NewSessionKV(db, "current").Set("blocks", "[]"))
	require.NoError(t, storage.NewDurableKV(db).Set(KeyHasDownloaded, "true"))

	s := NewSessionSweeper(db, time.Hour, "current", nil)
	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Zero(t, n)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := storage.NewSessionKV(db, "old").Get("blocks")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = storage.NewSessionKV(db, "current").Get("blocks")
	require.NoError(t, err)
	assert.True(t, ok, "the open session is never swept")
	_, ok, err = storage.NewDurableKV(db).Get(KeyHasDownloaded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionSweeper_Schedule(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "genesis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSessionSweeper(db, time.Hour, "current", nil)
	assert.Error(t, s.Start("every tuesday"))
	require.NoError(t, s.Start("@every 1h"))
	require.NoError(t, s.Start("@hourly"))
	s.Stop()
	s.Stop()
}

package history_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/domain"
	"genesis/internal/history"
)

func header(id, titulo string) domain.Block {
	p := domain.DefaultProps(domain.BlockTypeHeader).(domain.HeaderProps)
	p.Titulo = titulo
	return domain.Block{ID: id, Type: domain.BlockTypeHeader, Props: p}
}

func TestNew_StartsWithEmptySnapshot(t *testing.T) {
	e := history.New(0)
	assert.Equal(t, history.DefaultLimit, e.Limit())
	assert.Equal(t, domain.HistoryState{Cursor: 0, Length: 1}, e.State())
	assert.Empty(t, e.Current())
	assert.False(t, e.Undo())
	assert.False(t, e.Redo())
}

func TestUndoRedo_HeaderTitle(t *testing.T) {
	e := history.New(50)
	h := domain.NewBlock(domain.BlockTypeHeader)
	require.True(t, e.Commit([]domain.Block{h}))

	edited := h
	edited.Props, _ = domain.MergeProps(h.Props, map[string]any{"titulo": "Hello"})
	require.True(t, e.Commit([]domain.Block{edited}))

	require.True(t, e.Undo())
	assert.Equal(t, "Page Title", e.Current()[0].Props.(domain.HeaderProps).Titulo)

	require.True(t, e.Redo())
	assert.Equal(t, "Hello", e.Current()[0].Props.(domain.HeaderProps).Titulo)
	assert.Equal(t, domain.HistoryState{Cursor: 2, Length: 3, CanUndo: true}, e.State())
}

func TestCommit_NoOpWhenEqual(t *testing.T) {
	e := history.New(50)
	blocks := []domain.Block{header("a", "x")}
	require.True(t, e.Commit(blocks))

	assert.False(t, e.Commit([]domain.Block{header("a", "x")}))
	assert.Equal(t, 2, e.State().Length)
}

func TestCommit_DiscardsRedoBranch(t *testing.T) {
	e := history.New(50)
	e.Commit([]domain.Block{header("a", "1")})
	e.Commit([]domain.Block{header("a", "2")})
	e.Commit([]domain.Block{header("a", "3")})
	require.True(t, e.Undo())
	require.True(t, e.Undo())

	require.True(t, e.Commit([]domain.Block{header("a", "branch")}))
	assert.Equal(t, domain.HistoryState{Cursor: 2, Length: 3, CanUndo: true}, e.State())
	assert.False(t, e.Redo())

	require.True(t, e.Undo())
	assert.Equal(t, "1", e.Current()[0].Props.(domain.HeaderProps).Titulo)
}

func TestCommit_EvictsOldestAtLimit(t *testing.T) {
	e := history.New(50)
	for i := 0; i < 60; i++ {
		e.Commit([]domain.Block{header("a", fmt.Sprint(i))})
	}

	st := e.State()
	assert.Equal(t, 50, st.Length)
	assert.Equal(t, 49, st.Cursor)

	undos := 0
	for e.Undo() {
		undos++
	}
	assert.Equal(t, 49, undos)
	assert.Equal(t, "10", e.Current()[0].Props.(domain.HeaderProps).Titulo)
}

func TestCommit_EvictionKeepsCursorOnSameSnapshot(t *testing.T) {
	e := history.New(3)
	e.Commit([]domain.Block{header("a", "1")})
	e.Commit([]domain.Block{header("a", "2")})
	e.Commit([]domain.Block{header("a", "3")})

	assert.Equal(t, domain.HistoryState{Cursor: 2, Length: 3, CanUndo: true}, e.State())
	snap, ok := e.Snapshot(0)
	require.True(t, ok)
	assert.Equal(t, "1", snap[0].Props.(domain.HeaderProps).Titulo)
}

func TestUndo_StopsAtOldest(t *testing.T) {
	e := history.New(50)
	e.Commit([]domain.Block{header("a", "1")})
	assert.True(t, e.Undo())
	assert.Empty(t, e.Current())
	assert.False(t, e.Undo())
	assert.Empty(t, e.Current())
}

func TestSnapshotsAreIsolated(t *testing.T) {
	e := history.New(50)
	blocks := []domain.Block{domain.NewBlock(domain.BlockTypeLinkList)}
	e.Commit(blocks)

	blocks[0].Props.(domain.LinkListProps).Links[0].Text = "mutated"
	cur := e.Current()
	assert.Equal(t, "Main Link", cur[0].Props.(domain.LinkListProps).Links[0].Text)

	cur[0].Props.(domain.LinkListProps).Links[0].Text = "mutated again"
	assert.Equal(t, "Main Link", e.Current()[0].Props.(domain.LinkListProps).Links[0].Text)
}

func TestSeed(t *testing.T) {
	e := history.New(50)
	e.Commit([]domain.Block{header("a", "1")})
	e.Seed([]domain.Block{header("b", "restored")})

	assert.Equal(t, domain.HistoryState{Cursor: 0, Length: 1}, e.State())
	assert.Equal(t, "b", e.Current()[0].ID)
	assert.False(t, e.Commit([]domain.Block{header("b", "restored")}))
}

func TestReset(t *testing.T) {
	e := history.New(50)
	e.Commit([]domain.Block{header("a", "1")})
	e.Commit([]domain.Block{header("a", "2")})
	e.Reset()

	assert.Equal(t, domain.HistoryState{Cursor: 0, Length: 1}, e.State())
	assert.Empty(t, e.Current())
	assert.False(t, e.Undo())
	assert.False(t, e.Redo())
}

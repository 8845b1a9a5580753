package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/config"
	"genesis/internal/domain"
	mcpserver "genesis/internal/mcp"
	"genesis/internal/service"
	"genesis/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	v := config.New()
	v.Set(config.KeyDataDir, filepath.Join(dir, "data"))
	v.Set(config.KeyDownloadDir, filepath.Join(dir, "downloads"))
	v.Set(config.KeySessionID, "test")
	v.Set(config.KeyAssetWait, "200ms")
	v.Set(config.KeyPreviewAddr, "")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func openTestRuntime(t *testing.T, emitter service.EventEmitter) *Runtime {
	t.Helper()
	rt, err := OpenRuntime(testConfig(t), nil, RuntimeOptions{Emitter: emitter})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

func TestRuntime_ExportsToDownloadDir(t *testing.T) {
	emitter := &service.MockEmitter{}
	rt := openTestRuntime(t, emitter)
	ctx := context.Background()

	_, err := rt.Builder.AddBlock(ctx, domain.BlockTypeHeader, map[string]any{"titulo": "Hi"})
	require.NoError(t, err)
	require.NoError(t, rt.Builder.SetActiveTemplate(ctx, "card"))

	res, err := rt.Exporter.ExportSite(ctx)
	require.NoError(t, err)
	assert.Equal(t, rt.Config.DownloadDir, filepath.Dir(res.Location))
	assert.FileExists(t, res.Location)

	_, ok := emitter.Find(service.EventExportCompleted)
	assert.True(t, ok, "host emitter sees export events")
	assert.FileExists(t, rt.Config.DBPath())
}

func TestRuntime_StateSurvivesReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	rt, err := OpenRuntime(cfg, nil, RuntimeOptions{})
	require.NoError(t, err)
	_, err = rt.Builder.AddBlock(ctx, domain.BlockTypeRichText, nil)
	require.NoError(t, err)
	rt.Close(ctx)

	rt, err = OpenRuntime(cfg, nil, RuntimeOptions{})
	require.NoError(t, err)
	defer rt.Close(ctx)
	assert.Len(t, rt.Builder.Document().Blocks, 1)
}

func TestRuntime_StartBackgroundWatchesProject(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.WatchProject = filepath.Join(dir, "project.json")

	rt, err := OpenRuntime(cfg, nil, RuntimeOptions{})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.StartBackground(ctx, false)

	project := `{"blocks":[{"id":"h1","type":"Header","props":{"titulo":"From disk"}}],"template":"landing"}`
	require.NoError(t, os.WriteFile(cfg.WatchProject, []byte(project), 0644))

	assert.Eventually(t, func() bool {
		doc := rt.Builder.Document()
		return len(doc.Blocks) == 1 && doc.ActiveTemplate == domain.TemplateLanding
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSessionWatcher_PicksUpOtherProcess(t *testing.T) {
	emitter := &service.MockEmitter{}
	rt := openTestRuntime(t, nil)
	ctx := context.Background()

	// A second service on the same session plays the standalone MCP server.
	other := service.NewBuilderService(service.BuilderOptions{
		Session: storage.NewSessionKV(rt.DB, rt.Config.SessionID),
		Durable: storage.NewDurableKV(rt.DB),
	})
	defer other.Close()

	w := newSessionWatcher(ctx, rt.Builder, rt.DB.Conn(), emitter, nil)
	w.check()
	assert.Empty(t, emitter.Filter(EventMCPActivity))

	_, err := other.AddBlock(ctx, domain.BlockTypeLinkList, nil)
	require.NoError(t, err)

	w.check()
	assert.Len(t, rt.Builder.Document().Blocks, 1)
	assert.Len(t, emitter.Filter(EventMCPActivity), 1)
}

func TestSessionWatcher_EmitsEachApprovalOnce(t *testing.T) {
	emitter := &service.MockEmitter{}
	rt := openTestRuntime(t, nil)
	db := rt.DB.Conn()
	w := newSessionWatcher(context.Background(), rt.Builder, db, emitter, nil)

	_, err := db.Exec(`INSERT INTO mcp_approvals (id, tool, description, status, metadata, created_at)
		VALUES ('a1', 'remove_block', 'Remove Header block h1', 'pending', '{}', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	w.check()
	w.check()
	got := emitter.Filter(mcpserver.EventApprovalRequired)
	require.Len(t, got, 1)
	assert.Equal(t, "remove_block", got[0].Data.(mcpserver.PendingAction).Tool)

	require.NoError(t, mcpserver.ResolveApproval(db, "a1", true))
	w.check()
	w.mu.Lock()
	assert.Empty(t, w.emittedApprovals)
	w.mu.Unlock()
}

func TestSessionWatcher_StartStop(t *testing.T) {
	rt := openTestRuntime(t, nil)
	w := newSessionWatcher(context.Background(), rt.Builder, rt.DB.Conn(), service.NopEmitter{}, nil)
	w.interval = 5 * time.Millisecond
	w.Start()
	w.Start()
	time.Sleep(20 * time.Millisecond)
	w.Stop()
	w.Stop()
}

package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/domain"
	"genesis/internal/export"
	"genesis/internal/service"
	"genesis/internal/storage"
)

type harness struct {
	srv     *Server
	builder *service.BuilderService
	emitter *service.MockEmitter
	dir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "genesis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	emitter := &service.MockEmitter{}
	builder := service.NewBuilderService(service.BuilderOptions{
		Session: storage.NewSessionKV(db, "test"),
		Durable: storage.NewDurableKV(db),
		Emitter: emitter,
	})
	t.Cleanup(builder.Close)

	exporter := service.NewExportService(builder,
		export.NewPipeline(export.DirDownloader{Dir: filepath.Join(dir, "out")}),
		service.ExportOptions{
			SessionID: "test",
			Target:    "dir",
			AssetWait: 100 * time.Millisecond,
			Logs:      storage.NewExportLogStore(db),
			Emitter:   emitter,
		})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := New(ctx, Deps{Emitter: emitter, Builder: builder, Exporter: exporter})
	srv.approval.SetTimeout(2 * time.Second)
	return &harness{srv: srv, builder: builder, emitter: emitter, dir: dir}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func (h *harness) addHeader(t *testing.T, title string) domain.Block {
	t.Helper()
	b, err := h.builder.AddBlock(context.Background(), domain.BlockTypeHeader, map[string]any{"titulo": title})
	require.NoError(t, err)
	return b
}

// approveNext approves the next approval request the server emits.
func (h *harness) approveNext(t *testing.T, approve bool) {
	t.Helper()
	go func() {
		var ev service.EmittedEvent
		if !assert.Eventually(t, func() bool {
			var ok bool
			ev, ok = h.emitter.Find(EventApprovalRequired)
			return ok
		}, time.Second, 5*time.Millisecond) {
			return
		}
		action := ev.Data.(PendingAction)
		if approve {
			h.srv.Approve(action.ID)
		} else {
			h.srv.Reject(action.ID)
		}
	}()
}

// ── Block tools ────────────────────────────────────────────

func TestAddBlock_WithInitialProps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.srv.handleAddBlock(ctx, call(map[string]any{
		"type":  "Header",
		"props": `{"titulo":"Hello"}`,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"Hello"`)

	blocks := h.builder.Document().Blocks
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypeHeader, blocks[0].Type)
	assert.Equal(t, 1, h.builder.History().Cursor)
}

func TestAddBlock_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.srv.handleAddBlock(ctx, call(map[string]any{}))
	assert.ErrorContains(t, err, "type is required")

	_, err = h.srv.handleAddBlock(ctx, call(map[string]any{"type": "Header", "props": "{nope"}))
	assert.ErrorContains(t, err, "invalid props JSON")

	_, err = h.srv.handleAddBlock(ctx, call(map[string]any{"type": "Carousel"}))
	assert.ErrorIs(t, err, service.ErrUnknownBlockType)
	assert.Empty(t, h.builder.Document().Blocks)
}

func TestUpdateBlockProps_ThenUndo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.addHeader(t, "Before")

	_, err := h.srv.handleUpdateBlockProps(ctx, call(map[string]any{
		"blockId": b.ID,
		"patch":   `{"titulo":"After"}`,
	}))
	require.NoError(t, err)
	got := h.builder.Document().Blocks[0].Props.(domain.HeaderProps)
	assert.Equal(t, "After", got.Titulo)

	res, err := h.srv.handleUndo(ctx, call(nil))
	require.NoError(t, err)
	var hs domain.HistoryState
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &hs))
	assert.True(t, hs.CanRedo)

	got = h.builder.Document().Blocks[0].Props.(domain.HeaderProps)
	assert.Equal(t, "Before", got.Titulo)
}

func TestUndo_NothingToUndo(t *testing.T) {
	h := newHarness(t)
	res, err := h.srv.handleUndo(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Equal(t, "Nothing to undo", resultText(t, res))

	res, err = h.srv.handleRedo(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Equal(t, "Nothing to redo", resultText(t, res))
}

func TestListBlocks_FilterAndPreview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addHeader(t, "Welcome")
	_, err := h.builder.AddBlock(ctx, domain.BlockTypeRichText, nil)
	require.NoError(t, err)

	res, err := h.srv.handleListBlocks(ctx, call(map[string]any{"type": "Header"}))
	require.NoError(t, err)
	var sums []blockSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &sums))
	require.Len(t, sums, 1)
	assert.Equal(t, "Welcome", sums[0].Preview)

	res, err = h.srv.handleListBlocks(ctx, call(nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &sums))
	assert.Len(t, sums, 2)
}

func TestGetBlock_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.srv.handleGetBlock(context.Background(), call(map[string]any{"blockId": "missing"}))
	assert.ErrorIs(t, err, service.ErrBlockNotFound)
}

func TestRemoveBlock_Approved(t *testing.T) {
	h := newHarness(t)
	b := h.addHeader(t, "Doomed")

	h.approveNext(t, true)
	res, err := h.srv.handleRemoveBlock(context.Background(), call(map[string]any{"blockId": b.ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Removed Header block")
	assert.Empty(t, h.builder.Document().Blocks)

	ev, ok := h.emitter.Find(EventApprovalRequired)
	require.True(t, ok)
	assert.Contains(t, ev.Data.(PendingAction).Metadata, b.ID)
}

func TestRemoveBlock_Rejected(t *testing.T) {
	h := newHarness(t)
	b := h.addHeader(t, "Safe")

	h.approveNext(t, false)
	res, err := h.srv.handleRemoveBlock(context.Background(), call(map[string]any{"blockId": b.ID}))
	require.NoError(t, err)
	assert.Equal(t, "Action rejected by user", resultText(t, res))
	assert.Len(t, h.builder.Document().Blocks, 1)
}

func TestReorderBlocks(t *testing.T) {
	h := newHarness(t)
	a := h.addHeader(t, "A")
	b := h.addHeader(t, "B")

	_, err := h.srv.handleReorderBlocks(context.Background(), call(map[string]any{"blockIds": b.ID + ", " + a.ID}))
	require.NoError(t, err)
	blocks := h.builder.Document().Blocks
	assert.Equal(t, []string{b.ID, a.ID}, []string{blocks[0].ID, blocks[1].ID})

	_, err = h.srv.handleReorderBlocks(context.Background(), call(map[string]any{"blockIds": a.ID}))
	assert.ErrorIs(t, err, service.ErrInvalidOrder)
}

func TestIngestImage_FromDisk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, err := h.builder.AddBlock(ctx, domain.BlockTypeImageBlock, nil)
	require.NoError(t, err)

	path := filepath.Join(h.dir, "photo.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	require.NoError(t, os.WriteFile(path, png, 0644))

	res, err := h.srv.handleIngestImage(ctx, call(map[string]any{"blockId": b.ID, "path": path}))
	require.NoError(t, err)
	var asset domain.ImageAsset
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &asset))
	assert.Equal(t, b.ID, asset.BlockID)
	assert.Empty(t, asset.Encoded)

	_, err = h.srv.handleIngestImage(ctx, call(map[string]any{"blockId": b.ID, "path": filepath.Join(h.dir, "nope.png")}))
	assert.ErrorContains(t, err, "stat image")
}

// ── History and site tools ─────────────────────────────────

func TestHistoryDiff(t *testing.T) {
	h := newHarness(t)
	h.addHeader(t, "One")

	res, err := h.srv.handleHistoryDiff(context.Background(), call(map[string]any{"from": float64(0), "to": float64(1)}))
	require.NoError(t, err)
	var d domain.HistoryDiff
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &d))
	assert.Len(t, d.Added, 1)

	_, err = h.srv.handleHistoryDiff(context.Background(), call(map[string]any{"from": float64(0)}))
	assert.Error(t, err)
}

func TestResetDocument_Approved(t *testing.T) {
	h := newHarness(t)
	h.addHeader(t, "One")
	h.addHeader(t, "Two")

	h.approveNext(t, true)
	res, err := h.srv.handleResetDocument(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "2 blocks removed")
	assert.Empty(t, h.builder.Document().Blocks)
	assert.False(t, h.builder.History().CanUndo)
}

func TestSetActiveTemplate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.srv.handleSetActiveTemplate(ctx, call(map[string]any{"template": "card"}))
	require.NoError(t, err)
	assert.Equal(t, domain.TemplateCard, h.builder.Document().ActiveTemplate)

	_, err = h.srv.handleSetActiveTemplate(ctx, call(map[string]any{"template": "poster"}))
	assert.ErrorIs(t, err, service.ErrInvalidTemplate)
}

func TestExportSite_WritesArchiveAndLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addHeader(t, "Launch")

	_, err := h.srv.handleExportSite(ctx, call(nil))
	require.Error(t, err, "export without a template must fail")

	_, err = h.srv.handleSetActiveTemplate(ctx, call(map[string]any{"template": "landing"}))
	require.NoError(t, err)

	res, err := h.srv.handleExportSite(ctx, call(nil))
	require.NoError(t, err)
	var out export.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.FileExists(t, out.Location)
	assert.Equal(t, 1, out.Blocks)
	assert.True(t, h.builder.HasDownloaded())

	res, err = h.srv.handleListExports(ctx, call(map[string]any{"limit": float64(5)}))
	require.NoError(t, err)
	var recs []domain.ExportRecord
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &recs))
	assert.Len(t, recs, 1)
	assert.Equal(t, domain.ExportSucceeded, recs[0].Status)
}

// ── Resources and prompts ──────────────────────────────────

func TestResources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.addHeader(t, "Hi")

	var req mcp.ReadResourceRequest
	req.Params.URI = documentURI
	contents, err := h.srv.handleDocumentResource(ctx, req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Contains(t, contents[0].(mcp.TextResourceContents).Text, b.ID)

	req.Params.URI = blockURIPrefix + b.ID
	contents, err = h.srv.handleBlockResource(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, contents[0].(mcp.TextResourceContents).Text, `"Hi"`)

	req.Params.URI = blockURIPrefix + "missing"
	_, err = h.srv.handleBlockResource(ctx, req)
	assert.Error(t, err)

	req.Params.URI = historyURI
	contents, err = h.srv.handleHistoryResource(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, contents[0].(mcp.TextResourceContents).Text, `"Header": 1`)
}

func TestExtractBlockIDFromURI(t *testing.T) {
	tests := map[string]string{
		"genesis://block/abc": "abc",
		"genesis://block/a/b": "",
		"genesis://document":  "",
		"other://block/abc":   "",
	}
	for uri, want := range tests {
		assert.Equal(t, want, extractBlockIDFromURI(uri), uri)
	}
}

func TestPrompts(t *testing.T) {
	h := newHarness(t)
	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"name": "Ada"}
	res, err := h.srv.handleBusinessCardPrompt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content.(mcp.TextContent).Text, `"Ada"`)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a, ,b,"))
	assert.Nil(t, splitIDs(""))
}

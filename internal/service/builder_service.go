package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"genesis/internal/assets"
	"genesis/internal/domain"
	"genesis/internal/history"
	"genesis/internal/metrics"
	"genesis/internal/storage"
	"genesis/internal/store"
)

var (
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrBlockNotFound    = errors.New("block not found")
	ErrInvalidOrder     = errors.New("order must list every block exactly once")
	ErrNotImageBlock    = errors.New("block does not carry an image")
	ErrInvalidTemplate  = errors.New("invalid template")
)

// Storage keys of the editing state.
const (
	KeyBlocks          = "blocks"
	KeySelectedBlockID = "selectedBlockId"
	KeyActiveTemplate  = "activeTemplate"
	KeyGlobalStyles    = "globalStyles"
	KeyImageStorage    = "imageStorage"
	KeyHasDownloaded   = "genesis-has-downloaded"
)

// ─────────────────────────────────────────────────────────────
// BuilderService: the document, its history and its images
// ─────────────────────────────────────────────────────────────

// BuilderOptions configures a BuilderService. Zero values are usable: nil
// stores keep state in memory only.
type BuilderOptions struct {
	Session      storage.KV
	Durable      storage.KV
	HistoryLimit int
	Emitter      EventEmitter
	Recorder     metrics.Recorder
	Logger       *slog.Logger
	Encoder      assets.Encoder
}

// BuilderService owns one editing session. Every operation runs under a
// single mutex, so history mutations are totally ordered. Lock order is
// service before asset manager.
type BuilderService struct {
	mu sync.Mutex

	blocks     *store.Persistent[[]domain.Block]
	selected   *store.Persistent[string]
	template   *store.Persistent[domain.Template]
	styles     *store.Persistent[domain.GlobalStyles]
	images     *store.Persistent[map[string]domain.ImageAsset]
	downloaded *store.Persistent[bool]

	history *history.Engine
	assets  *assets.Manager

	emitter  EventEmitter
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewBuilderService restores the session from its stores. Persisted images
// get fresh ephemeral handles and the blocks pointing at the old handles are
// rewritten. History starts with the restored document as its only snapshot.
func NewBuilderService(opts BuilderOptions) *BuilderService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &BuilderService{
		blocks:     store.Load(opts.Session, KeyBlocks, []domain.Block{}, logger),
		selected:   store.Load(opts.Session, KeySelectedBlockID, "", logger),
		template:   store.Load(opts.Session, KeyActiveTemplate, domain.TemplateNone, logger),
		styles:     store.Load(opts.Session, KeyGlobalStyles, domain.DefaultGlobalStyles(), logger),
		images:     store.Load(opts.Session, KeyImageStorage, map[string]domain.ImageAsset{}, logger),
		downloaded: store.Load(opts.Durable, KeyHasDownloaded, false, logger),
		history:    history.New(opts.HistoryLimit),
		emitter:    opts.Emitter,
		recorder:   opts.Recorder,
		logger:     logger,
	}
	if s.emitter == nil {
		s.emitter = NopEmitter{}
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}

	assetOpts := []assets.Option{assets.WithLogger(logger), assets.WithSettleHook(s.onAssetSettled)}
	if opts.Encoder != nil {
		assetOpts = append(assetOpts, assets.WithEncoder(opts.Encoder))
	}
	s.assets = assets.NewManager(assetOpts...)

	if _, err := domain.ParseTemplate(string(s.template.Get())); err != nil {
		logger.Warn("discarding unknown template", "template", s.template.Get())
		s.persist(s.template.Set(domain.TemplateNone), KeyActiveTemplate)
	}

	blocks := s.blocks.Get()
	if blocks == nil {
		blocks = []domain.Block{}
	}
	if saved := s.images.Get(); len(saved) > 0 {
		remap := s.assets.Restore(saved)
		blocks = remapImageHandles(blocks, remap)
		s.persist(s.blocks.Set(blocks), KeyBlocks)
		s.persistImagesLocked()
	}
	s.history.Seed(blocks)
	s.recorder.SetDocumentBlocks(len(blocks))
	return s
}

func remapImageHandles(blocks []domain.Block, remap map[string]string) []domain.Block {
	out := domain.CloneBlocks(blocks)
	for i, b := range out {
		url, ok := domain.ImageURLOf(b.Props)
		if !ok {
			continue
		}
		if fresh, ok := remap[url]; ok {
			out[i].Props, _ = domain.WithImageURL(b.Props, fresh)
		}
	}
	return out
}

func (s *BuilderService) persist(err error, key string) {
	if err != nil {
		s.logger.Warn("persist state", "key", key, "error", err)
	}
}

func (s *BuilderService) persistImagesLocked() {
	s.persist(s.images.Set(s.assets.Snapshot()), KeyImageStorage)
}

// commitLocked records next as the new document. It returns false when next
// equals the live document, in which case nothing is stored or emitted.
func (s *BuilderService) commitLocked(ctx context.Context, next []domain.Block) bool {
	if !s.history.Commit(next) {
		s.recorder.IncHistoryOp("commit", metrics.OutcomeNoop)
		return false
	}
	s.recorder.IncHistoryOp("commit", metrics.OutcomeSuccess)
	s.syncBlocksLocked(ctx)
	return true
}

// syncBlocksLocked mirrors the history present into the blocks store and
// tells listeners.
func (s *BuilderService) syncBlocksLocked(ctx context.Context) {
	blocks := s.history.Current()
	s.persist(s.blocks.Set(blocks), KeyBlocks)
	if id := s.selected.Get(); id != "" && domain.FindBlock(blocks, id) < 0 {
		s.persist(s.selected.Set(""), KeySelectedBlockID)
	}
	s.recorder.SetDocumentBlocks(len(blocks))
	s.emitter.Emit(ctx, EventDocumentChanged, s.documentLocked())
	s.emitter.Emit(ctx, EventHistoryChanged, s.history.State())
}

func (s *BuilderService) documentLocked() domain.Document {
	return domain.Document{
		Blocks:          s.history.Current(),
		ActiveTemplate:  s.template.Get(),
		GlobalStyles:    s.styles.Get(),
		SelectedBlockID: s.selected.Get(),
	}
}

// ── Block operations ───────────────────────────────────────

// AddBlock appends a block of type t with default props, overlaid with
// initial when non-nil. The add is a single history entry.
func (s *BuilderService) AddBlock(ctx context.Context, t domain.BlockType, initial map[string]any) (domain.Block, error) {
	if !domain.ValidBlockType(t) {
		return domain.Block{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, t)
	}
	b := domain.NewBlock(t)
	if len(initial) > 0 {
		props, err := domain.MergeProps(b.Props, initial)
		if err != nil {
			return domain.Block{}, fmt.Errorf("initial props: %w", err)
		}
		b.Props = props
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(ctx, append(s.history.Current(), b))
	return b, nil
}

// RemoveBlock deletes a block, clearing the selection if it pointed at it.
// The block's image stays in the asset map so undo can bring it back; an
// encoding still running at that point is dropped and the image left failed.
func (s *BuilderService) RemoveBlock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.history.Current()
	i := domain.FindBlock(blocks, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	next := append(blocks[:i:i], blocks[i+1:]...)
	s.commitLocked(ctx, next)
	return nil
}

// UpdateBlockProps shallow-merges patch into the block's props.
func (s *BuilderService) UpdateBlockProps(ctx context.Context, id string, patch map[string]any) (domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePropsLocked(ctx, id, patch)
}

func (s *BuilderService) updatePropsLocked(ctx context.Context, id string, patch map[string]any) (domain.Block, error) {
	blocks := s.history.Current()
	i := domain.FindBlock(blocks, id)
	if i < 0 {
		return domain.Block{}, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	props, err := domain.MergeProps(blocks[i].Props, patch)
	if err != nil {
		return domain.Block{}, fmt.Errorf("update props of %s: %w", id, err)
	}
	blocks[i].Props = props
	s.commitLocked(ctx, blocks)
	return blocks[i], nil
}

// ReorderBlocks arranges the document in the order of ids, which must be a
// permutation of the current block ids.
func (s *BuilderService) ReorderBlocks(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.history.Current()
	if len(ids) != len(blocks) {
		return fmt.Errorf("%w: got %d ids for %d blocks", ErrInvalidOrder, len(ids), len(blocks))
	}
	byID := make(map[string]domain.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}
	next := make([]domain.Block, 0, len(ids))
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated id %s", ErrInvalidOrder, id)
		}
		delete(byID, id)
		next = append(next, b)
	}
	s.commitLocked(ctx, next)
	return nil
}

// IngestImage attaches an uploaded image to an image-bearing block. The
// block points at the ephemeral handle immediately; the portable encoding
// arrives later through an asset:ready event.
func (s *BuilderService) IngestImage(ctx context.Context, blockID string, data []byte, originalName, mimeType string) (domain.ImageAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.history.Current()
	i := domain.FindBlock(blocks, blockID)
	if i < 0 {
		return domain.ImageAsset{}, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	if _, ok := domain.ImageURLOf(blocks[i].Props); !ok {
		return domain.ImageAsset{}, fmt.Errorf("%w: %s is %s", ErrNotImageBlock, blockID, blocks[i].Type)
	}

	asset := s.assets.Ingest(blockID, data, originalName, mimeType, s.blockExists)
	s.persistImagesLocked()
	if _, err := s.updatePropsLocked(ctx, blockID, map[string]any{"imageUrl": asset.Handle}); err != nil {
		return domain.ImageAsset{}, err
	}
	return asset, nil
}

// blockExists is consulted by the asset manager before applying an encoding.
func (s *BuilderService) blockExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.FindBlock(s.blocks.Get(), id) >= 0
}

func (s *BuilderService) onAssetSettled(a domain.ImageAsset) {
	s.mu.Lock()
	s.persistImagesLocked()
	s.mu.Unlock()

	ctx := context.Background()
	if a.State == domain.AssetReady {
		s.recorder.IncAssetEncode(metrics.OutcomeSuccess)
		s.emitter.Emit(ctx, EventAssetReady, assetEvent(a))
		return
	}
	s.recorder.IncAssetEncode(metrics.OutcomeFailed)
	s.emitter.Emit(ctx, EventAssetFailed, assetEvent(a))
}

// assetEvent is the event payload; it leaves out the encoded bytes.
func assetEvent(a domain.ImageAsset) map[string]any {
	return map[string]any{
		"blockId":  a.BlockID,
		"handle":   a.Handle,
		"filename": a.Filename,
		"mimeType": a.MIMEType,
		"state":    a.State,
	}
}

// ── History ────────────────────────────────────────────────

// Undo steps back one snapshot. It reports false at the oldest snapshot.
func (s *BuilderService) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Undo() {
		s.recorder.IncHistoryOp("undo", metrics.OutcomeNoop)
		return false
	}
	s.recorder.IncHistoryOp("undo", metrics.OutcomeSuccess)
	s.syncBlocksLocked(ctx)
	return true
}

// Redo steps forward one snapshot. It reports false at the newest snapshot.
func (s *BuilderService) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Redo() {
		s.recorder.IncHistoryOp("redo", metrics.OutcomeNoop)
		return false
	}
	s.recorder.IncHistoryOp("redo", metrics.OutcomeSuccess)
	s.syncBlocksLocked(ctx)
	return true
}

// ResetDocument empties the document, its history and its images, and
// restores the default global styles. The active template is kept.
func (s *BuilderService) ResetDocument(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Reset()
	s.assets.Reset()
	s.persist(s.selected.Set(""), KeySelectedBlockID)
	s.persist(s.styles.Set(domain.DefaultGlobalStyles()), KeyGlobalStyles)
	s.persistImagesLocked()
	s.recorder.IncHistoryOp("reset", metrics.OutcomeSuccess)
	s.syncBlocksLocked(ctx)
}

// HistoryDiff compares two snapshots of the history log by index.
func (s *BuilderService) HistoryDiff(from, to int) (domain.HistoryDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.history.Snapshot(from)
	if !ok {
		return domain.HistoryDiff{}, fmt.Errorf("no snapshot at %d", from)
	}
	b, ok := s.history.Snapshot(to)
	if !ok {
		return domain.HistoryDiff{}, fmt.Errorf("no snapshot at %d", to)
	}
	return domain.DiffBlocks(a, b), nil
}

// ── Document settings ──────────────────────────────────────

// SetActiveTemplate selects the export template. "" unsets it.
func (s *BuilderService) SetActiveTemplate(ctx context.Context, name string) error {
	t, err := domain.ParseTemplate(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(s.template.Set(t), KeyActiveTemplate)
	s.emitter.Emit(ctx, EventDocumentChanged, s.documentLocked())
	return nil
}

// SelectBlock marks the block being edited. "" clears the selection.
func (s *BuilderService) SelectBlock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && domain.FindBlock(s.blocks.Get(), id) < 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	s.persist(s.selected.Set(id), KeySelectedBlockID)
	s.emitter.Emit(ctx, EventDocumentChanged, s.documentLocked())
	return nil
}

// SetGlobalStyles replaces the page-wide styles.
func (s *BuilderService) SetGlobalStyles(ctx context.Context, gs domain.GlobalStyles) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(s.styles.Set(gs), KeyGlobalStyles)
	s.emitter.Emit(ctx, EventDocumentChanged, s.documentLocked())
}

// ImportProject loads a project.json snapshot as a new history entry.
func (s *BuilderService) ImportProject(ctx context.Context, p domain.Project) error {
	t, err := domain.ParseTemplate(string(p.Template))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	blocks := p.Blocks
	if blocks == nil {
		blocks = []domain.Block{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(s.template.Set(t), KeyActiveTemplate)
	if !s.commitLocked(ctx, blocks) {
		s.emitter.Emit(ctx, EventDocumentChanged, s.documentLocked())
	}
	return nil
}

// SyncFromStore picks up document edits another process wrote to the same
// session, such as the standalone agent server. Changed blocks become a new
// history entry so they can be undone. Image assets are not synced: their
// handles only exist in the process that minted them.
func (s *BuilderService) SyncFromStore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevTpl := s.template.Get()
	tpl, err := s.template.Refresh()
	if err != nil {
		return false, err
	}
	if _, err := s.styles.Refresh(); err != nil {
		return false, err
	}
	blocks, err := s.blocks.Refresh()
	if err != nil {
		return false, err
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	if s.commitLocked(ctx, blocks) {
		return true, nil
	}
	if tpl != prevTpl {
		s.emitter.Emit(ctx, EventDocumentChanged, s.documentLocked())
		return true, nil
	}
	return false, nil
}

// ── Queries ────────────────────────────────────────────────

// Document returns a copy of the live document.
func (s *BuilderService) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentLocked()
}

func (s *BuilderService) History() domain.HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.State()
}

// State returns everything the editor needs to render.
func (s *BuilderService) State() domain.DocumentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.DocumentState{
		Document:      s.documentLocked(),
		History:       s.history.State(),
		HasDownloaded: s.downloaded.Get(),
	}
}

func (s *BuilderService) Stats() map[domain.BlockType]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.BlockTypeStats(s.blocks.Get())
}

func (s *BuilderService) Asset(blockID string) (domain.ImageAsset, bool) {
	return s.assets.Get(blockID)
}

// Assets returns a copy of every tracked image, pending ones included.
func (s *BuilderService) Assets() map[string]domain.ImageAsset {
	return s.assets.Snapshot()
}

// ImageByFilename returns the decoded bytes of the ready asset with the given
// archive filename.
func (s *BuilderService) ImageByFilename(filename string) ([]byte, string, error) {
	for id, a := range s.assets.Snapshot() {
		if a.Filename == filename {
			return s.assets.Bytes(id)
		}
	}
	return nil, "", fmt.Errorf("no image named %s", filename)
}

// ImageByHandle returns the decoded bytes behind an ephemeral handle.
func (s *BuilderService) ImageByHandle(handle string) ([]byte, string, error) {
	id, ok := s.assets.HandleOwner(handle)
	if !ok {
		return nil, "", fmt.Errorf("unknown image handle %s", handle)
	}
	return s.assets.Bytes(id)
}

// ExportSnapshot returns the document and asset map to export. When a
// template is set it first waits up to wait for pending encodings of images
// the document references; ones still pending fail with
// assets.ErrAssetPending.
func (s *BuilderService) ExportSnapshot(ctx context.Context, wait time.Duration) (domain.Document, map[string]domain.ImageAsset, error) {
	doc := s.Document()
	if doc.ActiveTemplate == domain.TemplateNone {
		return doc, s.assets.Snapshot(), nil
	}

	var ids []string
	for _, b := range doc.Blocks {
		if url, ok := domain.ImageURLOf(b.Props); ok && domain.IsEphemeralURL(url) {
			ids = append(ids, b.ID)
		}
	}
	if len(ids) > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if err := s.assets.Await(waitCtx, ids...); err != nil {
			return doc, nil, err
		}
	}
	return doc, s.assets.Snapshot(), nil
}

// ── Download readiness ─────────────────────────────────────

func (s *BuilderService) HasDownloaded() bool {
	return s.downloaded.Get()
}

// MarkDownloaded sets the durable flag recording that an export completed.
func (s *BuilderService) MarkDownloaded(ctx context.Context) {
	s.persist(s.downloaded.Set(true), KeyHasDownloaded)
	s.emitter.Emit(ctx, EventDownloadReady, map[string]bool{"hasDownloaded": true})
}

// Close waits for background image encodings to return.
func (s *BuilderService) Close() {
	s.assets.Wait()
}

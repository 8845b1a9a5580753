// Package assets tracks the image uploaded into each block: an ephemeral
// handle usable for live preview straight away, and a portable encoding
// produced in the background for export and reload.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"genesis/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrAssetPending is returned by Await when an encoding has not finished
// before the context is done.
var ErrAssetPending = errors.New("image encoding still pending")

// Encoder turns raw image bytes into their portable form.
type Encoder func(data []byte, mimeType string) (string, error)

// Manager owns the asset map. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	assets  map[string]domain.ImageAsset
	gens    map[string]uint64
	epoch   uint64
	changed chan struct{}
	wg      sync.WaitGroup

	encode   Encoder
	onSettle func(domain.ImageAsset)
	logger   *slog.Logger
}

type Option func(*Manager)

func WithEncoder(enc Encoder) Option {
	return func(m *Manager) { m.encode = enc }
}

// WithSettleHook registers fn to run after an encoding result has been
// applied. It is never called for dropped results, nor with the lock held.
func WithSettleHook(fn func(domain.ImageAsset)) Option {
	return func(m *Manager) { m.onSettle = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		assets:  make(map[string]domain.ImageAsset),
		gens:    make(map[string]uint64),
		changed: make(chan struct{}),
		encode:  EncodeDataURL,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func newHandle() string {
	return domain.EphemeralPrefix + "genesis/" + uuid.New().String()
}

// Ingest records a new image for blockID, replacing any previous one, and
// returns the pending asset with its ephemeral handle. The portable encoding
// runs in the background; when it finishes, accept is asked whether the block
// still exists and the result is applied only if it does and no newer ingest
// or Reset happened in between. A result dropped because the block is gone
// leaves the asset failed, without running the settle hook.
func (m *Manager) Ingest(blockID string, data []byte, originalName, mimeType string, accept func(blockID string) bool) domain.ImageAsset {
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.gens[blockID]++
	gen := m.gens[blockID]
	epoch := m.epoch
	asset := domain.ImageAsset{
		BlockID:  blockID,
		Handle:   newHandle(),
		Filename: domain.AssetFilename(blockID, originalName),
		MIMEType: mimeType,
		State:    domain.AssetPending,
	}
	m.assets[blockID] = asset
	m.wg.Add(1)
	m.mu.Unlock()

	go m.finishEncoding(blockID, epoch, gen, buf, mimeType, accept)
	return asset
}

func (m *Manager) finishEncoding(blockID string, epoch, gen uint64, data []byte, mimeType string, accept func(string) bool) {
	defer m.wg.Done()

	encoded, encErr := m.encode(data, mimeType)
	exists := accept == nil || accept(blockID)

	m.mu.Lock()
	if m.epoch != epoch || m.gens[blockID] != gen {
		m.mu.Unlock()
		m.logger.Debug("dropping stale image encoding", "block_id", blockID)
		return
	}
	if !exists {
		// The block may come back through undo; it must not find the asset
		// pending forever.
		asset := m.assets[blockID]
		asset.State = domain.AssetFailed
		m.assets[blockID] = asset
		m.broadcastLocked()
		m.mu.Unlock()
		m.logger.Debug("dropping image encoding of removed block", "block_id", blockID)
		return
	}
	asset := m.assets[blockID]
	if encErr != nil {
		asset.State = domain.AssetFailed
	} else {
		asset.Encoded = encoded
		asset.State = domain.AssetReady
	}
	m.assets[blockID] = asset
	m.broadcastLocked()
	m.mu.Unlock()

	if encErr != nil {
		m.logger.Warn("image encoding failed", "block_id", blockID, "error", encErr)
	}
	if m.onSettle != nil {
		m.onSettle(asset)
	}
}

// broadcastLocked wakes every Await. Callers hold m.mu.
func (m *Manager) broadcastLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

// Reset clears the map and invalidates every in-flight encoding.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.assets = make(map[string]domain.ImageAsset)
	m.gens = make(map[string]uint64)
	m.broadcastLocked()
}

func (m *Manager) Get(blockID string) (domain.ImageAsset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[blockID]
	return a, ok
}

// Snapshot returns a copy of the asset map.
func (m *Manager) Snapshot() map[string]domain.ImageAsset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.ImageAsset, len(m.assets))
	for k, v := range m.assets {
		out[k] = v
	}
	return out
}

// Await blocks until none of the given blocks has a pending asset. Blocks
// without an asset count as settled.
func (m *Manager) Await(ctx context.Context, blockIDs ...string) error {
	for {
		m.mu.Lock()
		pending := ""
		for _, id := range blockIDs {
			if a, ok := m.assets[id]; ok && a.State == domain.AssetPending {
				pending = id
				break
			}
		}
		ch := m.changed
		m.mu.Unlock()

		if pending == "" {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: block %s: %v", ErrAssetPending, pending, ctx.Err())
		case <-ch:
		}
	}
}

// Restore replaces the map with persisted assets, minting fresh ephemeral
// handles since the old ones died with the previous process. It returns the
// old handle to new handle mapping so block references can be rewritten.
// Assets persisted before their encoding finished cannot be recovered and
// come back as failed.
func (m *Manager) Restore(saved map[string]domain.ImageAsset) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.assets = make(map[string]domain.ImageAsset, len(saved))
	m.gens = make(map[string]uint64)
	remap := make(map[string]string, len(saved))
	for id, a := range saved {
		a.BlockID = id
		fresh := newHandle()
		if a.Handle != "" {
			remap[a.Handle] = fresh
		}
		a.Handle = fresh
		if a.Encoded != "" {
			a.State = domain.AssetReady
		} else {
			a.State = domain.AssetFailed
		}
		m.assets[id] = a
	}
	m.broadcastLocked()
	return remap
}

// Bytes decodes the portable form of a block's image.
func (m *Manager) Bytes(blockID string) ([]byte, string, error) {
	a, ok := m.Get(blockID)
	if !ok {
		return nil, "", fmt.Errorf("no image for block %s", blockID)
	}
	if a.State != domain.AssetReady {
		return nil, "", fmt.Errorf("image for block %s is %s", blockID, a.State)
	}
	data, err := DecodeDataURL(a.Encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decode image for block %s: %w", blockID, err)
	}
	return data, a.MIMEType, nil
}

// HandleOwner returns the block whose current asset has the given handle.
func (m *Manager) HandleOwner(handle string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.assets {
		if a.Handle == handle {
			return id, true
		}
	}
	return "", false
}

// Wait blocks until every background encoding has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

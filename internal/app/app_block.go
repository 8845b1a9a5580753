package app

import (
	"fmt"
	"os"
	"path/filepath"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"genesis/internal/assets"
	"genesis/internal/domain"
)

// maxImageBytes caps images picked or dropped into the editor.
const maxImageBytes = 20 << 20

// ============================================================
// Document
// ============================================================

// GetState returns the whole editor state for a (re)render.
func (a *App) GetState() domain.DocumentState {
	return a.rt.Builder.State()
}

func (a *App) BlockStats() map[domain.BlockType]int {
	return a.rt.Builder.Stats()
}

func (a *App) SetActiveTemplate(name string) error {
	return a.rt.Builder.SetActiveTemplate(a.ctx, name)
}

func (a *App) SetFontFamily(font string) {
	a.rt.Builder.SetGlobalStyles(a.ctx, domain.GlobalStyles{FontFamily: font})
}

// ============================================================
// Blocks
// ============================================================

func (a *App) AddBlock(blockType string, props map[string]any) (domain.Block, error) {
	return a.rt.Builder.AddBlock(a.ctx, domain.BlockType(blockType), props)
}

func (a *App) UpdateBlockProps(blockID string, patch map[string]any) (domain.Block, error) {
	return a.rt.Builder.UpdateBlockProps(a.ctx, blockID, patch)
}

func (a *App) RemoveBlock(blockID string) error {
	return a.rt.Builder.RemoveBlock(a.ctx, blockID)
}

func (a *App) ReorderBlocks(blockIDs []string) error {
	return a.rt.Builder.ReorderBlocks(a.ctx, blockIDs)
}

func (a *App) SelectBlock(blockID string) error {
	return a.rt.Builder.SelectBlock(a.ctx, blockID)
}

// ============================================================
// Images
// ============================================================

// PickImage opens a native file picker and attaches the chosen image to a
// ProfileCard or ImageBlock. It returns nil when the picker is cancelled.
func (a *App) PickImage(blockID string) (*domain.ImageAsset, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Select Image",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Images", Pattern: "*.png;*.jpg;*.jpeg;*.gif;*.webp;*.svg"},
		},
	})
	if err != nil || path == "" {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxImageBytes {
		return nil, fmt.Errorf("image is too large (%d MB max)", maxImageBytes>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return a.ingest(blockID, data, filepath.Base(path))
}

// DropImage attaches an image dropped on the editor, sent as a data URL.
func (a *App) DropImage(blockID, filename, dataURL string) (*domain.ImageAsset, error) {
	data, err := assets.DecodeDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("decode dropped image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image is too large (%d MB max)", maxImageBytes>>20)
	}
	return a.ingest(blockID, data, filename)
}

func (a *App) ingest(blockID string, data []byte, name string) (*domain.ImageAsset, error) {
	asset, err := a.rt.Builder.IngestImage(a.ctx, blockID, data, name, "")
	if err != nil {
		return nil, err
	}
	// The frontend shows the handle; the encoding arrives with asset:ready.
	asset.Encoded = ""
	return &asset, nil
}

// GetImageData returns the portable data URL of a block's image, or "" while
// it is still encoding.
func (a *App) GetImageData(blockID string) (string, error) {
	asset, ok := a.rt.Builder.Asset(blockID)
	if !ok {
		return "", fmt.Errorf("block %s has no image", blockID)
	}
	if asset.State == domain.AssetFailed {
		return "", fmt.Errorf("image of block %s could not be encoded", blockID)
	}
	return asset.Encoded, nil
}

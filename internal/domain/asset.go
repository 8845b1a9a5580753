package domain

import (
	"path/filepath"
	"strings"
)

type AssetState string

const (
	AssetPending AssetState = "pending"
	AssetReady   AssetState = "ready"
	AssetFailed  AssetState = "failed"
)

// EphemeralPrefix marks process-local image handles. They are only valid for
// live preview in the running session.
const EphemeralPrefix = "blob:"

// ImageAsset is the uploaded image owned by one block.
// Encoded holds the portable data URL once encoding has finished.
type ImageAsset struct {
	BlockID  string     `json:"blockId"`
	Handle   string     `json:"handle"`
	Encoded  string     `json:"encoded"`
	Filename string     `json:"filename"`
	MIMEType string     `json:"mimeType"`
	State    AssetState `json:"state"`
}

// IsEphemeralURL reports whether url is a process-local handle.
func IsEphemeralURL(url string) bool {
	return strings.HasPrefix(url, EphemeralPrefix)
}

// AssetFilename derives the archive filename of a block's image. It depends
// only on the block id and the original extension, never on the user's name.
func AssetFilename(blockID, originalName string) string {
	return "image-" + blockID + "." + ExtensionOf(originalName, "jpg")
}

// ExtensionOf returns the lower-cased extension of name without the dot, or
// fallback when there is none or it contains anything but letters and digits.
func ExtensionOf(name, fallback string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return fallback
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fallback
		}
	}
	return strings.ToLower(ext)
}

// ImagePath is the relative reference used by exported markup.
func ImagePath(filename string) string {
	return "./images/" + filename
}

package service

import (
	"fmt"
	"strconv"

	"genesis/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the editor window size between launches. Stored next to
// the download-readiness flag in the durable scope, so session sweeps never
// touch it.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between launches.
type WindowSettingsService struct {
	kv storage.KV
}

func NewWindowSettingsService(kv storage.KV) *WindowSettingsService {
	return &WindowSettingsService{kv: kv}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	w := s.loadInt(settingWindowWidth, defaultWindowWidth)
	h := s.loadInt(settingWindowHeight, defaultWindowHeight)
	if w < 800 {
		w = defaultWindowWidth
	}
	if h < 600 {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

func (s *WindowSettingsService) loadInt(key string, fallback int) int {
	if s.kv == nil {
		return fallback
	}
	raw, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.kv == nil {
		return fmt.Errorf("window settings: no store")
	}
	if err := s.kv.Set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.kv.Set(settingWindowHeight, strconv.Itoa(height))
}

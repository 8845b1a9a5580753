// Package config loads runtime settings from defaults, an optional
// config.yaml and GENESIS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "GENESIS"

	KeyDataDir       = "data_dir"
	KeySessionID     = "session_id"
	KeySessionTTL    = "session_ttl"
	KeySweepSchedule = "sweep_schedule"
	KeyHistoryLimit  = "history_limit"
	KeyDownloadDir   = "download_dir"
	KeyAssetWait     = "asset_wait"
	KeyWatchProject  = "watch_project"
	KeyPreviewAddr   = "preview_addr"
	KeyLogLevel      = "log_level"
)

type Config struct {
	DataDir       string
	SessionID     string
	SessionTTL    time.Duration
	SweepSchedule string
	HistoryLimit  int
	DownloadDir   string
	AssetWait     time.Duration
	WatchProject  string
	PreviewAddr   string
	LogLevel      string
}

// DBPath is the SQLite file holding session and durable state.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "genesis.db")
}

// DefaultDir returns the directory config.yaml is looked up in.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "genesis")
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "genesis")
}

func defaultDownloadDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads")
}

// New returns a viper instance with every default set and environment
// overrides bound, without reading any file.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeySessionID, "default")
	v.SetDefault(KeySessionTTL, "720h")
	v.SetDefault(KeySweepSchedule, "@hourly")
	v.SetDefault(KeyHistoryLimit, 50)
	v.SetDefault(KeyDownloadDir, defaultDownloadDir())
	v.SetDefault(KeyAssetWait, "5s")
	v.SetDefault(KeyWatchProject, "")
	v.SetDefault(KeyPreviewAddr, "127.0.0.1:7420")
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yaml from dir when present. A missing file is not an
// error.
func Load(dir string) (*Config, error) {
	v := New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	if dir != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper converts resolved settings into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		DataDir:       v.GetString(KeyDataDir),
		SessionID:     v.GetString(KeySessionID),
		SessionTTL:    v.GetDuration(KeySessionTTL),
		SweepSchedule: v.GetString(KeySweepSchedule),
		HistoryLimit:  v.GetInt(KeyHistoryLimit),
		DownloadDir:   v.GetString(KeyDownloadDir),
		AssetWait:     v.GetDuration(KeyAssetWait),
		WatchProject:  v.GetString(KeyWatchProject),
		PreviewAddr:   v.GetString(KeyPreviewAddr),
		LogLevel:      v.GetString(KeyLogLevel),
	}
	if c.SessionID == "" {
		return nil, fmt.Errorf("%s must not be empty", KeySessionID)
	}
	if c.HistoryLimit < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", KeyHistoryLimit, c.HistoryLimit)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return nil, err
	}
	return c, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return l, nil
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

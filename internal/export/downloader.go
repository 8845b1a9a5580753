package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Downloader hands the finished archive to the user and returns where it
// ended up.
type Downloader interface {
	Download(ctx context.Context, filename string, data []byte) (string, error)
}

// DirDownloader saves archives into a directory. The file appears atomically
// under its final name.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(d.Dir, ".genesis-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}

	dest := filepath.Join(d.Dir, filepath.Base(filename))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("move archive into place: %w", err)
	}
	return dest, nil
}

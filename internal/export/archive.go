package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

// Archiver packs a site into a single binary blob.
type Archiver interface {
	Archive(ctx context.Context, entries []Entry) ([]byte, error)
}

// ZipArchiver writes deflate-compressed zip archives.
type ZipArchiver struct {
	// Modified stamps every entry; the zero value means time.Now.
	Modified time.Time
}

func (z ZipArchiver) Archive(ctx context.Context, entries []Entry) ([]byte, error) {
	modified := z.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			w.Close()
			return nil, err
		}
		data := e.Data
		if e.Base64 {
			decoded, err := base64.StdEncoding.DecodeString(string(e.Data))
			if err != nil {
				w.Close()
				return nil, fmt.Errorf("decode %s: %w", e.Path, err)
			}
			data = decoded
		}
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.Path, Method: zip.Deflate, Modified: modified})
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("add %s: %w", e.Path, err)
		}
		if _, err := f.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("write %s: %w", e.Path, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

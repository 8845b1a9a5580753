package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"genesis/internal/domain"
)

// ReadProject parses a project.json file. Block props are backfilled with
// their defaults while decoding.
func ReadProject(path string) (domain.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Project{}, fmt.Errorf("read project: %w", err)
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Project{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return p, nil
}

// ImportProjectFile loads the project.json at path into the builder. Image
// blocks whose handle died with the exporting session are re-attached from
// the images/ directory next to the file when a matching image-<id>.* exists.
// It returns how many images were re-attached.
func ImportProjectFile(ctx context.Context, b *BuilderService, path string) (int, error) {
	p, err := ReadProject(path)
	if err != nil {
		return 0, err
	}
	if err := b.ImportProject(ctx, p); err != nil {
		return 0, err
	}

	imagesDir := filepath.Join(filepath.Dir(path), "images")
	attached := 0
	for _, blk := range p.Blocks {
		url, ok := domain.ImageURLOf(blk.Props)
		if !ok || !domain.IsEphemeralURL(url) {
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(imagesDir, "image-"+blk.ID+".*"))
		if len(matches) == 0 {
			b.logger.Debug("no archived image for block", "block_id", blk.ID)
			continue
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			return attached, fmt.Errorf("read image for block %s: %w", blk.ID, err)
		}
		if _, err := b.IngestImage(ctx, blk.ID, data, filepath.Base(matches[0]), ""); err != nil {
			return attached, err
		}
		attached++
	}
	return attached, nil
}

// Package export turns a document into a self-contained static site and
// packages it as a downloadable archive.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genesis/internal/domain"
)

// ErrPackaging wraps every failure after rendering: archive assembly and
// download.
var ErrPackaging = errors.New("packaging failed")

type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateRendering   State = "rendering"
	StatePackaging   State = "packaging"
	StateDownloading State = "downloading"
)

// Result describes a finished export.
type Result struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
	Blocks   int    `json:"blocks"`
	Images   int    `json:"images"`
}

type Pipeline struct {
	Archiver   Archiver
	Downloader Downloader
	Now        func() time.Time
}

// NewPipeline returns a pipeline writing zip archives through dl.
func NewPipeline(dl Downloader) *Pipeline {
	return &Pipeline{Archiver: ZipArchiver{}, Downloader: dl, Now: time.Now}
}

// Run exports doc. observe, when non-nil, sees every state transition and
// always ends on StateIdle. Run only reads doc and assets.
func (p *Pipeline) Run(ctx context.Context, doc domain.Document, assets map[string]domain.ImageAsset, observe func(State)) (Result, error) {
	if observe == nil {
		observe = func(State) {}
	}
	defer observe(StateIdle)

	observe(StateValidating)
	if doc.ActiveTemplate == domain.TemplateNone {
		return Result{}, ErrNoTemplate
	}

	observe(StateRendering)
	site, err := BuildSite(doc, assets)
	if err != nil {
		return Result{}, fmt.Errorf("render site: %w", err)
	}

	observe(StatePackaging)
	data, err := p.Archiver.Archive(ctx, site.Entries)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPackaging, err)
	}

	observe(StateDownloading)
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	filename := fmt.Sprintf("genesis-site-%d.zip", now().UnixMilli())
	location, err := p.Downloader.Download(ctx, filename, data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: download: %w", ErrPackaging, err)
	}

	return Result{
		Filename: filename,
		Location: location,
		Size:     int64(len(data)),
		Blocks:   len(doc.Blocks),
		Images:   site.Images,
	}, nil
}

package export

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"genesis/internal/assets"
	"genesis/internal/domain"
)

//go:embed static/card.css static/landing.css static/README.md
var static embed.FS

// ErrNoTemplate is returned when an export is attempted before a template
// has been chosen.
var ErrNoTemplate = errors.New("no template selected")

const fontsHead = `<link rel="preconnect" href="https://fonts.googleapis.com">
    <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
    <link href="https://fonts.googleapis.com/css2?family=Roboto:wght@400;700&family=Montserrat:wght@400;700&family=Lora:ital,wght@0,400;0,700;1,400&family=Playfair+Display:wght@700&family=Poppins:wght@400;600&display=swap" rel="stylesheet">`

// Entry is one file of the generated site. When Base64 is set, Data holds
// base64 text that the archiver decodes before writing.
type Entry struct {
	Path   string
	Data   []byte
	Base64 bool
}

// Site is the virtual file tree of an export, in archive order.
type Site struct {
	Entries []Entry
	Images  int
}

// Page renders the HTML document and stylesheet for blocks under the given
// template. Blocks are rendered as-is; callers rewrite image paths first.
func Page(blocks []domain.Block, tpl domain.Template, gs domain.GlobalStyles) (indexHTML, css string, err error) {
	switch tpl {
	case domain.TemplateCard:
		indexHTML = cardPage(blocks, gs)
	case domain.TemplateLanding:
		indexHTML = landingPage(blocks, gs)
	case domain.TemplateNone:
		return "", "", ErrNoTemplate
	default:
		return "", "", fmt.Errorf("unknown template %q", tpl)
	}
	css, err = Stylesheet(tpl)
	if err != nil {
		return "", "", err
	}
	return indexHTML, css, nil
}

// Stylesheet returns the fixed stylesheet of a template.
func Stylesheet(tpl domain.Template) (string, error) {
	data, err := static.ReadFile("static/" + string(tpl) + ".css")
	if err != nil {
		return "", fmt.Errorf("stylesheet for %q: %w", tpl, err)
	}
	return string(data), nil
}

// Readme returns the usage instructions shipped with every export.
func Readme() string {
	data, _ := static.ReadFile("static/README.md")
	return string(data)
}

func firstOfType(blocks []domain.Block, t domain.BlockType) (domain.Block, bool) {
	for _, b := range blocks {
		if b.Type == t {
			return b, true
		}
	}
	return domain.Block{}, false
}

func pageTitle(blocks []domain.Block, fallback string) string {
	if h, ok := firstOfType(blocks, domain.BlockTypeHeader); ok {
		if p, ok := h.Props.(domain.HeaderProps); ok && p.Titulo != "" {
			return p.Titulo
		}
	}
	return fallback
}

func document(title, bodyFont, main string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <link rel="stylesheet" href="style.css">
    %s
</head>
<body style="font-family: %s;">
%s
</body>
</html>`, html.EscapeString(title), fontsHead, html.EscapeString(bodyFont), main)
}

func cardPage(blocks []domain.Block, gs domain.GlobalStyles) string {
	render := func(t domain.BlockType) string {
		if b, ok := firstOfType(blocks, t); ok {
			return RenderBlock(b)
		}
		return ""
	}
	main := fmt.Sprintf(`    %s

    <main class="card-main">
        %s
        %s
    </main>`, render(domain.BlockTypeHeader), render(domain.BlockTypeProfileCard), render(domain.BlockTypeLinkList))
	return document(pageTitle(blocks, "My Card"), domain.FontFamilyCSS(gs.FontFamily), main)
}

func landingPage(blocks []domain.Block, gs domain.GlobalStyles) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, RenderBlock(b))
	}
	main := fmt.Sprintf(`    <main class="landing-main">
        %s
    </main>`, strings.Join(parts, "\n        "))
	return document(pageTitle(blocks, "My Landing Page"), domain.FontFamilyCSS(gs.FontFamily), main)
}

// ReferencedAssets returns the ready assets that blocks actually point at
// once rewritten, sorted by filename.
func ReferencedAssets(rewritten []domain.Block, all map[string]domain.ImageAsset) []domain.ImageAsset {
	var out []domain.ImageAsset
	for _, b := range rewritten {
		url, ok := domain.ImageURLOf(b.Props)
		if !ok {
			continue
		}
		a, ok := all[b.ID]
		if !ok || a.State != domain.AssetReady || url != domain.ImagePath(a.Filename) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// BuildSite produces the complete file tree for doc. It performs no I/O.
func BuildSite(doc domain.Document, all map[string]domain.ImageAsset) (Site, error) {
	if doc.ActiveTemplate == domain.TemplateNone {
		return Site{}, ErrNoTemplate
	}

	rewritten := RewriteImagePaths(doc.Blocks, all)
	indexHTML, css, err := Page(rewritten, doc.ActiveTemplate, doc.GlobalStyles)
	if err != nil {
		return Site{}, err
	}

	blocks := doc.Blocks
	if blocks == nil {
		blocks = []domain.Block{}
	}
	project, err := json.MarshalIndent(domain.Project{Blocks: blocks, Template: doc.ActiveTemplate}, "", "  ")
	if err != nil {
		return Site{}, fmt.Errorf("encode project.json: %w", err)
	}

	site := Site{Entries: []Entry{{Path: "project.json", Data: project}}}
	for _, a := range ReferencedAssets(rewritten, all) {
		payload := assets.DataURLPayload(a.Encoded)
		if payload == "" {
			continue
		}
		site.Entries = append(site.Entries, Entry{Path: "images/" + a.Filename, Data: []byte(payload), Base64: true})
		site.Images++
	}
	site.Entries = append(site.Entries,
		Entry{Path: "index.html", Data: []byte(indexHTML)},
		Entry{Path: "style.css", Data: []byte(css)},
		Entry{Path: "README.md", Data: []byte(Readme())},
	)
	return site, nil
}

package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/assets"
	"genesis/internal/domain"
	"genesis/internal/export"
)

var imageBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

func readyAsset(t *testing.T, blockID, handle string) domain.ImageAsset {
	t.Helper()
	enc, err := assets.EncodeDataURL(imageBytes, "image/png")
	require.NoError(t, err)
	return domain.ImageAsset{
		BlockID:  blockID,
		Handle:   handle,
		Encoded:  enc,
		Filename: domain.AssetFilename(blockID, "photo.png"),
		MIMEType: "image/png",
		State:    domain.AssetReady,
	}
}

func entryPaths(site export.Site) []string {
	var out []string
	for _, e := range site.Entries {
		out = append(out, e.Path)
	}
	return out
}

func entry(site export.Site, path string) (export.Entry, bool) {
	for _, e := range site.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return export.Entry{}, false
}

func TestRewriteImagePaths(t *testing.T) {
	blocks := []domain.Block{
		block(domain.BlockTypeImageBlock, "img1", map[string]any{"imageUrl": "blob:genesis/1"}),
		block(domain.BlockTypeImageBlock, "img2", map[string]any{"imageUrl": "https://example.com/a.png"}),
		block(domain.BlockTypeProfileCard, "p1", map[string]any{"imageUrl": "./images/image-p1.jpg"}),
		block(domain.BlockTypeImageBlock, "img3", map[string]any{"imageUrl": "blob:genesis/3"}),
	}
	failed := readyAsset(t, "img3", "blob:genesis/3")
	failed.State = domain.AssetFailed
	all := map[string]domain.ImageAsset{
		"img1": readyAsset(t, "img1", "blob:genesis/1"),
		"img2": readyAsset(t, "img2", "blob:genesis/2"),
		"img3": failed,
	}

	out := export.RewriteImagePaths(blocks, all)
	urls := make([]string, len(out))
	for i, b := range out {
		urls[i], _ = domain.ImageURLOf(b.Props)
	}
	assert.Equal(t, []string{
		"./images/image-img1.png",
		"https://example.com/a.png",
		"./images/image-p1.jpg",
		"blob:genesis/3",
	}, urls)

	orig, _ := domain.ImageURLOf(blocks[0].Props)
	assert.Equal(t, "blob:genesis/1", orig, "input is not modified")
}

func TestBuildSite_NoTemplate(t *testing.T) {
	_, err := export.BuildSite(domain.Document{Blocks: []domain.Block{block(domain.BlockTypeHeader, "h", nil)}}, nil)
	assert.ErrorIs(t, err, export.ErrNoTemplate)
}

func TestBuildSite_ImageBlock(t *testing.T) {
	doc := domain.Document{
		Blocks:         []domain.Block{block(domain.BlockTypeImageBlock, "img1", map[string]any{"imageUrl": "blob:genesis/1"})},
		ActiveTemplate: domain.TemplateLanding,
		GlobalStyles:   domain.DefaultGlobalStyles(),
	}
	site, err := export.BuildSite(doc, map[string]domain.ImageAsset{"img1": readyAsset(t, "img1", "blob:genesis/1")})
	require.NoError(t, err)

	assert.Equal(t, []string{"project.json", "images/image-img1.png", "index.html", "style.css", "README.md"}, entryPaths(site))
	assert.Equal(t, 1, site.Images)

	index, _ := entry(site, "index.html")
	assert.Contains(t, string(index.Data), `src="./images/image-img1.png"`)
	assert.NotContains(t, string(index.Data), "blob:")

	img, _ := entry(site, "images/image-img1.png")
	assert.True(t, img.Base64)
	assert.NotEmpty(t, img.Data)

	project, _ := entry(site, "project.json")
	var p domain.Project
	require.NoError(t, json.Unmarshal(project.Data, &p))
	assert.Equal(t, domain.TemplateLanding, p.Template)
	require.Len(t, p.Blocks, 1)
	url, _ := domain.ImageURLOf(p.Blocks[0].Props)
	assert.Equal(t, "blob:genesis/1", url, "project.json carries the raw document")
	assert.True(t, strings.HasPrefix(string(project.Data), "{\n  \"blocks\""))
}

func TestBuildSite_OnlyReferencedReadyAssets(t *testing.T) {
	doc := domain.Document{
		Blocks:         []domain.Block{block(domain.BlockTypeImageBlock, "img1", map[string]any{"imageUrl": "https://example.com/x.png"})},
		ActiveTemplate: domain.TemplateLanding,
	}
	site, err := export.BuildSite(doc, map[string]domain.ImageAsset{
		"img1":    readyAsset(t, "img1", "blob:genesis/1"),
		"deleted": readyAsset(t, "deleted", "blob:genesis/2"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"project.json", "index.html", "style.css", "README.md"}, entryPaths(site))
	assert.Zero(t, site.Images)
}

func TestBuildSite_CardTemplate(t *testing.T) {
	doc := domain.Document{
		Blocks: []domain.Block{
			block(domain.BlockTypeRichText, "r", map[string]any{"titulo": "Skipped section"}),
			block(domain.BlockTypeLinkList, "l1", nil),
			block(domain.BlockTypeHeader, "h", map[string]any{"titulo": "Ana Silva"}),
			block(domain.BlockTypeProfileCard, "p1", map[string]any{"nome": "First"}),
			block(domain.BlockTypeProfileCard, "p2", map[string]any{"nome": "Second"}),
		},
		ActiveTemplate: domain.TemplateCard,
		GlobalStyles:   domain.GlobalStyles{FontFamily: domain.FontLora},
	}
	site, err := export.BuildSite(doc, nil)
	require.NoError(t, err)

	index, _ := entry(site, "index.html")
	html := string(index.Data)
	assert.Contains(t, html, "<title>Ana Silva</title>")
	assert.Contains(t, html, `<main class="card-main">`)
	assert.Contains(t, html, "First")
	assert.NotContains(t, html, "Second")
	assert.NotContains(t, html, "Skipped section")
	assert.Contains(t, html, `<body style="font-family: &#39;Lora&#39;, serif;">`)
	assert.Less(t, strings.Index(html, "site-header"), strings.Index(html, "profile-card"))
	assert.Less(t, strings.Index(html, "profile-card"), strings.Index(html, "link-list"))

	css, _ := entry(site, "style.css")
	assert.Contains(t, string(css.Data), ".card-main")
}

func TestBuildSite_LandingTemplateKeepsOrder(t *testing.T) {
	doc := domain.Document{
		Blocks: []domain.Block{
			block(domain.BlockTypeRichText, "r", map[string]any{"titulo": "Alpha"}),
			block(domain.BlockTypeHeader, "h", map[string]any{"titulo": "Beta"}),
			{ID: "x", Type: "Carousel", Props: domain.RawProps(`{}`)},
			block(domain.BlockTypeRichText, "r2", map[string]any{"titulo": "Gamma"}),
		},
		ActiveTemplate: domain.TemplateLanding,
	}
	site, err := export.BuildSite(doc, nil)
	require.NoError(t, err)

	index, _ := entry(site, "index.html")
	html := string(index.Data)
	assert.Contains(t, html, "<title>Beta</title>")
	body := html[strings.Index(html, "landing-main"):]
	assert.Less(t, strings.Index(body, "Alpha"), strings.Index(body, "Beta"))
	assert.Less(t, strings.Index(body, "Beta"), strings.Index(body, "Gamma"))

	css, _ := entry(site, "style.css")
	assert.Contains(t, string(css.Data), ".landing-main")
	readme, _ := entry(site, "README.md")
	assert.Contains(t, string(readme.Data), "images/")
}

func TestBuildSite_EmptyDocumentFallbackTitle(t *testing.T) {
	site, err := export.BuildSite(domain.Document{ActiveTemplate: domain.TemplateCard}, nil)
	require.NoError(t, err)
	index, _ := entry(site, "index.html")
	assert.Contains(t, string(index.Data), "<title>My Card</title>")

	project, _ := entry(site, "project.json")
	assert.Contains(t, string(project.Data), `"blocks": []`)
}

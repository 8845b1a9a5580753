package export

import "genesis/internal/domain"

// RewriteImagePaths returns a copy of blocks whose ephemeral image references
// point at the archive path of their block's asset. Only ready assets are
// substituted: a reference whose encoding failed stays unresolved. Relative
// and absolute URLs are never touched.
func RewriteImagePaths(blocks []domain.Block, assets map[string]domain.ImageAsset) []domain.Block {
	out := domain.CloneBlocks(blocks)
	for i, b := range out {
		url, ok := domain.ImageURLOf(b.Props)
		if !ok || !domain.IsEphemeralURL(url) {
			continue
		}
		a, ok := assets[b.ID]
		if !ok || a.State != domain.AssetReady {
			continue
		}
		out[i].Props, _ = domain.WithImageURL(b.Props, domain.ImagePath(a.Filename))
	}
	return out
}

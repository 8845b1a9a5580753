package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"genesis/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

// maxImageBytes caps images read from disk by ingest_image.
const maxImageBytes = 20 << 20

func (s *Server) registerBlockTools() {
	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Append a block to the page. Props start from the type's defaults."),
		mcp.WithString("type",
			mcp.Description("Block type: Header, ProfileCard, LinkList, RichText, ImageBlock"),
			mcp.Required(),
		),
		mcp.WithString("props", mcp.Description(`Initial props as a JSON object, e.g. {"titulo":"Hello"} (optional)`)),
	), s.handleAddBlock)

	// ── update_block_props ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_props",
		mcp.WithDescription("Shallow-merge a JSON object into a block's props. Nested records such as styles are replaced whole."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("patch", mcp.Description("JSON object of props to set"), mcp.Required()),
	), s.handleUpdateBlockProps)

	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List the blocks of the page in order, optionally filtered by type"),
		mcp.WithString("type", mcp.Description("Filter by block type (optional)")),
	), s.handleListBlocks)

	// ── get_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Get one block with all of its props"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
	), s.handleGetBlock)

	// ── remove_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block from the page. Requires user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to remove"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)

	// ── reorder_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_blocks",
		mcp.WithDescription("Reorder the page. Pass every block ID exactly once, in the new order."),
		mcp.WithString("blockIds",
			mcp.Description("Comma-separated block IDs in the new order"),
			mcp.Required(),
		),
	), s.handleReorderBlocks)

	// ── select_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_block",
		mcp.WithDescription("Select the block being edited in the editor. Empty clears the selection."),
		mcp.WithString("blockId", mcp.Description("Block ID (optional)")),
	), s.handleSelectBlock)

	// ── ingest_image ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("ingest_image",
		mcp.WithDescription("Attach an image file from disk to a ProfileCard or ImageBlock"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("path", mcp.Description("Path of the image file"), mcp.Required()),
		mcp.WithString("mimeType", mcp.Description("MIME type (optional, sniffed when omitted)")),
	), s.handleIngestImage)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	args := req.GetArguments()
	blockType, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}

	var initial map[string]any
	if raw, _ := args["props"].(string); raw != "" {
		if err := parseJSON(raw, &initial); err != nil {
			return nil, fmt.Errorf("invalid props JSON: %w", err)
		}
	}

	b, err := s.builder.AddBlock(ctx, domain.BlockType(blockType), initial)
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleUpdateBlockProps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	raw, err := requireString(args, "patch")
	if err != nil {
		return nil, err
	}
	var patch map[string]any
	if err := parseJSON(raw, &patch); err != nil {
		return nil, fmt.Errorf("invalid patch JSON: %w", err)
	}

	b, err := s.builder.UpdateBlockProps(ctx, blockID, patch)
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	args := req.GetArguments()
	filterType, _ := args["type"].(string)

	summaries := []blockSummary{}
	for _, b := range s.builder.Document().Blocks {
		if filterType != "" && string(b.Type) != filterType {
			continue
		}
		summaries = append(summaries, s.summarizeBlock(b))
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	b, err := s.getBlockForTool(req.GetArguments())
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	block, err := s.getBlockForTool(req.GetArguments())
	if err != nil {
		return nil, err
	}

	meta, _ := marshalJSON(map[string][]string{"blockIds": {block.ID}})
	approved, err := s.approval.Request("remove_block",
		fmt.Sprintf("Remove %s block %s", block.Type, block.ID), string(meta))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.builder.RemoveBlock(ctx, block.ID); err != nil {
		return nil, fmt.Errorf("remove block: %w", err)
	}
	return textResult(fmt.Sprintf("Removed %s block %s", block.Type, block.ID)), nil
}

func (s *Server) handleReorderBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	raw, err := requireString(req.GetArguments(), "blockIds")
	if err != nil {
		return nil, err
	}
	ids := splitIDs(raw)
	if err := s.builder.ReorderBlocks(ctx, ids); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Reordered %d blocks", len(ids))), nil
}

func (s *Server) handleSelectBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	blockID, _ := req.GetArguments()["blockId"].(string)
	if err := s.builder.SelectBlock(ctx, blockID); err != nil {
		return nil, err
	}
	if blockID == "" {
		return textResult("Selection cleared"), nil
	}
	return textResult("Selected " + blockID), nil
}

func (s *Server) handleIngestImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	args := req.GetArguments()
	blockID, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	mimeType, _ := args["mimeType"].(string)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > maxImageBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", info.Size(), maxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	asset, err := s.builder.IngestImage(ctx, blockID, data, filepath.Base(path), mimeType)
	if err != nil {
		return nil, err
	}
	asset.Encoded = ""
	return jsonResult(asset)
}

// ── Summaries ──────────────────────────────────────────────

type blockSummary struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Preview string `json:"preview"`
	Image   string `json:"image,omitempty"` // asset state for image-bearing blocks
}

func (s *Server) summarizeBlock(b domain.Block) blockSummary {
	sum := blockSummary{ID: b.ID, Type: string(b.Type), Preview: previewOf(b.Props)}
	if url, ok := domain.ImageURLOf(b.Props); ok && domain.IsEphemeralURL(url) {
		if a, ok := s.builder.Asset(b.ID); ok {
			sum.Image = string(a.State)
		}
	}
	return sum
}

// previewOf picks the most telling text of a block, capped at 200 chars.
func previewOf(p domain.Props) string {
	var preview string
	switch v := p.(type) {
	case domain.HeaderProps:
		preview = v.Titulo
	case domain.ProfileCardProps:
		preview = v.Nome + ": " + v.Bio
	case domain.LinkListProps:
		texts := make([]string, len(v.Links))
		for i, l := range v.Links {
			texts[i] = l.Text
		}
		preview = strings.Join(texts, ", ")
	case domain.RichTextProps:
		preview = v.Titulo + ": " + v.Texto
	case domain.ImageBlockProps:
		preview = v.Legenda
	}
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return preview
}

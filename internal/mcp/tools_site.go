package mcpserver

import (
	"context"
	"fmt"

	"genesis/internal/domain"
	"genesis/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSiteTools() {
	// ── set_active_template ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_template",
		mcp.WithDescription("Choose the export template: card (one compact card) or landing (every block, full page). Empty unsets it."),
		mcp.WithString("template", mcp.Description("card, landing, or empty")),
	), s.handleSetActiveTemplate)

	// ── set_global_styles ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_global_styles",
		mcp.WithDescription("Set the page-wide font"),
		mcp.WithString("fontFamily",
			mcp.Description("Roboto, Montserrat, Lora, Playfair Display, Poppins or Default"),
			mcp.Required(),
		),
	), s.handleSetGlobalStyles)

	// ── export_site ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_site",
		mcp.WithDescription("Package the page as a static site zip (index.html, style.css, images/, project.json, README.md). Requires an active template."),
	), s.handleExportSite)

	// ── list_exports ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_exports",
		mcp.WithDescription("List recent exports, newest first"),
		mcp.WithNumber("limit", mcp.Description("How many records (default 20)")),
	), s.handleListExports)

	// ── import_project ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("import_project",
		mcp.WithDescription("Load a project.json from an unpacked export. Images in the images/ folder next to it are re-attached."),
		mcp.WithString("path", mcp.Description("Path of project.json"), mcp.Required()),
	), s.handleImportProject)
}

func (s *Server) handleSetActiveTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	tpl, _ := req.GetArguments()["template"].(string)
	if err := s.builder.SetActiveTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	if tpl == "" {
		return textResult("Template unset"), nil
	}
	return textResult("Template set to " + tpl), nil
}

func (s *Server) handleSetGlobalStyles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	font, err := requireString(req.GetArguments(), "fontFamily")
	if err != nil {
		return nil, err
	}
	s.builder.SetGlobalStyles(ctx, domain.GlobalStyles{FontFamily: font})
	return textResult("Font set to " + font), nil
}

func (s *Server) handleExportSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("export is not available")
	}
	s.sync(ctx)
	res, err := s.exporter.ExportSite(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}

func (s *Server) handleListExports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("export is not available")
	}
	limit := 20
	if v, ok := req.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	recs, err := s.exporter.History(limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.ExportRecord{}
	}
	return jsonResult(recs)
}

func (s *Server) handleImportProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	path, err := requireString(req.GetArguments(), "path")
	if err != nil {
		return nil, err
	}
	n, err := service.ImportProjectFile(ctx, s.builder, path)
	if err != nil {
		return nil, err
	}
	doc := s.builder.Document()
	return textResult(fmt.Sprintf("Imported %d blocks (%d images re-attached), template %q", len(doc.Blocks), n, doc.ActiveTemplate)), nil
}

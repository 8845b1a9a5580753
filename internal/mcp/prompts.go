package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("business_card",
		mcp.WithPromptDescription("Build a personal business card page and export it"),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Name of the person on the card"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("bio",
			mcp.ArgumentDescription("One-line biography"),
		),
	), s.handleBusinessCardPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Build a product landing page from header, text, image and links"),
		mcp.WithArgument("product",
			mcp.ArgumentDescription("Name of the product or project"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleBusinessCardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["name"]
	bio := req.Params.Arguments["bio"]
	if bio == "" {
		bio = "a short, memorable biography you write for them"
	}
	return userPrompt(fmt.Sprintf("Business card for %s", name), fmt.Sprintf(`Build a business card for "%s". Follow these steps:

1. Read genesis://document to see what is already on the page
2. Use add_block with type ProfileCard and props {"nome": "%s", "bio": ...} using %s
3. Use add_block with type LinkList and set its links to the person's main profiles
4. Optionally add a Header block; the card template shows only the first Header, ProfileCard and LinkList
5. Use set_active_template with "card", then export_site

If the user has a photo, attach it with ingest_image before exporting.`, name, name, bio)), nil
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	product := req.Params.Arguments["product"]
	return userPrompt(fmt.Sprintf("Landing page for %s", product), fmt.Sprintf(`Build a landing page for "%s". Follow these steps:

1. Use add_block with type Header and props {"titulo": "%s"}
2. Add two or three RichText blocks describing what it is and why it matters; set "markdown": true to use Markdown in the text
3. Add an ImageBlock with a caption, and attach a picture with ingest_image when one is available
4. Finish with a LinkList pointing at signup, docs and contact
5. Use reorder_blocks if the order needs fixing, set_active_template with "landing", then export_site

Every change can be undone with undo, so prefer small steps.`, product, product)), nil
}

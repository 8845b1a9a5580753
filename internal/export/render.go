package export

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"genesis/internal/domain"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// RenderBlock renders one block to markup. Unknown types render as "" so a
// single bad block never aborts a page.
func RenderBlock(b domain.Block) string {
	switch p := b.Props.(type) {
	case domain.HeaderProps:
		return renderHeader(p)
	case domain.ProfileCardProps:
		return renderProfileCard(p)
	case domain.LinkListProps:
		return renderLinkList(p)
	case domain.RichTextProps:
		return renderRichText(p)
	case domain.ImageBlockProps:
		return renderImageBlock(p)
	default:
		return ""
	}
}

// styleAttr formats a text style as an inline CSS declaration list.
func styleAttr(s domain.TextStyle) string {
	weight, fontStyle := "normal", "normal"
	if s.Bold {
		weight = "bold"
	}
	if s.Italic {
		fontStyle = "italic"
	}
	decl := fmt.Sprintf("color: %s; font-size: %srem; font-family: %s; font-weight: %s; font-style: %s;",
		s.Color, strconv.FormatFloat(s.FontSize, 'f', -1, 64), domain.FontFamilyCSS(s.FontFamily), weight, fontStyle)
	return html.EscapeString(decl)
}

func esc(s string) string { return html.EscapeString(s) }

func renderHeader(p domain.HeaderProps) string {
	return fmt.Sprintf(`<header class="site-header" style="background-color: %s;">
        <h1 class="header-title" style="%s">
            %s
        </h1>
    </header>`, esc(p.CorDeFundo), styleAttr(p.TituloStyle), esc(p.Titulo))
}

func renderProfileCard(p domain.ProfileCardProps) string {
	class := "profile-card"
	if p.StyleVariant == domain.StyleVariantLeft {
		class += " variant-left"
	}
	return fmt.Sprintf(`<section class="%s">
        <div class="background-glow"></div>
        <img src="%s" alt="Photo of %s" class="profile-image">
        <div class="text-content">
            <h2 class="profile-name" style="%s">
                %s
            </h2>
            <p class="profile-bio" style="%s">
                %s
            </p>
        </div>
    </section>`, class, esc(p.ImageURL), esc(p.Nome),
		styleAttr(p.NomeStyle), esc(p.Nome), styleAttr(p.BioStyle), esc(p.Bio))
}

func renderLinkList(p domain.LinkListProps) string {
	items := make([]string, 0, len(p.Links))
	for _, l := range p.Links {
		items = append(items, fmt.Sprintf(`<a href="%s" class="link-item">%s</a>`, esc(l.URL), esc(l.Text)))
	}
	return fmt.Sprintf(`<section class="link-list">
        %s
    </section>`, strings.Join(items, "\n        "))
}

func renderRichText(p domain.RichTextProps) string {
	body := fmt.Sprintf(`<p style="%s">
            %s
        </p>`, styleAttr(p.TextoStyle), esc(p.Texto))
	if p.Markdown {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(p.Texto), &buf); err == nil {
			body = fmt.Sprintf(`<div class="rich-text-body" style="%s">
            %s
        </div>`, styleAttr(p.TextoStyle), strings.TrimSpace(buf.String()))
		}
	}
	return fmt.Sprintf(`<section class="rich-text">
        <h2 style="%s">
            %s
        </h2>
        %s
    </section>`, styleAttr(p.TituloStyle), esc(p.Titulo), body)
}

func renderImageBlock(p domain.ImageBlockProps) string {
	caption := ""
	if p.Legenda != "" {
		caption = fmt.Sprintf(`<figcaption style="%s">
            %s
        </figcaption>`, styleAttr(p.LegendaStyle), esc(p.Legenda))
	}
	return fmt.Sprintf(`<figure class="imageblock-container">
        <img src="%s" alt="%s">
        %s
    </figure>`, esc(p.ImageURL), esc(p.Legenda), caption)
}

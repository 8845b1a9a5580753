package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

type BlockType string

const (
	BlockTypeHeader      BlockType = "Header"
	BlockTypeProfileCard BlockType = "ProfileCard"
	BlockTypeLinkList    BlockType = "LinkList"
	BlockTypeRichText    BlockType = "RichText"
	BlockTypeImageBlock  BlockType = "ImageBlock"
)

// BlockTypes lists every supported variant in palette order.
var BlockTypes = []BlockType{
	BlockTypeHeader,
	BlockTypeProfileCard,
	BlockTypeLinkList,
	BlockTypeRichText,
	BlockTypeImageBlock,
}

// ValidBlockType reports whether t is one of the closed set of variants.
func ValidBlockType(t BlockType) bool {
	for _, bt := range BlockTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Block is one typed content unit of a document.
// Props always holds the payload struct matching Type (RawProps for types
// this build does not know about).
type Block struct {
	ID    string    `json:"id"`
	Type  BlockType `json:"type"`
	Props Props     `json:"props"`
}

// Props is the closed set of per-variant property payloads.
type Props interface {
	isProps()
	clone() Props
}

type HeaderProps struct {
	Titulo      string    `json:"titulo"`
	CorDeFundo  string    `json:"corDeFundo"`
	TituloStyle TextStyle `json:"tituloStyle"`
	Geometry    Geometry  `json:"geometry"`
}

type ProfileCardProps struct {
	ImageURL     string    `json:"imageUrl"`
	Nome         string    `json:"nome"`
	Bio          string    `json:"bio"`
	StyleVariant string    `json:"styleVariant"`
	NomeStyle    TextStyle `json:"nomeStyle"`
	BioStyle     TextStyle `json:"bioStyle"`
	Geometry     Geometry  `json:"geometry"`
}

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type LinkListProps struct {
	Links    []Link   `json:"links"`
	Geometry Geometry `json:"geometry"`
}

type RichTextProps struct {
	Titulo      string    `json:"titulo"`
	Texto       string    `json:"texto"`
	Markdown    bool      `json:"markdown"`
	TituloStyle TextStyle `json:"tituloStyle"`
	TextoStyle  TextStyle `json:"textoStyle"`
	Geometry    Geometry  `json:"geometry"`
}

type ImageBlockProps struct {
	ImageURL     string    `json:"imageUrl"`
	Legenda      string    `json:"legenda"`
	LegendaStyle TextStyle `json:"legendaStyle"`
	Geometry     Geometry  `json:"geometry"`
}

// RawProps carries the stored props of a block type this build does not
// recognise, so the block round-trips unchanged.
type RawProps json.RawMessage

func (HeaderProps) isProps()      {}
func (ProfileCardProps) isProps() {}
func (LinkListProps) isProps()    {}
func (RichTextProps) isProps()    {}
func (ImageBlockProps) isProps()  {}
func (RawProps) isProps()         {}

func (p HeaderProps) clone() Props      { return p }
func (p ProfileCardProps) clone() Props { return p }
func (p RichTextProps) clone() Props    { return p }
func (p ImageBlockProps) clone() Props  { return p }

func (p LinkListProps) clone() Props {
	if p.Links != nil {
		links := make([]Link, len(p.Links))
		copy(links, p.Links)
		p.Links = links
	}
	return p
}

func (p RawProps) clone() Props {
	out := make(RawProps, len(p))
	copy(out, p)
	return out
}

func (p RawProps) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return []byte(p), nil
}

func (p *RawProps) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// DefaultProps returns the canonical default payload for t. It is the single
// source of truth for schema defaults; unknown types get empty RawProps.
func DefaultProps(t BlockType) Props {
	switch t {
	case BlockTypeHeader:
		return HeaderProps{
			Titulo:      "Page Title",
			CorDeFundo:  "#1f2937",
			TituloStyle: defaultStyles.headerTitulo,
			Geometry:    Geometry{Width: 8, Depth: 2, Height: HeightPlate},
		}
	case BlockTypeProfileCard:
		return ProfileCardProps{
			ImageURL:     "https://placehold.co/128x128/e0e7ff/3730a3?text=Me",
			Nome:         "Your Name",
			Bio:          "A short, memorable biography.",
			StyleVariant: StyleVariantTop,
			NomeStyle:    defaultStyles.nome,
			BioStyle:     defaultStyles.bio,
			Geometry:     Geometry{Width: 4, Depth: 4, Height: HeightBrick},
		}
	case BlockTypeLinkList:
		return LinkListProps{
			Links:    []Link{{Text: "Main Link", URL: "#"}},
			Geometry: Geometry{Width: 6, Depth: 2, Height: HeightBrick},
		}
	case BlockTypeRichText:
		return RichTextProps{
			Titulo:      "Featured Section",
			Texto:       "Describe the benefits of your product, service or idea here. Use this space to win your visitors over.",
			TituloStyle: defaultStyles.titulo,
			TextoStyle:  defaultStyles.texto,
			Geometry:    Geometry{Width: 6, Depth: 4, Height: HeightBrick},
		}
	case BlockTypeImageBlock:
		return ImageBlockProps{
			ImageURL:     "https://placehold.co/800x450/cccccc/444444?text=Image",
			Legenda:      "A descriptive caption for the image.",
			LegendaStyle: defaultStyles.legenda,
			Geometry:     Geometry{Width: 8, Depth: 4, Height: HeightPlate},
		}
	default:
		return RawProps("{}")
	}
}

// NewBlock creates a block of type t with a fresh id and default props.
func NewBlock(t BlockType) Block {
	return Block{
		ID:    uuid.New().String(),
		Type:  t,
		Props: DefaultProps(t),
	}
}

type blockJSON struct {
	ID    string          `json:"id"`
	Type  BlockType       `json:"type"`
	Props json.RawMessage `json:"props"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	props := b.Props
	if props == nil {
		props = DefaultProps(b.Type)
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("marshal props of block %s: %w", b.ID, err)
	}
	return json.Marshal(blockJSON{ID: b.ID, Type: b.Type, Props: raw})
}

// UnmarshalJSON decodes the stored props on top of the variant defaults, so
// documents written before a property existed load with it populated while
// stored values always win. Each stored top-level property replaces its
// default whole.
func (b *Block) UnmarshalJSON(data []byte) error {
	var wire blockJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	props, err := overlayProps(DefaultProps(wire.Type), wire.Props)
	if err != nil {
		return fmt.Errorf("decode props of block %s: %w", wire.ID, err)
	}
	b.ID = wire.ID
	b.Type = wire.Type
	b.Props = props
	return nil
}

// MergeProps applies a shallow partial update to p and returns the result.
// Keys unknown to the variant are ignored; p itself is never modified.
func MergeProps(p Props, patch map[string]any) (Props, error) {
	if len(patch) == 0 {
		return p.clone(), nil
	}
	if raw, ok := p.(RawProps); ok {
		return mergeRaw(raw, patch)
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	return overlayProps(p, data)
}

func mergeRaw(raw RawProps, patch map[string]any) (Props, error) {
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode raw props: %w", err)
		}
	}
	for k, v := range patch {
		m[k] = v
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode raw props: %w", err)
	}
	return RawProps(out), nil
}

func overlayProps(base Props, raw json.RawMessage) (Props, error) {
	base = base.clone()
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	switch p := base.(type) {
	case HeaderProps:
		return overlay(p, raw)
	case ProfileCardProps:
		return overlay(p, raw)
	case LinkListProps:
		out, err := overlay(p, raw)
		if err != nil {
			return nil, err
		}
		ll := out.(LinkListProps)
		if ll.Links == nil {
			ll.Links = []Link{}
		}
		return ll, nil
	case RichTextProps:
		return overlay(p, raw)
	case ImageBlockProps:
		return overlay(p, raw)
	case RawProps:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("invalid raw props")
		}
		return RawProps(append([]byte(nil), raw...)), nil
	default:
		return nil, fmt.Errorf("unsupported props %T", base)
	}
}

// overlay replaces every top-level field of base named in raw with its
// decoded value. Nested structs and slices are replaced whole, never merged
// into the old value.
func overlay[P Props](base P, raw json.RawMessage) (Props, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	var patch P
	if err := json.Unmarshal(raw, &patch); err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(keys))
	for k := range keys {
		present[strings.ToLower(k)] = true
	}

	dst := reflect.ValueOf(&base).Elem()
	src := reflect.ValueOf(patch)
	typ := dst.Type()
	for i := 0; i < typ.NumField(); i++ {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if present[strings.ToLower(name)] {
			dst.Field(i).Set(src.Field(i))
		}
	}
	return base, nil
}

// ImageURLOf returns the image reference of an image-bearing variant.
func ImageURLOf(p Props) (string, bool) {
	switch v := p.(type) {
	case ProfileCardProps:
		return v.ImageURL, true
	case ImageBlockProps:
		return v.ImageURL, true
	}
	return "", false
}

// WithImageURL returns a copy of p pointing at url. ok is false when the
// variant carries no image.
func WithImageURL(p Props, url string) (Props, bool) {
	switch v := p.(type) {
	case ProfileCardProps:
		v.ImageURL = url
		return v, true
	case ImageBlockProps:
		v.ImageURL = url
		return v, true
	}
	return p, false
}

// CloneBlocks returns a deep copy of blocks.
func CloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		if b.Props != nil {
			b.Props = b.Props.clone()
		}
		out[i] = b
	}
	return out
}

// EqualBlocks compares two block lists by value, including nested props.
func EqualBlocks(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Type != b[i].Type {
			return false
		}
		if !reflect.DeepEqual(a[i].Props, b[i].Props) {
			return false
		}
	}
	return true
}

// FindBlock returns the index of the block with the given id, or -1.
func FindBlock(blocks []Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

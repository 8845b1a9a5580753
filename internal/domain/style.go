package domain

// TextStyle is the presentational record attached to a text field.
// FontSize is expressed in rem.
type TextStyle struct {
	Color      string  `json:"color"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Bold       bool    `json:"bold"`
	Italic     bool    `json:"italic"`
}

// Geometry is a layout hint for the editor. The engine passes it through.
type Geometry struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height string  `json:"height"`
}

const (
	HeightPlate = "plate"
	HeightBrick = "brick"
)

const (
	StyleVariantTop  = "top"
	StyleVariantLeft = "left"
)

const (
	FontDefault    = "Default"
	FontRoboto     = "Roboto"
	FontMontserrat = "Montserrat"
	FontLora       = "Lora"
	FontPlayfair   = "Playfair Display"
	FontPoppins    = "Poppins"
)

var fontFamilyCSS = map[string]string{
	FontDefault:    "inherit",
	FontRoboto:     "'Roboto', sans-serif",
	FontMontserrat: "'Montserrat', sans-serif",
	FontLora:       "'Lora', serif",
	FontPlayfair:   "'Playfair Display', serif",
	FontPoppins:    "'Poppins', sans-serif",
}

// FontFamilyCSS maps a font enum value to its CSS font-family stack.
// Unknown names inherit.
func FontFamilyCSS(name string) string {
	if css, ok := fontFamilyCSS[name]; ok {
		return css
	}
	return "inherit"
}

var defaultStyles = struct {
	titulo, texto, legenda, nome, bio, headerTitulo TextStyle
}{
	titulo:       TextStyle{Color: "#1f2937", FontSize: 1.75, FontFamily: FontDefault, Bold: true},
	texto:        TextStyle{Color: "#4b5563", FontSize: 1, FontFamily: FontDefault},
	legenda:      TextStyle{Color: "#6b7280", FontSize: 1, FontFamily: FontDefault, Italic: true},
	nome:         TextStyle{Color: "#2c3e50", FontSize: 2, FontFamily: FontDefault, Bold: true},
	bio:          TextStyle{Color: "#374151", FontSize: 1, FontFamily: FontDefault},
	headerTitulo: TextStyle{Color: "#ffffff", FontSize: 3, FontFamily: FontDefault, Bold: true},
}

package domain

import "fmt"

type Template string

const (
	TemplateNone    Template = ""
	TemplateCard    Template = "card"
	TemplateLanding Template = "landing"
)

// ParseTemplate validates a template name. The empty string unsets it.
func ParseTemplate(s string) (Template, error) {
	switch t := Template(s); t {
	case TemplateNone, TemplateCard, TemplateLanding:
		return t, nil
	default:
		return TemplateNone, fmt.Errorf("unknown template %q", s)
	}
}

type GlobalStyles struct {
	FontFamily string `json:"fontFamily"`
}

// DefaultGlobalStyles is what a fresh or reset session starts with.
func DefaultGlobalStyles() GlobalStyles {
	return GlobalStyles{FontFamily: FontRoboto}
}

// Document is the full editing state of one session.
type Document struct {
	Blocks          []Block      `json:"blocks"`
	ActiveTemplate  Template     `json:"activeTemplate"`
	GlobalStyles    GlobalStyles `json:"globalStyles"`
	SelectedBlockID string       `json:"selectedBlockId"`
}

// Project is the project.json interchange format written into every export.
type Project struct {
	Blocks   []Block  `json:"blocks"`
	Template Template `json:"template"`
}

// HistoryState is the cursor view the UI uses to enable undo/redo.
type HistoryState struct {
	Cursor  int  `json:"cursor"`
	Length  int  `json:"length"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// DocumentState is returned to the frontend to render the whole editor.
type DocumentState struct {
	Document      Document     `json:"document"`
	History       HistoryState `json:"history"`
	HasDownloaded bool         `json:"hasDownloaded"`
}

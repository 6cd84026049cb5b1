package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Energy Square {{.ScopeLabel}} Alert]
Type: {{.Type}}
Severity: {{.Severity}}
Message: {{.Message}}
{{- if .UserID }}
User: {{.UserID}}
{{- else }}
Affected Users: {{.AffectedUsers}}
{{- end }}
Created: {{.CreatedAt}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	ID            string
	ScopeLabel    string
	UserID        string
	Type          string
	Severity      string
	Message       string
	AffectedUsers int
	CreatedAt     string
	Suggestion    string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("notice-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("notice template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

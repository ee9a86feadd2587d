package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	htmpl "html/template"
	"io"
	"strings"
	"sync"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

// Template names. Each one ships as <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
const (
	Welcome        = "welcome"
	AccountUpdated = "account_updated"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// EmailData defines standard fields for account email templates.
type EmailData struct {
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	// Branding
	AppName     string `json:"AppName"`
	CompanyName string `json:"CompanyName"`
	SupportURL  string `json:"SupportURL"`

	// Account change details
	PreviousEmail string   `json:"PreviousEmail"`
	Fields        []string `json:"Fields"`
	Time          string   `json:"Time"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// Message is a rendered email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback string, value any) any {
	if value == nil {
		return fallback
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return fallback
	}
	return value
}

// fieldLabel turns a field name into the wording used in emails.
func fieldLabel(v any) string {
	switch s := fmt.Sprint(v); s {
	case "email":
		return "email address"
	case "state":
		return "account state"
	case "status":
		return "account role"
	default:
		return s
	}
}

func funcs() map[string]any {
	return map[string]any{
		"default":    defaultFn,
		"fieldLabel": fieldLabel,
	}
}

var (
	loadOnce sync.Once
	textSet  *texttpl.Template
	htmlSet  *htmpl.Template
	loadErr  error
)

// load parses every embedded template once. Subjects and text bodies share the text set.
func load() error {
	loadOnce.Do(func() {
		textSet, loadErr = texttpl.New("").Funcs(funcs()).ParseFS(FS, "*.subject.tmpl", "*.text.tmpl")
		if loadErr != nil {
			loadErr = fmt.Errorf("parse text templates: %w", loadErr)
			return
		}
		htmlSet, loadErr = htmpl.New("").Funcs(funcs()).ParseFS(FS, "*.html.tmpl")
		if loadErr != nil {
			loadErr = fmt.Errorf("parse html templates: %w", loadErr)
		}
	})
	return loadErr
}

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

func execute(set executor, file string, data any) (string, error) {
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, file, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", file, err)
	}
	return buf.String(), nil
}

// Render fills the subject, text and html templates of name with data.
func Render(name string, data any) (Message, error) {
	if err := load(); err != nil {
		return Message{}, err
	}
	if textSet.Lookup(name+".subject.tmpl") == nil {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	subject, err := execute(textSet, name+".subject.tmpl", data)
	if err != nil {
		return Message{}, err
	}
	text, err := execute(textSet, name+".text.tmpl", data)
	if err != nil {
		return Message{}, err
	}
	html, err := execute(htmlSet, name+".html.tmpl", data)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: strings.TrimSpace(subject), Text: text, HTML: html}, nil
}

// Package templates renders the HTML fragments the live map status panel is
// patched with, and the viewer page.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"
)

//go:embed fragments/*.html pages/*.html
var files embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	"coord": func(v float64) string { return fmt.Sprintf("%.5f", v) },
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses the embedded fragments and pages.
func New() (*Renderer, error) {
	tmpl, err := parse()
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse() (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(files, "fragments/*.html", "pages/*.html")
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute renders a named template straight to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

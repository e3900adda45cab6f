// Package email provides client-side rendering of notification emails using
// Go templates embedded in the binary, plus PII-safe logging helpers.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders named notification templates into HTML bodies. Every
// template is parsed against the shared base layout at construction time,
// so a malformed template fails startup rather than a delivery.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the embedded templates and returns a Renderer.
// Returns an error if any template fails to parse.
func NewRenderer() (*Renderer, error) {
	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to list templates: %w", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template)}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".html")
		if name == "base" {
			continue
		}

		content, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s: %w", entry.Name(), err)
		}
		tmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := tmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s: %w", entry.Name(), err)
		}
		r.templates[name] = tmpl
	}

	return r, nil
}

// Has reports whether a template with the given name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Render executes the named template with the given context map plus the
// subject and returns the HTML body. Unknown template names are an error;
// the delivery worker converts that into a failed outcome.
func (r *Renderer) Render(name, subject string, ctx map[string]any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("renderer: no template named %q", name)
	}

	// The subject is injected into the template context so layouts can
	// use it as a heading.
	data := make(map[string]any, len(ctx)+1)
	for k, v := range ctx {
		data[k] = v
	}
	data["subject"] = subject

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("renderer: failed to render %q: %w", name, err)
	}
	return buf.String(), nil
}

// Package mailer turns scheduled email records into rendered messages and
// fans them out to an EmailProvider, one call per recipient, collecting
// per-recipient failures without aborting the batch.
package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// TemplateKind selects which embedded template pair a message renders with.
type TemplateKind string

const (
	// KindAnnouncement is a freeform staff message to an explicit
	// recipient list.
	KindAnnouncement TemplateKind = "announcement"
	// KindAssignmentPublished announces newly visible course material.
	KindAssignmentPublished TemplateKind = "assignment_published"
)

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

// TemplateData is the struct passed into Go templates for rendering.
type TemplateData struct {
	Subject         string
	RecipientName   string
	Message         string
	AssignmentTitle string
}

// Renderer performs email template rendering using Go's html/template with
// embedded template files. HTML bodies share a base layout; plaintext
// bodies are standalone.
type Renderer struct {
	htmlTemplates map[TemplateKind]*template.Template
	textTemplates map[TemplateKind]*texttemplate.Template
}

// NewRenderer parses the embedded templates and returns a Renderer.
// Returns an error if any template fails to parse.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		htmlTemplates: make(map[TemplateKind]*template.Template),
		textTemplates: make(map[TemplateKind]*texttemplate.Template),
	}

	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}

	kinds := []TemplateKind{
		KindAnnouncement,
		KindAssignmentPublished,
	}

	for _, kind := range kinds {
		name := string(kind)

		// Parse HTML: base layout + kind-specific content block.
		htmlContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.html: %w", name, err)
		}
		htmlTmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := htmlTmpl.Parse(string(htmlContent)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.html: %w", name, err)
		}
		r.htmlTemplates[kind] = htmlTmpl

		// Parse plaintext template.
		txtContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.txt", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.txt: %w", name, err)
		}
		txtTmpl, err := texttemplate.New(name).Parse(string(txtContent))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.txt: %w", name, err)
		}
		r.textTemplates[kind] = txtTmpl
	}

	return r, nil
}

// Render renders the template pair for the given kind into a RenderedEmail.
func (r *Renderer) Render(kind TemplateKind, data TemplateData) (*RenderedEmail, error) {
	htmlTmpl, ok := r.htmlTemplates[kind]
	if !ok {
		return nil, fmt.Errorf("renderer: no HTML template for kind %q", kind)
	}
	txtTmpl, ok := r.textTemplates[kind]
	if !ok {
		return nil, fmt.Errorf("renderer: no text template for kind %q", kind)
	}

	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render HTML for %q: %w", kind, err)
	}

	var txtBuf bytes.Buffer
	if err := txtTmpl.Execute(&txtBuf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render text for %q: %w", kind, err)
	}

	return &RenderedEmail{
		Subject:  data.Subject,
		BodyHTML: htmlBuf.String(),
		BodyText: txtBuf.String(),
	}, nil
}

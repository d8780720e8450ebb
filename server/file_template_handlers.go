package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

// Page templates, each rendered inside layout.html
const (
	pageSignIn         = "sign_in.html"
	pageSignUp         = "sign_up.html"
	pageForgotPassword = "forgot_password.html"
	pageHome           = "home.html"
	pageDashboard      = "dashboard.html"
	pageProfile        = "profile.html"
)

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses the named files from the embedded filesystem into one template set
func ParseTemplate(names ...string) (*template.Template, error) {
	return template.New(names[0]).ParseFS(TemplateFilesFS(), names...)
}

type pageTemplates struct {
	byName map[string]*template.Template
}

func parsePageTemplates() (*pageTemplates, error) {
	pages := &pageTemplates{byName: make(map[string]*template.Template)}
	for _, name := range []string{pageSignIn, pageSignUp, pageForgotPassword, pageHome, pageDashboard, pageProfile} {
		tmpl, err := ParseTemplate("layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages.byName[name] = tmpl
	}
	return pages, nil
}

// render executes the page into a buffer first so a template error still produces a clean 500.
func (p *pageTemplates) render(w http.ResponseWriter, name string, status int, data any) {
	tmpl, ok := p.byName[name]
	if !ok {
		log.Error().Str("template", name).Msg("Unknown page template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

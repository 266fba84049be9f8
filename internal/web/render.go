package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/layout"
	"github.com/vidpage/vidpage/internal/render"
	"github.com/vidpage/vidpage/internal/video"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// IndexPageData is the template data for the video page.
type IndexPageData struct {
	PageData
	Info       video.Info
	Nav        template.HTML
	Content    template.HTML
	ActiveView string
	Views      []string
	Mode       string
	AutoScroll bool
	Single     bool
	EmbedURL   string
	Layout     layout.State
	Chat       []template.HTML
	LLM        bool
}

// SearchData is the template data for the search results fragment.
type SearchData struct {
	Query   string
	Results []video.SearchResult
}

// NoteData is the template data for the note editor fragment.
type NoteData struct {
	SectionID string
	Text      string
	Saved     bool
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"pct": func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"index": "index.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For htmx requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for htmx partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		slog.Error("template not found", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		slog.Error("template execution failed", "page", page, "block", block, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	e := errors.As(err)
	if e.Code == errors.ErrInternal {
		slog.Error("ui request failed", "path", req.URL.Path, "error", e.Details["internal_error"])
	}

	// htmx request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		writeHTML(w, e.Status, render.ErrorPanel(e, ""))
		return
	}

	if req.Header.Get("Accept") == "application/json" {
		renderJSON(w, e.Status, map[string]any{
			"error": map[string]any{
				"code":    string(e.Code),
				"message": e.Message,
				"status":  e.Status,
			},
		})
		return
	}

	r.renderPageStatus(w, req, e.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", e.Status),
			Version: r.version,
		},
		StatusCode: e.Status,
		Message:    e.Message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeHTML writes a ready-made fragment.
func writeHTML(w http.ResponseWriter, status int, parts ...template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, p := range parts {
		_, _ = w.Write([]byte(p))
	}
}

// trigger sets an HX-Trigger header carrying one or more client events.
func trigger(w http.ResponseWriter, events map[string]any) {
	b, err := json.Marshal(events)
	if err != nil {
		slog.Error("encode HX-Trigger", "error", err)
		return
	}
	w.Header().Set("HX-Trigger", string(b))
}

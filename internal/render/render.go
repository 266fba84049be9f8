// Package render turns video documents and panel data into HTML fragments
// for the content pane.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

//go:embed templates/*.html
var templateFS embed.FS

var boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"emphasize": Emphasize,
	"seconds":   video.SecondsFromFloat,
	"markdown":  Markdown,
	"add":       func(a, b int) int { return a + b },
}).ParseFS(templateFS, "templates/*.html"))

// Pane is the content pane markup of one UI session. It is not safe for
// concurrent use; callers hold the session lock.
type Pane struct {
	markup template.HTML
}

// Replace discards the pane's markup and installs m.
func (p *Pane) Replace(m template.HTML) {
	p.markup = m
}

// Markup returns the current markup.
func (p *Pane) Markup() template.HTML {
	return p.markup
}

// String implements fmt.Stringer.
func (p *Pane) String() string {
	return string(p.markup)
}

// RenderSections replaces the pane with one section element per section,
// in order. Rendering the same sections twice yields identical markup.
func RenderSections(p *Pane, sections []video.Section, activeID string) error {
	m, err := Sections(sections, activeID)
	if err != nil {
		return err
	}
	p.Replace(m)
	return nil
}

// sectionView is the template model for one section.
type sectionView struct {
	video.Section
	Timed    bool
	HasRange bool
	Start    int
	Active   bool
}

// Sections renders the transcript sections. The section with activeID
// carries the active class; an empty activeID marks nothing.
func Sections(sections []video.Section, activeID string) (template.HTML, error) {
	views := make([]sectionView, len(sections))
	for i, s := range sections {
		views[i] = sectionView{
			Section:  s,
			Timed:    s.Content.Kind == video.Timed,
			HasRange: s.TimestampStart != "" && s.TimestampEnd != "",
			Start:    s.StartSeconds(),
			Active:   activeID != "" && s.ID == activeID,
		}
	}
	return execute("sections", views)
}

// NavLink is one sidebar entry.
type NavLink struct {
	ID     string
	Title  string
	Start  string
	Active bool
}

// Nav renders the sidebar links and position dots with activeID marked.
// An empty activeID marks nothing.
func Nav(sections []video.Section, activeID string) (template.HTML, error) {
	links := make([]NavLink, len(sections))
	for i, s := range sections {
		links[i] = NavLink{ID: s.ID, Title: s.Title, Start: s.StartLabel(), Active: s.ID == activeID}
	}
	return execute("nav", links)
}

// Comments renders a comment list, or the empty placeholder.
func Comments(comments []video.Comment) (template.HTML, error) {
	return execute("comments", comments)
}

// Chapters renders chapter markers.
func Chapters(chapters []video.Chapter) (template.HTML, error) {
	return execute("chapters", chapters)
}

// Frames renders extracted frames; failed frames show their error.
func Frames(frames []video.Frame) (template.HTML, error) {
	return execute("frames", frames)
}

// Mindmap renders the container the page's mermaid loader picks up.
func Mindmap(source, title string) (template.HTML, error) {
	return execute("mindmap", struct{ Source, Title string }{source, title})
}

// PDFPanel renders the download panel for a generated transcript.
func PDFPanel(filename, downloadURL string) (template.HTML, error) {
	return execute("pdf", struct{ Filename, URL string }{filename, downloadURL})
}

// Wiki renders the video summary and description as Markdown.
func Wiki(info video.Info) (template.HTML, error) {
	return execute("wiki", info)
}

// Loading renders the placeholder shown while a view populates.
func Loading(view string) template.HTML {
	m, err := execute("loading", view)
	if err != nil {
		return template.HTML(`<div class="loading">Loading…</div>`)
	}
	return m
}

// ErrorPanel renders a failure with a retry control posting to retryURL.
// Chat failures never reach here.
func ErrorPanel(err error, retryURL string) template.HTML {
	e := errors.As(err)
	data := struct {
		Code     string
		Message  string
		Hint     string
		RetryURL string
	}{Code: string(e.Code), Message: e.Message, RetryURL: retryURL}
	if hint, ok := e.Details["hint"].(string); ok {
		data.Hint = hint
	}
	m, execErr := execute("error", data)
	if execErr != nil {
		return template.HTML(`<div class="error-panel">` + EscapeText(e.Message) + `</div>`)
	}
	return m
}

// ChatMessage renders one chat bubble. Text is always escaped.
func ChatMessage(author, text string) (template.HTML, error) {
	return execute("chat-message", struct{ Author, Text string }{author, text})
}

// Emphasize escapes text and converts **x** to <strong>x</strong>.
// No other markup is interpreted.
func Emphasize(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	return template.HTML(boldRe.ReplaceAllString(escaped, "<strong>$1</strong>"))
}

// EscapeText escapes user-supplied text for insertion as HTML.
func EscapeText(s string) string {
	return template.HTMLEscapeString(s)
}

var (
	mdOnce sync.Once
	md     goldmark.Markdown
)

// Markdown converts trusted document text to HTML with goldmark.
// Raw HTML in the source is dropped by goldmark's default renderer.
func Markdown(src string) template.HTML {
	mdOnce.Do(func() { md = goldmark.New() })
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.NewInternal(fmt.Errorf("render %s: %w", name, err))
	}
	return template.HTML(strings.TrimSpace(buf.String())), nil
}

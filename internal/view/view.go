// Package view switches the content pane between the transcript and the
// auxiliary views (pdf, mindmap, comments, wiki).
package view

import (
	"context"
	"html/template"
	"math"
	"sync"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/render"
)

// View identifies a content pane mode.
type View string

const (
	Content  View = "content"
	PDF      View = "pdf"
	Mindmap  View = "mindmap"
	Comments View = "comments"
	Wiki     View = "wiki"
)

// Parse validates a view name.
func Parse(s string) (View, error) {
	switch v := View(s); v {
	case Content, PDF, Mindmap, Comments, Wiki:
		return v, nil
	default:
		return "", errors.NewValidation("unknown view").WithDetail("view", s)
	}
}

// Loader produces the markup of a view. It may block on the network.
type Loader func(ctx context.Context) (template.HTML, error)

// Ticket identifies one Enter call. Populate only applies the result of
// the most recent ticket.
type Ticket struct {
	View       View   `json:"view"`
	Generation uint64 `json:"generation"`
}

// Zoom bounds for the mindmap view.
const (
	ZoomStep = 1.2
	ZoomMin  = 0.3
	ZoomMax  = 3.0
)

// Switcher owns the content pane once the transcript has been rendered.
type Switcher struct {
	mu        sync.Mutex
	pane      *render.Pane
	loaders   map[View]Loader
	retryURL  func(View) string
	onRestore func()

	active   View
	snapshot template.HTML
	captured bool
	gen      uint64
	zoom     float64
}

// Option configures a Switcher.
type Option func(*Switcher)

// WithRestoreHook runs fn after the transcript is restored, for re-binding
// navigation over the fresh markup.
func WithRestoreHook(fn func()) Option {
	return func(s *Switcher) { s.onRestore = fn }
}

// WithRetryURL sets the retry target rendered in error panels.
func WithRetryURL(fn func(View) string) Option {
	return func(s *Switcher) { s.retryURL = fn }
}

// New returns a switcher in the content view.
func New(pane *render.Pane, loaders map[View]Loader, opts ...Option) *Switcher {
	s := &Switcher{
		pane:    pane,
		loaders: loaders,
		active:  Content,
		zoom:    1,
		retryURL: func(v View) string {
			return "/ui/view/" + string(v)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active returns the current view.
func (s *Switcher) Active() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Markup returns the pane's current markup.
func (s *Switcher) Markup() template.HTML {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pane.Markup()
}

// Update mutates the pane under the switcher's lock.
func (s *Switcher) Update(fn func(p *render.Pane)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.pane)
}

// Enter switches to v. Leaving the transcript for the first time captures
// it; the capture is never refreshed afterwards. Entering a non-content
// view shows a loading placeholder and returns the ticket to Populate.
// Entering content restores the capture and runs the restore hook.
func (s *Switcher) Enter(v View) (Ticket, error) {
	if _, err := Parse(string(v)); err != nil {
		return Ticket{}, err
	}

	s.mu.Lock()
	if v != Content {
		if _, ok := s.loaders[v]; !ok {
			s.mu.Unlock()
			return Ticket{}, errors.NewNotFound("view", string(v))
		}
	}

	s.gen++
	t := Ticket{View: v, Generation: s.gen}

	if v == Content {
		restored := false
		if s.active != Content && s.captured {
			s.pane.Replace(s.snapshot)
			restored = true
		}
		s.active = Content
		hook := s.onRestore
		s.mu.Unlock()
		if restored && hook != nil {
			hook()
		}
		return t, nil
	}

	if s.active == Content && !s.captured {
		s.snapshot = s.pane.Markup()
		s.captured = true
	}
	if v == Mindmap {
		s.zoom = 1
	}
	s.active = v
	s.pane.Replace(render.Loading(string(v)))
	s.mu.Unlock()
	return t, nil
}

// Populate runs the ticket's loader and writes its markup, or an error
// panel with a retry control. The write is skipped when another Enter
// happened since the ticket was issued; applied reports whether it was
// written. The loader error, if any, is returned for logging.
func (s *Switcher) Populate(ctx context.Context, t Ticket) (applied bool, err error) {
	if t.View == Content {
		return false, nil
	}

	s.mu.Lock()
	loader, ok := s.loaders[t.View]
	retry := s.retryURL(t.View)
	current := s.gen == t.Generation
	s.mu.Unlock()
	if !ok {
		return false, errors.NewNotFound("view", string(t.View))
	}
	if !current {
		return false, nil
	}

	markup, loadErr := loader(ctx)
	if loadErr != nil {
		markup = render.ErrorPanel(loadErr, retry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != t.Generation {
		return false, loadErr
	}
	s.pane.Replace(markup)
	return true, loadErr
}

// Zoom adjusts the mindmap scale with "in", "out" or "reset". It fails
// outside the mindmap view.
func (s *Switcher) Zoom(op string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != Mindmap {
		return 0, errors.NewValidation("zoom is only available in the mindmap view")
	}
	switch op {
	case "in":
		s.zoom = math.Min(s.zoom*ZoomStep, ZoomMax)
	case "out":
		s.zoom = math.Max(s.zoom/ZoomStep, ZoomMin)
	case "reset":
		s.zoom = 1
	default:
		return 0, errors.NewValidation("zoom op must be in, out or reset").WithDetail("op", op)
	}
	return s.zoom, nil
}

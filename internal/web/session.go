package web

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vidpage/vidpage/internal/chat"
	"github.com/vidpage/vidpage/internal/layout"
	"github.com/vidpage/vidpage/internal/nav"
	"github.com/vidpage/vidpage/internal/render"
	"github.com/vidpage/vidpage/internal/video"
	"github.com/vidpage/vidpage/internal/view"
)

const sessionCookie = "vidpage_session"

// Session is one browser tab's page state. mu guards nav; view, chat and
// layout lock themselves.
type Session struct {
	ID  string
	Doc *video.Document

	mu   sync.Mutex
	nav  *nav.Controller
	pane *render.Pane

	View   *view.Switcher
	Chat   *chat.Panel
	Layout *layout.Persistence

	pdfMu   sync.Mutex
	pdfName string
	pdfData []byte

	lastSeen time.Time
}

func (s *Session) setPDF(filename string, data []byte) {
	s.pdfMu.Lock()
	defer s.pdfMu.Unlock()
	s.pdfName, s.pdfData = filename, data
}

func (s *Session) cachedPDF() (string, []byte, bool) {
	s.pdfMu.Lock()
	defer s.pdfMu.Unlock()
	return s.pdfName, s.pdfData, s.pdfData != nil
}

// NavState returns the navigation state under the session lock.
func (s *Session) NavState() nav.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.State()
}

// withNav runs fn with the navigation controller locked.
func (s *Session) withNav(fn func(c *nav.Controller)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.nav)
}

// activeSectionID is the section shown in single mode, empty otherwise.
func (s *Session) activeSectionID() string {
	st := s.nav.State()
	if !st.Single {
		return ""
	}
	return st.CurrentSectionID
}

// markActiveSection re-renders the transcript so the current section
// carries the active class. Outside the content view the pane holds
// another view and is left alone.
func (s *Session) markActiveSection() error {
	if s.View.Active() != view.Content {
		return nil
	}
	s.mu.Lock()
	id := s.activeSectionID()
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	var err error
	s.View.Update(func(p *render.Pane) {
		err = render.RenderSections(p, s.Doc.Sections, id)
	})
	return err
}

// NavMarkup renders the sidebar for the current section.
func (s *Session) NavMarkup() (template.HTML, error) {
	return render.Nav(s.Doc.Sections, s.NavState().ActiveNavLinkID)
}

// newSession loads the document and builds every per-page component.
func (h *Handlers) newSession(ctx context.Context) (*Session, error) {
	doc, err := h.client.FetchDocument(ctx, h.cfg.VideoID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:   ulid.Make().String(),
		Doc:  doc,
		nav:  nav.New(h.cfg.RenderMode, h.cfg.AutoScroll()),
		pane: &render.Pane{},
	}
	s.nav.Bind(doc.SectionIDs())
	if err := render.RenderSections(s.pane, doc.Sections, s.activeSectionID()); err != nil {
		return nil, err
	}

	s.View = view.New(s.pane, h.loaders(s), view.WithRestoreHook(func() {
		s.withNav(func(c *nav.Controller) { c.Bind(doc.SectionIDs()) })
	}))

	s.Chat = chat.New(chat.Options{
		Responder:  h.client,
		LLMEnabled: h.cfg.LLMEnabled,
		Timeout:    h.cfg.ChatTimeout(),
		ReplyDelay: h.cfg.ChatReplyDelay(),
		Context:    doc.Context(),
	})

	s.Layout = layout.New(h.layoutStore, h.cfg.LayoutLeftDefault, h.cfg.LayoutRightDefault)
	if _, err := s.Layout.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Session store limits. Idle sessions expire after sessionIdleTTL; past
// maxSessions the least recently seen ones are evicted on put.
const (
	sessionIdleTTL = 2 * time.Hour
	maxSessions    = 1000
)

// sessionStore keeps sessions in memory, keyed by cookie.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*Session),
		ttl:      sessionIdleTTL,
		max:      maxSessions,
		now:      time.Now,
	}
}

func (st *sessionStore) get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if now.Sub(s.lastSeen) > st.ttl {
		delete(st.sessions, id)
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

func (st *sessionStore) put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	s.lastSeen = now
	st.sessions[s.ID] = s

	for id, old := range st.sessions {
		if now.Sub(old.lastSeen) > st.ttl {
			delete(st.sessions, id)
		}
	}
	for len(st.sessions) > st.max {
		var oldestID string
		var oldest time.Time
		for id, old := range st.sessions {
			if id == s.ID {
				continue
			}
			if oldestID == "" || old.lastSeen.Before(oldest) {
				oldestID, oldest = id, old.lastSeen
			}
		}
		if oldestID == "" {
			break
		}
		delete(st.sessions, oldestID)
	}
}

func (st *sessionStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// session returns the caller's session, creating one and setting the
// cookie when the request carries none or an unknown one.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := h.sessions.get(c.Value); ok {
			return s, nil
		}
	}

	s, err := h.newSession(r.Context())
	if err != nil {
		return nil, err
	}
	h.sessions.put(s)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
	return s, nil
}

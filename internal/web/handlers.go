package web

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidpage/vidpage/internal/chat"
	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/dataclient"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/layout"
	"github.com/vidpage/vidpage/internal/nav"
	"github.com/vidpage/vidpage/internal/render"
	"github.com/vidpage/vidpage/internal/seek"
	"github.com/vidpage/vidpage/internal/video"
	"github.com/vidpage/vidpage/internal/view"
)

// NoteStore saves per-section notes.
type NoteStore interface {
	GetNote(ctx context.Context, sectionID string) (string, error)
	PutNote(ctx context.Context, sectionID, text string) error
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	cfg         *config.Config
	client      dataclient.Client
	layoutStore layout.Store
	notes       NoteStore
	renderer    *Renderer
	sessions    *sessionStore
}

// loaders builds the view loaders for s.
func (h *Handlers) loaders(s *Session) map[view.View]view.Loader {
	videoID := s.Doc.Info.VideoID
	return map[view.View]view.Loader{
		view.PDF: func(ctx context.Context) (template.HTML, error) {
			data, filename, err := h.client.GeneratePDF(ctx)
			if err != nil {
				return "", err
			}
			s.setPDF(filename, data)
			return render.PDFPanel(filename, "/ui/pdf")
		},
		view.Mindmap: func(ctx context.Context) (template.HTML, error) {
			m, err := h.client.GenerateMindmap(ctx)
			if err != nil {
				return "", err
			}
			return render.Mindmap(m.Mermaid, m.VideoTitle)
		},
		view.Comments: func(ctx context.Context) (template.HTML, error) {
			comments, err := h.client.FetchComments(ctx, videoID, h.cfg.CommentsMaxResults)
			if err != nil {
				return "", err
			}
			return render.Comments(comments)
		},
		view.Wiki: func(ctx context.Context) (template.HTML, error) {
			wiki, err := render.Wiki(s.Doc.Info)
			if err != nil {
				return "", err
			}
			chapters, err := h.client.FetchChapters(ctx, videoID)
			if err != nil {
				// Chapters are optional on the wiki page.
				slog.Debug("chapters unavailable", "video_id", videoID, "error", err)
				return wiki, nil
			}
			list, err := render.Chapters(chapters)
			if err != nil {
				return "", err
			}
			return wiki + list, nil
		},
	}
}

// HandleIndex handles GET / and renders the full page.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := s.markActiveSection(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	navHTML, err := s.NavMarkup()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var bubbles []template.HTML
	for _, m := range s.Chat.Messages() {
		b, err := render.ChatMessage(string(m.Author), m.Text)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		bubbles = append(bubbles, b)
	}

	embed := seek.EmbedURL(s.Doc.Info.VideoID)
	if p, err := h.client.GetProgress(r.Context(), s.Doc.Info.VideoID); err == nil && p.Timestamp > 0 {
		if u, err := seek.WithStart(embed, video.SecondsFromFloat(p.Timestamp)); err == nil {
			embed = strings.Replace(u, "autoplay=1", "autoplay=0", 1)
		}
	}

	h.renderer.renderPage(w, r, "index", IndexPageData{
		PageData:   PageData{Title: s.Doc.Info.Title, Version: h.renderer.version},
		Info:       s.Doc.Info,
		Nav:        navHTML,
		Content:    s.View.Markup(),
		ActiveView: string(s.View.Active()),
		Views:      []string{string(view.Content), string(view.PDF), string(view.Mindmap), string(view.Comments), string(view.Wiki)},
		Mode:       h.cfg.RenderMode,
		AutoScroll: h.cfg.AutoScroll(),
		Single:     h.cfg.RenderMode == config.RenderSingle,
		EmbedURL:   embed,
		Layout:     s.Layout.State(),
		Chat:       bubbles,
		LLM:        h.cfg.LLMEnabled,
	})
}

// navigateEvent is the vidpage:navigate payload app.js applies.
type navigateEvent struct {
	SectionID string `json:"sectionId"`
	Scroll    bool   `json:"scroll"`
	Single    bool   `json:"single"`
	DotIndex  int    `json:"dotIndex"`
}

// respondNav writes the sidebar fragment and a navigate event for t.
// When the transcript is not showing it is restored out of band first.
func (h *Handlers) respondNav(w http.ResponseWriter, r *http.Request, s *Session, t nav.Transition) {
	var oob template.HTML
	if s.View.Active() != view.Content {
		if _, err := s.View.Enter(view.Content); err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		oob = `<div id="content-pane" hx-swap-oob="innerHTML">` + s.View.Markup() + `</div>`
	}

	navHTML, err := s.NavMarkup()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	st := s.NavState()
	events := map[string]any{
		"vidpage:navigate": navigateEvent{SectionID: t.To, Scroll: t.ScrollIntoView, Single: st.Single, DotIndex: st.DotIndex},
	}
	if oob != "" {
		events["vidpage:view"] = map[string]any{"view": view.Content}
	}
	trigger(w, events)
	writeHTML(w, http.StatusOK, navHTML, oob)
}

// HandleNavClick handles POST /ui/nav/click.
func (h *Handlers) HandleNavClick(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	var t nav.Transition
	s.withNav(func(c *nav.Controller) { t, err = c.Click(r.FormValue("id")) })
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondNav(w, r, s, t)
}

// HandleNavScroll handles POST /ui/nav/scroll. boxes is a JSON array of
// {id, top, bottom} measured by the page.
func (h *Handlers) HandleNavScroll(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	var boxes []nav.Box
	if err := json.Unmarshal([]byte(r.FormValue("boxes")), &boxes); err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("boxes must be a JSON array"))
		return
	}
	if s.View.Active() != view.Content {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var (
		t  nav.Transition
		ok bool
	)
	s.withNav(func(c *nav.Controller) { t, ok = c.Scroll(boxes) })
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respondNav(w, r, s, t)
}

// HandleNavPage handles POST /ui/nav/page with delta -1 or 1.
func (h *Handlers) HandleNavPage(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	delta, err := strconv.Atoi(r.FormValue("delta"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewValidation("delta must be an integer"))
		return
	}
	var (
		t  nav.Transition
		ok bool
	)
	s.withNav(func(c *nav.Controller) { t, ok = c.Page(delta) })
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respondNav(w, r, s, t)
}

// HandleView handles POST /ui/view/{view}: switch, populate, and return
// the pane. A response superseded by a later switch is dropped (204).
func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	v, err := view.Parse(chi.URLParam(r, "view"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	ticket, err := s.View.Enter(v)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	events := map[string]any{"vidpage:view": ticket}
	if v == view.Content {
		st := s.NavState()
		events["vidpage:navigate"] = navigateEvent{SectionID: st.CurrentSectionID, Scroll: true, Single: st.Single, DotIndex: st.DotIndex}
	} else {
		applied, loadErr := s.View.Populate(r.Context(), ticket)
		if loadErr != nil {
			slog.Warn("view load failed", "view", v, "error", loadErr)
		}
		if !applied {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	trigger(w, events)
	writeHTML(w, http.StatusOK, s.View.Markup())
}

// HandlePDF handles GET /ui/pdf and serves the PDF the pdf view built.
func (h *Handlers) HandlePDF(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	filename, data, ok := s.cachedPDF()
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("pdf", "session"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleZoom handles POST /ui/mindmap/zoom.
func (h *Handlers) HandleZoom(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	scale, err := s.View.Zoom(r.FormValue("op"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	trigger(w, map[string]any{"vidpage:zoom": map[string]float64{"scale": scale}})
	w.WriteHeader(http.StatusNoContent)
}

// HandleChat handles POST /ui/chat and returns the new bubbles. A send
// superseded by a newer one returns only the user's bubble.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	text := strings.TrimSpace(r.FormValue("message"))
	if text == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	reply, err := s.Chat.Send(r.Context(), text)
	if err != nil {
		slog.Debug("chat send abandoned", "error", err)
	}

	user, err := render.ChatMessage(string(chat.User), text)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	parts := []template.HTML{user}
	if reply != nil {
		bot, err := render.ChatMessage(string(reply.Author), reply.Text)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		parts = append(parts, bot)
	}
	writeHTML(w, http.StatusOK, parts...)
}

// HandleChatDrop handles POST /ui/chat/drop, inserting dragged transcript
// text into the chat input at the caret.
func (h *Handlers) HandleChatDrop(w http.ResponseWriter, r *http.Request) {
	caret, _ := strconv.Atoi(r.FormValue("caret"))
	value, next := chat.InsertAtCaret(r.FormValue("input"), caret, r.FormValue("text"))
	renderJSON(w, http.StatusOK, map[string]any{"value": value, "caret": next})
}

// HandleLayout handles POST /ui/layout when a divider drag ends.
func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	side, err := layout.ParseSide(r.FormValue("side"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	x, errX := strconv.ParseFloat(r.FormValue("x"), 64)
	width, errW := strconv.ParseFloat(r.FormValue("width"), 64)
	if errX != nil || errW != nil || width <= 0 {
		h.renderer.renderError(w, r, errors.NewValidation("x and width must be numbers"))
		return
	}

	if err := s.Layout.StartDrag(side); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	s.Layout.UpdateDrag(x, width)
	state, err := s.Layout.EndDrag(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, state)
}

// HandleSeek handles POST /ui/seek. The page reports its player through
// X-Player-Caps, X-Player-Playing and X-Player-Src; the reply carries the
// commands to run in a vidpage:player event.
func (h *Handlers) HandleSeek(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	ports := &playerPorts{
		playing: r.Header.Get("X-Player-Playing") == "true",
		src:     r.Header.Get("X-Player-Src"),
	}
	if ports.src == "" {
		ports.src = seek.EmbedURL(s.Doc.Info.VideoID)
	}
	seconds := seek.Seconds(r.FormValue("timestamp"))
	method, err := ports.controller(r.Header.Get("X-Player-Caps")).SeekTo(seconds)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if _, err := h.client.PutProgress(r.Context(), s.Doc.Info.VideoID, float64(seconds)); err != nil {
		slog.Warn("save progress failed", "video_id", s.Doc.Info.VideoID, "error", err)
	}

	trigger(w, map[string]any{"vidpage:player": map[string]any{
		"method":   method,
		"seconds":  seconds,
		"commands": ports.commands,
	}})
	w.WriteHeader(http.StatusNoContent)
}

// HandleComment handles POST /ui/comments and refreshes the comments view.
func (h *Handlers) HandleComment(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if _, err := h.client.PostComment(r.Context(), s.Doc.Info.VideoID, r.FormValue("comment"), r.FormValue("author")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	ticket, err := s.View.Enter(view.Comments)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if _, err := s.View.Populate(r.Context(), ticket); err != nil {
		slog.Warn("comments reload failed", "error", err)
	}
	writeHTML(w, http.StatusOK, s.View.Markup())
}

// HandleNoteGet handles GET /ui/notes/{section}.
func (h *Handlers) HandleNoteGet(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "section")
	text, err := h.notes.GetNote(r.Context(), sectionID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderBlock(w, http.StatusOK, "index", "note", NoteData{SectionID: sectionID, Text: text})
}

// HandleNotePut handles POST /ui/notes/{section}.
func (h *Handlers) HandleNotePut(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "section")
	text := r.FormValue("note")
	if err := h.notes.PutNote(r.Context(), sectionID, text); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderBlock(w, http.StatusOK, "index", "note", NoteData{SectionID: sectionID, Text: text, Saved: true})
}

// HandleSearch handles GET /ui/search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	data := SearchData{Query: q}
	if q != "" {
		results, err := h.client.Search(r.Context(), q)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Results = results
	}
	h.renderer.renderBlock(w, http.StatusOK, "index", "search-results", data)
}

// HandleFrames handles POST /ui/frames with comma-separated timestamps.
func (h *Handlers) HandleFrames(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	var timestamps []int
	for _, part := range strings.Split(r.FormValue("timestamps"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			timestamps = append(timestamps, seek.Seconds(part))
		}
	}
	if len(timestamps) == 0 {
		h.renderer.renderError(w, r, errors.NewValidation("timestamps are required"))
		return
	}
	frames, err := h.client.ExtractFrames(r.Context(), s.Doc.Info.VideoID, timestamps)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	markup, err := render.Frames(frames)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, markup)
}

package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/dataclient"
	"github.com/vidpage/vidpage/internal/layout"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options wires the UI to its collaborators.
type Options struct {
	Config  *config.Config
	Client  dataclient.Client
	Layout  layout.Store
	Notes   NoteStore
	Version string
	// API, when set, is mounted for /api/* on the same listener.
	API func(r chi.Router)
}

// NewHandlers builds the UI handlers.
func NewHandlers(opts Options) *Handlers {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic("web: template sub-FS: " + err.Error())
	}
	return &Handlers{
		cfg:          opts.Config,
		client:       opts.Client,
		layoutStore:  opts.Layout,
		notes:        opts.Notes,
		renderer:     NewRenderer(templateSub, opts.Version),
		sessions:     newSessionStore(),
	}
}

// NewRouter returns the page, the /ui fragment routes and static files.
func NewRouter(opts Options) chi.Router {
	h := NewHandlers(opts)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: static sub-FS: " + err.Error())
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	if opts.API != nil {
		opts.API(r)
	}

	r.Get("/", h.HandleIndex)
	r.Route("/ui", func(r chi.Router) {
		r.Post("/nav/click", h.HandleNavClick)
		r.Post("/nav/scroll", h.HandleNavScroll)
		r.Post("/nav/page", h.HandleNavPage)
		r.Post("/view/{view}", h.HandleView)
		r.Get("/pdf", h.HandlePDF)
		r.Post("/mindmap/zoom", h.HandleZoom)
		r.Post("/chat", h.HandleChat)
		r.Post("/chat/drop", h.HandleChatDrop)
		r.Post("/layout", h.HandleLayout)
		r.Post("/seek", h.HandleSeek)
		r.Post("/comments", h.HandleComment)
		r.Get("/notes/{section}", h.HandleNoteGet)
		r.Post("/notes/{section}", h.HandleNotePut)
		r.Get("/search", h.HandleSearch)
		r.Post("/frames", h.HandleFrames)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	return r
}

// NewServer creates the HTTP server for the page.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; "+
			"script-src 'self' https://unpkg.com https://cdn.jsdelivr.net https://www.youtube.com; "+
			"style-src 'self' 'unsafe-inline'; "+
			"img-src 'self' https: data:; "+
			"frame-src https://www.youtube.com; "+
			"connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("vidpage running", "url", "http://"+srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		slog.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts every /api route on a chi router.
func NewRouter(svc *Service, version string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(corsHandler)
	Mount(r, NewHandlers(svc, version))
	return r
}

// Mount registers the API routes on r.
func Mount(r chi.Router, h *Handlers) {
	r.Get("/api/health", h.Health)
	r.Get("/api/videos", h.ListVideos)
	r.Route("/api/videos/{id}", func(r chi.Router) {
		r.Get("/", h.GetVideo)
		r.Get("/comments", h.ListComments)
		r.Post("/comments", h.PostComment)
		r.Get("/progress", h.GetProgress)
		r.Put("/progress", h.PutProgress)
	})
	r.Get("/api/search", h.Search)
	r.Post("/api/chat", h.Chat)
	r.Get("/api/generate-mindmap", h.GenerateMindmap)
	r.Get("/api/generate-pdf", h.GeneratePDF)
	r.Get("/api/video-frame/{id}", h.Frame)
	r.Post("/api/video-frames/{id}", h.Frames)
	r.Get("/api/video-chapters/{id}", h.Chapters)
	r.Get("/api/video-info/{id}", h.VideoInfo)
}

// NewHandlers returns handlers over svc.
func NewHandlers(svc *Service, version string) *Handlers {
	return &Handlers{svc: svc, version: version, now: time.Now}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func slogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// corsHandler allows any origin; browsers read the PDF filename from
// Content-Disposition.
var corsHandler = cors.Handler(cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
	AllowedHeaders: []string{"Content-Type"},
	ExposedHeaders: []string{"Content-Disposition"},
	MaxAge:         300,
})

// Register mounts the API and its middleware on an existing router.
func Register(r chi.Router, svc *Service, version string) {
	r.Group(func(r chi.Router) {
		r.Use(slogMiddleware)
		r.Use(corsHandler)
		Mount(r, NewHandlers(svc, version))
	})
}

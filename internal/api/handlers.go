package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
	"github.com/vidpage/vidpage/internal/youtube"
)

// ChatFallback is the response text sent with a failed chat request.
const ChatFallback = "Sorry, please try again later."

// Handlers holds the HTTP handlers for the API.
type Handlers struct {
	svc     *Service
	version string
	now     func() time.Time
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().Format(time.RFC3339),
		"version":   h.version,
	})
}

func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListVideos(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.FetchDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))

	comments, err := h.svc.FetchComments(r.Context(), videoID, maxResults)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"videoId":  videoID,
		"comments": comments,
		"total":    len(comments),
	})
}

type postCommentRequest struct {
	Comment string `json:"comment"`
	Author  string `json:"author"`
}

func (h *Handlers) PostComment(w http.ResponseWriter, r *http.Request) {
	var req postCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.PostComment(r.Context(), chi.URLParam(r, "id"), req.Comment, req.Author)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) PutProgress(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	raw, ok := body["timestamp"]
	if !ok {
		writeError(w, errors.NewValidation("timestamp is required"))
		return
	}
	seconds, ok := raw.(float64)
	if !ok {
		writeError(w, errors.NewValidation("invalid timestamp"))
		return
	}
	p, err := h.svc.PutProgress(r.Context(), chi.URLParam(r, "id"), seconds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "progress": p})
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "total": len(results)})
}

type chatRequest struct {
	Message      string                `json:"message"`
	History      []video.ChatTurn      `json:"history"`
	VideoContext *video.ContextPayload `json:"video_context"`
}

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Message == "" {
		writeError(w, errors.NewValidation("message is required"))
		return
	}
	reply, err := h.svc.Chat(r.Context(), req.Message, req.History, req.VideoContext)
	if err != nil {
		e := errors.As(err)
		slog.Error("chat failed", "code", e.Code, "error", e.Message)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":  false,
			"error":    e.Message,
			"response": ChatFallback,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"response":  reply,
		"timestamp": h.now().Format(time.RFC3339),
	})
}

func (h *Handlers) GenerateMindmap(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GenerateMindmap(r.Context())
	if err != nil {
		e := errors.As(err)
		slog.Error("mindmap generation failed", "code", e.Code, "error", e.Message)
		hint, _ := e.Details["hint"].(string)
		if hint == "" {
			hint = "Please try again later."
		}
		writeJSON(w, e.Status, map[string]any{
			"success": false,
			"error":   string(e.Code),
			"message": e.Message,
			"hint":    hint,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"mermaid":    m.Mermaid,
		"videoTitle": m.VideoTitle,
	})
}

func (h *Handlers) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.svc.GeneratePDF(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) Frame(w http.ResponseWriter, r *http.Request) {
	seconds, _ := strconv.Atoi(r.URL.Query().Get("timestamp"))
	data, err := h.svc.Frame(r.Context(), chi.URLParam(r, "id"), seconds)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type framesRequest struct {
	Timestamps json.RawMessage `json:"timestamps"`
}

func (h *Handlers) Frames(w http.ResponseWriter, r *http.Request) {
	var req framesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Timestamps) == 0 || string(req.Timestamps) == "null" {
		writeError(w, errors.NewValidation("timestamps array is required"))
		return
	}
	var raw []float64
	if err := json.Unmarshal(req.Timestamps, &raw); err != nil {
		writeError(w, errors.NewValidation("timestamps must be an array of numbers"))
		return
	}
	timestamps := make([]int, len(raw))
	for i, v := range raw {
		timestamps[i] = video.SecondsFromFloat(v)
	}

	videoID := chi.URLParam(r, "id")
	frames, err := h.svc.ExtractFrames(r.Context(), videoID, timestamps)
	if err != nil {
		writeError(w, err)
		return
	}
	ok := 0
	for _, f := range frames {
		if f.Success {
			ok++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"videoId":      videoID,
		"frames":       frames,
		"total":        len(frames),
		"successCount": ok,
	})
}

func (h *Handlers) Chapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.svc.FetchChapters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"chapters": chapters,
		"total":    len(chapters),
	})
}

type videoInfoResponse struct {
	Success bool `json:"success"`
	*youtube.VideoInfo
}

func (h *Handlers) VideoInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.VideoInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videoInfoResponse{Success: true, VideoInfo: info})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v); err != nil {
		return errors.NewValidation("request body must be valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to its status and writes {success, error, code}.
// Internal errors are logged with their cause and reported generically.
func writeError(w http.ResponseWriter, err error) {
	e := errors.As(err)
	if e.Code == errors.ErrInternal {
		slog.Error("request failed", "error", e.Details["internal_error"])
	}
	body := map[string]any{
		"success": false,
		"error":   e.Message,
		"code":    string(e.Code),
	}
	if hint, ok := e.Details["hint"].(string); ok {
		body["hint"] = hint
	}
	writeJSON(w, e.Status, body)
}

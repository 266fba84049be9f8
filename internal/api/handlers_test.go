package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vidpage/vidpage/internal/db"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
	"github.com/vidpage/vidpage/internal/youtube"
)

const testDoc = `{
  "videoInfo": {"videoId": "vid1", "title": "Keynote", "description": "desc", "thumbnail": "t.jpg"},
  "sections": [
    {"id": "s1", "title": "Intro", "timestampStart": "00:00", "timestampEnd": "01:00", "content": "Welcome to the accelerated computing keynote."},
    {"id": "s2", "title": "Quantum", "content": [{"content": "Quantum error correction.", "timestampStart": 61}]}
  ]
}`

type fakeAI struct {
	reply   string
	mermaid string
	err     error
	history []video.ChatTurn
}

func (f *fakeAI) Chat(_ context.Context, _ string, history []video.ChatTurn, _ *video.ContextPayload) (string, error) {
	f.history = history
	return f.reply, f.err
}

func (f *fakeAI) Mindmap(_ context.Context, _ *video.Document) (string, error) {
	return f.mermaid, f.err
}

type fakeYouTube struct {
	description string
	comments    []video.Comment
}

func (f *fakeYouTube) Configured() bool { return true }

func (f *fakeYouTube) Comments(_ context.Context, _ string, n int) ([]video.Comment, error) {
	if n < len(f.comments) {
		return f.comments[:n], nil
	}
	return f.comments, nil
}

func (f *fakeYouTube) Info(_ context.Context, id string) (*youtube.VideoInfo, error) {
	return &youtube.VideoInfo{VideoID: id, Title: "Keynote", Description: f.description}, nil
}

type fakeFrames struct{}

func (fakeFrames) Frame(_ context.Context, id string, s int) ([]byte, error) {
	if s == 13 {
		return nil, errors.NewUpstream("ffmpeg", fmt.Errorf("boom"))
	}
	return []byte{0xff, 0xd8, byte(s)}, nil
}

func (f fakeFrames) Batch(ctx context.Context, id string, ts []int) []video.Frame {
	out := make([]video.Frame, 0, len(ts))
	for _, s := range ts {
		if _, err := f.Frame(ctx, id, s); err != nil {
			out = append(out, video.Frame{Timestamp: s, Error: err.Error()})
			continue
		}
		out = append(out, video.Frame{Timestamp: s, Success: true, URL: fmt.Sprintf("/api/video-frame/%s?timestamp=%d", id, s)})
	}
	return out
}

type fakePDF struct{}

func (fakePDF) Generate(doc *video.Document) ([]byte, string, error) {
	return []byte("%PDF-1.3"), doc.Info.Title + "_20250101_000000.pdf", nil
}

func setupService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Init(dir)
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	dataFile := filepath.Join(dir, "video-data.json")
	if err := os.WriteFile(dataFile, []byte(testDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	return &Service{
		DB:       database,
		DataFile: dataFile,
		YouTube: &fakeYouTube{
			description: "Chapters\n0:00 Intro\n1:01 Quantum",
			comments:    []video.Comment{{ID: "yt1", Author: "Ann", Text: "great", Source: "youtube"}},
		},
		AI:           &fakeAI{reply: "It is a keynote.", mermaid: "mindmap\n  root((Keynote))"},
		Frames:       fakeFrames{},
		PDF:          fakePDF{},
		CommentLimit: 20,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	h := NewRouter(setupService(t), "1.2.3")
	w := do(t, h, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "ok" || body["version"] != "1.2.3" || body["timestamp"] == "" {
		t.Errorf("health = %v", body)
	}
}

func TestCORS(t *testing.T) {
	h := NewRouter(setupService(t), "dev")

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Disposition") {
		t.Errorf("Expose-Headers = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/videos/vid1/progress", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code >= 300 {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestVideos(t *testing.T) {
	h := NewRouter(setupService(t), "dev")

	w := do(t, h, "GET", "/api/videos", "")
	var list []video.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].VideoID != "vid1" {
		t.Fatalf("list = %s, %v", w.Body.String(), err)
	}

	w = do(t, h, "GET", "/api/videos/anything", "")
	doc, err := video.Parse(w.Body.Bytes())
	if err != nil {
		t.Fatalf("document did not round trip: %v", err)
	}
	if len(doc.Sections) != 2 || doc.Sections[1].Content.Kind != video.Timed {
		t.Errorf("document = %+v", doc)
	}
}

func TestComments(t *testing.T) {
	h := NewRouter(setupService(t), "dev")

	w := do(t, h, "POST", "/api/videos/vid1/comments", `{"comment": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank comment status = %d, want 400", w.Code)
	}

	w = do(t, h, "POST", "/api/videos/vid1/comments", `{"comment": "first!"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("post status = %d: %s", w.Code, w.Body.String())
	}
	if c := decode(t, w); c["author"] != "Anonymous" || c["text"] != "first!" {
		t.Errorf("posted = %v", c)
	}

	w = do(t, h, "GET", "/api/videos/vid1/comments?maxResults=5", "")
	body := decode(t, w)
	if body["success"] != true || body["videoId"] != "vid1" || body["total"] != float64(2) {
		t.Fatalf("list = %v", body)
	}
	comments := body["comments"].([]any)
	if comments[0].(map[string]any)["source"] != "local" || comments[1].(map[string]any)["source"] != "youtube" {
		t.Errorf("comment order = %v", comments)
	}
}

func TestProgress(t *testing.T) {
	h := NewRouter(setupService(t), "dev")

	if body := decode(t, do(t, h, "GET", "/api/videos/vid1/progress", "")); body["timestamp"] != float64(0) {
		t.Errorf("default progress = %v", body)
	}

	for _, bad := range []string{`{}`, `{"timestamp": "12"}`, `not json`} {
		if w := do(t, h, "PUT", "/api/videos/vid1/progress", bad); w.Code != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want 400", bad, w.Code)
		}
	}

	w := do(t, h, "PUT", "/api/videos/vid1/progress", `{"timestamp": 42.5}`)
	body := decode(t, w)
	if body["success"] != true || body["progress"].(map[string]any)["timestamp"] != 42.5 {
		t.Errorf("PUT = %v", body)
	}
	if body := decode(t, do(t, h, "GET", "/api/videos/vid1/progress", "")); body["timestamp"] != 42.5 {
		t.Errorf("stored progress = %v", body)
	}
}

func TestSearch(t *testing.T) {
	h := NewRouter(setupService(t), "dev")

	if w := do(t, h, "GET", "/api/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d", w.Code)
	}
	body := decode(t, do(t, h, "GET", "/api/search?q=quantum", ""))
	if body["total"] != float64(1) {
		t.Fatalf("search = %v", body)
	}
	r := body["results"].([]any)[0].(map[string]any)
	if r["sectionId"] != "s2" || r["videoId"] != "vid1" {
		t.Errorf("result = %v", r)
	}
}

func TestChat(t *testing.T) {
	svc := setupService(t)
	h := NewRouter(svc, "dev")

	if w := do(t, h, "POST", "/api/chat", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing message status = %d", w.Code)
	}

	body := decode(t, do(t, h, "POST", "/api/chat", `{"message": "what?", "video_context": {"videoId": "vid1"}}`))
	if body["success"] != true || body["response"] != "It is a keynote." {
		t.Errorf("chat = %v", body)
	}

	ai := &fakeAI{reply: "At 02:54."}
	svc.AI = ai
	do(t, h, "POST", "/api/chat", `{"message": "when?", "history": [{"role": "user", "content": "what?"}, {"role": "assistant", "content": "A keynote."}]}`)
	if len(ai.history) != 2 || ai.history[1] != (video.ChatTurn{Role: "assistant", Content: "A keynote."}) {
		t.Errorf("history = %+v", ai.history)
	}

	svc.AI = &fakeAI{err: errors.NewUpstream("openai", fmt.Errorf("quota exceeded"))}
	w := do(t, h, "POST", "/api/chat", `{"message": "what?"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("upstream failure status = %d", w.Code)
	}
	if body := decode(t, w); body["response"] != ChatFallback {
		t.Errorf("fallback = %v", body)
	}
}

func TestMindmap(t *testing.T) {
	svc := setupService(t)
	h := NewRouter(svc, "dev")

	body := decode(t, do(t, h, "GET", "/api/generate-mindmap", ""))
	if body["success"] != true || body["videoTitle"] != "Keynote" || !strings.HasPrefix(body["mermaid"].(string), "mindmap") {
		t.Errorf("mindmap = %v", body)
	}

	svc.AI = &fakeAI{err: errors.NewValidation("AI returned empty content").WithDetail("hint", "Try again.")}
	w := do(t, h, "GET", "/api/generate-mindmap", "")
	body = decode(t, w)
	if body["success"] != false || body["hint"] != "Try again." || body["message"] != "AI returned empty content" {
		t.Errorf("failure = %v", body)
	}
}

func TestGeneratePDF(t *testing.T) {
	w := do(t, NewRouter(setupService(t), "dev"), "GET", "/api/generate-pdf", "")
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	disp, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	if err != nil || disp != "attachment" || params["filename"] != "Keynote_20250101_000000.pdf" {
		t.Errorf("disposition = %q %v %v", disp, params, err)
	}
}

func TestFrames(t *testing.T) {
	h := NewRouter(setupService(t), "dev")

	w := do(t, h, "GET", "/api/video-frame/vid1?timestamp=7", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" || w.Body.Bytes()[2] != 7 {
		t.Errorf("frame = %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	if w := do(t, h, "POST", "/api/video-frames/vid1", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing timestamps status = %d", w.Code)
	}
	if w := do(t, h, "POST", "/api/video-frames/vid1", `{"timestamps": "10"}`); w.Code != http.StatusBadRequest {
		t.Errorf("non-array timestamps status = %d", w.Code)
	}

	body := decode(t, do(t, h, "POST", "/api/video-frames/vid1", `{"timestamps": [10, 13, 30.9]}`))
	if body["total"] != float64(3) || body["successCount"] != float64(2) {
		t.Fatalf("batch = %v", body)
	}
	last := body["frames"].([]any)[2].(map[string]any)
	if last["timestamp"] != float64(30) || last["url"] != "/api/video-frame/vid1?timestamp=30" {
		t.Errorf("frame = %v", last)
	}
}

func TestChapters(t *testing.T) {
	svc := setupService(t)
	h := NewRouter(svc, "dev")

	body := decode(t, do(t, h, "GET", "/api/video-chapters/vid1", ""))
	if body["total"] != float64(2) {
		t.Fatalf("chapters = %v", body)
	}
	second := body["chapters"].([]any)[1].(map[string]any)
	if second["timestamp"] != float64(61) || second["title"] != "Quantum" {
		t.Errorf("chapter = %v", second)
	}

	svc.YouTube = &fakeYouTube{description: "no chapters here"}
	if w := do(t, h, "GET", "/api/video-chapters/vid1", ""); w.Code != http.StatusNotFound {
		t.Errorf("no chapters status = %d, want 404", w.Code)
	}
}

func TestVideoInfo(t *testing.T) {
	body := decode(t, do(t, NewRouter(setupService(t), "dev"), "GET", "/api/video-info/vid1", ""))
	if body["success"] != true || body["videoId"] != "vid1" || body["title"] != "Keynote" {
		t.Errorf("info = %v", body)
	}
}

func TestVideoInfo_NoKey(t *testing.T) {
	svc := setupService(t)
	svc.YouTube = nil
	w := do(t, NewRouter(svc, "dev"), "GET", "/api/video-info/vid1", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if body := decode(t, w); body["code"] != "UPSTREAM" || body["hint"] == nil {
		t.Errorf("body = %v", body)
	}
}

// Package dataclient is how the page reaches the backend: over HTTP when
// an API base URL is configured, or in-process with the document read
// straight from disk.
package dataclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/llm"
	"github.com/vidpage/vidpage/internal/video"
)

// DefaultTimeout bounds one HTTP request.
const DefaultTimeout = 60 * time.Second

// Client is every backend call the page makes.
type Client interface {
	FetchDocument(ctx context.Context, videoID string) (*video.Document, error)
	FetchComments(ctx context.Context, videoID string, maxResults int) ([]video.Comment, error)
	PostComment(ctx context.Context, videoID, text, author string) (*video.Comment, error)
	GetProgress(ctx context.Context, videoID string) (*video.Progress, error)
	PutProgress(ctx context.Context, videoID string, seconds float64) (*video.Progress, error)
	FetchChapters(ctx context.Context, videoID string) ([]video.Chapter, error)
	ExtractFrames(ctx context.Context, videoID string, timestamps []int) ([]video.Frame, error)
	GenerateMindmap(ctx context.Context) (*video.Mindmap, error)
	GeneratePDF(ctx context.Context) ([]byte, string, error)
	Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error)
	Search(ctx context.Context, q string) ([]video.SearchResult, error)
}

// HTTPClient calls the JSON API at a base URL.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient returns a client for baseURL. A nil hc uses a client
// with DefaultTimeout.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

func (c *HTTPClient) FetchDocument(ctx context.Context, videoID string) (*video.Document, error) {
	data, _, err := c.raw(ctx, http.MethodGet, "/api/videos/"+url.PathEscape(videoID), nil)
	if err != nil {
		return nil, err
	}
	return video.Parse(data)
}

func (c *HTTPClient) FetchComments(ctx context.Context, videoID string, maxResults int) ([]video.Comment, error) {
	path := "/api/videos/" + url.PathEscape(videoID) + "/comments"
	if maxResults > 0 {
		path += "?maxResults=" + strconv.Itoa(maxResults)
	}
	var resp struct {
		Comments []video.Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Comments == nil {
		resp.Comments = []video.Comment{}
	}
	return resp.Comments, nil
}

func (c *HTTPClient) PostComment(ctx context.Context, videoID, text, author string) (*video.Comment, error) {
	body := map[string]string{"comment": text}
	if author != "" {
		body["author"] = author
	}
	var out video.Comment
	if err := c.do(ctx, http.MethodPost, "/api/videos/"+url.PathEscape(videoID)+"/comments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetProgress(ctx context.Context, videoID string) (*video.Progress, error) {
	var out video.Progress
	if err := c.do(ctx, http.MethodGet, "/api/videos/"+url.PathEscape(videoID)+"/progress", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PutProgress(ctx context.Context, videoID string, seconds float64) (*video.Progress, error) {
	var resp struct {
		Progress video.Progress `json:"progress"`
	}
	body := map[string]float64{"timestamp": seconds}
	if err := c.do(ctx, http.MethodPut, "/api/videos/"+url.PathEscape(videoID)+"/progress", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Progress, nil
}

func (c *HTTPClient) FetchChapters(ctx context.Context, videoID string) ([]video.Chapter, error) {
	var resp struct {
		Chapters []video.Chapter `json:"chapters"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/video-chapters/"+url.PathEscape(videoID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chapters, nil
}

func (c *HTTPClient) ExtractFrames(ctx context.Context, videoID string, timestamps []int) ([]video.Frame, error) {
	var resp struct {
		Frames []video.Frame `json:"frames"`
	}
	body := map[string][]int{"timestamps": timestamps}
	if err := c.do(ctx, http.MethodPost, "/api/video-frames/"+url.PathEscape(videoID), body, &resp); err != nil {
		return nil, err
	}
	return resp.Frames, nil
}

// GenerateMindmap fetches mermaid source. A body with success:false, or
// mermaid that is empty or "undefined" after fence stripping, is an error
// even with a 200 status.
func (c *HTTPClient) GenerateMindmap(ctx context.Context) (*video.Mindmap, error) {
	var out struct {
		Success    *bool  `json:"success"`
		Mermaid    string `json:"mermaid"`
		VideoTitle string `json:"videoTitle"`
		Error      string `json:"error"`
		Message    string `json:"message"`
		Hint       string `json:"hint"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/generate-mindmap", nil, &out); err != nil {
		return nil, err
	}

	if out.Success != nil && !*out.Success {
		msg := out.Message
		if msg == "" {
			msg = "mindmap generation failed"
		}
		hint := out.Hint
		if hint == "" {
			hint = llm.Hint(msg)
		}
		return nil, errors.NewValidation(msg).
			WithDetail("error", out.Error).
			WithDetail("hint", hint)
	}

	source := llm.StripFences(out.Mermaid)
	if source == "" || source == "undefined" {
		return nil, errors.NewValidation("AI returned empty content").
			WithDetail("hint", llm.Hint("empty response"))
	}
	return &video.Mindmap{Mermaid: source, VideoTitle: out.VideoTitle}, nil
}

// GeneratePDF downloads the PDF. The filename comes from Content-Disposition.
func (c *HTTPClient) GeneratePDF(ctx context.Context) ([]byte, string, error) {
	data, header, err := c.raw(ctx, http.MethodGet, "/api/generate-pdf", nil)
	if err != nil {
		return nil, "", err
	}
	return data, Filename(header.Get("Content-Disposition"), "video.pdf"), nil
}

func (c *HTTPClient) Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error) {
	body := map[string]any{"message": message}
	if len(history) > 0 {
		body["history"] = history
	}
	if vc != nil {
		body["video_context"] = vc
	}
	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *HTTPClient) Search(ctx context.Context, q string) ([]video.SearchResult, error) {
	var resp struct {
		Results []video.SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(q), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// do sends a JSON request and decodes a JSON response into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	data, _, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewParse("response from "+path, err)
	}
	return nil
}

func (c *HTTPClient) raw(ctx context.Context, method, path string, body any) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, errors.NewInternal(err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, errors.NewNetwork(err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, nil, errors.NewTimeout(method + " " + path)
		}
		var uerr *url.Error
		if stderrors.As(err, &uerr) && uerr.Timeout() {
			return nil, nil, errors.NewTimeout(method + " " + path)
		}
		return nil, nil, errors.NewNetwork(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.NewNetwork(err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, statusError(path, resp.StatusCode, data)
	}
	return data, resp.Header, nil
}

// statusError maps a non-2xx response to an *errors.Error, keeping the
// server's message, status and hint in Details.
func statusError(path string, status int, body []byte) *errors.Error {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Hint    string `json:"hint"`
	}
	_ = json.Unmarshal(body, &payload)

	msg := payload.Message
	if s, ok := payload.Error.(string); ok && s != "" && msg == "" {
		msg = s
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var e *errors.Error
	switch status {
	case http.StatusNotFound:
		e = errors.NewNotFound("resource", path)
	case http.StatusBadRequest:
		e = errors.NewValidation(msg)
	default:
		e = errors.NewNetwork(fmt.Sprintf("server returned %d: %s", status, msg))
	}
	e.WithDetail("status", status).WithDetail("message", msg)
	if payload.Hint != "" {
		e.WithDetail("hint", payload.Hint)
	}
	return e
}

// Filename extracts the attachment filename from a Content-Disposition
// header, or returns fallback.
func Filename(disposition, fallback string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}

// LocalClient reads the document from a JSON file and sends every other
// call to Backend.
type LocalClient struct {
	Path    string
	Backend Client
}

func (c *LocalClient) FetchDocument(_ context.Context, _ string) (*video.Document, error) {
	return video.LoadFile(c.Path)
}

func (c *LocalClient) backend() (Client, error) {
	if c.Backend == nil {
		return nil, errors.NewNetwork("no backend configured")
	}
	return c.Backend, nil
}

func (c *LocalClient) FetchComments(ctx context.Context, videoID string, maxResults int) ([]video.Comment, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.FetchComments(ctx, videoID, maxResults)
}

func (c *LocalClient) PostComment(ctx context.Context, videoID, text, author string) (*video.Comment, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.PostComment(ctx, videoID, text, author)
}

func (c *LocalClient) GetProgress(ctx context.Context, videoID string) (*video.Progress, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.GetProgress(ctx, videoID)
}

func (c *LocalClient) PutProgress(ctx context.Context, videoID string, seconds float64) (*video.Progress, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.PutProgress(ctx, videoID, seconds)
}

func (c *LocalClient) FetchChapters(ctx context.Context, videoID string) ([]video.Chapter, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.FetchChapters(ctx, videoID)
}

func (c *LocalClient) ExtractFrames(ctx context.Context, videoID string, timestamps []int) ([]video.Frame, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.ExtractFrames(ctx, videoID, timestamps)
}

func (c *LocalClient) GenerateMindmap(ctx context.Context) (*video.Mindmap, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.GenerateMindmap(ctx)
}

func (c *LocalClient) GeneratePDF(ctx context.Context) ([]byte, string, error) {
	b, err := c.backend()
	if err != nil {
		return nil, "", err
	}
	return b.GeneratePDF(ctx)
}

func (c *LocalClient) Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error) {
	b, err := c.backend()
	if err != nil {
		return "", err
	}
	return b.Chat(ctx, message, history, vc)
}

func (c *LocalClient) Search(ctx context.Context, q string) ([]video.SearchResult, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.Search(ctx, q)
}

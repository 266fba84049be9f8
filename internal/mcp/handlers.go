package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vidpage/vidpage/internal/api"
	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/ops"
	"github.com/vidpage/vidpage/internal/video"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *api.Service
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *api.Service, cfg *config.Config) *Handlers {
	return &Handlers{svc: svc, cfg: cfg}
}

// Request types for each tool

// VideoGetRequest represents the arguments for video_get.
type VideoGetRequest struct {
	IncludeText bool `json:"include_text,omitempty"`
}

// VideoSearchRequest represents the arguments for video_search.
type VideoSearchRequest struct {
	Query string `json:"query"`
}

// CommentListRequest represents the arguments for comment_list.
type CommentListRequest struct {
	VideoID    string `json:"video_id,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// CommentPostRequest represents the arguments for comment_post.
type CommentPostRequest struct {
	VideoID string `json:"video_id,omitempty"`
	Text    string `json:"text"`
	Author  string `json:"author,omitempty"`
}

// ProgressGetRequest represents the arguments for progress_get.
type ProgressGetRequest struct {
	VideoID string `json:"video_id,omitempty"`
}

// ProgressSetRequest represents the arguments for progress_set.
type ProgressSetRequest struct {
	VideoID   string   `json:"video_id,omitempty"`
	Timestamp *float64 `json:"timestamp"`
}

// NoteRequest represents the arguments for note_get and note_put.
type NoteRequest struct {
	SectionID string `json:"section_id"`
	Text      string `json:"text,omitempty"`
}

// Response types

// VideoOutline is the video_get result.
type VideoOutline struct {
	Video    video.Summary    `json:"video"`
	Sections []SectionOutline `json:"sections"`
}

// SectionOutline is one section in a VideoOutline.
type SectionOutline struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	Text  string `json:"text,omitempty"`
}

// videoID falls back to the configured video.
func (h *Handlers) videoID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return h.cfg.VideoID
}

// Handler implementations

// HandleVideoGet handles the video_get tool call.
func (h *Handlers) HandleVideoGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VideoGetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	doc, err := h.svc.FetchDocument(ctx, h.cfg.VideoID)
	if err != nil {
		return errorResult(err), nil
	}

	out := VideoOutline{Video: doc.Summarize(), Sections: make([]SectionOutline, len(doc.Sections))}
	for i, s := range doc.Sections {
		out.Sections[i] = SectionOutline{ID: s.ID, Title: s.Title, Start: s.StartLabel()}
		if input.IncludeText {
			out.Sections[i].Text = s.Content.PlainText()
		}
	}
	return successResult(out)
}

// HandleVideoSearch handles the video_search tool call.
func (h *Handlers) HandleVideoSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VideoSearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	results, err := h.svc.Search(ctx, input.Query)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"results": results, "total": len(results)})
}

// HandleCommentList handles the comment_list tool call.
func (h *Handlers) HandleCommentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommentListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	videoID := h.videoID(input.VideoID)
	comments, err := h.svc.FetchComments(ctx, videoID, input.MaxResults)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"videoId": videoID, "comments": comments, "total": len(comments)})
}

// HandleCommentPost handles the comment_post tool call.
func (h *Handlers) HandleCommentPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommentPostRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	comment, err := h.svc.PostComment(ctx, h.videoID(input.VideoID), input.Text, input.Author)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(comment)
}

// HandleProgressGet handles the progress_get tool call.
func (h *Handlers) HandleProgressGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProgressGetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	progress, err := h.svc.GetProgress(ctx, h.videoID(input.VideoID))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(progress)
}

// HandleProgressSet handles the progress_set tool call.
func (h *Handlers) HandleProgressSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProgressSetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Timestamp == nil {
		return errorResult(errors.NewValidation("timestamp is required")), nil
	}

	progress, err := h.svc.PutProgress(ctx, h.videoID(input.VideoID), *input.Timestamp)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(progress)
}

// HandleNoteGet handles the note_get tool call.
func (h *Handlers) HandleNoteGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	text, err := ops.GetNote(ctx, h.svc.DB, input.SectionID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"section_id": input.SectionID, "text": text})
}

// HandleNotePut handles the note_put tool call.
func (h *Handlers) HandleNotePut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if err := ops.PutNote(ctx, h.svc.DB, input.SectionID, input.Text); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"section_id": input.SectionID, "saved": strings.TrimSpace(input.Text) != ""})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never included.
func errorResult(err error) *mcp.CallToolResult {
	e := errors.As(err)

	errorObj := map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	if e.Code != errors.ErrInternal {
		// Keep wrapper context such as "items[2]: ..." when err wraps e.
		if msg := err.Error(); msg != e.Error() {
			errorObj["message"] = msg
		}
		if len(e.Details) > 0 {
			errorObj["details"] = e.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

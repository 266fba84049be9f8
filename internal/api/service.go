// Package api serves the JSON backend the page talks to.
package api

import (
	"context"
	"database/sql"
	"strings"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/ops"
	"github.com/vidpage/vidpage/internal/video"
	"github.com/vidpage/vidpage/internal/youtube"
)

// AI answers chat questions and drafts mind maps.
type AI interface {
	Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error)
	Mindmap(ctx context.Context, doc *video.Document) (string, error)
}

// VideoSource reads comments and metadata from YouTube.
type VideoSource interface {
	ops.CommentSource
	Info(ctx context.Context, videoID string) (*youtube.VideoInfo, error)
}

// FrameSource extracts still frames.
type FrameSource interface {
	Frame(ctx context.Context, videoID string, seconds int) ([]byte, error)
	Batch(ctx context.Context, videoID string, timestamps []int) []video.Frame
}

// PDFGenerator renders a document to PDF.
type PDFGenerator interface {
	Generate(doc *video.Document) ([]byte, string, error)
}

// Service implements every backend operation. Handlers and the UI's
// in-process client call it directly.
type Service struct {
	DB       *sql.DB
	DataFile string
	YouTube  VideoSource
	AI       AI
	Frames   FrameSource
	PDF      PDFGenerator

	// CommentLimit is used when a request does not ask for a page size.
	CommentLimit int
}

// FetchDocument loads the transcript document. The same document is
// served for every video id.
func (s *Service) FetchDocument(_ context.Context, _ string) (*video.Document, error) {
	return video.LoadFile(s.DataFile)
}

// ListVideos returns the summary of the served document.
func (s *Service) ListVideos(ctx context.Context) ([]video.Summary, error) {
	doc, err := s.FetchDocument(ctx, "")
	if err != nil {
		return nil, err
	}
	return []video.Summary{doc.Summarize()}, nil
}

func (s *Service) FetchComments(ctx context.Context, videoID string, maxResults int) ([]video.Comment, error) {
	if maxResults <= 0 {
		maxResults = s.CommentLimit
	}
	var source ops.CommentSource
	if s.YouTube != nil {
		source = s.YouTube
	}
	out, err := ops.ListComments(ctx, s.DB, source, ops.ListCommentsInput{VideoID: videoID, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (s *Service) PostComment(ctx context.Context, videoID, text, author string) (*video.Comment, error) {
	return ops.PostComment(ctx, s.DB, ops.PostCommentInput{VideoID: videoID, Text: text, Author: author})
}

func (s *Service) GetProgress(ctx context.Context, videoID string) (*video.Progress, error) {
	return ops.GetProgress(ctx, s.DB, videoID)
}

func (s *Service) PutProgress(ctx context.Context, videoID string, seconds float64) (*video.Progress, error) {
	return ops.SetProgress(ctx, s.DB, videoID, seconds)
}

// VideoInfo fetches YouTube metadata for videoID.
func (s *Service) VideoInfo(ctx context.Context, videoID string) (*youtube.VideoInfo, error) {
	if s.YouTube == nil || !s.YouTube.Configured() {
		return nil, errors.NewUpstream("youtube", nil).WithDetail("hint", "Set YOUTUBE_API_KEY to enable video information.")
	}
	return s.YouTube.Info(ctx, videoID)
}

// FetchChapters parses chapter markers from the YouTube description.
// No markers is NOT_FOUND.
func (s *Service) FetchChapters(ctx context.Context, videoID string) ([]video.Chapter, error) {
	info, err := s.VideoInfo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	chapters := youtube.ParseChapters(info.Description, youtube.FrameURL(videoID))
	if len(chapters) == 0 {
		return nil, errors.NewNotFound("chapters", videoID)
	}
	return chapters, nil
}

func (s *Service) Frame(ctx context.Context, videoID string, seconds int) ([]byte, error) {
	if s.Frames == nil {
		return nil, errors.NewUpstream("frames", nil)
	}
	return s.Frames.Frame(ctx, videoID, seconds)
}

func (s *Service) ExtractFrames(ctx context.Context, videoID string, timestamps []int) ([]video.Frame, error) {
	if s.Frames == nil {
		return nil, errors.NewUpstream("frames", nil)
	}
	return s.Frames.Batch(ctx, videoID, timestamps), nil
}

// GenerateMindmap asks the AI for Mermaid source describing the document.
func (s *Service) GenerateMindmap(ctx context.Context) (*video.Mindmap, error) {
	doc, err := s.FetchDocument(ctx, "")
	if err != nil {
		return nil, err
	}
	if s.AI == nil {
		return nil, errors.NewUpstream("openai", nil)
	}
	src, err := s.AI.Mindmap(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &video.Mindmap{Mermaid: src, VideoTitle: doc.Info.Title}, nil
}

func (s *Service) GeneratePDF(ctx context.Context) ([]byte, string, error) {
	doc, err := s.FetchDocument(ctx, "")
	if err != nil {
		return nil, "", err
	}
	if s.PDF == nil {
		return nil, "", errors.NewInternal(nil)
	}
	return s.PDF.Generate(doc)
}

func (s *Service) Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.NewValidation("message is required")
	}
	if s.AI == nil {
		return "", errors.NewUpstream("openai", nil)
	}
	return s.AI.Chat(ctx, message, history, vc)
}

// Search finds sections matching q. A blank query is VALIDATION.
func (s *Service) Search(ctx context.Context, q string) ([]video.SearchResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, errors.NewValidation(`query parameter "q" is required`)
	}
	doc, err := s.FetchDocument(ctx, "")
	if err != nil {
		return nil, err
	}
	return doc.Search(q), nil
}

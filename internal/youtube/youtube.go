// Package youtube wraps the YouTube Data API v3 client for comments and
// video metadata.
package youtube

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

// Client calls the Data API with an API key.
type Client struct {
	apiKey  string
	service *ytapi.Service
	initErr error
}

// New returns a client. A non-empty endpoint overrides the public API
// root (used against test servers).
func New(endpoint, apiKey string) *Client {
	c := &Client{apiKey: apiKey}
	if apiKey == "" {
		return c
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	c.service, c.initErr = ytapi.NewService(context.Background(), opts...)
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// VideoInfo is the metadata served by GET /api/video-info/{id}.
type VideoInfo struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
	Duration     string `json:"duration"`
	ViewCount    int64  `json:"viewCount"`
	LikeCount    int64  `json:"likeCount"`
	Thumbnail    string `json:"thumbnail"`
}

// Comments returns up to maxResults top-level comments.
func (c *Client) Comments(ctx context.Context, videoID string, maxResults int) ([]video.Comment, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	resp, err := c.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(int64(maxResults)).
		TextFormat("plainText").
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(ctx, "commentThreads", err)
	}

	out := make([]video.Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		s := item.Snippet.TopLevelComment.Snippet
		out = append(out, video.Comment{
			ID:        item.Id,
			VideoID:   videoID,
			Author:    s.AuthorDisplayName,
			Text:      s.TextDisplay,
			Timestamp: s.PublishedAt,
			LikeCount: int(s.LikeCount),
			Source:    "youtube",
		})
	}
	return out, nil
}

// Info fetches title, description and statistics for a video.
func (c *Client) Info(ctx context.Context, videoID string) (*VideoInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(ctx, "videos", err)
	}
	if len(resp.Items) == 0 {
		return nil, errors.NewNotFound("video", videoID)
	}

	item := resp.Items[0]
	info := &VideoInfo{VideoID: videoID}
	if sn := item.Snippet; sn != nil {
		info.Title = sn.Title
		info.Description = sn.Description
		info.ChannelTitle = sn.ChannelTitle
		info.PublishedAt = sn.PublishedAt
		info.Thumbnail = bestThumbnail(sn.Thumbnails)
	}
	if item.ContentDetails != nil {
		info.Duration = item.ContentDetails.Duration
	}
	if st := item.Statistics; st != nil {
		info.ViewCount = int64(st.ViewCount)
		info.LikeCount = int64(st.LikeCount)
	}
	return info, nil
}

func (c *Client) ready() error {
	if !c.Configured() {
		return errors.NewUpstream("youtube", fmt.Errorf("api key not configured"))
	}
	if c.initErr != nil {
		return errors.NewUpstream("youtube", c.initErr)
	}
	return nil
}

func bestThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func mapError(ctx context.Context, resource string, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeout("youtube " + resource)
	}
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return errors.NewUpstream("youtube", fmt.Errorf("status %d: %s", apiErr.Code, msg)).
			WithDetail("status", apiErr.Code)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr) {
		return errors.NewParse("youtube response", err)
	}
	return errors.NewUpstream("youtube", err)
}

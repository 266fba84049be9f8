package video

// Comment is a viewer comment. Source is "local" for comments posted
// through the API and "youtube" for comments pulled from the Data API.
type Comment struct {
	ID        string `json:"id"`
	VideoID   string `json:"videoId,omitempty"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	LikeCount int    `json:"likeCount,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Progress is the stored playback position for a video.
type Progress struct {
	Timestamp float64 `json:"timestamp"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// Chapter is a YouTube chapter marker.
type Chapter struct {
	Timestamp    int    `json:"timestamp"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Frame is the result of extracting one still image.
type Frame struct {
	Timestamp int    `json:"timestamp"`
	URL       string `json:"url,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Mindmap is generated Mermaid source for a video.
type Mindmap struct {
	Mermaid    string `json:"mermaid"`
	VideoTitle string `json:"videoTitle"`
}

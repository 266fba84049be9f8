// Package video holds the transcript document model shared by the API,
// the UI components and the CLI.
package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vidpage/vidpage/internal/errors"
)

// Document is the VideoDocument: video metadata plus ordered sections.
// It is read-only after load.
type Document struct {
	Info     Info      `json:"videoInfo"`
	Sections []Section `json:"sections"`
}

// Info describes the video itself.
type Info struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Summary     string `json:"summary,omitempty"`
}

// Section is one navigable transcript segment.
type Section struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	TimestampStart string  `json:"timestampStart,omitempty"`
	TimestampEnd   string  `json:"timestampEnd,omitempty"`
	Content        Content `json:"content"`
}

// ContentKind tags which transcript encoding a section uses.
type ContentKind int

const (
	// Plain is the legacy single-string encoding, possibly with **bold** markup.
	Plain ContentKind = iota
	// Timed is a sequence of sentences each carrying a start offset in seconds.
	Timed
)

// Sentence is one timed transcript item.
type Sentence struct {
	Content        string  `json:"content"`
	TimestampStart float64 `json:"timestampStart"`
}

// Content is the normalized section body. Exactly one of Text or Items is
// meaningful, selected by Kind.
type Content struct {
	Kind  ContentKind
	Text  string
	Items []Sentence
}

// PlainContent builds a Plain content value.
func PlainContent(text string) Content {
	return Content{Kind: Plain, Text: text}
}

// TimedContent builds a Timed content value.
func TimedContent(items ...Sentence) Content {
	return Content{Kind: Timed, Items: items}
}

// UnmarshalJSON detects the encoding by shape: a JSON string is Plain, a
// JSON array is Timed. null decodes to empty Plain content.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*c = PlainContent("")
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = PlainContent(s)
		return nil
	case trimmed[0] == '[':
		var items []Sentence
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Sentence{}
		}
		*c = TimedContent(items...)
		return nil
	default:
		return fmt.Errorf("content must be a string or an array of sentences")
	}
}

// MarshalJSON writes the content back in the shape it was read in.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Kind == Timed {
		items := c.Items
		if items == nil {
			items = []Sentence{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(c.Text)
}

// PlainText flattens the content into a single string. Timed items are
// joined with a single space, in order.
func (c Content) PlainText() string {
	if c.Kind == Plain {
		return c.Text
	}
	parts := make([]string, len(c.Items))
	for i, item := range c.Items {
		parts[i] = item.Content
	}
	return strings.Join(parts, " ")
}

// StartSeconds returns the section's first playable offset: the parsed
// TimestampStart for plain content, the first item's start for timed.
func (s Section) StartSeconds() int {
	if s.Content.Kind == Timed && len(s.Content.Items) > 0 {
		return SecondsFromFloat(s.Content.Items[0].TimestampStart)
	}
	return TimeStringToSeconds(s.TimestampStart)
}

// StartLabel returns a display timestamp for the section start.
func (s Section) StartLabel() string {
	if s.TimestampStart != "" {
		return s.TimestampStart
	}
	return FormatSeconds(s.StartSeconds())
}

// Validate checks document invariants: section ids are non-empty and unique
// since they double as element ids.
func (d *Document) Validate() error {
	seen := make(map[string]int, len(d.Sections))
	for i, s := range d.Sections {
		if strings.TrimSpace(s.ID) == "" {
			return errors.NewValidation(fmt.Sprintf("sections[%d]: id is required", i))
		}
		if prev, dup := seen[s.ID]; dup {
			return errors.NewValidation(fmt.Sprintf("sections[%d]: duplicate id %q (also sections[%d])", i, s.ID, prev)).
				WithDetail("id", s.ID)
		}
		seen[s.ID] = i
	}
	return nil
}

// Section looks up a section by id.
func (d *Document) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// SectionIDs returns the ids in display order.
func (d *Document) SectionIDs() []string {
	ids := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		ids[i] = s.ID
	}
	return ids
}

// Parse decodes and validates a VideoDocument.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewParse("video document", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads a VideoDocument from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("data file", path)
		}
		return nil, errors.NewInternal(err)
	}
	return Parse(data)
}

// Summary is the list entry served by GET /api/videos.
type Summary struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration,omitempty"`
	Sections    int    `json:"sections"`
}

// Summarize builds the list entry for d. Duration is the last section end.
func (d *Document) Summarize() Summary {
	s := Summary{
		VideoID:     d.Info.VideoID,
		Title:       d.Info.Title,
		Description: d.Info.Description,
		Thumbnail:   d.Info.Thumbnail,
		Sections:    len(d.Sections),
	}
	if n := len(d.Sections); n > 0 {
		s.Duration = d.Sections[n-1].TimestampEnd
	}
	return s
}

// Chat turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one earlier message of a conversation, oldest first.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextPayload is the optional video context attached to chat requests.
type ContextPayload struct {
	VideoID  string           `json:"videoId"`
	Title    string           `json:"title"`
	Sections []SectionSummary `json:"sections,omitempty"`
}

// SectionSummary is the per-section part of ContextPayload.
type SectionSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
}

// Context builds the chat context payload for d.
func (d *Document) Context() *ContextPayload {
	p := &ContextPayload{VideoID: d.Info.VideoID, Title: d.Info.Title}
	for _, s := range d.Sections {
		p.Sections = append(p.Sections, SectionSummary{ID: s.ID, Title: s.Title, Start: s.StartLabel()})
	}
	return p
}

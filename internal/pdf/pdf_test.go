package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vidpage/vidpage/internal/video"
)

func TestGenerate(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	g := &Generator{Now: func() time.Time { return at }}

	doc := &video.Document{
		Info: video.Info{VideoID: "abc", Title: "GTC: Keynote!", Description: "Highlights"},
		Sections: []video.Section{
			{ID: "s1", Title: "Intro", TimestampStart: "00:00", TimestampEnd: "01:00", Content: video.PlainContent("The **AI** era [cite: 1]")},
			{ID: "s2", Title: "Café", Content: video.TimedContent(video.Sentence{Content: "Hello", TimestampStart: 61})},
		},
	}

	data, filename, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header")
	}
	if filename != "GTC Keynote_20250304_050607.pdf" {
		t.Errorf("filename = %q", filename)
	}
}

func TestGenerate_EmptyDocument(t *testing.T) {
	data, filename, err := New().Generate(&video.Document{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("empty output")
	}
	if !strings.HasPrefix(filename, "video_") {
		t.Errorf("filename = %q", filename)
	}
}

func TestFilename_Truncates(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Filename(strings.Repeat("a", 80), at)
	want := strings.Repeat("a", 50) + "_20250101_000000.pdf"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		"a **b** c":                  "a b c",
		"x [cite: 1, 2] y":           "x y",
		"[cite_start]start":          "start",
		"  many   \n spaces ":        "many spaces",
		"no markup":                  "no markup",
	}
	for in, want := range tests {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}

package video

import (
	"strings"
	"testing"
)

func TestSearch_ContentMatchSnippet(t *testing.T) {
	long := strings.Repeat("a", 80) + " quantum " + strings.Repeat("b", 80)
	doc := &Document{
		Info: Info{VideoID: "vid"},
		Sections: []Section{
			{ID: "s1", Title: "Intro", TimestampStart: "00:00", Content: PlainContent(long)},
			{ID: "s2", Title: "Other", TimestampStart: "01:00", Content: PlainContent("nothing here")},
		},
	}

	results := doc.Search("QUANTUM")
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	r := results[0]
	if r.SectionID != "s1" || r.VideoID != "vid" || r.Timestamp != "00:00" {
		t.Errorf("result = %+v", r)
	}
	if !strings.HasPrefix(r.Snippet, "...") || !strings.HasSuffix(r.Snippet, "...") {
		t.Errorf("Snippet = %q, want ... wrappers", r.Snippet)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(r.Snippet, "..."), "...")
	if len(inner) != 50+len("quantum")+50 {
		t.Errorf("snippet body length = %d, want %d", len(inner), 50+7+50)
	}
}

func TestSearch_TitleOnlyMatch(t *testing.T) {
	doc := &Document{Sections: []Section{
		{ID: "s1", Title: "Quantum Link", Content: PlainContent(strings.Repeat("x", 150))},
	}}

	results := doc.Search("quantum")
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Snippet != strings.Repeat("x", 100)+"..." {
		t.Errorf("Snippet = %q", results[0].Snippet)
	}
}

func TestSearch_TimedContent(t *testing.T) {
	doc := &Document{Sections: []Section{
		{ID: "s1", Title: "T", Content: TimedContent(
			Sentence{Content: "First line.", TimestampStart: 65},
			Sentence{Content: "Mentions GPU here.", TimestampStart: 70},
		)},
	}}

	results := doc.Search("gpu")
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Timestamp != "01:05" {
		t.Errorf("Timestamp = %q, want %q", results[0].Timestamp, "01:05")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	doc := &Document{Sections: []Section{{ID: "s1", Title: "T", Content: PlainContent("x")}}}
	if got := doc.Search("  "); len(got) != 0 {
		t.Errorf("Search(blank) = %v, want empty", got)
	}
}

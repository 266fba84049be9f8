package render

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

func parseFragment(t *testing.T, markup string) []*html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		t.Fatalf("ParseFragment() error = %v", err)
	}
	return nodes
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findAll(nodes []*html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		walk(n, func(x *html.Node) {
			if x.Type == html.ElementNode && match(x) {
				out = append(out, x)
			}
		})
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
	})
	return b.String()
}

func mixedSections() []video.Section {
	return []video.Section{
		{ID: "section1", Title: "Intro", TimestampStart: "00:00", TimestampEnd: "02:54",
			Content: video.PlainContent("The **AI** era begins")},
		{ID: "section2", Title: "CUDA",
			Content: video.TimedContent(
				video.Sentence{Content: "Accelerated computing is **different**.", TimestampStart: 174},
				video.Sentence{Content: "Libraries <matter> & more", TimestampStart: 181.6},
			)},
		{ID: "section3", Title: "No range", TimestampStart: "05:00", Content: video.PlainContent("plain")},
	}
}

func TestRenderSections_OneNodePerSection(t *testing.T) {
	var pane Pane
	sections := mixedSections()
	if err := RenderSections(&pane, sections, ""); err != nil {
		t.Fatalf("RenderSections() error = %v", err)
	}

	nodes := parseFragment(t, pane.String())
	got := findAll(nodes, func(n *html.Node) bool { return n.Data == "section" })
	if len(got) != len(sections) {
		t.Fatalf("section nodes = %d, want %d", len(got), len(sections))
	}
	seen := map[string]bool{}
	for i, n := range got {
		id := attr(n, "id")
		if id != sections[i].ID {
			t.Errorf("section %d id = %q, want %q", i, id, sections[i].ID)
		}
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
		if !hasClass(n, "content-section") {
			t.Errorf("section %q missing content-section class", id)
		}
	}
}

func TestRenderSections_ActiveMarker(t *testing.T) {
	var pane Pane
	if err := RenderSections(&pane, mixedSections(), "section2"); err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, pane.String())
	active := findAll(nodes, func(n *html.Node) bool { return n.Data == "section" && hasClass(n, "active") })
	if len(active) != 1 || attr(active[0], "id") != "section2" {
		t.Errorf("active sections = %d, want exactly section2", len(active))
	}

	m, err := Sections(mixedSections(), "")
	if err != nil {
		t.Fatal(err)
	}
	none := findAll(parseFragment(t, string(m)), func(n *html.Node) bool { return n.Data == "section" && hasClass(n, "active") })
	if len(none) != 0 {
		t.Errorf("active sections = %d with empty id, want 0", len(none))
	}
}

func TestRenderSections_Idempotent(t *testing.T) {
	var pane Pane
	sections := mixedSections()
	if err := RenderSections(&pane, sections, ""); err != nil {
		t.Fatal(err)
	}
	first := pane.String()
	if err := RenderSections(&pane, sections, ""); err != nil {
		t.Fatal(err)
	}
	if pane.String() != first {
		t.Error("second render produced different markup")
	}
}

func TestRenderSections_TimedSentences(t *testing.T) {
	sections := mixedSections()
	m, err := Sections(sections[1:2], "")
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	spans := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "sentence") })
	if len(spans) != 2 {
		t.Fatalf("sentences = %d, want 2", len(spans))
	}
	if attr(spans[0], "data-timestamp") != "174" || attr(spans[1], "data-timestamp") != "181" {
		t.Errorf("timestamps = %q, %q", attr(spans[0], "data-timestamp"), attr(spans[1], "data-timestamp"))
	}
	if attr(spans[0], "draggable") != "true" {
		t.Error("sentence not draggable")
	}
	if attr(spans[1], "data-text") != "Libraries <matter> & more" {
		t.Errorf("data-text = %q", attr(spans[1], "data-text"))
	}

	strong := findAll(nodes, func(n *html.Node) bool { return n.Data == "strong" })
	if len(strong) != 1 || textOf(strong[0]) != "different" {
		t.Errorf("strong nodes = %d", len(strong))
	}

	para := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "section-text") })
	want := "Accelerated computing is different. Libraries <matter> & more"
	if got := textOf(para[0]); got != want {
		t.Errorf("visible text = %q, want %q", got, want)
	}
}

func TestRenderSections_PlainBadge(t *testing.T) {
	m, err := Sections(mixedSections(), "")
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	badges := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "timestamp-badge") })
	if len(badges) != 1 {
		t.Fatalf("badges = %d, want 1 (only section1 has both timestamps)", len(badges))
	}
	if textOf(badges[0]) != "00:00–02:54" || attr(badges[0], "data-timestamp") != "0" {
		t.Errorf("badge = %q data-timestamp=%q", textOf(badges[0]), attr(badges[0], "data-timestamp"))
	}
}

func TestEmphasize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**bold** text", "<strong>bold</strong> text"},
		{"a **b** c **d**", "a <strong>b</strong> c <strong>d</strong>"},
		{"*single* _under_ `code`", "*single* _under_ `code`"},
		{"<b>x</b> **y**", "&lt;b&gt;x&lt;/b&gt; <strong>y</strong>"},
		{"unclosed **bold", "unclosed **bold"},
	}
	for _, tt := range tests {
		if got := string(Emphasize(tt.in)); got != tt.want {
			t.Errorf("Emphasize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComments_EscapesMarkup(t *testing.T) {
	m, err := Comments([]video.Comment{
		{ID: "c1", Author: "<img src=x onerror=alert(1)>", Text: "<script>alert('x')</script>"},
	})
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	if scripts := findAll(nodes, func(n *html.Node) bool { return n.Data == "script" || n.Data == "img" }); len(scripts) != 0 {
		t.Fatalf("rendered executable markup: %s", m)
	}
	texts := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "comment-text") })
	if len(texts) != 1 || textOf(texts[0]) != "<script>alert('x')</script>" {
		t.Errorf("comment text did not round-trip: %s", m)
	}
}

func TestComments_EmptyPlaceholder(t *testing.T) {
	m, err := Comments([]video.Comment{})
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	if len(findAll(nodes, func(n *html.Node) bool { return hasClass(n, "no-comments") })) != 1 {
		t.Errorf("missing no-comments placeholder: %s", m)
	}
	if len(findAll(nodes, func(n *html.Node) bool { return hasClass(n, "error-panel") })) != 0 {
		t.Error("empty list rendered as an error")
	}
}

func TestNav_ActiveMarker(t *testing.T) {
	m, err := Nav(mixedSections(), "section2")
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	active := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "nav-link") && hasClass(n, "active") })
	if len(active) != 1 || attr(active[0], "data-section") != "section2" {
		t.Fatalf("active links = %d", len(active))
	}
	dots := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "dot") && hasClass(n, "active") })
	if len(dots) != 1 || attr(dots[0], "data-index") != "1" {
		t.Errorf("active dots = %d", len(dots))
	}

	m, _ = Nav(mixedSections(), "")
	nodes = parseFragment(t, string(m))
	if n := len(findAll(nodes, func(n *html.Node) bool { return hasClass(n, "active") })); n != 0 {
		t.Errorf("active markers with no current section = %d", n)
	}
}

func TestErrorPanel(t *testing.T) {
	err := errors.NewValidation("AI returned empty content").WithDetail("hint", "Regenerate")
	m := ErrorPanel(err, "/ui/view/mindmap")
	nodes := parseFragment(t, string(m))

	retry := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "retry") })
	if len(retry) != 1 || attr(retry[0], "hx-post") != "/ui/view/mindmap" {
		t.Fatalf("retry control missing: %s", m)
	}
	if !strings.Contains(string(m), "AI returned empty content") || !strings.Contains(string(m), "Regenerate") {
		t.Errorf("panel = %s", m)
	}

	plain := ErrorPanel(fmt.Errorf("boom"), "")
	if strings.Contains(string(plain), "boom") {
		t.Error("internal error text leaked into panel")
	}
}

func TestWiki_Markdown(t *testing.T) {
	m, err := Wiki(video.Info{Title: "T", Summary: "**Key** point", Description: "<script>x</script>"})
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	if len(findAll(nodes, func(n *html.Node) bool { return n.Data == "strong" })) != 1 {
		t.Errorf("summary markdown not rendered: %s", m)
	}
	if len(findAll(nodes, func(n *html.Node) bool { return n.Data == "script" })) != 0 {
		t.Errorf("raw html passed through: %s", m)
	}
}

func TestMindmap_EscapesSource(t *testing.T) {
	m, err := Mindmap("mindmap\n  root((A <b>))", "T")
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	pre := findAll(nodes, func(n *html.Node) bool { return hasClass(n, "mermaid") })
	if len(pre) != 1 || textOf(pre[0]) != "mindmap\n  root((A <b>))" {
		t.Errorf("mermaid source = %s", m)
	}
}

func TestFrames(t *testing.T) {
	m, err := Frames([]video.Frame{
		{Timestamp: 10, Success: true, URL: "/api/video-frame/x?timestamp=10"},
		{Timestamp: 20, Error: "ffmpeg failed"},
	})
	if err != nil {
		t.Fatal(err)
	}
	nodes := parseFragment(t, string(m))
	imgs := findAll(nodes, func(n *html.Node) bool { return n.Data == "img" })
	if len(imgs) != 1 || attr(imgs[0], "src") != "/api/video-frame/x?timestamp=10" {
		t.Errorf("frames = %s", m)
	}
	if len(findAll(nodes, func(n *html.Node) bool { return hasClass(n, "frame-failed") })) != 1 {
		t.Errorf("failed frame not marked: %s", m)
	}
}

func TestChatMessage_Escapes(t *testing.T) {
	m, err := ChatMessage("user", "<script>1</script>")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(m), "<script>") {
		t.Errorf("chat markup not escaped: %s", m)
	}
}

func TestEscapeText(t *testing.T) {
	if got := EscapeText(`<a href="x">&`); got != "&lt;a href=&#34;x&#34;&gt;&amp;" {
		t.Errorf("EscapeText() = %q", got)
	}
}

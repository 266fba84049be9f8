package video

import (
	"strings"
	"unicode/utf8"
)

// snippetRadius is the number of characters kept either side of a match.
const snippetRadius = 50

// SearchResult is one section matching a query.
type SearchResult struct {
	VideoID   string `json:"videoId"`
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"`
}

// Search returns sections whose title or content contains q
// (case-insensitive). The snippet is the match with 50 characters of
// context, or the first 100 characters when only the title matched.
func (d *Document) Search(q string) []SearchResult {
	query := strings.ToLower(strings.TrimSpace(q))
	results := []SearchResult{}
	if query == "" {
		return results
	}

	for _, s := range d.Sections {
		content := s.Content.PlainText()
		lowerContent := strings.ToLower(content)
		if !strings.Contains(strings.ToLower(s.Title), query) && !strings.Contains(lowerContent, query) {
			continue
		}

		results = append(results, SearchResult{
			VideoID:   d.Info.VideoID,
			SectionID: s.ID,
			Title:     s.Title,
			Snippet:   snippet(content, lowerContent, query),
			Timestamp: s.StartLabel(),
		})
	}
	return results
}

func snippet(content, lowerContent, query string) string {
	runes := []rune(content)
	idx := strings.Index(lowerContent, query)
	if idx == -1 {
		if len(runes) > 100 {
			runes = runes[:100]
		}
		return string(runes) + "..."
	}

	// Offsets are taken in runes so multi-byte text is never split.
	start := utf8.RuneCountInString(lowerContent[:idx])
	end := start + utf8.RuneCountInString(query)
	lo := max(0, start-snippetRadius)
	hi := min(len(runes), end+snippetRadius)
	if lo > hi {
		lo = hi
	}
	return "..." + string(runes[lo:hi]) + "..."
}

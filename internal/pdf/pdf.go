// Package pdf renders a video document as a printable transcript.
package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

var (
	citeRe  = regexp.MustCompile(`\[cite:?\s*\d+(?:,\s*\d+)*\]|\[cite_start\]`)
	boldRe  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Generator builds PDF documents. Now is replaceable for tests.
type Generator struct {
	Now func() time.Time
}

// New returns a Generator using the wall clock.
func New() *Generator {
	return &Generator{Now: time.Now}
}

// Generate renders doc and returns the PDF bytes with a download filename.
func (g *Generator) Generate(doc *video.Document) ([]byte, string, error) {
	now := g.Now()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := doc.Info.Title
	if strings.TrimSpace(title) == "" {
		title = "Video Document"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("vidpage", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(26, 26, 26)
	pdf.MultiCell(0, 10, tr(title), "", "C", false)
	pdf.Ln(4)

	if doc.Info.Description != "" {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.SetTextColor(85, 85, 85)
		pdf.MultiCell(0, 6, tr(CleanText(doc.Info.Description)), "", "C", false)
		pdf.Ln(4)
	}

	videoID := doc.Info.VideoID
	if videoID == "" {
		videoID = "N/A"
	}
	infoRows := [][2]string{
		{"Video ID:", videoID},
		{"Generated:", now.Format("2006-01-02 15:04:05")},
		{"Total Sections:", fmt.Sprint(len(doc.Sections))},
	}
	for _, row := range infoRows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(35, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(51, 51, 51)
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
	rule(pdf)

	for i, s := range doc.Sections {
		sectionTitle := s.Title
		if sectionTitle == "" {
			sectionTitle = fmt.Sprintf("Section %d", i+1)
		}
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 15)
		pdf.SetTextColor(44, 90, 160)
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("%d. %s", i+1, sectionTitle)), "", "L", false)

		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 6, timeRange(s), "", 1, "L", false, 0, "")

		if content := CleanText(s.Content.PlainText()); content != "" {
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(0, 6, tr(content), "", "J", false)
		}
	}

	pdf.Ln(8)
	rule(pdf)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(0, 6, "Generated by vidpage | "+now.Format("2006-01-02"), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", errors.NewInternal(fmt.Errorf("write pdf: %w", err))
	}
	return buf.Bytes(), Filename(doc.Info.Title, now), nil
}

func rule(pdf *gofpdf.Fpdf) {
	left, _, right, _ := pdf.GetMargins()
	width, _ := pdf.GetPageSize()
	y := pdf.GetY()
	pdf.SetDrawColor(204, 204, 204)
	pdf.SetLineWidth(0.3)
	pdf.Line(left, y, width-right, y)
	pdf.Ln(2)
}

func timeRange(s video.Section) string {
	start, end := s.TimestampStart, s.TimestampEnd
	if start == "" {
		start = s.StartLabel()
	}
	if end == "" {
		end = "00:00"
	}
	return start + " - " + end
}

// CleanText strips citation markers and bold markup and collapses whitespace.
func CleanText(text string) string {
	text = citeRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// Filename builds "<title>_<YYYYmmdd_HHMMSS>.pdf". The title keeps only
// letters, digits, spaces, dashes and underscores, capped at 50 characters.
func Filename(title string, at time.Time) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := []rune(strings.TrimSpace(b.String()))
	if len(safe) > 50 {
		safe = safe[:50]
	}
	name := string(safe)
	if name == "" {
		name = "video"
	}
	return fmt.Sprintf("%s_%s.pdf", name, at.Format("20060102_150405"))
}

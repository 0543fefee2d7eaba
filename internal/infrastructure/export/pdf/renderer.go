package pdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const (
	fontFamily   = "Helvetica"
	lineHeight   = 6.0
	bulletIndent = 6.0
)

// Renderer lays out a saved analysis as an A4 report. Text is drawn from
// the structured fields, so the output never depends on a browser view.
type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

func (r *Renderer) RenderPDF(analysis domain.SavedAnalysis, w io.Writer) error {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	generated := r.now().UTC()
	if analysis.Analysis.GeneratedAt != nil {
		generated = analysis.Analysis.GeneratedAt.UTC()
	}

	title := strings.TrimSpace(analysis.PropertyTitle)
	if title == "" {
		title = analysis.PropertyInput
	}
	doc.SetTitle(tr(title), false)
	doc.SetCreator("listing-analyzer", false)
	doc.SetMargins(18, 18, 18)
	doc.SetAutoPageBreak(true, 20)
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(fontFamily, "I", 8)
		doc.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("Generated %s - page %d", generated.Format("2006-01-02 15:04 MST"), doc.PageNo())
		doc.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	doc.SetFont(fontFamily, "B", 18)
	doc.SetTextColor(20, 20, 20)
	doc.MultiCell(0, 9, tr(title), "", "L", false)
	if analysis.PropertyInput != "" && analysis.PropertyInput != title {
		doc.SetFont(fontFamily, "", 10)
		doc.SetTextColor(90, 90, 90)
		doc.MultiCell(0, lineHeight, tr(analysis.PropertyInput), "", "L", false)
	}
	doc.Ln(3)

	doc.SetFont(fontFamily, "B", 13)
	doc.SetTextColor(scoreColor(analysis.Analysis.OverallScore))
	doc.CellFormat(0, 8, "Overall score: "+formatScore(analysis.Analysis.OverallScore)+"/100", "", 1, "L", false, 0, "")
	doc.SetTextColor(20, 20, 20)

	if summary := strings.TrimSpace(analysis.Analysis.Summary); summary != "" {
		doc.Ln(2)
		doc.SetFont(fontFamily, "", 11)
		doc.MultiCell(0, lineHeight, tr(summary), "", "L", false)
	}

	writeSection(doc, tr, "Strengths", analysis.Analysis.Strengths)
	writeSection(doc, tr, "Weaknesses", analysis.Analysis.Weaknesses)
	writeSection(doc, tr, "Hidden Risks", analysis.Analysis.HiddenRisks)
	writeSection(doc, tr, "Questions", analysis.Analysis.Questions)

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeSection(doc *fpdf.Fpdf, tr func(string) string, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	doc.Ln(4)
	doc.SetFont(fontFamily, "B", 13)
	doc.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
	doc.SetFont(fontFamily, "", 11)

	left, _, right, _ := doc.GetMargins()
	pageWidth, _ := doc.GetPageSize()
	width := pageWidth - left - right - bulletIndent
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		doc.SetX(left)
		doc.CellFormat(bulletIndent, lineHeight, "-", "", 0, "C", false, 0, "")
		// Wrapped lines return to the left margin, so indent it under the bullet.
		doc.SetLeftMargin(left + bulletIndent)
		doc.MultiCell(width, lineHeight, tr(item), "", "L", false)
		doc.SetLeftMargin(left)
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func scoreColor(score float64) (int, int, int) {
	switch {
	case score >= domain.HighScoreThreshold:
		return 22, 128, 61
	case score >= 60:
		return 180, 120, 0
	default:
		return 190, 30, 45
	}
}

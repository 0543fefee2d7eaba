package usecase

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kirillkom/listing-analyzer/internal/core/ports"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

type ExportUseCase struct {
	store    ports.SavedAnalysisStore
	report   ports.ReportRenderer
	workbook ports.WorkbookRenderer
}

func NewExportUseCase(store ports.SavedAnalysisStore, report ports.ReportRenderer, workbook ports.WorkbookRenderer) *ExportUseCase {
	return &ExportUseCase{store: store, report: report, workbook: workbook}
}

// WritePDF renders one saved analysis and returns the suggested file name.
func (uc *ExportUseCase) WritePDF(ctx context.Context, userID, id string, w io.Writer) (string, error) {
	item, err := uc.store.Get(ctx, userID, id)
	if err != nil {
		return "", fmt.Errorf("load analysis for export: %w", err)
	}
	if err := uc.report.RenderPDF(*item, w); err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}
	return ReportFilename(item.PropertyTitle), nil
}

func (uc *ExportUseCase) WriteWorkbook(ctx context.Context, userID string, w io.Writer) error {
	items, err := uc.store.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("load analyses for export: %w", err)
	}
	if err := uc.workbook.RenderWorkbook(items, w); err != nil {
		return fmt.Errorf("render workbook: %w", err)
	}
	return nil
}

// ReportFilename builds "property-analysis-<slug>.pdf" from a title.
func ReportFilename(title string) string {
	slug := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		return "property-analysis.pdf"
	}
	return "property-analysis-" + slug + ".pdf"
}

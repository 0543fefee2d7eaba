package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const SheetName = "Saved Analyses"

var headers = []interface{}{
	"Title", "Property", "Score", "Summary",
	"Strengths", "Weaknesses", "Hidden Risks", "Questions", "Saved At",
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderWorkbook writes one row per saved analysis, in the order given.
func (r *Renderer) RenderWorkbook(analyses []domain.SavedAnalysis, w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	for i, item := range analyses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		row := []interface{}{
			item.PropertyTitle,
			item.PropertyInput,
			item.Analysis.OverallScore,
			item.Analysis.Summary,
			strings.Join(item.Analysis.Strengths, "\n"),
			strings.Join(item.Analysis.Weaknesses, "\n"),
			strings.Join(item.Analysis.HiddenRisks, "\n"),
			strings.Join(item.Analysis.Questions, "\n"),
			item.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "B", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "D", "H", 48); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if len(analyses) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(analyses)+1)
		if err := f.AutoFilter(SheetName, ref, nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

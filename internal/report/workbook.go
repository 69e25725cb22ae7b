package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/opensource-health/heron/internal/domain"
)

// Sheet names in the exported workbook.
const (
	AssessmentsSheet = "Assessments"
	FactorsSheet     = "Factors"
)

var assessmentHeaders = []string{
	"Assessment ID", "Domain", "Assessed At", "Risk Level", "Score",
	"Max Score", "Risk %", "Wellbeing", "Factors", "Source",
}

var assessmentWidths = []float64{38, 12, 22, 12, 8, 10, 8, 10, 60, 12}

var factorHeaders = []string{"Assessment ID", "Domain", "Rule ID", "Factor", "Points"}

var factorWidths = []float64{38, 12, 22, 40, 8}

// WorkbookFromAssessments exports assessments as an xlsx workbook with one
// row per assessment and one row per fired factor.
func WorkbookFromAssessments(assessments []*domain.Assessment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AssessmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(FactorsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, AssessmentsSheet, assessmentHeaders, assessmentWidths, headerStyle); err != nil {
		return nil, err
	}
	if err := writeHeader(f, FactorsSheet, factorHeaders, factorWidths, headerStyle); err != nil {
		return nil, err
	}

	factorRow := 2
	for i, a := range assessments {
		var wellbeing any
		if a.WellbeingScore != nil {
			wellbeing = *a.WellbeingScore
		}
		row := []any{
			a.ID,
			string(a.Domain),
			a.Timestamp.UTC().Format(time.RFC3339),
			string(a.RiskLevel),
			a.Score,
			a.MaxScore,
			a.RiskPercentage,
			wellbeing,
			strings.Join(a.FactorLabels(), "; "),
			a.Metadata.Source,
		}
		if err := writeRow(f, AssessmentsSheet, i+2, row); err != nil {
			return nil, err
		}

		for _, fc := range a.Factors {
			row := []any{a.ID, string(a.Domain), fc.RuleID, fc.Factor, fc.Points}
			if err := writeRow(f, FactorsSheet, factorRow, row); err != nil {
				return nil, err
			}
			factorRow++
		}
	}

	for _, sheet := range []string{AssessmentsSheet, FactorsSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("failed to freeze panes: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

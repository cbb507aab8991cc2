package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX workbook.
const (
	AssessmentSheet = "Assessments"
	ConfidenceSheet = "Field Confidence"
)

// numericColumns are written as numbers rather than text.
var numericColumns = map[int]bool{5: true, 6: true, 19: true, 25: true, 26: true, 27: true}

// WriteXLSX writes records as a workbook with one assessment row per document
// and a second sheet listing every field confidence.
func WriteXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", AssessmentSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeRow(f, AssessmentSheet, 1, toCells(columns)); err != nil {
		return err
	}
	for i := range records {
		if err := writeRow(f, AssessmentSheet, i+2, assessmentCells(&records[i])); err != nil {
			return err
		}
	}
	if err := f.SetPanes(AssessmentSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.NewSheet(ConfidenceSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if err := writeRow(f, ConfidenceSheet, 1, []interface{}{"Document Name", "Field", "Confidence"}); err != nil {
		return err
	}
	row := 2
	for _, rec := range records {
		names := make([]string, 0, len(rec.Mapped.FieldConfidence))
		for name := range rec.Mapped.FieldConfidence {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := writeRow(f, ConfidenceSheet, row, []interface{}{rec.Document, name, rec.Mapped.FieldConfidence[name]}); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func assessmentCells(rec *Record) []interface{} {
	row := recordToRow(rec)
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
		if numericColumns[i] && v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cells[i] = n
			}
		}
	}
	return cells
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

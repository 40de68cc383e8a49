package export

import (
	"bytes"
	"fmt"

	"curiousqa/pkg/qa"

	"github.com/xuri/excelize/v2"
)

const (
	// ContentType is the MIME type of the generated workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// SheetName is the only sheet in the workbook
	SheetName = "Sheet1"
)

// Header is the first row of every export
var Header = []interface{}{"Question", "Answer"}

// Filename returns the attachment name for username's export
func Filename(username string) string {
	return fmt.Sprintf("%s_questions_answers.xlsx", username)
}

// WriteXLSX renders records as a two-column workbook held in memory. Missing
// questions or answers become empty cells.
func WriteXLSX(records []qa.Record) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet writer: %w", err)
	}

	if err := sw.SetRow("A1", Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, []interface{}{cellValue(r.Question), cellValue(r.Answer)}); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

func cellValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// internal/output/excel.go

package output

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pricescout/pricescout/internal/extract"
)

const excelSheet = "Records"

// excelWriter accumulates rows in memory and writes the workbook on Close.
type excelWriter struct {
	path string
	file *excelize.File
	row  int
}

func newExcelWriter(path string) (*excelWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("excel output requires a file path")
	}

	f := excelize.NewFile()
	idx, err := f.NewSheet(excelSheet)
	if err != nil {
		return nil, fmt.Errorf("creating worksheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	cell, _ := excelize.CoordinatesToCellName(1, 1)
	if err := f.SetSheetRow(excelSheet, cell, &header); err != nil {
		return nil, fmt.Errorf("writing header row: %w", err)
	}

	return &excelWriter{path: path, file: f, row: 2}, nil
}

func (w *excelWriter) Write(_ context.Context, records []*extract.Record) error {
	now := time.Now()
	for _, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, w.row)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", w.row, err)
		}
		values := rowValues(rec, now)
		if err := w.file.SetSheetRow(excelSheet, cell, &values); err != nil {
			return fmt.Errorf("writing excel row: %w", err)
		}
		w.row++
	}
	return nil
}

func (w *excelWriter) Close() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return w.file.Close()
}

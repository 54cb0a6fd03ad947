package dataset

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
	"github.com/xuri/excelize/v2"
)

// XLSXSource reads the first sheet of a workbook; the first row is the header.
type XLSXSource struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
	row    int
}

// OpenXLSX opens a workbook and reads its header row.
func OpenXLSX(path string) (*XLSXSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if !rows.Next() {
		_ = rows.Close()
		_ = f.Close()
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}
	header, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &XLSXSource{file: f, rows: rows, header: header}, nil
}

// Next returns the next recipe. Fully empty rows are skipped.
func (s *XLSXSource) Next(ctx context.Context) (models.RawRecipe, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.RawRecipe{}, err
		}
		if !s.rows.Next() {
			if err := s.rows.Error(); err != nil {
				return models.RawRecipe{}, fmt.Errorf("failed to read workbook: %w", err)
			}
			return models.RawRecipe{}, io.EOF
		}
		cols, err := s.rows.Columns()
		row := s.row
		s.row++
		if err != nil {
			return models.RawRecipe{Row: row}, &RowError{Row: row, Err: err}
		}
		if isBlank(cols) {
			s.row--
			continue
		}
		return recipeFromFields(zipRow(s.header, cols), row)
	}
}

// Close closes the workbook.
func (s *XLSXSource) Close() error {
	_ = s.rows.Close()
	return s.file.Close()
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

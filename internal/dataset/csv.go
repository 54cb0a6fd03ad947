package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
)

// CSVSource reads a CSV file with a header row naming the recipe columns.
// Unknown columns, such as a leading unnamed index, are ignored.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
	header []string
	row    int
}

// OpenCSV opens a CSV file and reads its header.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\uFEFF"))
	}
	return &CSVSource{file: f, reader: r, header: header}, nil
}

// Next returns the next recipe.
func (s *CSVSource) Next(ctx context.Context) (models.RawRecipe, error) {
	if err := ctx.Err(); err != nil {
		return models.RawRecipe{}, err
	}
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return models.RawRecipe{}, io.EOF
	}
	row := s.row
	s.row++
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return models.RawRecipe{Row: row}, &RowError{Row: row, Err: err}
		}
		return models.RawRecipe{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	return recipeFromFields(zipRow(s.header, record), row)
}

// Close closes the file.
func (s *CSVSource) Close() error {
	return s.file.Close()
}

func zipRow(header, record []string) map[string]interface{} {
	fields := make(map[string]interface{}, len(header))
	for i, name := range header {
		if name == "" || i >= len(record) {
			continue
		}
		fields[name] = record[i]
	}
	return fields
}

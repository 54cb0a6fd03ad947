package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/cookcut/internal/models"
)

const maxLineSize = 16 * 1024 * 1024

// JSONLSource reads one JSON object per line.
type JSONLSource struct {
	file    *os.File
	scanner *bufio.Scanner
	row     int
}

// OpenJSONL opens a JSON Lines file.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &JSONLSource{file: f, scanner: scanner}, nil
}

// Next returns the next recipe. Blank lines are skipped.
func (s *JSONLSource) Next(ctx context.Context) (models.RawRecipe, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.RawRecipe{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return models.RawRecipe{}, fmt.Errorf("failed to read dataset: %w", err)
			}
			return models.RawRecipe{}, io.EOF
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		row := s.row
		s.row++
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var fields map[string]interface{}
		if err := dec.Decode(&fields); err != nil {
			return models.RawRecipe{Row: row}, &RowError{Row: row, Err: err}
		}
		return recipeFromFields(fields, row)
	}
}

// Close closes the file.
func (s *JSONLSource) Close() error {
	return s.file.Close()
}

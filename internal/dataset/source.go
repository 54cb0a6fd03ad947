// Package dataset reads recipe rows from local files or the Hugging Face datasets server.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
)

// Source yields recipes in dataset order. Next returns io.EOF after the last row.
// A *RowError means one row was malformed and reading can continue.
type Source interface {
	Next(ctx context.Context) (models.RawRecipe, error)
	Close() error
}

// RowError reports a row that could not be decoded.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("dataset row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// IsRowError reports whether err is a recoverable per-row failure.
func IsRowError(err error) bool {
	var rowErr *RowError
	return errors.As(err, &rowErr)
}

// ErrUnsupportedSource is returned when no reader matches the configured format.
var ErrUnsupportedSource = errors.New("unsupported dataset source")

// Info describes where the recipes come from.
type Info struct {
	Name       string `json:"name" yaml:"name"`
	License    string `json:"license" yaml:"license"`
	LicenseURL string `json:"license_url" yaml:"license_url"`
	Source     string `json:"source" yaml:"source"`
}

// DefaultInfo is the Kaggle food recipes dataset mirrored on Hugging Face.
var DefaultInfo = Info{
	Name:       "Hieu-Pham/kaggle_food_recipes",
	License:    "CC BY-SA 3.0",
	LicenseURL: "https://creativecommons.org/licenses/by-sa/3.0/",
	Source:     "https://huggingface.co/datasets/Hieu-Pham/kaggle_food_recipes",
}

// Formats.
const (
	FormatJSONL       = "jsonl"
	FormatCSV         = "csv"
	FormatXLSX        = "xlsx"
	FormatHuggingFace = "hf"
)

// Config selects a dataset source.
type Config struct {
	// Path is a local file. Ignored for the hf format.
	Path string
	// Format is jsonl, csv, xlsx or hf. Empty means detect from the file extension.
	Format string
	// Hugging Face datasets-server settings.
	HFDataset string
	HFConfig  string
	HFSplit   string
	HFToken   string
	HFBaseURL string
	PageSize  int
	// Limit caps the number of rows read; 0 means no limit.
	Limit int
}

// Open returns a Source for cfg.
func Open(ctx context.Context, cfg Config) (Source, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = DetectFormat(cfg.Path)
	}
	var (
		src Source
		err error
	)
	switch format {
	case FormatJSONL:
		src, err = OpenJSONL(cfg.Path)
	case FormatCSV:
		src, err = OpenCSV(cfg.Path)
	case FormatXLSX:
		src, err = OpenXLSX(cfg.Path)
	case FormatHuggingFace:
		src, err = NewHuggingFaceSource(HuggingFaceConfig{
			Dataset:  cfg.HFDataset,
			Config:   cfg.HFConfig,
			Split:    cfg.HFSplit,
			Token:    cfg.HFToken,
			BaseURL:  cfg.HFBaseURL,
			PageSize: cfg.PageSize,
		})
	default:
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedSource, format)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Limit > 0 {
		return &limitedSource{Source: src, remaining: cfg.Limit}, nil
	}
	return src, nil
}

// DetectFormat maps a file extension onto a format name.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case "":
		if path == "" {
			return FormatHuggingFace
		}
	}
	return ""
}

type limitedSource struct {
	Source
	remaining int
}

func (l *limitedSource) Next(ctx context.Context) (models.RawRecipe, error) {
	if l.remaining <= 0 {
		return models.RawRecipe{}, io.EOF
	}
	l.remaining--
	return l.Source.Next(ctx)
}

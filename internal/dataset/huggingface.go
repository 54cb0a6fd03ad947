package dataset

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hyperjump/cookcut/internal/models"
)

const (
	DefaultHFBaseURL  = "https://datasets-server.huggingface.co"
	DefaultHFConfig   = "default"
	DefaultHFSplit    = "train"
	DefaultHFPageSize = 100
	// the datasets server refuses pages larger than this
	maxHFPageSize = 100
)

// HuggingFaceConfig selects a dataset split on the datasets server.
type HuggingFaceConfig struct {
	Dataset  string
	Config   string
	Split    string
	Token    string
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

// HuggingFaceSource pages through the /rows endpoint of the datasets server.
type HuggingFaceSource struct {
	client   *resty.Client
	cfg      HuggingFaceConfig
	buffer   []hfRow
	offset   int
	total    int
	finished bool
}

type hfRow struct {
	RowIdx int                    `json:"row_idx"`
	Row    map[string]interface{} `json:"row"`
}

type hfRowsResponse struct {
	Rows         []hfRow `json:"rows"`
	NumRowsTotal int     `json:"num_rows_total"`
}

type hfErrorResponse struct {
	Error string `json:"error"`
}

// NewHuggingFaceSource creates a paging reader. Nothing is fetched until Next.
func NewHuggingFaceSource(cfg HuggingFaceConfig) (*HuggingFaceSource, error) {
	if strings.TrimSpace(cfg.Dataset) == "" {
		cfg.Dataset = DefaultInfo.Name
	}
	if cfg.Config == "" {
		cfg.Config = DefaultHFConfig
	}
	if cfg.Split == "" {
		cfg.Split = DefaultHFSplit
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHFBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultHFPageSize
	}
	if cfg.PageSize > maxHFPageSize {
		cfg.PageSize = maxHFPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &HuggingFaceSource{client: client, cfg: cfg, total: -1}, nil
}

// Next returns the next row, fetching another page when the buffer runs out.
func (s *HuggingFaceSource) Next(ctx context.Context) (models.RawRecipe, error) {
	if err := ctx.Err(); err != nil {
		return models.RawRecipe{}, err
	}
	if len(s.buffer) == 0 {
		if s.finished {
			return models.RawRecipe{}, io.EOF
		}
		if err := s.fetch(ctx); err != nil {
			return models.RawRecipe{}, err
		}
		if len(s.buffer) == 0 {
			return models.RawRecipe{}, io.EOF
		}
	}
	next := s.buffer[0]
	s.buffer = s.buffer[1:]
	return recipeFromFields(next.Row, next.RowIdx)
}

func (s *HuggingFaceSource) fetch(ctx context.Context) error {
	var (
		body    hfRowsResponse
		errBody hfErrorResponse
	)
	resp, err := s.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset": s.cfg.Dataset,
			"config":  s.cfg.Config,
			"split":   s.cfg.Split,
			"offset":  strconv.Itoa(s.offset),
			"length":  strconv.Itoa(s.cfg.PageSize),
		}).
		SetResult(&body).
		SetError(&errBody).
		Get("/rows")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to fetch dataset rows: %w", err)
	}
	if resp.IsError() {
		msg := errBody.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return fmt.Errorf("datasets server returned %d: %s", resp.StatusCode(), msg)
	}
	s.total = body.NumRowsTotal
	s.buffer = body.Rows
	s.offset += len(body.Rows)
	if len(body.Rows) < s.cfg.PageSize || (s.total >= 0 && s.offset >= s.total) {
		s.finished = true
	}
	return nil
}

// Total reports num_rows_total from the last page, or -1 before the first fetch.
func (s *HuggingFaceSource) Total() int { return s.total }

// Close is a no-op.
func (s *HuggingFaceSource) Close() error { return nil }

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/server"
	"github.com/spf13/cobra"
)

const httpTimeout = 30 * time.Second

func (a *app) searchCommand() *cobra.Command {
	var (
		q         models.SearchQuery
		jsonOut   bool
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "search [flags] <query>",
		Short: "Search indexed recipes",
		Long: `Query is all remaining arguments joined by spaces.

Examples:
  cookcut search tomato soup
  cookcut search --kind title --top-k 10 "banana bread"
  cookcut search --mode hybrid --recipe chocolate cake
  cookcut search --server http://localhost:8080 pasta`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Query = buildSearchQuery(args)
			var (
				resp *models.SearchResponse
				err  error
			)
			if serverURL != "" {
				resp, err = searchViaHTTP(cmd.Context(), serverURL, q)
			} else {
				resp, err = a.searchLocal(cmd.Context(), q)
			}
			if err != nil {
				return err
			}
			return WriteSearchResults(cmd.OutOrStdout(), resp, outputFormat(jsonOut))
		},
	}
	cmd.Flags().StringVar(&q.Kind, "kind", "all", "restrict to one unit kind: all, title, ingredients, instructions")
	cmd.Flags().IntVarP(&q.TopK, "top-k", "k", 0, "number of results (default search.default_top_k)")
	cmd.Flags().StringVar(&q.Mode, "mode", models.ModeSemantic, "semantic, keyword or hybrid")
	cmd.Flags().BoolVar(&q.IncludeRecipe, "recipe", false, "attach the full recipe to each hit")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running cookcut server instead of the local index")
	return cmd
}

func (a *app) searchLocal(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error) {
	c, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if q.TopK == 0 {
		q.TopK = c.Config.Search.DefaultTopK
	}
	return c.Engine.Search(ctx, q)
}

// buildSearchQuery joins positional arguments so quoting is optional.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

type apiError struct {
	Error string `json:"error"`
}

func newAPIClient(serverURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(httpTimeout).
		SetHeader("Accept", "application/json")
}

func searchViaHTTP(ctx context.Context, serverURL string, q models.SearchQuery) (*models.SearchResponse, error) {
	var (
		out    models.SearchResponse
		apiErr apiError
	)
	resp, err := newAPIClient(serverURL).R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetBody(q).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode(), apiErr.Error)
	}
	return &out, nil
}

func statusViaHTTP(ctx context.Context, serverURL string) (*server.Status, error) {
	var (
		out    server.Status
		apiErr apiError
	)
	resp, err := newAPIClient(serverURL).R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode(), apiErr.Error)
	}
	return &out, nil
}

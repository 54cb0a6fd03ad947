package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/cookcut/internal/indexer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) ingestCommand() *cobra.Command {
	var (
		datasetPath string
		limit       int
		workers     int
		quiet       bool
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and upsert every recipe of the dataset",
		Long: `Reads the configured dataset (or --dataset), splits each recipe into title,
ingredients and instruction chunks, embeds them and upserts the vectors.
Recipes that fail are skipped and counted; the run continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			if workers > 0 {
				c.Config.Pipeline.Workers = workers
			}

			var progress func(indexer.Progress)
			if !quiet {
				progress = NewProgressPrinter(cmd.ErrOrStderr()).Report
			}
			p, err := c.NewPipeline(progress)
			if err != nil {
				return err
			}
			src, err := c.OpenSource(ctx, datasetPath, limit)
			if err != nil {
				return fmt.Errorf("failed to open dataset: %w", err)
			}
			defer src.Close()

			res, runErr := p.Run(ctx, src)
			if res != nil {
				if err := WriteRunResult(cmd.OutOrStdout(), res, outputFormat(jsonOut)); err != nil {
					c.Logger.Warn("write run summary", zap.Error(err))
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file (jsonl, csv, xlsx); overrides dataset.path")
	cmd.Flags().IntVar(&limit, "limit", 0, "read at most this many recipes")
	cmd.Flags().IntVar(&workers, "workers", 0, "embed recipes concurrently with this many workers")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print per-recipe progress")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run summary as JSON")
	return cmd
}

func outputFormat(jsonOut bool) OutputFormat {
	if jsonOut {
		return OutputJSON
	}
	return OutputText
}

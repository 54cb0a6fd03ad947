package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/cookcut/internal/indexer"
	"github.com/hyperjump/cookcut/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// reingester re-runs the pipeline on dataset changes. Runs never overlap; changes that
// arrive while a run is in progress collapse into one follow-up run.
type reingester struct {
	comps   *Components
	path    string
	out     io.Writer
	pending chan struct{}
	// onRun, when set, is called after each run.
	onRun func(*indexer.RunResult, error)
}

func newReingester(c *Components, path string, out io.Writer) *reingester {
	return &reingester{comps: c, path: path, out: out, pending: make(chan struct{}, 1)}
}

// Trigger schedules a run. It never blocks.
func (r *reingester) Trigger() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Run executes scheduled runs until ctx is cancelled.
func (r *reingester) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pending:
			res, err := r.runOnce(ctx)
			if r.onRun != nil {
				r.onRun(res, err)
			}
		}
	}
}

func (r *reingester) runOnce(ctx context.Context) (*indexer.RunResult, error) {
	logger := r.comps.Logger
	p, err := r.comps.NewPipeline(nil)
	if err != nil {
		return nil, err
	}
	src, err := r.comps.OpenSource(ctx, r.path, 0)
	if err != nil {
		logger.Warn("re-ingest: open dataset failed", zap.String("path", r.path), zap.Error(err))
		return nil, err
	}
	defer src.Close()
	res, err := p.Run(ctx, src)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("re-ingest run failed", zap.String("path", r.path), zap.Error(err))
	}
	if res != nil && r.out != nil {
		_ = WriteRunResult(r.out, res, OutputText)
	}
	return res, err
}

// startDatasetWatch watches the dataset file and re-ingests it on change until ctx ends.
func startDatasetWatch(ctx context.Context, c *Components, path string, out io.Writer) (*reingester, *watcher.Watcher, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("watching needs a local dataset file (dataset.path or --dataset)")
	}
	r := newReingester(c, path, out)
	opts := []watcher.WatcherOption{watcher.WithDebounce(c.Config.Watch.Debounce)}
	if c.Config.Debug {
		opts = append(opts, watcher.WithLogger(c.Logger))
	}
	w := watcher.NewWatcher([]string{path}, func(changed string) {
		c.Logger.Info("dataset changed, re-ingesting", zap.String("path", changed))
		r.Trigger()
	}, opts...)
	if err := w.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	go r.Run(ctx)
	return r, w, nil
}

func (a *app) watchCommand() *cobra.Command {
	var (
		datasetPath string
		skipInitial bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-ingest the dataset file whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			if datasetPath == "" {
				datasetPath = c.Config.Dataset.Path
			}
			r, w, err := startDatasetWatch(ctx, c, datasetPath, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer w.Stop()
			if !skipInitial {
				r.Trigger()
			}
			c.Logger.Info("watching dataset", zap.Strings("files", w.Files()))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file to watch; overrides dataset.path")
	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "do not ingest before the first change")
	return cmd
}

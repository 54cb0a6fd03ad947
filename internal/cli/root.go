// Package cli implements the cookcut command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/cookcut/internal/config"
	"github.com/hyperjump/cookcut/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultConfigPath is read when --config is not given and no ./config.yaml exists.
const DefaultConfigPath = "/usr/local/etc/cookcut/config.yaml"

type app struct {
	version    string
	configPath string
	debug      bool
	// logger overrides the logger built from --debug; tests use it.
	logger *zap.Logger
}

// NewRootCommand returns the cookcut command tree.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&app{version: version})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cookcut",
		Short:         "Chunk, embed and index recipes for semantic search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path (default ./config.yaml, then "+DefaultConfigPath+")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.ingestCommand(),
		a.searchCommand(),
		a.serveCommand(),
		a.watchCommand(),
		a.statusCommand(),
		a.versionCommand(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, version string) int {
	root := NewRootCommand(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig resolves the config file. With no explicit path it prefers config.yaml in the
// working directory (for development), then DefaultConfigPath, then built-in defaults.
// Returns the path that was loaded, empty for built-in defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	candidates := []string{DefaultConfigPath}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, "config.yaml")}, candidates...)
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", err
		}
		cfg, err := config.Load(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}
	return config.Default(), "", nil
}

// setup loads the config and builds the logger shared by every command.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || a.debug
	logger := a.logger
	if logger == nil {
		logger, err = utils.NewLogger(debug)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

// open loads the config and builds every component.
func (a *app) open(ctx context.Context) (*Components, error) {
	cfg, logger, err := a.setup()
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, logger)
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cookcut version %s\n", a.version)
		},
	}
}

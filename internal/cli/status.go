package cli

import (
	"github.com/hyperjump/cookcut/internal/server"
	"github.com/spf13/cobra"
)

func (a *app) statusCommand() *cobra.Command {
	var (
		jsonOut   bool
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index counts, the latest ingest run and dataset info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				st  *server.Status
				err error
			)
			if serverURL != "" {
				st, err = statusViaHTTP(ctx, serverURL)
			} else {
				c, openErr := a.open(ctx)
				if openErr != nil {
					return openErr
				}
				defer c.Close()
				st, err = server.BuildStatus(ctx, c.Catalog, c.Store, c.Config)
			}
			if err != nil {
				return err
			}
			return WriteStatus(cmd.OutOrStdout(), st, outputFormat(jsonOut))
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print status as JSON")
	cmd.Flags().StringVar(&serverURL, "server", "", "ask a running cookcut server instead of opening the local index")
	return cmd
}

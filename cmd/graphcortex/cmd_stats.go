package main

import (
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var health bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report graph statistics and store health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			if health {
				if err := app.store.Ping(ctx); err != nil {
					return err
				}
				return printJSON(map[string]string{"status": "ok"})
			}
			stats, err := app.builder.Statistics(ctx)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().BoolVar(&health, "health", false, "only check store connectivity")
	return cmd
}

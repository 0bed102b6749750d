package main

import (
	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var (
		full  bool
		save  string
		label string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the embedding vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			stats, err := app.index.Build(ctx, full, label)
			if err != nil {
				return err
			}
			path := save
			if path == "" {
				path = cfg.Index.Path
			}
			if path != "" {
				if err := app.index.Save(path); err != nil {
					return err
				}
				logger.Info("index saved", "path", path)
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "re-embed every entity instead of only missing vectors")
	cmd.Flags().StringVar(&save, "save", "", "persist the built index to this path (default from config)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "index only entities carrying this label")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var (
		yes   bool
		label string
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete graph contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			if label != "" {
				n, err := app.builder.RemoveByLabel(ctx, label, yes)
				if err != nil {
					return err
				}
				app.analyzer.Invalidate()
				return printJSON(map[string]int64{"deleted": n})
			}
			if err := app.builder.Clear(ctx, yes); err != nil {
				return err
			}
			app.analyzer.Invalidate()
			return printJSON(map[string]string{"status": "cleared"})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	cmd.Flags().StringVarP(&label, "label", "l", "", "delete only entities with this label")
	return cmd
}

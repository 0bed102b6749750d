package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphcortex/internal/graph"
)

func newNLQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a natural-language question about the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			result, err := app.query.NaturalLanguage(ctx, args[0])
			if err != nil {
				// The generated query is still worth showing when
				// translation ultimately failed.
				var te *graph.TranslationError
				if errors.As(err, &te) && result != nil && result.GeneratedQuery != "" {
					_ = printJSON(result)
				}
				return err
			}
			return printJSON(result)
		},
	}
	return cmd
}

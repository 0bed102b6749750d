package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		mode        string
		topK        int
		labels      []string
		withContext bool
		indexPath   string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search entities by similarity, keywords, or both",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			if mode != "keyword" && indexPath != "" {
				if err := app.index.LoadFrom(indexPath); err != nil {
					return err
				}
			}
			if mode != "vector" {
				if err := app.refreshKeywordIndex(ctx); err != nil {
					return err
				}
			}

			queryText := args[0]
			switch mode {
			case "vector":
				hits, err := app.search.Vector(ctx, queryText, topK, labels)
				if err != nil {
					return err
				}
				return printJSON(hits)
			case "keyword":
				hits, err := app.search.Keyword(ctx, queryText, topK, labels)
				if err != nil {
					return err
				}
				return printJSON(hits)
			case "hybrid":
				if withContext {
					hits, err := app.search.WithContext(ctx, queryText, topK, labels)
					if err != nil {
						return err
					}
					return printJSON(hits)
				}
				hits, err := app.search.Hybrid(ctx, queryText, topK, labels)
				if err != nil {
					return err
				}
				return printJSON(hits)
			}
			return fmt.Errorf("unknown search mode %q", mode)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "hybrid", "search mode: hybrid, vector, or keyword")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "number of results")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "restrict results to these labels")
	cmd.Flags().BoolVar(&withContext, "context", false, "attach each hit's graph neighborhood")
	cmd.Flags().StringVar(&indexPath, "index", "", "load a persisted vector index from this path")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphcortex/internal/graph"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run graph analytics",
	}
	cmd.AddCommand(
		newCentralityCmd(),
		newNodeCmd(),
		newCommunitiesCmd(),
		newMetricsCmd(),
		newBridgesCmd(),
		newTraverseCmd(),
		newPathsCmd(),
		newSubgraphCmd(),
	)
	return cmd
}

func newCentralityCmd() *cobra.Command {
	var (
		algorithm string
		topK      int
	)
	cmd := &cobra.Command{
		Use:   "centrality",
		Short: "Rank entities by centrality",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			switch algorithm {
			case "pagerank":
				scores, err := app.analyzer.PageRank(ctx, topK)
				if err != nil {
					return err
				}
				return printJSON(scores)
			case "betweenness":
				scores, err := app.analyzer.Betweenness(ctx, topK)
				if err != nil {
					return err
				}
				return printJSON(scores)
			case "closeness":
				scores, err := app.analyzer.Closeness(ctx, topK)
				if err != nil {
					return err
				}
				return printJSON(scores)
			case "degree":
				scores, err := app.analyzer.Degree(ctx, topK)
				if err != nil {
					return err
				}
				return printJSON(scores)
			default:
				scores, err := app.analyzer.Importance(ctx, topK)
				if err != nil {
					return err
				}
				return printJSON(scores)
			}
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "importance",
		"pagerank, betweenness, closeness, degree, or importance")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 20, "number of entities to rank")
	return cmd
}

func newNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node <entity-id>",
		Short: "Report every importance measure for one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			profile, err := app.analyzer.NodeImportance(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(profile)
		},
	}
}

func newCommunitiesCmd() *cobra.Command {
	var (
		method     string
		resolution float64
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "communities",
		Short: "Detect communities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			if method == "labelprop" {
				result, err := app.analyzer.LabelPropagation(ctx, iterations)
				if err != nil {
					return err
				}
				return printJSON(result)
			}
			result, err := app.analyzer.Louvain(ctx, resolution)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "louvain", "louvain or labelprop")
	cmd.Flags().Float64Var(&resolution, "resolution", 1.0, "louvain resolution parameter")
	cmd.Flags().IntVar(&iterations, "iterations", 20, "labelprop iteration cap")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Compute whole-graph metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			result, err := app.analyzer.Metrics(ctx)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newBridgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bridges",
		Short: "Find entities whose removal disconnects the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			bridges, err := app.analyzer.Bridges(ctx)
			if err != nil {
				return err
			}
			return printJSON(bridges)
		},
	}
}

func newTraverseCmd() *cobra.Command {
	var (
		maxHops   int
		direction string
		relTypes  []string
	)
	cmd := &cobra.Command{
		Use:   "traverse <entity-id>",
		Short: "Expand the neighborhood around an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			sg, err := app.query.Traverse(ctx, args[0], maxHops,
				graph.Direction(direction), relTypes)
			if err != nil {
				return err
			}
			return printJSON(sg)
		},
	}
	cmd.Flags().IntVar(&maxHops, "max-hops", 2, "traversal depth")
	cmd.Flags().StringVarP(&direction, "direction", "d", "both",
		"outgoing, incoming, or both")
	cmd.Flags().StringSliceVarP(&relTypes, "type", "t", nil,
		"restrict traversal to these relationship types")
	return cmd
}

func newPathsCmd() *cobra.Command {
	var maxHops int
	cmd := &cobra.Command{
		Use:   "paths <source-id> <target-id>",
		Short: "Find all shortest paths between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			paths, err := app.query.ShortestPaths(ctx, args[0], args[1], maxHops)
			if err != nil {
				return err
			}
			return printJSON(paths)
		},
	}
	cmd.Flags().IntVar(&maxHops, "max-hops", 6, "path length bound")
	return cmd
}

func newSubgraphCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "subgraph <entity-id>...",
		Short: "Extract the subgraph reachable from a set of entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			sg, err := app.query.ExtractSubgraph(ctx, args, depth)
			if err != nil {
				return err
			}
			return printJSON(sg)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "expand this many hops out from the seeds before inducing edges")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphcortex/internal/models"
	"github.com/ajitpratap0/graphcortex/internal/schema"
)

func newIngestCmd() *cobra.Command {
	var (
		file        string
		skipSchema  bool
		failOnError bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a JSON payload of entities and relationships",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			var sg models.Subgraph
			if err := json.Unmarshal(data, &sg); err != nil {
				return fmt.Errorf("parse payload: %w", err)
			}
			// Entities without an ID get one assigned before merge.
			for i := range sg.Entities {
				if sg.Entities[i].ID == "" {
					sg.Entities[i].ID = uuid.NewString()
				}
			}

			if !skipSchema {
				constraints, indexes := schema.Defaults()
				if err := app.schema.Apply(ctx, constraints, indexes); err != nil {
					return err
				}
			}

			entityResult, relResult := app.builder.AddSubgraph(ctx, sg)
			app.analyzer.Invalidate()

			out := map[string]any{
				"entities":      entityResult,
				"relationships": relResult,
			}
			if err := printJSON(out); err != nil {
				return err
			}
			if entityResult.Err != nil {
				return entityResult.Err
			}
			if relResult.Err != nil {
				return relResult.Err
			}
			if failOnError && (entityResult.Failed() || relResult.Failed()) {
				return fmt.Errorf("%d batch(es) failed",
					len(entityResult.FailedBatches)+len(relResult.FailedBatches))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with entities and relationships")
	cmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "do not apply the default schema first")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero if any batch failed")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphcortex/internal/schema"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect or apply the graph schema",
	}
	cmd.AddCommand(newSchemaShowCmd(), newSchemaApplyCmd())
	return cmd
}

func newSchemaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the labels, relationship types, and property keys in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			info, err := app.query.Schema(ctx)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
}

func newSchemaApplyCmd() *cobra.Command {
	var (
		constraints []string
		indexes     []string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Declare uniqueness constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			cs, is := schema.Defaults()
			for _, spec := range constraints {
				label, prop, err := splitSpec(spec)
				if err != nil {
					return err
				}
				cs = append(cs, schema.Constraint{Label: label, Property: prop})
			}
			for _, spec := range indexes {
				label, prop, err := splitSpec(spec)
				if err != nil {
					return err
				}
				is = append(is, schema.Index{Label: label, Property: prop})
			}
			if err := app.schema.Apply(ctx, cs, is); err != nil {
				return err
			}
			return printJSON(map[string]int{
				"constraints": len(cs),
				"indexes":     len(is),
			})
		},
	}
	cmd.Flags().StringArrayVar(&constraints, "unique", nil,
		"uniqueness constraint as Label.property (repeatable)")
	cmd.Flags().StringArrayVar(&indexes, "index", nil,
		"lookup index as Label.property (repeatable)")
	return cmd
}

func splitSpec(spec string) (string, string, error) {
	label, prop, ok := strings.Cut(spec, ".")
	if !ok || label == "" || prop == "" {
		return "", "", fmt.Errorf("invalid schema spec %q, expected Label.property", spec)
	}
	return label, prop, nil
}

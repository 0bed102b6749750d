package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "query <cypher>",
		Short: "Execute a structured read query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}
			result, err := app.query.ExecuteStructured(ctx, args[0], parsed)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil,
		"query parameter as name=value (repeatable)")
	return cmd
}

// parseParams turns name=value pairs into typed parameters. Values that
// parse as integers, floats, or booleans are passed with that type,
// everything else as a string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", pair)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			out[name] = n
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			out[name] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			out[name] = b
		} else {
			out[name] = value
		}
	}
	return out, nil
}

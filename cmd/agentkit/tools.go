package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skosovsky/agentkit"
)

type toolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the compiled schemas of the built-in tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			compiler := agentkit.NewCompiler(agentkit.WithLogger(a.logger))
			compiled, err := compiler.CompileAll(builtinTools())
			if err != nil {
				return err
			}
			out := make([]toolSchema, 0, len(compiled))
			for _, ct := range compiled {
				out = append(out, toolSchema{Name: ct.Name, Description: ct.Description, Parameters: ct.ParametersMap()})
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vehicle-interface/internal/vehicle"
)

func newModelsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported vehicle models",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := vehicle.Models()
			if opts.format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(models)
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

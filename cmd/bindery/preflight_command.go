package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bindery/internal/api"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check repository reachability and local directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(service *api.BatchService) error {
				results := service.Preflight(cmd.Context())
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}

				rows := make([][]string, 0, len(results))
				allPassed := true
				for _, result := range results {
					state := "ok"
					if !result.Passed {
						state = "FAIL"
						allPassed = false
					}
					rows = append(rows, []string{result.Name, state, result.Detail})
				}
				table := renderTable([]string{"Check", "State", "Detail"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				if !allPassed {
					return errors.New("preflight failed")
				}
				return nil
			})
		},
	}
}

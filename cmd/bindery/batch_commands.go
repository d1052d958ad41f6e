package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"bindery/internal/api"
	"bindery/internal/batch"
	"bindery/internal/repo"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Inspect and manage the submission ledger",
	}

	batchCmd.AddCommand(newBatchStatusCommand(ctx))
	batchCmd.AddCommand(newBatchListCommand(ctx))
	batchCmd.AddCommand(newBatchRetryCommand(ctx))
	batchCmd.AddCommand(newBatchClearCommand(ctx))

	return batchCmd
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(service *api.BatchService) error {
				stats, err := service.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.LedgerStatsResponse{Counts: stats})
				}
				total := 0
				for _, count := range stats {
					total += count
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
					return nil
				}
				rows := buildStatusRows(stats)
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newBatchListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []batch.Status
			for _, statusStr := range listStatuses {
				statuses = append(statuses, batch.Status(strings.ToLower(strings.TrimSpace(statusStr))))
			}

			return ctx.withService(func(service *api.BatchService) error {
				records, err := service.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.SubmissionListResponse{Records: records})
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Package", "Status", "Kind", "Attempts", "Location"},
					buildListRows(records),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, succeeded, failed)")
	return cmd
}

func newBatchRetryCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-submit failed ledger records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind repo.FailureKind
			if raw := strings.TrimSpace(kindFlag); raw != "" {
				parsed, ok := repo.ParseFailureKind(raw)
				if !ok {
					return fmt.Errorf("unknown failure kind %q (want connectivity, local_io, or rejected)", raw)
				}
				kind = parsed
			}

			return ctx.withService(func(service *api.BatchService) error {
				outcome, err := service.RetryFailed(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if outcome == nil {
					return errors.New("missing retry outcome")
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, outcome)
				}
				out := cmd.OutOrStdout()
				if outcome.Total == 0 {
					fmt.Fprintln(out, "No failed records match")
					return nil
				}
				fmt.Fprint(out, renderOutcomeTable(outcome))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Retried %d: %d succeeded, %d failed in %s\n",
					outcome.Total, outcome.Succeeded, outcome.Failed, outcome.Duration)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Only retry failures of this kind (connectivity, local_io, rejected)")
	return cmd
}

func newBatchClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool
	var completedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove ledger records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if failedOnly && completedOnly {
				return errors.New("--failed and --completed are mutually exclusive")
			}
			return ctx.withService(func(service *api.BatchService) error {
				var removed int64
				var err error
				switch {
				case completedOnly:
					removed, err = service.ClearSucceeded(cmd.Context())
				default:
					removed, err = service.Clear(cmd.Context(), failedOnly)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove failed records")
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove succeeded records")
	return cmd
}

func buildStatusRows(stats map[string]int) [][]string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildListRows(records []api.SubmissionRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", record.ID),
			record.Locator,
			record.Status,
			record.FailureKind,
			fmt.Sprintf("%d", record.Attempts),
			record.Location,
		})
	}
	return rows
}

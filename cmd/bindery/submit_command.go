package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bindery/internal/api"
	"bindery/internal/config"
	"bindery/internal/fileutil"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <package.zip>...",
		Short: "Submit package archives to the configured collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			locators := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("inspect package %q: %w", arg, err)
				}
				if info.IsDir() {
					return fmt.Errorf("package %q is a directory", arg)
				}
				staged, err := stagePackage(cfg.Paths.PackageDir, path)
				if err != nil {
					return err
				}
				locators = append(locators, staged)
			}

			return ctx.withService(func(service *api.BatchService) error {
				outcome, err := service.RunBatch(cmd.Context(), locators)
				if err != nil {
					return err
				}
				if outcome == nil {
					return errors.New("missing batch outcome")
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, outcome)
				}

				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderOutcomeTable(outcome))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Run %s: %d succeeded, %d failed in %s\n",
					outcome.RunID, outcome.Succeeded, outcome.Failed, outcome.Duration)
				if outcome.Failed > 0 {
					fmt.Fprintln(out, "Retry failures with `bindery batch retry`")
				}
				return nil
			})
		},
	}
}

// stagePackage copies an archive from outside the package directory into it
// with integrity verification, so ledger locators always point at managed
// paths that survive the original file moving.
func stagePackage(packageDir, path string) (string, error) {
	if packageDir == "" || filepath.Dir(path) == packageDir {
		return path, nil
	}
	dest := filepath.Join(packageDir, filepath.Base(path))
	if err := fileutil.CopyFileVerified(path, dest); err != nil {
		return "", fmt.Errorf("stage package %q: %w", filepath.Base(path), err)
	}
	return dest, nil
}

func renderOutcomeTable(outcome *api.BatchOutcome) string {
	rows := make([][]string, 0, len(outcome.Records))
	for _, record := range outcome.Records {
		detail := record.Location
		if record.Status == "failed" {
			detail = record.ErrorMessage
		}
		rows = append(rows, []string{
			record.Locator,
			record.Status,
			record.FailureKind,
			detail,
		})
	}
	return renderTable(
		[]string{"Package", "Status", "Kind", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

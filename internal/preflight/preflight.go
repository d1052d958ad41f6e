package preflight

import (
	"context"

	"bindery/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Package directory (always checked)
	results = append(results, CheckDirectoryAccess("Package directory", cfg.Paths.PackageDir))
	results = append(results, CheckFreeSpace("Free space", cfg.Paths.PackageDir, int64(cfg.Batch.MinFreeSpaceGiB)))

	// Log directory (when configured)
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckRepository(ctx, cfg))

	return results
}

// AllPassed reports whether every result in the set passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

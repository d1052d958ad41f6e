// Package api defines wire-format types, converters, and the batch service
// that orchestrates submission passes. It translates internal ledger models
// into transport-friendly DTOs that the CLI renders as tables or JSON
// without coupling to internal types.
//
// BatchService owns the moving parts of a pass: single-instance locking,
// preflight checks, ledger bookkeeping, coordinator execution, and
// notifications. CLI commands call it rather than wiring those pieces
// themselves.
//
// DTOs use camelCase JSON tags. Internal enums (batch.Status,
// repo.FailureKind) are exposed as lowercase strings. Timestamps use RFC3339
// with milliseconds.
package api

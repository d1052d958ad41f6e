// Package batch drives package submissions against the repository and keeps
// the outcome ledger.
//
// The Coordinator consumes an ordered list of package locators strictly
// sequentially, capturing every per-package failure instead of raising it,
// so one bad package never aborts the pass. Failures are classified by kind
// (connectivity, local I/O, rejection) and a retry pass re-drives only the
// entries matching a caller-supplied predicate.
//
// The Store persists submission outcomes in SQLite so later invocations can
// list results and retry failures across process boundaries. The in-memory
// ledger on the Coordinator remains the source of truth for a single pass;
// the store is its durable mirror.
package batch

// Package pack builds repository ingest packages.
//
// A Builder aggregates item-level metadata and an ordered list of
// Attachments, then materializes them into a zip archive containing a
// manifest.json descriptor plus one content entry per attachment. Field
// order, attachment order, and archive bytes are deterministic for identical
// builder state, which lets callers verify idempotent package generation.
//
// Attachment sources are single-use: the builder takes exclusive ownership
// of every source stream during Materialize and closes all of them on every
// exit path. A builder cannot be materialized twice; create a fresh builder
// instead.
package pack

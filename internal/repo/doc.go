// Package repo talks to the digital repository's REST API.
//
// The Client injects token authentication and exposes a collection handle
// whose SubmitPackage posts a built package archive to the collection's
// package endpoint. Submission failures are tagged with one of the exported
// sentinel errors so callers can classify them by kind (connectivity, local
// I/O, server rejection) and retry only transient classes.
//
// Generic resource CRUD and pagination live server-side of this tool's
// concerns and are deliberately not implemented here.
package repo

// Package config loads, normalizes, and validates bindery's TOML
// configuration.
//
// Load resolves the config path (explicit flag, then the user config dir,
// then a project-local bindery.toml), decodes it over the defaults from
// Default(), expands ~ in every path field, and validates the result. All
// consumers receive a fully-normalized Config; no other package re-reads the
// file or re-expands paths.
package config

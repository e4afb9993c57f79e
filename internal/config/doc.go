// Package config loads, normalizes, and validates camsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// CAMSORT_STATE_DIR. The Config type lists the daily schedule, the lookback
// window, manifest encoding, and the source/target pairs the assorter walks.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and validation errors that wrap
// ErrInvalid.
package config

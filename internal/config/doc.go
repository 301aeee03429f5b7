// Package config loads, normalizes, and validates cratewatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CRATEWATCH_QUEUE_DSN and CRATEWATCH_INDEX_TOKEN. Index and queue locations
// left blank are derived from the data directory so a bare config file is
// enough to start syncing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

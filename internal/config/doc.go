// Package config loads, normalizes, and validates kura configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LAUNCHBOX_DIR and VNDB_TOKEN. The Config type centralizes the scoring
// weights, decision thresholds, locator pacing, and catalog location that the
// CLI needs, so every command sees the same sanitized view.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config

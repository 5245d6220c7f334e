// Package config loads, normalizes, and validates conftalks configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GROQ_API_KEY and CONFTALKS_OUTPUT_DIR. Command-line flags are applied by the
// CLI after Load returns.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config

// Package config loads codeindex settings from ~/.codeindex/config.yaml,
// an optional .env file and CODEINDEX_* environment variables.
package config

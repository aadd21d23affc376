// Package config loads daemon settings from an optional TOML file overlaid
// with environment variables. The environment always wins, matching how the
// daemon is deployed in containers where only env vars are practical.
package config

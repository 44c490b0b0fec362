// Package config loads and validates the rosahcp service configuration and
// provisioning spec files from YAML.
package config

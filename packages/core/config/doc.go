// Package config handles configuration loading and management for hitnet.
//
// It provides functionality for:
//   - Loading configuration from .hitnet.json or .hitnet.yaml files
//   - Named environments requests are resolved against
//   - Default configuration values
package config

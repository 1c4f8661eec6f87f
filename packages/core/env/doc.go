// Package env loads environment variables for hitnet.
//
// It provides functionality for:
//   - Loading .env files for the CLI's --env-file flag
//   - Reading prefixed variables from the process environment
//   - Building a network environment (scheme, host, path) from variables
package env

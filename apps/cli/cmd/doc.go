// Package cmd implements the hitnet CLI commands using Cobra.
//
// Available commands:
//   - request: Send a plain or authenticated call to an environment
//   - cookies: List or clear persisted session cookies
//   - mock: Run the fake session API locally
//   - init: Write a starter configuration file
//   - version: Show hitnet version information
//
// Request supports repeated calls with rate pacing, JSON captures, schema
// checks and a watch mode that re-runs when configuration changes.
package cmd

// Package output provides formatters for displaying call results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - TAP: Test Anything Protocol format
//
// Console output is written as calls complete. JSON and TAP accumulate
// calls and write everything on Flush.
package output

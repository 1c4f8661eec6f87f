// Package capture extracts values from JSON response bodies.
//
// Paths use gjson syntax, for example "user.id" or "items.#.name". An empty
// path captures the whole body. Captures are declared on the command line as
// name=path pairs.
package capture

// Package network is the request core of hitnet.
//
// It provides:
//   - A declarative request builder (method, endpoint, parameters, headers)
//   - Cookie-based session authentication replayed on authenticated calls
//   - Two delivery channels per call: a replaying Observable and a Future
//
// Actual transfer is delegated to a Transport. The default implementation
// lives in packages/http.
package network

// Package http is the default transport for hitnet.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts
//   - Redirect handling
//   - Proxy and TLS verification settings
//   - Execution of network.Descriptor values, synchronously via Do or
//     through the network.Transport Submit/Start contract
package http

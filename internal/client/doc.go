// Package client is the tuple-space client.
//
// Each operation dials a fresh TCP connection to the configured address,
// writes one request, half-closes the write side and decodes the response.
// Connections are never reused and nothing is retried. A Client holds no
// mutable state and may be shared between goroutines.
//
// Blocking Get and Read wait for as long as the server does. Bound them
// with a context deadline, which is applied to the connection; cancelling
// the context closes it.
package client

// Package protocol owns the command exchange built on tuple frames.
//
// Ownership boundary:
// - command codes and per-command request/response shapes
// - request encoding and response decoding for clients
// - request decoding and response encoding for servers
//
// Every exchange is one command on one connection: a 4-byte command code,
// the command payload, a half-close by the client, then the response.
package protocol

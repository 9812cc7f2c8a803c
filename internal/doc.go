// Package internal holds helpers private to authgate.
//
// # Sub-packages
//
//   - config: process configuration loading for cmd/authgate
//   - flows: orchestration behind every Engine operation
//   - hashpool: bounded concurrency for password hashing
//   - rate: Redis-backed fixed-window throttles
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
package internal

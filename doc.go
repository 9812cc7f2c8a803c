// Package authgate authenticates users and validates their sessions. It
// issues HS256 access and refresh tokens, keeps one Redis session record per
// user, and checks a double-submit CSRF token on every authenticated request.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the error sentinels and value types ([Identity], [LoginResult], ...). Flow
// orchestration, rate limiting and password hash scheduling live under
// internal/ and are never exported. HTTP concerns live in the middleware and
// httpapi packages.
//
// # Session model
//
// A user has at most one live session. Login overwrites the record, which
// invalidates tokens from any previous login; logout deletes it. A token that
// verifies cryptographically is still rejected unless it equals the one held
// in the record.
//
// # What this package must NOT do
//
//   - Expose Redis clients or internal stores in its public API.
//   - Perform I/O outside of Engine methods.
//   - Import any sub-package that re-imports authgate (no import cycles).
//   - Log or audit tokens and passwords.
package authgate

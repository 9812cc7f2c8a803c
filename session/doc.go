// Package session provides the Redis-backed session record that makes issued
// tokens revocable.
//
// # Layout
//
// Each user has at most one live record, stored as a Redis hash under
// "<prefix>:<user_id>" with the fields access, refresh, csrf and created_at.
// The TTL applies to the whole key. A new login overwrites the key; logout
// and account deletion remove it.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Record] model. It does NOT verify
// token signatures or decide whether a request is authenticated; that is the
// Engine's job. It must not import authgate or jwt.
package session

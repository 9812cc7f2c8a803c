// Package middleware adapts [authgate.Engine] to net/http.
//
// # Guards
//
//   - [Guard] runs the authentication gate and stores the resulting
//     [authgate.Identity] in the request context.
//   - [RequireRole] additionally demands an exact role match.
//
// The access token is read from the access cookie, or from an
// Authorization: Bearer header for non-browser callers. The CSRF token is
// read from the configured header, with the cookie fallback only when the
// engine enables it.
//
// # Errors
//
// [StatusFor] maps engine errors to HTTP statuses and [WriteError] renders
// them as JSON. Handlers outside this package use the same pair so every
// endpoint reports failures the same way.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the user store.
//   - Distinguish invalid tokens from revoked ones in responses.
package middleware

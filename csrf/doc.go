// Package csrf implements the double-submit CSRF check. A random token is
// stored in the session record and mirrored to the client in a readable
// cookie; state-changing requests must echo it back in a header.
package csrf

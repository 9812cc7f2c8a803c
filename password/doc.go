// Package password implements password hashing and the password strength
// policy.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash on the next successful login.
//
// # Policy
//
// [Policy.Check] evaluates every rule and returns all violations at once, so a
// client can show the full list instead of one problem per attempt.
//
// This package never stores passwords and never logs them.
package password

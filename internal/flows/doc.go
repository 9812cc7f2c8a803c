// Package flows contains the orchestration behind every Engine operation.
//
// Each flow function (RunGate, RunLogin, RunRefresh, ...) accepts a typed
// dependency struct and returns a result carrying a failure kind, so the
// Engine can map failures onto its public error values without this package
// importing authgate.
//
// Flows coordinate the session store, token codec, user store, hasher and
// rate limiter. They do not own any of them and hold no state between calls.
package flows

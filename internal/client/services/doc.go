// Package services holds the client's application services.
//
// SessionManager owns the OAuth session: it restores the token persisted in
// the metadata store, acquires fresh tokens through a TokenProvider and
// clears everything on sign-out, forced expiry or a failed sign-in.
//
// Controller is the single entry point used by the REPL. It decides per
// operation whether the remote table or the local store serves it, repairs
// a missing or drifted remote table once per operation, and falls back to
// the local store when the remote side cannot be used. Remote failures never
// escape the controller; callers observe the outcome through View.
package services

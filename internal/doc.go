// Package internal contains helpers that are private to passAuth, starting
// with secure random token generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window sign-in throttle
//   - cli: the passauth command tree
//
// # What this package must NOT do
//
//   - Export types that appear in the public passAuth API.
//   - Use any randomness source other than crypto/rand.
package internal

// Package rate implements the Redis-backed failed sign-in throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit of a window. Keys:
//   - <prefix>:si:<name>  failed sign-ins per user name
//   - <prefix>:sip:<ip>   failed sign-ins per client IP
//
// # What this package must NOT do
//
//   - Decide what happens when a limit is hit; the engine does.
//   - Be imported outside the passAuth module.
package rate

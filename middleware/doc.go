// Package middleware adapts passAuth sessions to net/http.
//
// [Manager.Session] reads the session cookie, decodes it with a
// sessiontoken.Codec, lets the Engine decide whether the session lapsed,
// slides the expiry forward and stores the resulting snapshot in the request
// context. Handlers read it back with [SessionFromContext] or [CurrentUser].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Expiry decisions
// are delegated to Engine.SessionExpired and Engine.UpdateSessionExpiry; the
// package never reads the user repository.
package middleware

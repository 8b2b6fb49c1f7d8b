// Package sessiontoken signs a passAuth session snapshot into a compact JWT
// and parses it back, so a host can carry the snapshot in a cookie or header
// without server-side session storage.
//
// The token carries only the user id, the user name and the snapshot expiry.
// Expiry is not enforced while parsing: the host decides with
// Engine.SessionExpired, which applies the guest and boundary rules.
package sessiontoken

// Package passAuth implements the credential and token lifecycle of password
// based authentication: sign-up with a must-reset placeholder password,
// sign-in, sign-out, password change, reset token issuance and redemption,
// and session expiry bookkeeping.
//
// The package is designed to be embedded in a host application. The host owns
// persistence (through [Repository]), session transport and UI messaging; the
// [Engine] owns only the decisions and the values the host must store.
//
// # Architecture boundaries
//
// passAuth is the public surface. It exposes [Engine], [Builder], [Config],
// [UserRecord], [SessionSnapshot] and the [Failure] error type. Hashing lives
// in the password package, expiry arithmetic in the expiry package, and random
// token generation, rate limiting and audit dispatch under internal/.
//
// # Results
//
// Every use case returns (UserRecord, error). Expected business outcomes are
// reported as a *[Failure] carrying a [FailureCode] and the auxiliary fields
// the host needs (offending current user, searched name, token). Use
// [CodeOf] or errors.Is against the Err* sentinels to branch on them.
//
// # Concurrency
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. The engine never retries repository calls.
package passAuth

// Package password hashes and verifies passwords.
//
// Two algorithms implement [Hasher]:
//
//   - [Bcrypt] (the default) encodes hashes in the usual $2a$ modular crypt
//     format. Inputs longer than 72 bytes are pre-hashed with SHA-256 so
//     that no suffix is silently ignored.
//   - [Argon2] encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both take the work factor per call and both treat an empty password as
// hashable; the engine relies on that for placeholder passwords.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other passAuth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password

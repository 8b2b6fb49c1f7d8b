// Package store groups the [passAuth.Repository] implementations.
//
// Every adapter applies updates through [passAuth.UserChanges.Apply] so the
// field semantics are identical across backends:
//
//   - memory: mutex-guarded maps, for tests and single-process hosts.
//   - redisstore: Redis hashes with name and token index keys.
//   - postgres: pgx connection pool, schema managed by golang-migrate.
//   - sqlite: database/sql with the pure-Go modernc driver.
package store

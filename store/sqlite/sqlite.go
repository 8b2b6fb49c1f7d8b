// Package sqlite implements [passAuth.Repository] on SQLite through
// database/sql and the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL UNIQUE,
	password_hash    TEXT NOT NULL,
	token            TEXT UNIQUE,
	token_expires_at TEXT,
	profile          TEXT NOT NULL DEFAULT '{}',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
`

const userColumns = `id, name, password_hash, token, token_expires_at, profile, created_at, updated_at`

// Store is a SQLite-backed user repository.
type Store struct {
	db *sql.DB
}

// Open opens dsn with the "sqlite" driver and prepares the schema. The pool
// is limited to one connection so that ":memory:" databases are shared and
// writes are serialized.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("DB_OPEN_FAILED").With("dsn", dsn).Wrap(err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_OPEN_FAILED").With("dsn", dsn).Wrap(err)
	}

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New prepares the schema on an existing handle.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, oops.Code("DB_OPEN_FAILED").Errorf("sqlite store: db is nil")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, oops.Code("SCHEMA_CREATE_FAILED").Wrap(err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByName implements [passAuth.Repository].
func (s *Store) FindByName(ctx context.Context, name string) (passAuth.UserRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	return s.find(row, "find by name")
}

// FindByToken implements [passAuth.Repository].
func (s *Store) FindByToken(ctx context.Context, token string) (passAuth.UserRecord, bool, error) {
	if token == "" {
		return passAuth.UserRecord{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE token = ?`, token)
	return s.find(row, "find by token")
}

func (s *Store) find(row *sql.Row, operation string) (passAuth.UserRecord, bool, error) {
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return passAuth.UserRecord{}, false, nil
	}
	if err != nil {
		return passAuth.UserRecord{}, false, oops.Code("USER_LOOKUP_FAILED").With("operation", operation).Wrap(err)
	}
	return user, true, nil
}

// Create implements [passAuth.Repository].
func (s *Store) Create(ctx context.Context, user passAuth.UserRecord) (passAuth.UserRecord, error) {
	profile, err := encodeProfile(user.Profile)
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_ENCODE_FAILED").With("name", user.Name).Wrap(err)
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (name, password_hash, token, token_expires_at, profile, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.PasswordHash,
		nullIfEmpty(user.Token),
		nullTime(user.TokenExpiresAt),
		profile,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "users.name") {
			return passAuth.UserRecord{}, oops.Code("USER_NAME_TAKEN").With("name", user.Name).Wrap(passAuth.ErrDuplicateName)
		}
		return passAuth.UserRecord{}, oops.Code("USER_CREATE_FAILED").With("name", user.Name).Wrap(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_CREATE_FAILED").With("name", user.Name).Wrap(err)
	}

	out := user.Clone()
	out.ID = id
	return out, nil
}

// Update implements [passAuth.Repository] as a read-modify-write inside one
// transaction.
func (s *Store) Update(ctx context.Context, id int64, changes passAuth.UserChanges) (passAuth.UserRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return passAuth.UserRecord{}, oops.Code("USER_NOT_FOUND").With("user_id", id).Wrap(passAuth.ErrRecordNotFound)
	}
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}
	if err := changes.Check(current); err != nil {
		return passAuth.UserRecord{}, oops.Code("TOKEN_MISMATCH").With("user_id", id).Wrap(err)
	}

	updated := changes.Apply(current)
	_, err = tx.ExecContext(ctx, `
UPDATE users
SET password_hash = ?, token = ?, token_expires_at = ?, updated_at = ?
WHERE id = ?`,
		updated.PasswordHash,
		nullIfEmpty(updated.Token),
		nullTime(updated.TokenExpiresAt),
		formatTime(updated.UpdatedAt),
		id,
	)
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}

	if err := tx.Commit(); err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}
	return updated, nil
}

// GuestUser implements [passAuth.Repository].
func (s *Store) GuestUser() passAuth.UserRecord {
	return passAuth.Guest()
}

type userScanner interface {
	Scan(dest ...any) error
}

func scanUser(scanner userScanner) (passAuth.UserRecord, error) {
	var (
		u              passAuth.UserRecord
		token          sql.NullString
		tokenExpiresAt sql.NullString
		profile        string
		createdAt      string
		updatedAt      string
	)
	if err := scanner.Scan(&u.ID, &u.Name, &u.PasswordHash, &token, &tokenExpiresAt, &profile, &createdAt, &updatedAt); err != nil {
		return passAuth.UserRecord{}, err
	}

	u.Token = token.String
	var err error
	if tokenExpiresAt.Valid {
		if u.TokenExpiresAt, err = time.Parse(time.RFC3339Nano, tokenExpiresAt.String); err != nil {
			return passAuth.UserRecord{}, err
		}
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return passAuth.UserRecord{}, err
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return passAuth.UserRecord{}, err
	}

	if profile != "" && profile != "{}" {
		if err := json.Unmarshal([]byte(profile), &u.Profile); err != nil {
			return passAuth.UserRecord{}, err
		}
	}
	return u, nil
}

func encodeProfile(p map[string]string) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(p)
	return string(raw), err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error, column string) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

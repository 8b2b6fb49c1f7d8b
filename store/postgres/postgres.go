// Package postgres implements [passAuth.Repository] on PostgreSQL using a
// pgx connection pool. Apply the schema with [Migrator] before use.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

const nameConstraint = "users_name_unique"

const userColumns = `id, name, password_hash, token, token_expires_at, profile, created_at, updated_at`

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed user repository.
type Store struct {
	pool  Pool
	close func()
}

// New returns a Store on an existing pool. The caller owns the pool.
func New(pool Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return &Store{pool: pool, close: pool.Close}, nil
}

// Close releases the pool when the Store opened it.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// FindByName implements [passAuth.Repository].
func (s *Store) FindByName(ctx context.Context, name string) (passAuth.UserRecord, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return passAuth.UserRecord{}, false, nil
	}
	if err != nil {
		return passAuth.UserRecord{}, false, oops.Code("USER_LOOKUP_FAILED").With("operation", "find by name").With("name", name).Wrap(err)
	}
	return user, true, nil
}

// FindByToken implements [passAuth.Repository].
func (s *Store) FindByToken(ctx context.Context, token string) (passAuth.UserRecord, bool, error) {
	if token == "" {
		return passAuth.UserRecord{}, false, nil
	}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE token = $1`, token)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return passAuth.UserRecord{}, false, nil
	}
	if err != nil {
		return passAuth.UserRecord{}, false, oops.Code("USER_LOOKUP_FAILED").With("operation", "find by token").Wrap(err)
	}
	return user, true, nil
}

// Create implements [passAuth.Repository]. A unique violation on the name
// constraint is reported as [passAuth.ErrDuplicateName].
func (s *Store) Create(ctx context.Context, user passAuth.UserRecord) (passAuth.UserRecord, error) {
	profile, err := encodeProfile(user.Profile)
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_ENCODE_FAILED").With("name", user.Name).Wrap(err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (name, password_hash, token, token_expires_at, profile, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		user.Name,
		user.PasswordHash,
		nullText(user.Token),
		nullTime(user.TokenExpiresAt),
		profile,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == nameConstraint {
			return passAuth.UserRecord{}, oops.Code("USER_NAME_TAKEN").With("name", user.Name).Wrap(passAuth.ErrDuplicateName)
		}
		return passAuth.UserRecord{}, oops.Code("USER_CREATE_FAILED").With("name", user.Name).Wrap(err)
	}

	out := user.Clone()
	out.ID = id
	return out, nil
}

// Update implements [passAuth.Repository] as a single UPDATE ... RETURNING.
// UserChanges.IfToken is enforced in the WHERE clause.
func (s *Store) Update(ctx context.Context, id int64, changes passAuth.UserChanges) (passAuth.UserRecord, error) {
	var hash pgtype.Text
	if changes.PasswordHash != nil {
		hash = pgtype.Text{String: *changes.PasswordHash, Valid: true}
	}

	setToken := changes.ClearToken || changes.Token != nil
	var token pgtype.Text
	var tokenExpiresAt pgtype.Timestamptz
	if !changes.ClearToken && changes.Token != nil {
		token = nullText(changes.Token.Value)
		tokenExpiresAt = nullTime(changes.Token.ExpiresAt)
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE users SET
		   password_hash    = COALESCE($2::text, password_hash),
		   token            = CASE WHEN $3::boolean THEN $4::text ELSE token END,
		   token_expires_at = CASE WHEN $3::boolean THEN $5::timestamptz ELSE token_expires_at END,
		   updated_at       = COALESCE($6::timestamptz, updated_at)
		 WHERE id = $1 AND ($7::text IS NULL OR token = $7::text)
		 RETURNING `+userColumns,
		id,
		hash,
		setToken,
		token,
		tokenExpiresAt,
		nullTime(changes.UpdatedAt),
		nullText(changes.IfToken),
	)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// The guarded statement cannot tell a missing row from a replaced
		// token; either way the token no longer resolves.
		if changes.IfToken != "" {
			return passAuth.UserRecord{}, oops.Code("TOKEN_MISMATCH").With("user_id", id).Wrap(passAuth.ErrTokenMismatch)
		}
		return passAuth.UserRecord{}, oops.Code("USER_NOT_FOUND").With("user_id", id).Wrap(passAuth.ErrRecordNotFound)
	}
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// GuestUser implements [passAuth.Repository].
func (s *Store) GuestUser() passAuth.UserRecord {
	return passAuth.Guest()
}

func scanUser(row pgx.Row) (passAuth.UserRecord, error) {
	var (
		u              passAuth.UserRecord
		token          pgtype.Text
		tokenExpiresAt pgtype.Timestamptz
		profile        []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &token, &tokenExpiresAt, &profile, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return passAuth.UserRecord{}, err
	}

	if token.Valid {
		u.Token = token.String
	}
	if tokenExpiresAt.Valid {
		u.TokenExpiresAt = tokenExpiresAt.Time.UTC()
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	if len(profile) > 0 && string(profile) != "{}" {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return passAuth.UserRecord{}, err
		}
	}
	return u, nil
}

func encodeProfile(p map[string]string) ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

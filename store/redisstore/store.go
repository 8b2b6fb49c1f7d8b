// Package redisstore implements [passAuth.Repository] on Redis.
//
// Layout, with the default prefix "pa":
//
//	pa:user:<id>      hash with the record fields
//	pa:name:<name>    id, claimed with SETNX so names stay unique
//	pa:token:<token>  id of the record currently holding the token
//	pa:user:seq       id sequence
//
// Updates run under WATCH on the user hash and swap the token index inside
// the same MULTI, so a replaced token stops resolving atomically.
package redisstore

import (
	"context"
	"errors"
	"strconv"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const updateMaxRetries = 4

// ErrUpdateConflict is returned when an update lost the optimistic lock on
// every retry.
var ErrUpdateConflict = errors.New("redisstore: concurrent update conflict")

// Store is a Redis-backed user repository.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store using client. An empty prefix defaults to "pa".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "pa"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) userKey(id int64) string {
	return s.prefix + ":user:" + strconv.FormatInt(id, 10)
}

func (s *Store) nameKey(name string) string {
	return s.prefix + ":name:" + name
}

func (s *Store) tokenKey(token string) string {
	return s.prefix + ":token:" + token
}

func (s *Store) seqKey() string {
	return s.prefix + ":user:seq"
}

// FindByName implements [passAuth.Repository].
func (s *Store) FindByName(ctx context.Context, name string) (passAuth.UserRecord, bool, error) {
	return s.findByIndex(ctx, s.nameKey(name), func(u passAuth.UserRecord) bool {
		return u.Name == name
	})
}

// FindByToken implements [passAuth.Repository]. An index entry pointing at a
// record that no longer holds the token is treated as a miss.
func (s *Store) FindByToken(ctx context.Context, token string) (passAuth.UserRecord, bool, error) {
	if token == "" {
		return passAuth.UserRecord{}, false, nil
	}
	return s.findByIndex(ctx, s.tokenKey(token), func(u passAuth.UserRecord) bool {
		return u.Token == token
	})
}

func (s *Store) findByIndex(ctx context.Context, indexKey string, match func(passAuth.UserRecord) bool) (passAuth.UserRecord, bool, error) {
	raw, err := s.redis.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return passAuth.UserRecord{}, false, nil
		}
		return passAuth.UserRecord{}, false, oops.Code("USER_LOOKUP_FAILED").With("key", indexKey).Wrap(err)
	}

	id, err := parseID(raw)
	if err != nil {
		return passAuth.UserRecord{}, false, oops.Code("USER_DECODE_FAILED").With("key", indexKey).Wrap(err)
	}

	user, found, err := s.load(ctx, s.redis, id)
	if err != nil || !found {
		return passAuth.UserRecord{}, false, err
	}
	if !match(user) {
		return passAuth.UserRecord{}, false, nil
	}
	return user, true, nil
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (s *Store) load(ctx context.Context, c hashReader, id int64) (passAuth.UserRecord, bool, error) {
	fields, err := c.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return passAuth.UserRecord{}, false, oops.Code("USER_LOOKUP_FAILED").With("user_id", id).Wrap(err)
	}
	if len(fields) == 0 {
		return passAuth.UserRecord{}, false, nil
	}

	user, err := decodeUser(id, fields)
	if err != nil {
		return passAuth.UserRecord{}, false, oops.Code("USER_DECODE_FAILED").With("user_id", id).Wrap(err)
	}
	return user, true, nil
}

// Create implements [passAuth.Repository]. The name is claimed first; a
// failed write releases the claim.
func (s *Store) Create(ctx context.Context, user passAuth.UserRecord) (passAuth.UserRecord, error) {
	id, err := s.redis.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_CREATE_FAILED").With("operation", "allocate id").Wrap(err)
	}

	claimed, err := s.redis.SetNX(ctx, s.nameKey(user.Name), id, 0).Result()
	if err != nil {
		return passAuth.UserRecord{}, oops.Code("USER_CREATE_FAILED").With("operation", "claim name").Wrap(err)
	}
	if !claimed {
		return passAuth.UserRecord{}, oops.Code("USER_NAME_TAKEN").With("name", user.Name).Wrap(passAuth.ErrDuplicateName)
	}

	user = user.Clone()
	user.ID = id
	fields, err := encodeUser(user)
	if err != nil {
		s.releaseName(ctx, user.Name)
		return passAuth.UserRecord{}, oops.Code("USER_ENCODE_FAILED").With("name", user.Name).Wrap(err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.userKey(id), fields)
		if user.Token != "" {
			pipe.Set(ctx, s.tokenKey(user.Token), id, 0)
		}
		return nil
	})
	if err != nil {
		s.releaseName(ctx, user.Name)
		return passAuth.UserRecord{}, oops.Code("USER_CREATE_FAILED").With("operation", "write record").With("name", user.Name).Wrap(err)
	}

	return user, nil
}

func (s *Store) releaseName(ctx context.Context, name string) {
	_ = s.redis.Del(ctx, s.nameKey(name)).Err()
}

// Update implements [passAuth.Repository].
func (s *Store) Update(ctx context.Context, id int64, changes passAuth.UserChanges) (passAuth.UserRecord, error) {
	key := s.userKey(id)

	for i := 0; i < updateMaxRetries; i++ {
		var updated passAuth.UserRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, found, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if !found {
				return passAuth.ErrRecordNotFound
			}
			if err := changes.Check(current); err != nil {
				return err
			}

			updated = changes.Apply(current)
			fields, err := encodeUser(updated)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, fields)
				if current.Token != updated.Token {
					if current.Token != "" {
						pipe.Del(ctx, s.tokenKey(current.Token))
					}
					if updated.Token != "" {
						pipe.Set(ctx, s.tokenKey(updated.Token), id, 0)
					}
				}
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, passAuth.ErrRecordNotFound):
			return passAuth.UserRecord{}, oops.Code("USER_NOT_FOUND").With("user_id", id).Wrap(err)
		default:
			return passAuth.UserRecord{}, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
		}
	}

	return passAuth.UserRecord{}, oops.Code("USER_UPDATE_CONFLICT").With("user_id", id).Wrap(ErrUpdateConflict)
}

// GuestUser implements [passAuth.Repository].
func (s *Store) GuestUser() passAuth.UserRecord {
	return passAuth.Guest()
}

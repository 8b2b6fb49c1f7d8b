package redisstore

import (
	"context"
	"testing"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/MrEthical07/passAuth/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "pt"), mr
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) passAuth.Repository {
		s, _ := newTestStore(t)
		return s
	})
}

func TestKeyLayout(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, passAuth.UserRecord{
		Name:           "alice",
		PasswordHash:   "h",
		Token:          "tok",
		TokenExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	got, err := mr.Get("pt:name:alice")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	got, err = mr.Get("pt:token:tok")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	assert.Equal(t, "alice", mr.HGet("pt:user:1", "name"))
	assert.Equal(t, "2030-01-01T00:00:00Z", mr.HGet("pt:user:1", "token_expires_at"))
	assert.Equal(t, int64(1), created.ID)
}

func TestClearTokenRemovesIndex(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, passAuth.UserRecord{
		Name:           "alice",
		PasswordHash:   "h",
		Token:          "tok",
		TokenExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = s.Update(ctx, created.ID, passAuth.UserChanges{ClearToken: true})
	require.NoError(t, err)

	assert.False(t, mr.Exists("pt:token:tok"))
	assert.Equal(t, "", mr.HGet("pt:user:1", "token_expires_at"))
}

func TestStaleTokenIndexIsMiss(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, passAuth.UserRecord{Name: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("pt:token:forged", "1"))

	_, found, err := s.FindByToken(ctx, "forged")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestErrorsCarryCodes(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, 99, passAuth.UserChanges{})
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "USER_NOT_FOUND", oopsErr.Code())

	mr.Close()
	_, _, err = s.FindByName(ctx, "alice")
	require.Error(t, err)
	oopsErr, ok = oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "USER_LOOKUP_FAILED", oopsErr.Code())
}

func TestEngineRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	cfg := passAuth.DevelopmentConfig()
	engine, err := passAuth.New().WithConfig(cfg).WithRepository(s).Build()
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	user, err := engine.SignUp(ctx, passAuth.SignUpAttributes{Name: "alice"}, nil)
	require.NoError(t, err)

	user, err = engine.ResetPassword(ctx, user.Token, "s3cret!", nil)
	require.NoError(t, err)

	_, err = engine.SignInByName(ctx, "alice", "s3cret!", nil)
	require.NoError(t, err)
}

// Package storetest is a conformance suite for [passAuth.Repository]
// implementations. Adapter packages call [Run] from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) passAuth.Repository

var baseTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleUser(name string) passAuth.UserRecord {
	return passAuth.UserRecord{
		Name:           name,
		PasswordHash:   "$2a$04$placeholderplaceholderplaceholderplaceholderplacehol",
		Token:          "tok-" + name,
		TokenExpiresAt: baseTime.Add(24 * time.Hour),
		Profile:        map[string]string{"email": name + "@example.com"},
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
	}
}

// Run executes every conformance check against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("CreateAssignsIDAndFinds", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, created.ID, int64(1))
		assert.False(t, created.IsGuest())

		byName, found, err := repo.FindByName(ctx, "alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created.ID, byName.ID)
		assert.Equal(t, created.PasswordHash, byName.PasswordHash)
		assert.True(t, created.TokenExpiresAt.Equal(byName.TokenExpiresAt))
		assert.True(t, baseTime.Equal(byName.CreatedAt))
		assert.Equal(t, "alice@example.com", byName.Profile["email"])

		byToken, found, err := repo.FindByToken(ctx, "tok-alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created.ID, byToken.ID)
	})

	t.Run("FindMissing", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, found, err := repo.FindByName(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = repo.FindByToken(ctx, "nothing")
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = repo.FindByToken(ctx, "")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)

		dup := sampleUser("alice")
		dup.Token = "other-token"
		_, err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, passAuth.ErrDuplicateName)
	})

	t.Run("UpdateReplacesToken", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)

		next := baseTime.Add(48 * time.Hour)
		updated, err := repo.Update(ctx, created.ID, passAuth.UserChanges{
			Token: &passAuth.ResetToken{Value: "tok-second", ExpiresAt: next},
		})
		require.NoError(t, err)
		assert.Equal(t, "tok-second", updated.Token)
		assert.True(t, next.Equal(updated.TokenExpiresAt))
		assert.Equal(t, created.PasswordHash, updated.PasswordHash)

		_, found, err := repo.FindByToken(ctx, "tok-alice")
		require.NoError(t, err)
		assert.False(t, found, "stale token must be unindexed")

		got, found, err := repo.FindByToken(ctx, "tok-second")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("UpdateClearsTokenAndSetsHash", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)

		hash := "$2a$04$newhashnewhashnewhashnewhashnewhashnewhashnewhashnewha"
		later := baseTime.Add(time.Hour)
		updated, err := repo.Update(ctx, created.ID, passAuth.UserChanges{
			PasswordHash: &hash,
			ClearToken:   true,
			UpdatedAt:    later,
		})
		require.NoError(t, err)
		assert.Equal(t, hash, updated.PasswordHash)
		assert.Empty(t, updated.Token)
		assert.True(t, updated.TokenExpiresAt.IsZero())
		assert.True(t, later.Equal(updated.UpdatedAt))
		assert.False(t, updated.HasResetToken())

		got, found, err := repo.FindByName(ctx, "alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, hash, got.PasswordHash)
		assert.Empty(t, got.Token)
		assert.True(t, got.TokenExpiresAt.IsZero())

		_, found, err = repo.FindByToken(ctx, "tok-alice")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("UpdateIfTokenMismatchLeavesRecord", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)

		hash := "$2a$04$otherhashotherhashotherhashotherhashotherhashotherhash"
		_, err = repo.Update(ctx, created.ID, passAuth.UserChanges{
			PasswordHash: &hash,
			ClearToken:   true,
			IfToken:      "tok-stale",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, passAuth.ErrTokenMismatch)

		got, found, err := repo.FindByToken(ctx, "tok-alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created.PasswordHash, got.PasswordHash)
	})

	t.Run("UpdateIfTokenMatchApplies", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)

		hash := "$2a$04$otherhashotherhashotherhashotherhashotherhashotherhash"
		updated, err := repo.Update(ctx, created.ID, passAuth.UserChanges{
			PasswordHash: &hash,
			ClearToken:   true,
			IfToken:      "tok-alice",
		})
		require.NoError(t, err)
		assert.Equal(t, hash, updated.PasswordHash)
		assert.Empty(t, updated.Token)

		// The token is spent: a second guarded update must fail.
		_, err = repo.Update(ctx, created.ID, passAuth.UserChanges{
			ClearToken: true,
			IfToken:    "tok-alice",
		})
		assert.ErrorIs(t, err, passAuth.ErrTokenMismatch)
	})

	t.Run("ConcurrentIfTokenSingleWinner", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, sampleUser("alice"))
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		var ok, mismatch atomic.Int32
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				hash := fmt.Sprintf("hash-%d", i)
				_, err := repo.Update(ctx, created.ID, passAuth.UserChanges{
					PasswordHash: &hash,
					ClearToken:   true,
					IfToken:      "tok-alice",
				})
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, passAuth.ErrTokenMismatch):
					mismatch.Add(1)
				default:
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("unexpected error: %v", err)
		}
		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, int32(workers-1), mismatch.Load())
	})

	t.Run("UpdateUnknownID", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Update(context.Background(), 4242, passAuth.UserChanges{ClearToken: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, passAuth.ErrRecordNotFound)
	})

	t.Run("GuestUser", func(t *testing.T) {
		repo := newRepo(t)
		guest := repo.GuestUser()
		assert.True(t, passAuth.IsGuest(&guest))
	})

	t.Run("ConcurrentCreateSameName", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		const workers = 8
		var wg sync.WaitGroup
		var ok, dup atomic.Int32
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				u := sampleUser("race")
				u.Token = fmt.Sprintf("tok-race-%d", i)
				_, err := repo.Create(ctx, u)
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, passAuth.ErrDuplicateName):
					dup.Add(1)
				default:
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("unexpected create error: %v", err)
		}
		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, int32(workers-1), dup.Load())
	})
}

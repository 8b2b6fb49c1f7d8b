//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"testing"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/MrEthical07/passAuth/store/memory"
	"github.com/MrEthical07/passAuth/store/postgres"
	"github.com/MrEthical07/passAuth/store/redisstore"
	"github.com/MrEthical07/passAuth/store/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// backend is one Repository implementation under test.
type backend struct {
	name  string
	setup func(t *testing.T) passAuth.Repository
}

// backends returns the repositories to test. memory, sqlite and miniredis are
// always available. A real Redis is added when REDIS_ADDR is set and Postgres
// when PASSAUTH_POSTGRES_DSN is set.
func backends(t *testing.T) []backend {
	t.Helper()
	out := []backend{
		{
			name: "memory",
			setup: func(t *testing.T) passAuth.Repository {
				return memory.New()
			},
		},
		{
			name: "sqlite",
			setup: func(t *testing.T) passAuth.Repository {
				t.Helper()
				s, err := sqlite.Open(context.Background(), ":memory:")
				if err != nil {
					t.Fatalf("sqlite: %v", err)
				}
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
		{
			name: "miniredis",
			setup: func(t *testing.T) passAuth.Repository {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close(); mr.Close() })
				return redisstore.New(rdb, "it")
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		out = append(out, backend{
			name: "redis:" + addr,
			setup: func(t *testing.T) passAuth.Repository {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() { rdb.FlushDB(context.Background()); _ = rdb.Close() })
				return redisstore.New(rdb, "it")
			},
		})
	}

	if dsn := os.Getenv("PASSAUTH_POSTGRES_DSN"); dsn != "" {
		out = append(out, backend{
			name: "postgres",
			setup: func(t *testing.T) passAuth.Repository {
				t.Helper()
				m, err := postgres.NewMigrator(dsn)
				if err != nil {
					t.Skipf("cannot reach postgres: %v", err)
				}
				if err := m.Down(); err != nil {
					t.Fatalf("migrate down: %v", err)
				}
				if err := m.Up(); err != nil {
					t.Fatalf("migrate up: %v", err)
				}
				_ = m.Close()

				s, err := postgres.Open(context.Background(), dsn)
				if err != nil {
					t.Fatalf("postgres: %v", err)
				}
				t.Cleanup(s.Close)
				return s
			},
		})
	}
	return out
}

func newEngine(t *testing.T, repo passAuth.Repository) *passAuth.Engine {
	t.Helper()
	engine, err := passAuth.New().
		WithConfig(passAuth.DevelopmentConfig()).
		WithRepository(repo).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/MrEthical07/passAuth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewLoadtestCmd creates the "loadtest" subcommand. It drives sign-up,
// reset and sign-in concurrently against the Redis user store.
func NewLoadtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Benchmark sign-up, reset and sign-in against the redis store",
		Args:  cobra.NoArgs,
		RunE:  runLoadtest,
	}
	cmd.Flags().Int("users", 1000, "accounts to create")
	cmd.Flags().Int("concurrency", 32, "concurrent workers")
	cmd.Flags().Int("ops", 5000, "sign-in operations")
	cmd.Flags().String("prefix", "palt", "redis key prefix")
	return cmd
}

type loadUser struct {
	name     string
	password string
	token    string
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	users, _ := cmd.Flags().GetInt("users")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	ops, _ := cmd.Flags().GetInt("ops")
	prefix, _ := cmd.Flags().GetString("prefix")
	if users <= 0 || concurrency <= 0 || ops <= 0 {
		return fmt.Errorf("users, concurrency, and ops must be > 0")
	}
	out := cmd.OutOrStdout()

	logger, err := newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	client, cleanup, err := openRedis(out, s.Redis.Addr)
	if err != nil {
		return err
	}
	defer cleanup()

	b := passAuth.New().
		WithConfig(s.Engine).
		WithRepository(redisstore.New(client, prefix)).
		WithLogger(logger)
	if s.Engine.SignInThrottle.Enabled {
		b = b.WithRedis(client)
	}
	engine, err := b.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runID := time.Now().UnixNano()
	accounts := make([]loadUser, users)
	for i := range accounts {
		accounts[i] = loadUser{
			name:     fmt.Sprintf("load-%d-%d", runID, i),
			password: fmt.Sprintf("pw-%d-%d", runID, i),
		}
	}

	signUp := runPhase(users, concurrency, func(i int, _ *rand.Rand) error {
		u, err := engine.SignUp(ctx, passAuth.SignUpAttributes{Name: accounts[i].name}, nil)
		if err != nil {
			return err
		}
		accounts[i].token = u.Token
		return nil
	})

	reset := runPhase(users, concurrency, func(i int, _ *rand.Rand) error {
		if accounts[i].token == "" {
			return fmt.Errorf("no token for %s", accounts[i].name)
		}
		_, err := engine.ResetPassword(ctx, accounts[i].token, accounts[i].password, nil)
		return err
	})

	signIn := runPhase(ops, concurrency, func(_ int, r *rand.Rand) error {
		u := accounts[r.Intn(len(accounts))]
		_, err := engine.SignInByName(ctx, u.name, u.password, nil)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "signup", signUp)
	printStats(out, "reset", reset)
	printStats(out, "signin", signIn)
	return nil
}

func openRedis(out io.Writer, addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase calls op for indexes 0..n-1 across workers goroutines.
func runPhase(n, workers int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, n)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					return
				}
				t0 := time.Now()
				err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

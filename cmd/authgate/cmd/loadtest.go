package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/userstore/memory"
)

var loadtestOpts struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
}

type seededSession struct {
	access  string
	refresh string
	csrf    string
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure gate and refresh throughput against Redis",
	Long: `loadtest seeds users and sessions through the engine, then runs an
authenticate phase and a refresh phase with concurrent workers and prints
latency percentiles. Without --redis-addr an embedded server is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := loadtestOpts
		if o.users <= 0 || o.concurrency <= 0 || o.ops <= 0 {
			return fmt.Errorf("users, concurrency, and ops must be > 0")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		addr := o.redisAddr
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return fmt.Errorf("starting miniredis: %w", err)
			}
			defer mr.Close()
			addr = mr.Addr()
			fmt.Fprintf(out, "using miniredis at %s\n", addr)
		} else {
			fmt.Fprintf(out, "using redis at %s\n", addr)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		defer client.Close()

		cfg := authgate.DefaultConfig()
		cfg.JWT.SigningKey = []byte("loadtest-signing-key-0123456789abcdef")
		cfg.Session.RedisPrefix = "loadtest"
		cfg.Security.EnableLoginThrottle = false
		// Seeding cost is dominated by hashing; keep it cheap.
		cfg.Password.Memory = 8 * 1024
		cfg.Password.Time = 1
		cfg.Password.Parallelism = 1
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true

		engine, err := authgate.New().
			WithConfig(cfg).
			WithRedis(client).
			WithUserStore(memory.New()).
			Build()
		if err != nil {
			return err
		}
		defer engine.Close()

		fmt.Fprintf(out, "seeding %d sessions...\n", o.users)
		startSeed := time.Now()
		sessions, err := seedSessions(ctx, engine, o.users)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

		gateStats := runPhase(o.ops, o.concurrency, 7919, func(r *rand.Rand) error {
			s := sessions[r.Intn(len(sessions))]
			_, err := engine.Authenticate(ctx, authgate.Credentials{AccessToken: s.access, CSRFToken: s.csrf})
			return err
		})
		refreshStats := runPhase(o.ops, o.concurrency, 6151, func(r *rand.Rand) error {
			s := sessions[r.Intn(len(sessions))]
			_, err := engine.Refresh(ctx, s.refresh)
			return err
		})

		fmt.Fprintln(out, "---- results ----")
		fmt.Fprintln(out, formatStats("authenticate", gateStats))
		fmt.Fprintln(out, formatStats("refresh", refreshStats))
		return nil
	},
}

func init() {
	f := loadtestCmd.Flags()
	f.IntVar(&loadtestOpts.users, "users", 1000, "number of users to seed")
	f.IntVar(&loadtestOpts.concurrency, "concurrency", 256, "number of concurrent workers")
	f.IntVar(&loadtestOpts.ops, "ops", 200000, "operations per phase")
	f.StringVar(&loadtestOpts.redisAddr, "redis-addr", "", "redis address; empty starts miniredis")
	rootCmd.AddCommand(loadtestCmd)
}

func seedSessions(ctx context.Context, engine *authgate.Engine, n int) ([]seededSession, error) {
	const pw = "Load-Test-Passw0rd"
	out := make([]seededSession, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("load-%d", i)
		if _, err := engine.Register(ctx, authgate.RegisterRequest{
			Username: name,
			Email:    name + "@loadtest.invalid",
			Password: pw,
		}); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		res, err := engine.Login(ctx, name, pw)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", name, err)
		}
		out = append(out, seededSession{
			access:  res.AccessToken,
			refresh: res.RefreshToken,
			csrf:    res.CSRFToken,
		})
	}
	return out, nil
}

// runPhase calls op ops times across concurrency workers.
func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
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
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func formatStats(name string, s phaseStats) string {
	return fmt.Sprintf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s",
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

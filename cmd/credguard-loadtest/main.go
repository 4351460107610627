// Command credguard-loadtest drives the Engine flows concurrently against
// Redis (or miniredis) and prints latency percentiles and outcome counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/credguard"
	"github.com/MrEthical07/credguard/directory/memory"
	"github.com/MrEthical07/credguard/password"
)

const seedPassword = "correct-horse-battery"

type flowFunc func(ctx context.Context, r *rand.Rand, i int) error

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		ips         = flag.Int("ips", 5000, "number of distinct client IPs to spread calls over")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		bcryptCost  = flag.Int("bcrypt-cost", 4, "bcrypt work factor for seeded and checked passwords")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		namespace   = flag.String("namespace", "loadtest", "key namespace")
	)
	flag.Parse()

	if *users <= 0 || *ips <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, ips, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	hasher, err := password.NewBcrypt(*bcryptCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher: %v\n", err)
		os.Exit(2)
	}

	dir := memory.New()
	cfg := credguard.DefaultConfig()
	cfg.Namespace = *namespace
	cfg.Audit.Enabled = false

	engine, err := credguard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(dir).
		WithHasher(hasher).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}
	for i := 0; i < *users; i++ {
		if _, err := dir.Insert(ctx, credguard.User{Username: userName(i), PasswordHash: hash}); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	ipCtx := func(r *rand.Rand) context.Context {
		return credguard.WithClientIP(ctx, ipName(r.Intn(*ips)))
	}

	phases := []struct {
		name string
		run  flowFunc
	}{
		{"login", func(_ context.Context, r *rand.Rand, _ int) error {
			_, err := engine.Login(ipCtx(r), userName(r.Intn(*users)), seedPassword)
			return err
		}},
		{"login-wrong-password", func(_ context.Context, r *rand.Rand, _ int) error {
			_, err := engine.Login(ipCtx(r), userName(r.Intn(*users)), "wrong-password")
			return err
		}},
		{"forgot-password", func(_ context.Context, r *rand.Rand, _ int) error {
			return engine.ForgotPassword(ipCtx(r), userName(r.Intn(*users)))
		}},
		{"register", func(_ context.Context, r *rand.Rand, i int) error {
			_, err := engine.Register(ipCtx(r), fmt.Sprintf("new_%d", i), seedPassword, "")
			return err
		}},
	}

	results := make([]phaseStats, 0, len(phases))
	for _, p := range phases {
		fmt.Printf("running %s...\n", p.name)
		results = append(results, runPhase(ctx, p.run, *ops, *concurrency))
	}

	fmt.Println("---- results ----")
	for i, p := range phases {
		printStats(p.name, results[i])
	}
}

func runPhase(ctx context.Context, run flowFunc, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		latencies = make([]time.Duration, 0, ops)
		outcomes  = map[string]int{}
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := run(ctx, r, i)
				d := time.Since(t0)

				outcome := "ok"
				if err != nil {
					outcome = credguard.ErrorCode(err)
				}
				mu.Lock()
				latencies = append(latencies, d)
				outcomes[outcome]++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, outcomes)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	outcomes map[string]int
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, outcomes map[string]int) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, outcomes: outcomes}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		outcomes: outcomes,
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

func printStats(name string, s phaseStats) {
	keys := make([]string, 0, len(s.outcomes))
	for k := range s.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.outcomes[k]))
	}

	fmt.Printf("%s: ops=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s outcomes[%s]\n",
		name,
		s.ops,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		strings.Join(parts, " "),
	)
}

func userName(i int) string { return fmt.Sprintf("user_%d", i) }

func ipName(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
}

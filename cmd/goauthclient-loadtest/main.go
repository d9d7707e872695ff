package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/devserver"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type account struct {
	token string
	user  *api.User
}

func main() {
	var (
		users       = flag.Int("users", 500, "number of accounts to create")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (verify + restore)")
		apiURL      = flag.String("api-url", "", "auth API to load; if empty, an in-process devserver is started")
		redisAddr   = flag.String("redis-addr", "", "redis address for the in-process devserver; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	base := *apiURL
	if base == "" {
		url, cleanup, err := startDevserver(*redisAddr, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start devserver: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		base = url
	}

	client, err := api.NewClient(api.Config{BaseURL: base, Timeout: 10 * time.Second}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("creating %d accounts...\n", *users)
	startSeed := time.Now()
	accounts, err := seedAccounts(ctx, client, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	verifyStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		_, err := client.Verify(ctx, accounts[r.Intn(len(accounts))].token)
		return err
	})
	restoreStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		return restoreOnce(ctx, client, accounts[r.Intn(len(accounts))], logger)
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("restore", restoreStats)
}

func startDevserver(addr string, logger logrus.FieldLogger) (string, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return "", nil, err
		}
		closers = append(closers, mr.Close)
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	closers = append(closers, func() { _ = rdb.Close() })

	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		cleanup()
		return "", nil, err
	}
	cfg := devserver.DefaultConfig()
	cfg.JWTSecret = hex.EncodeToString(secret[:])
	cfg.RedisPrefix = "loadtest"

	srv, err := devserver.New(rdb, cfg, devserver.WithLogger(logger))
	if err != nil {
		cleanup()
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	hs := &http.Server{Handler: srv, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = hs.Serve(ln) }()
	closers = append(closers, func() { _ = hs.Close() })

	return "http://" + ln.Addr().String(), cleanup, nil
}

func seedAccounts(ctx context.Context, client *api.Client, n int) ([]account, error) {
	const password = "loadtest-password"
	out := make([]account, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("loadtest-%d@example.com", i)
		resp, err := client.Register(ctx, api.RegisterRequest{Name: fmt.Sprintf("User %d", i), Email: email, Password: password})
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			resp, err = client.Login(ctx, api.LoginRequest{Email: email, Password: password})
		}
		if err != nil {
			return nil, err
		}
		if !resp.Complete() {
			return nil, fmt.Errorf("incomplete auth response for %s", email)
		}
		out = append(out, account{token: resp.Token, user: resp.User})
	}
	return out, nil
}

// restoreOnce runs a full mount: a fresh store over a persisted token,
// restored against the API.
func restoreOnce(ctx context.Context, client *api.Client, acct account, logger logrus.FieldLogger) error {
	tokens := tokenstore.NewMemoryStore()
	if err := tokens.Set(ctx, acct.token, acct.user); err != nil {
		return err
	}
	store, err := goAuthClient.New().
		WithAPI(client).
		WithTokenStore(tokens).
		WithLogger(logger).
		WithMetricsEnabled(false).
		Build()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Restore(ctx); err != nil {
		return err
	}
	if _, ok := store.Identity(); !ok {
		return errors.New("session not restored")
	}
	return nil
}

func runPhase(ops, concurrency int, op func(r *mrand.Rand) error) phaseStats {
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
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goEventHub "github.com/MrEthical07/goEventHub"
	"github.com/MrEthical07/goEventHub/backendtest"
	"github.com/spf13/cobra"
)

const (
	benchEmail    = "bench@example.com"
	benchPassword = "bench-password"
)

func benchCmd(opts *cliOptions) *cobra.Command {
	var (
		concurrency int
		ops         int
		email       string
		password    string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run store actions concurrently and report latency percentiles",
		Long: `bench drives login, validate-token, hello and feed through one shared
store. Without --backend it starts an in-process fake backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if concurrency <= 0 || ops <= 0 {
				return errors.New("concurrency and ops must be > 0")
			}
			ctx := cmd.Context()

			if opts.backend == "" {
				fake := backendtest.New()
				defer fake.Close()
				fake.AddUser(benchEmail, benchPassword)
				fake.SetEvents(backendtest.RouteEvents, []map[string]any{
					{"id": 1, "name": "Bench night", "date": "2026-01-01 20:00:00 GMT+0000"},
				})
				opts.backend = fake.URL()
				email, password = benchEmail, benchPassword
				fmt.Fprintf(opts.out, "using fake backend at %s\n", opts.backend)
			}

			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			res := store.LoginResult(ctx, email, password)
			if !res.IsOk() {
				return fmt.Errorf("seed login: %w", res.Failure())
			}
			if err := store.SaveToken(ctx, res.Value().BearerToken()); err != nil {
				return fmt.Errorf("seed token: %w", err)
			}

			phases := []struct {
				name string
				fn   func(context.Context) error
			}{
				{"login", func(ctx context.Context) error {
					if !store.Login(ctx, email, password) {
						return errActionFailed
					}
					return nil
				}},
				{"validate-token", func(ctx context.Context) error {
					_, err := store.ValidateToken(ctx)
					return err
				}},
				{"hello", func(ctx context.Context) error {
					if store.FetchGreeting(ctx) == nil {
						return errActionFailed
					}
					return nil
				}},
				{"feed", func(ctx context.Context) error {
					_, err := store.FetchFeed(ctx, goEventHub.FeedForYou)
					return err
				}},
			}

			results := make([]phaseStats, len(phases))
			for i, p := range phases {
				results[i] = runPhase(ctx, ops, concurrency, p.fn)
			}

			fmt.Fprintln(opts.out, "---- results ----")
			for i, p := range phases {
				printStats(opts.out, p.name, results[i])
			}
			fmt.Fprintf(opts.out, "state version: %d\n", store.State().Version)
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 32, "number of concurrent workers")
	cmd.Flags().IntVar(&ops, "ops", 2000, "operations per phase")
	cmd.Flags().StringVar(&email, "email", benchEmail, "login email when --backend is set")
	cmd.Flags().StringVar(&password, "password", benchPassword, "login password when --backend is set")
	return cmd
}

func runPhase(ctx context.Context, ops, concurrency int, fn func(context.Context) error) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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
		return phaseStats{total: total, failures: failures}
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

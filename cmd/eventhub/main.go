package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	goEventHub "github.com/MrEthical07/goEventHub"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type cliOptions struct {
	backend   string
	redisAddr string
	tokenKey  string
	token     string
	timeout   time.Duration
	verbose   bool

	out    io.Writer
	errOut io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "eventhub",
		Short: "Drive the event hub session store from the command line",
		Long: `eventhub runs session store actions against an event hub backend.

Configuration is read from EVENTHUB_* environment variables and
overridden by flags. The access token slot lives in Redis; without
--redis-addr an in-process miniredis is used, so pass --token to seed
the slot for one-shot commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version + " (" + commit + ")",
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "", "backend base URL (default EVENTHUB_BACKEND_URL or http://localhost:3001)")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the token slot; if empty, REDIS_ADDR env or miniredis is used")
	flags.StringVar(&opts.tokenKey, "token-key", "", "name of the token slot (default token)")
	flags.StringVar(&opts.token, "token", "", "access token written to the slot before the command runs")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout, 0 for none")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every action failure")

	rootCmd.AddCommand(
		loginCmd(opts),
		validateTokenCmd(opts),
		resetPasswordCmd(opts),
		recoverPasswordCmd(opts),
		helloCmd(opts),
		feedCmd(opts),
		tokenCmd(opts),
		stubCmd(opts),
		benchCmd(opts),
	)
	return rootCmd
}

func (o *cliOptions) config() (goEventHub.Config, error) {
	cfg := goEventHub.LoadConfigFromEnv()
	if o.backend != "" {
		cfg.Backend.BaseURL = o.backend
	}
	if o.tokenKey != "" {
		cfg.Token.StorageKey = o.tokenKey
	}
	if o.timeout > 0 {
		cfg.Backend.Timeout = o.timeout
	}
	return cfg, cfg.Validate()
}

func (o *cliOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(o.errOut, &slog.HandlerOptions{Level: level}))
}

// redisClient connects to --redis-addr, REDIS_ADDR, or a fresh miniredis.
func (o *cliOptions) redisClient() (redis.UniversalClient, func(), error) {
	addr := o.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	if o.verbose {
		fmt.Fprintf(o.errOut, "using miniredis at %s\n", mr.Addr())
	}
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// openStore builds a Store for one command. The returned cleanup closes the
// store and its redis client.
func (o *cliOptions) openStore(ctx context.Context) (*goEventHub.Store, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	client, closeRedis, err := o.redisClient()
	if err != nil {
		return nil, nil, err
	}

	store, err := goEventHub.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(o.logger()).
		Build()
	if err != nil {
		closeRedis()
		return nil, nil, err
	}
	cleanup := func() {
		store.Close()
		closeRedis()
	}

	if o.token != "" {
		if err := store.SaveToken(ctx, o.token); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return store, cleanup, nil
}

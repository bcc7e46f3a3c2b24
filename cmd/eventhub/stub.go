package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goEventHub/backendtest"
	"github.com/spf13/cobra"
)

type stubUser struct {
	email    string
	password string
}

func stubCmd(opts *cliOptions) *cobra.Command {
	var (
		addr  string
		users []string
	)
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory fake backend",
		Long: `stub serves every backend route from memory, for trying the other
commands without a real backend. Users are given as email:password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseStubUsers(users)
			if err != nil {
				return err
			}

			fake := backendtest.NewUnstarted(backendtest.Options{RequestLogging: opts.verbose})
			for _, u := range parsed {
				fake.AddUser(u.email, u.password)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           fake.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			fmt.Fprintf(opts.out, "fake backend listening on %s\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3001", "listen address")
	cmd.Flags().StringSliceVar(&users, "user", []string{"demo@example.com:demo"}, "accepted login as email:password (repeatable)")
	return cmd
}

func parseStubUsers(raw []string) ([]stubUser, error) {
	out := make([]stubUser, 0, len(raw))
	for _, r := range raw {
		var u stubUser
		for i := 0; i < len(r); i++ {
			if r[i] == ':' {
				u.email, u.password = r[:i], r[i+1:]
				break
			}
		}
		if u.email == "" || u.password == "" {
			return nil, fmt.Errorf("invalid --user %q, want email:password", r)
		}
		out = append(out, u)
	}
	return out, nil
}

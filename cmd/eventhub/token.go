package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goEventHub/bearer"
	"github.com/spf13/cobra"
)

func tokenCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or manage the stored access token",
	}
	cmd.AddCommand(tokenInspectCmd(opts), tokenSetCmd(opts), tokenClearCmd(opts))
	return cmd
}

func tokenInspectCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [token]",
		Short: "Decode token claims without verifying the signature",
		Long: `inspect decodes the claims of the given token, or of the token in the
slot when none is given. The signature is not checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				claims *bearer.Claims
				err    error
			)
			if len(args) == 1 {
				claims, err = bearer.Inspect(args[0])
			} else {
				store, done, oerr := opts.openStore(cmd.Context())
				if oerr != nil {
					return oerr
				}
				defer done()
				claims, err = store.TokenClaims(cmd.Context())
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(opts.out, "subject:    %s\n", claims.Subject)
			if claims.ID != "" {
				fmt.Fprintf(opts.out, "id:         %s\n", claims.ID)
			}
			if claims.Type != "" {
				fmt.Fprintf(opts.out, "type:       %s\n", claims.Type)
			}
			fmt.Fprintf(opts.out, "fresh:      %t\n", claims.Fresh)
			printTime(opts, "issued at", claims.IssuedAt)
			printTime(opts, "not before", claims.NotBefore)
			printTime(opts, "expires at", claims.ExpiresAt)
			fmt.Fprintf(opts.out, "expired:    %t\n", claims.Expired(time.Now(), 0))
			return nil
		},
	}
}

func printTime(opts *cliOptions, label string, t time.Time) {
	if t.IsZero() {
		return
	}
	fmt.Fprintf(opts.out, "%-11s %s\n", label+":", t.UTC().Format(time.RFC3339))
}

func tokenSetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <token>",
		Short: "Write a token into the slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.redisAddr == "" {
				return errors.New("token set needs --redis-addr; the in-process slot is discarded on exit")
			}
			store, done, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			if err := store.SaveToken(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, "token saved")
			return nil
		},
	}
}

func tokenClearCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the token slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, done, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			return store.ClearToken(cmd.Context())
		},
	}
}

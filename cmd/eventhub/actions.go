package main

import (
	"encoding/json"
	"errors"
	"fmt"

	goEventHub "github.com/MrEthical07/goEventHub"
	"github.com/spf13/cobra"
)

var errActionFailed = errors.New("action failed")

func loginCmd(opts *cliOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and optionally store the returned token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			res := store.LoginResult(ctx, args[0], args[1])
			if !res.IsOk() {
				fmt.Fprintln(opts.out, "false")
				return res.Failure()
			}
			fmt.Fprintln(opts.out, "true")

			token := res.Value().BearerToken()
			if save && token != "" {
				if err := store.SaveToken(ctx, token); err != nil {
					return err
				}
				fmt.Fprintln(opts.out, "token saved")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the returned token into the token slot")
	return cmd
}

func validateTokenCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-token",
		Short: "Validate the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			ok, err := store.ValidateToken(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "is_logged=%t\n", ok)
			return nil
		},
	}
}

func resetPasswordCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <new-password> <reset-token>",
		Short: "Set a new password with a recovery token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			store.ResetPassword(ctx, args[0], args[1])
			st := store.State()
			fmt.Fprintln(opts.out, st.MessageText())
			if !st.Auth2 {
				return errActionFailed
			}
			return nil
		},
	}
}

func recoverPasswordCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover-password <email>",
		Short: "Request a password recovery e-mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			ok := store.RequestPasswordRecovery(ctx, args[0])
			fmt.Fprintln(opts.out, ok)
			if !ok {
				return errActionFailed
			}
			return nil
		},
	}
}

func helloCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Fetch the backend greeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			g := store.FetchGreeting(ctx)
			if g == nil {
				return errActionFailed
			}
			fmt.Fprintln(opts.out, g.Message)
			return nil
		},
	}
}

func feedCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "feed [tab]",
		Short: "List events of a feed tab (for-you, joined, my-events)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, done, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer done()

			tab := store.State().FeedTab
			if len(args) == 1 {
				if tab, err = goEventHub.ParseFeedTab(args[0]); err != nil {
					return err
				}
			}
			events, err := store.FetchFeed(ctx, tab)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(opts.out)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		},
	}
}

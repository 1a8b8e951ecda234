package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/shared"
	"github.com/spf13/cobra"
)

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Register(cmd.Context(), firstArg(args))
		},
	}
}

func newLoginCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and remember the session on this device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Login(cmd.Context(), firstArg(args))
		},
	}
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session; local records stay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(opts.app.out, "Logged out")
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (a *App) credentials(username string) (string, []byte, error) {
	if username == "" {
		var err error
		username, err = GetSimpleText(a.in, "Enter username:", a.out)
		if err != nil {
			return "", nil, err
		}
	}
	password, err := GetPassword(a.in, a.out)
	if err != nil {
		return "", nil, err
	}
	return username, password, nil
}

func (a *App) Register(ctx context.Context, username string) error {
	username, password, err := a.credentials(username)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	code, err := a.auth.Register(ctx, username, password)
	if err != nil {
		return err
	}

	if code == "" {
		fmt.Fprintln(a.out, "Registered. No friend code was assigned; log in and run 'playsync friend-code' to get one.")
		return nil
	}
	fmt.Fprintf(a.out, "Registered. Your friend code: %s\n", code)
	return nil
}

func (a *App) Login(ctx context.Context, username string) error {
	username, password, err := a.credentials(username)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	identity, err := a.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", username, identity)
	return nil
}

func newFriendCodeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "friend-code",
		Short: "Get a friend code when registration could not assign one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.app.signedIn(cmd.Context()); err != nil {
				return err
			}
			code, err := opts.app.remote.AllocateCode(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Your friend code: %s\n", code)
			return nil
		},
	}
}

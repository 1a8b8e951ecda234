package cli

import (
	"context"

	"github.com/dmitrijs2005/playkeeper/internal/client/config"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/spf13/cobra"
)

type appFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error)

// RootOptions is shared by every command. The App is built once the flags
// are parsed.
type RootOptions struct {
	flags   *config.Flags
	factory appFactory
	app     *App
}

// NewRootCommand creates the playsync command tree.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand(NewApp)
	return cmd
}

func newRootCommand(factory appFactory) (*cobra.Command, *RootOptions) {
	opts := &RootOptions{factory: factory}

	cmd := &cobra.Command{
		Use:   "playsync",
		Short: "PlayKeeper offline-first sync client",
		Long: `Record play sessions and your game library offline and keep them in sync
with the PlayKeeper server, your other devices, friends and groups.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.flags.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "text")

			app, err := opts.factory(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			app.setIO(cmd.InOrStdin(), cmd.OutOrStdout())
			opts.app = app
			return nil
		},
	}
	opts.flags = config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newFriendCodeCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newAddSessionCommand(opts))
	cmd.AddCommand(newAddGameCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newResolveCommand(opts))
	cmd.AddCommand(newInviteCommand(opts))
	cmd.AddCommand(newFriendsCommand(opts))
	cmd.AddCommand(newFriendCommand(opts))
	cmd.AddCommand(newGroupCommand(opts))

	return cmd, opts
}

// Execute runs the command line and releases the App afterwards.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, NewApp, args)
}

func execute(ctx context.Context, factory appFactory, args []string) error {
	cmd, opts := newRootCommand(factory)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	if opts.app != nil {
		if cerr := opts.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
		opts.app = nil
	}
	return err
}

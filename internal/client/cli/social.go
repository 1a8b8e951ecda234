package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/spf13/cobra"
)

// SocialProcedures are the social transitions that need the server right
// away. Their results reach the local mirror through the subscriptions.
type SocialProcedures interface {
	AcceptFriend(ctx context.Context, userID string) error
	RejectFriend(ctx context.Context, userID string) error
	RemoveFriend(ctx context.Context, userID string) error
	CreateGroup(ctx context.Context, name string) (models.Group, error)
	AcceptGroupInvite(ctx context.Context, inviteID string) error
	CancelGroupInvite(ctx context.Context, inviteID string) error
	LeaveGroup(ctx context.Context, groupID string) error
}

// online wraps a command body that calls the server with the restored
// session.
func online(opts *RootOptions, done string, fn func(ctx context.Context, arg string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if _, err := opts.app.signedIn(cmd.Context()); err != nil {
			return err
		}
		if err := fn(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(opts.app.out, done+"\n", args[0])
		return nil
	}
}

func newFriendCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friend",
		Short: "Answer friend invites and remove friends (needs the server)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "accept <userID>",
		Short: "Accept an incoming friend invite",
		Args:  cobra.ExactArgs(1),
		RunE: online(opts, "Friend %s accepted", func(ctx context.Context, id string) error {
			return opts.app.remote.AcceptFriend(ctx, id)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reject <userID>",
		Short: "Reject an incoming friend invite",
		Args:  cobra.ExactArgs(1),
		RunE: online(opts, "Friend invite from %s rejected", func(ctx context.Context, id string) error {
			return opts.app.remote.RejectFriend(ctx, id)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <userID>",
		Short: "Remove a friend",
		Args:  cobra.ExactArgs(1),
		RunE: online(opts, "Friend %s removed", func(ctx context.Context, id string) error {
			return opts.app.remote.RemoveFriend(ctx, id)
		}),
	})
	return cmd
}

func newGroupCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create, join and leave groups (needs the server)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a group owned by you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.app.signedIn(cmd.Context()); err != nil {
				return err
			}
			g, err := opts.app.remote.CreateGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Group %s created with id %s\n", g.Name, g.GroupID)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "accept <inviteID>",
		Short: "Join a group you were invited to",
		Args:  cobra.ExactArgs(1),
		RunE: online(opts, "Invite %s accepted", func(ctx context.Context, id string) error {
			return opts.app.remote.AcceptGroupInvite(ctx, id)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <inviteID>",
		Short: "Decline an invite you received or withdraw one you sent",
		Args:  cobra.ExactArgs(1),
		RunE: online(opts, "Invite %s cancelled", func(ctx context.Context, id string) error {
			return opts.app.remote.CancelGroupInvite(ctx, id)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "leave <groupID>",
		Short: "Leave a group",
		Args:  cobra.ExactArgs(1),
		RunE: online(opts, "Left group %s", func(ctx context.Context, id string) error {
			return opts.app.remote.LeaveGroup(ctx, id)
		}),
	})
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInviteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Queue friend and group invites; they are sent once the server is reachable",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "friend <code>",
		Short: "Invite the owner of a friend code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := opts.app.social.InviteFriend(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Friend invite to %s queued\n", rel.Code)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "group <groupID> <userID>",
		Short: "Invite a friend into a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := opts.app.social.InviteToGroup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Group invite %s queued\n", inv.InviteID)
			return nil
		},
	})

	return cmd
}

func newFriendsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "friends",
		Short: "Show friends, group invites and groups mirrored on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Social(cmd.Context())
		},
	}
}

// Social prints the locally mirrored social collections.
func (a *App) Social(ctx context.Context) error {
	friends, err := a.social.Friends(ctx)
	if err != nil {
		return err
	}
	invites, err := a.social.Invites(ctx)
	if err != nil {
		return err
	}
	groups, err := a.social.Groups(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "FRIEND\tCODE\tSTATUS")
	for _, f := range friends {
		name := f.Nickname
		if name == "" {
			name = f.RemoteUserID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, f.Code, f.Status)
	}

	fmt.Fprintln(tw, "\nINVITE\tGROUP\tFROM\tTO\tSTATUS")
	for _, inv := range invites {
		status := string(inv.Status)
		if inv.LocalOnly {
			status += " (not sent)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", inv.InviteID, inv.GroupNameSnapshot, inv.FromID, inv.ToID, status)
	}

	fmt.Fprintln(tw, "\nGROUP\tNAME\tOWNER")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", g.GroupID, g.Name, g.OwnerID)
	}
	return tw.Flush()
}

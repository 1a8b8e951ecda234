package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/spf13/cobra"
)

func newAddSessionCommand(opts *RootOptions) *cobra.Command {
	var (
		s        models.Session
		playedAt string
		groupID  string
	)

	cmd := &cobra.Command{
		Use:   "add-session",
		Short: "Record a play session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(s.Game) == "" {
				return fmt.Errorf("%w: --game is required", common.ErrInvalidArgument)
			}
			s.PlayedAt = time.Now().UTC()
			if playedAt != "" {
				t, err := time.Parse(time.RFC3339, playedAt)
				if err != nil {
					return fmt.Errorf("%w: --played-at must be RFC 3339: %v", common.ErrInvalidArgument, err)
				}
				s.PlayedAt = t.UTC()
			}

			rec, err := opts.app.sessions.Create(cmd.Context(), s, groupID)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Session %s saved\n", rec.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&s.Game, "game", "g", "", "game title")
	f.StringSliceVarP(&s.Players, "players", "p", nil, "comma separated player names")
	f.StringVarP(&s.Winner, "winner", "w", "", "winner name")
	f.DurationVarP(&s.Duration, "duration", "d", 0, "how long the game took")
	f.StringVar(&s.Notes, "notes", "", "free text notes")
	f.StringVar(&playedAt, "played-at", "", "when the game was played (RFC 3339, default now)")
	f.StringVar(&groupID, "group", "", "share the session with a group")
	return cmd
}

func newAddGameCommand(opts *RootOptions) *cobra.Command {
	var (
		item    models.LibraryItem
		groupID string
	)

	cmd := &cobra.Command{
		Use:   "add-game <title>",
		Short: "Add a game to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Title = strings.TrimSpace(args[0])
			if item.Title == "" {
				return fmt.Errorf("%w: empty title", common.ErrInvalidArgument)
			}
			if item.Rating < 0 || item.Rating > 10 {
				return fmt.Errorf("%w: rating must be between 0 and 10", common.ErrInvalidArgument)
			}

			rec, err := opts.app.library.Create(cmd.Context(), item, groupID)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Game %s saved\n", rec.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&item.Owned, "owned", true, "whether you own a copy")
	f.IntVarP(&item.Rating, "rating", "r", 0, "rating from 1 to 10")
	f.IntVar(&item.Plays, "plays", 0, "number of plays so far")
	f.StringVar(&item.Notes, "notes", "", "free text notes")
	f.StringVar(&groupID, "group", "", "add to a group library")
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:       "list <sessions|library_items>",
		Short:     "List the personal records of a domain, or those of a group",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(models.DomainSessions), string(models.DomainLibraryItems)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.List(cmd.Context(), models.Domain(args[0]), groupID)
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "list the records of this group")
	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "delete <sessions|library_items> <id>",
		Short:     "Delete a record; the deletion is pushed on the next sync",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(models.DomainSessions), string(models.DomainLibraryItems)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch models.Domain(args[0]) {
			case models.DomainSessions:
				err = opts.app.sessions.Delete(cmd.Context(), args[1])
			case models.DomainLibraryItems:
				err = opts.app.library.Delete(cmd.Context(), args[1])
			default:
				return fmt.Errorf("%w: unknown domain %q", common.ErrInvalidArgument, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Record %s deleted\n", args[1])
			return nil
		},
	}
}

func newResolveCommand(opts *RootOptions) *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "resolve <sessions|library_items> <id>",
		Short: "Settle a conflicted record by keeping the local or the remote version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			how, err := parseResolution(keep)
			if err != nil {
				return err
			}

			switch models.Domain(args[0]) {
			case models.DomainSessions:
				err = opts.app.sessions.Resolve(cmd.Context(), args[1], how)
			case models.DomainLibraryItems:
				err = opts.app.library.Resolve(cmd.Context(), args[1], how)
			default:
				return fmt.Errorf("%w: unknown domain %q", common.ErrInvalidArgument, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.app.out, "Record %s resolved (kept %s)\n", args[1], keep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&keep, "keep", "k", "", "which version to keep: local or remote")
	_ = cmd.MarkFlagRequired("keep")
	return cmd
}

func parseResolution(s string) (syncer.Resolution, error) {
	switch strings.ToLower(s) {
	case "local":
		return syncer.KeepLocal, nil
	case "remote":
		return syncer.KeepRemote, nil
	default:
		return 0, fmt.Errorf("%w: --keep must be local or remote, got %q", common.ErrInvalidArgument, s)
	}
}

// List prints the personal records of one domain, or the records of groupID
// when it is set.
func (a *App) List(ctx context.Context, domain models.Domain, groupID string) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)

	switch domain {
	case models.DomainSessions:
		list := a.sessions.List
		if groupID != "" {
			list = func(ctx context.Context) ([]records.Item[models.Session], error) {
				return a.sessions.ListGroup(ctx, groupID)
			}
		}
		items, err := list(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tGAME\tPLAYED\tWINNER\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Value.Game,
				it.Value.PlayedAt.Local().Format(time.DateOnly), it.Value.Winner, it.SyncStatus)
		}
	case models.DomainLibraryItems:
		list := a.library.List
		if groupID != "" {
			list = func(ctx context.Context) ([]records.Item[models.LibraryItem], error) {
				return a.library.ListGroup(ctx, groupID)
			}
		}
		items, err := list(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tTITLE\tOWNED\tRATING\tPLAYS\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%s\n", it.ID, it.Value.Title,
				it.Value.Owned, it.Value.Rating, it.Value.Plays, it.SyncStatus)
		}
	default:
		return fmt.Errorf("%w: unknown domain %q", common.ErrInvalidArgument, domain)
	}
	return tw.Flush()
}

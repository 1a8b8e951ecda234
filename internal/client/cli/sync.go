package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/syncer"
	"github.com/spf13/cobra"
)

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync: push local changes, pull remote ones, flush queued invites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Sync(cmd.Context())
		},
	}
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending changes and when the last sync completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Status(cmd.Context())
		},
	}
}

// Sync runs every batch domain once and then flushes the offline invite
// queue. The flush runs even when a domain failed.
func (a *App) Sync(ctx context.Context) error {
	identity, err := a.signedIn(ctx)
	if err != nil {
		return err
	}

	results, syncErr := a.syncAll(ctx, identity)
	for i, res := range results {
		a.printResult(a.reconcilers[i].Domain(), res)
	}

	flushed, flushErr := a.stream.Flush(ctx, identity)
	if flushed.Sent+flushed.Dropped+flushed.Kept > 0 {
		fmt.Fprintf(a.out, "invites: %d sent, %d dropped, %d kept for later\n", flushed.Sent, flushed.Dropped, flushed.Kept)
	}
	return errors.Join(syncErr, flushErr)
}

func (a *App) printResult(domain models.Domain, res syncer.Result) {
	pulled := res.PulledPersonal
	for _, n := range res.PulledByGroup {
		pulled += n
	}
	fmt.Fprintf(a.out, "%s: pushed %d, failed %d, pulled %d, conflicts %d\n",
		domain, res.Pushed, res.PushFailed, pulled, res.Conflicts)
}

func (a *App) Status(ctx context.Context) error {
	identity, err := a.auth.Identity(ctx)
	if err != nil {
		return err
	}
	st, err := a.status.Status(ctx)
	if err != nil {
		return err
	}

	if identity == "" {
		fmt.Fprintln(a.out, "Not logged in")
	} else {
		fmt.Fprintf(a.out, "Logged in as %s\n", identity)
	}
	fmt.Fprintf(a.out, "Pending changes: %d\n", st.Pending)
	if st.LastSuccessfulSync.IsZero() {
		fmt.Fprintln(a.out, "Last successful sync: never")
	} else {
		fmt.Fprintf(a.out, "Last successful sync: %s\n", st.LastSuccessfulSync.Local().Format(time.DateTime))
	}
	if st.LastRunFailed {
		fmt.Fprintln(a.out, "The last sync did not complete")
	}
	return nil
}

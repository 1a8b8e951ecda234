package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	retryBase     = 500 * time.Millisecond
	retryCap      = 30 * time.Second
	syncAttempts  = 5
	shutdownGrace = 5 * time.Second
)

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing in the foreground until interrupted",
		Long: `Run the batch sync every --interval seconds, keep the social subscriptions
open and flush queued invites. Transient failures are retried with backoff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Watch(cmd.Context())
		},
	}
}

func backoff() retry.Backoff {
	b := retry.NewExponential(retryBase)
	b = retry.WithCappedDuration(retryCap, b)
	return retry.WithJitterPercent(20, b)
}

// Watch runs until ctx is cancelled. Only a failure that cannot be retried
// stops it early.
func (a *App) Watch(ctx context.Context) error {
	identity, err := a.signedIn(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.syncLoop(gctx, identity) })
	g.Go(func() error { return a.superviseStream(gctx, identity) })
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}

	fmt.Fprintf(a.out, "Watching as %s, press Ctrl+C to stop\n", identity)
	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *App) syncLoop(ctx context.Context, identity string) error {
	t := time.NewTicker(a.cfg.SyncInterval)
	defer t.Stop()

	for {
		if err := a.syncWithRetry(ctx, identity); err != nil && ctx.Err() == nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				return err
			}
			a.logger.Warn(ctx, "sync failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// syncWithRetry repeats a run whose failure was transient. Records that
// failed for other reasons stay PENDING for the next tick.
func (a *App) syncWithRetry(ctx context.Context, identity string) error {
	b := retry.WithMaxRetries(syncAttempts, backoff())
	return retry.Do(ctx, b, func(ctx context.Context) error {
		results, err := a.syncAll(ctx, identity)
		for i, res := range results {
			a.logger.Debug(ctx, "sync finished",
				"domain", a.reconcilers[i].Domain(),
				"pushed", res.Pushed,
				"push_failed", res.PushFailed,
				"conflicts", res.Conflicts)
		}
		if common.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// superviseStream keeps the subscriptions open. A transient failure
// restarts the session after a backoff delay; other failures are logged and
// leave the failed subscription closed.
func (a *App) superviseStream(ctx context.Context, identity string) error {
	defer a.stream.Stop()

	if err := a.stream.Start(ctx, identity); err != nil {
		return err
	}

	b := backoff()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-a.stream.Errors():
			if !common.IsRetryable(err) {
				a.logger.Error(ctx, "subscription rejected", "error", err)
				continue
			}

			delay, stop := b.Next()
			if stop {
				return err
			}
			a.logger.Warn(ctx, "restarting subscriptions", "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			if err := a.stream.Start(ctx, identity); err != nil {
				return err
			}
		}
	}
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	a.logger.Info(ctx, "serving metrics", "addr", a.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

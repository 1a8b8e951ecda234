package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/playkeeper/internal/client/client"
	"github.com/dmitrijs2005/playkeeper/internal/client/config"
	"github.com/dmitrijs2005/playkeeper/internal/client/models"
	"github.com/dmitrijs2005/playkeeper/internal/client/services"
	"github.com/dmitrijs2005/playkeeper/internal/client/streaming"
	"github.com/dmitrijs2005/playkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/playkeeper/internal/common"
	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Remote is everything the CLI needs from the server connection.
type Remote interface {
	syncer.RemoteStore
	syncer.GroupMembership
	streaming.Remote
	services.AuthClient
	SocialProcedures
	AllocateCode(ctx context.Context) (string, error)
	Close() error
}

// App wires the local store, the remote adapter and the engine for the
// commands. One App serves one command invocation.
type App struct {
	cfg    *config.Config
	logger logging.Logger
	in     *bufio.Reader
	out    io.Writer

	db       *sql.DB
	remote   Remote
	repos    *client.Repositories
	registry *prometheus.Registry

	auth     services.AuthService
	sessions *services.RecordService[models.Session]
	library  *services.RecordService[models.LibraryItem]
	social   *services.SocialService
	status   *services.StatusService

	reconcilers []*syncer.Reconciler
	stream      *streaming.Manager
}

// NewApp opens the local database and connects to the server.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	remote, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(cfg, logger, db, remote), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, remote Remote) *App {
	repos := client.NewRepositories(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := syncer.NewMetrics(reg)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		remote:   remote,
		repos:    repos,
		registry: reg,
		auth:     services.NewAuthService(remote, db),
		sessions: services.NewRecordService[models.Session](repos.Records[models.DomainSessions], repos.Metadata),
		library:  services.NewRecordService[models.LibraryItem](repos.Records[models.DomainLibraryItems], repos.Metadata),
		social:   services.NewSocialService(repos.Social, repos.Metadata),
		status:   services.NewStatusService(repos.Records, repos.Metadata),
		stream: streaming.NewManager(remote, repos.Social, logger).
			WithMetrics(streaming.NewMetrics(reg)).
			WithFlushInterval(cfg.FlushInterval),
	}

	for _, d := range models.Domains {
		a.reconcilers = append(a.reconcilers,
			syncer.NewReconciler(d, repos.Records[d], remote, remote, repos.Cursors, logger).
				WithPageSize(cfg.PageSize).
				WithMetrics(syncMetrics).
				WithRunRecorder(repos.Metadata))
	}
	return a
}

func (a *App) setIO(in io.Reader, out io.Writer) {
	a.in = bufio.NewReader(in)
	a.out = out
}

// Close stops the streaming session and releases the connection and the
// database.
func (a *App) Close() error {
	a.stream.Stop()
	return errors.Join(a.remote.Close(), a.db.Close())
}

// signedIn restores the saved session or tells the user to log in.
func (a *App) signedIn(ctx context.Context) (string, error) {
	identity, err := a.auth.Restore(ctx)
	if errors.Is(err, common.ErrorUnauthorized) {
		return "", fmt.Errorf("not logged in, run 'playsync login' first: %w", err)
	}
	return identity, err
}

// syncAll runs one batch sync per domain, one after another. A failing
// domain does not stop the others.
func (a *App) syncAll(ctx context.Context, identity string) ([]syncer.Result, error) {
	results := make([]syncer.Result, 0, len(a.reconcilers))
	var errs []error
	for _, r := range a.reconcilers {
		res, err := r.Sync(ctx, identity)
		results = append(results, res)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", r.Domain(), err))
		}
	}
	return results, errors.Join(errs...)
}

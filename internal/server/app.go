// Package server wires the PlayKeeper server together: the PostgreSQL
// pool and migrations, the services, the change notifier and the gRPC
// endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/dmitrijs2005/playkeeper/internal/server/config"
	"github.com/dmitrijs2005/playkeeper/internal/server/notify"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/playkeeper/internal/server/services"
	"github.com/dmitrijs2005/playkeeper/internal/server/shared/db"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/playkeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	notifier *notify.Notifier
	server   *gs.GRPCServer
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	logger := logging.New(out, cfg.LogLevel, "json")

	conn, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(conn, rm, cfg, logger)
	rs := services.NewRecordService(conn, rm, logger)
	ss := services.NewSocialService(conn, rm, logger)
	n := notify.NewNotifier(notify.PgxDialer(cfg.DatabaseDSN), logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       conn,
		notifier: n,
		server:   gs.NewGRPCServer(cfg.EndpointAddrGRPC, logger, us, rs, ss, n, cfg.SecretKey),
	}, nil
}

// Run serves until ctx is cancelled or either the notifier or the gRPC
// server fails.
func (app *App) Run(ctx context.Context) error {
	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(context.Background(), "db close error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.notifier.Run(gctx) })
	g.Go(func() error { return app.server.Run(gctx) })

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

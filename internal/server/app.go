// Package server wires the remote record store: the PostgreSQL storage, the
// curator, record and attachment services and the gRPC transport.
package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/fieldkeeper/internal/server/grpc"
)

// Runner is a blocking transport.
type Runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server Runner
}

// openDB is a seam for tests.
var openDB = repomanager.Open

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return newApp(cfg, logger, db, rm), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) *App {
	cs := services.NewCuratorService(db, rm, cfg)
	rs := services.NewRecordService(db, rm, cfg)
	as := services.NewAttachmentService(rs, cfg)

	srv := gs.NewGRPCServer(cfg.EndpointAddrGRPC, logger, cs, rs, as, cfg.SecretKey)

	return &App{config: cfg, logger: logger, db: db, server: srv}
}

// Run serves until ctx is cancelled and closes the database afterwards.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrGRPC)

	err := app.server.Run(ctx)

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")

	if err != nil {
		return fmt.Errorf("grpc server error: %w", err)
	}
	return nil
}

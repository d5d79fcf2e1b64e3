package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/client"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/fork"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/scheduler"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/services"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/filex"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// syncer is the part of the scheduler the CLI drives.
type syncer interface {
	Start(ctx context.Context) error
	Stop()
	SyncNow(ctx context.Context) (*scheduler.Summary, error)
	Mode() scheduler.Mode
}

// curatorSetter learns which curator the session belongs to.
type curatorSetter interface {
	SetCurator(id string)
}

type App struct {
	authService   services.AuthService
	entityService services.EntityService
	sync          syncer
	curators      curatorSetter
	meta          metadata.Repository
	logger        logging.Logger

	session *services.Session
	reader  *bufio.Reader
	out     io.Writer

	closers []io.Closer
}

// NewApp opens the local database, connects the gRPC client and builds the
// services. Nothing is contacted until the REPL runs.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}
	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, client.WithPageSize(c.PageSize))
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	tracker := syncstate.NewTracker(repos.Entities, logger)
	engine := reconcile.NewEngine(apiClient, tracker, logger, reconcile.Config{
		BatchSize:   c.BatchSize,
		CallTimeout: c.CallTimeout,
	})
	resolver := fork.NewResolver(repos.Entities, tracker, logger)
	sched := scheduler.New(engine, apiClient, tracker, repos.Metadata, logger, scheduler.Config{
		SyncInterval:        c.SyncInterval,
		OnlineCheckInterval: c.OnlineCheckInterval,
		TombstoneRetention:  c.TombstoneRetention,
	})

	return &App{
		authService:   services.NewAuthService(apiClient, repos.DB, logger),
		entityService: services.NewEntityService(tracker, resolver, engine, apiClient, logger),
		sync:          sched,
		curators:      engine,
		meta:          repos.Metadata,
		logger:        logger,
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
		closers:       []io.Closer{repos},
	}, nil
}

// Run restores a saved session, starts background sync and blocks in the
// REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to FieldKeeper CLI (type 'help' for commands)")

	s, err := a.authService.Restore(ctx)
	switch {
	case err == nil:
		a.setSession(s)
		fmt.Fprintf(a.out, "Resumed session of %s\n", s.Username)
	case errors.Is(err, client.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "Not logged in. Use 'register' or 'login'.")
	default:
		a.logger.Error(ctx, "session restore failed", "error", err)
	}

	if err := a.sync.Start(ctx); err != nil {
		return err
	}

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	a.sync.Stop()
	a.entityService.Close()

	errs := []error{a.authService.Close(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *App) setSession(s *services.Session) {
	a.session = s
	if a.curators == nil {
		return
	}
	if s == nil {
		a.curators.SetCurator("")
		return
	}
	a.curators.SetCurator(s.CuratorID)
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) curatorID() string {
	if a.session == nil {
		return ""
	}
	return a.session.CuratorID
}

func (a *App) getStatus() string {
	s := ""
	if a.session != nil {
		s = a.session.Username + " "
	}
	s += string(a.sync.Mode())
	return fmt.Sprintf("(%s)", s)
}

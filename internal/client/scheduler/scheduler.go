package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Engine is the reconciliation surface the scheduler drives.
type Engine interface {
	Import(ctx context.Context) (*reconcile.ImportResult, error)
	Export(ctx context.Context) (*reconcile.ExportResult, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Purger removes confirmed tombstones older than the retention.
type Purger interface {
	PurgeTombstones(ctx context.Context, retention time.Duration) (int64, error)
}

type Config struct {
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	PingTimeout         time.Duration
	// TombstoneRetention of zero disables purging.
	TombstoneRetention time.Duration
}

// Summary aggregates one Import and Export cycle.
type Summary struct {
	Added    int
	Updated  int
	Skipped  int
	Failed   int
	Orphaned int

	Import *reconcile.ImportResult
	Export *reconcile.ExportResult
	Purged int64
}

func (s Summary) String() string {
	return fmt.Sprintf("added=%d updated=%d skipped=%d failed=%d orphaned=%d",
		s.Added, s.Updated, s.Skipped, s.Failed, s.Orphaned)
}

type Scheduler struct {
	engine Engine
	pinger Pinger
	purger Purger
	meta   metadata.Repository
	logger logging.Logger
	cfg    Config
	now    func() time.Time

	running atomic.Bool
	online  atomic.Bool
	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a scheduler. purger and meta may be nil.
func New(engine Engine, pinger Pinger, purger Purger, meta metadata.Repository, logger logging.Logger, cfg Config) *Scheduler {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Minute
	}
	if cfg.OnlineCheckInterval <= 0 {
		cfg.OnlineCheckInterval = 10 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 3 * time.Second
	}
	return &Scheduler{
		engine:  engine,
		pinger:  pinger,
		purger:  purger,
		meta:    meta,
		logger:  logger.With("module", "scheduler"),
		cfg:     cfg,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
}

// Start launches the sync loop and the connectivity probe. The scheduler
// starts in offline mode, so the first successful probe runs a cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.loop(ctx)
	go s.watch(ctx)
	s.logger.Info(ctx, "scheduler started",
		"sync_interval", s.cfg.SyncInterval, "online_check_interval", s.cfg.OnlineCheckInterval)
	return nil
}

// Stop cancels the background goroutines and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info(context.Background(), "scheduler stopped")
}

// SyncNow runs one cycle in the caller's goroutine. It returns
// common.ErrSyncInProgress when another cycle is running.
func (s *Scheduler) SyncNow(ctx context.Context) (*Summary, error) {
	return s.run(ctx)
}

func (s *Scheduler) Mode() Mode {
	if s.online.Load() {
		return ModeOnline
	}
	return ModeOffline
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.online.Load() {
				s.logger.Debug(ctx, "offline, tick skipped")
				continue
			}
			s.runScheduled(ctx, "tick")
		case <-s.trigger:
			s.runScheduled(ctx, "reconnect")
		}
	}
}

func (s *Scheduler) runScheduled(ctx context.Context, reason string) {
	sum, err := s.run(ctx)
	switch {
	case errors.Is(err, common.ErrSyncInProgress):
		s.logger.Debug(ctx, "sync in progress, run dropped", "reason", reason)
	case errors.Is(err, common.ErrUnavailable):
		s.logger.Warn(ctx, "server unavailable, waiting for the next run", "reason", reason, "error", err)
	case err != nil:
		s.logger.Error(ctx, "scheduled sync failed", "reason", reason, "error", err)
	default:
		s.logger.Info(ctx, "scheduled sync finished", "reason", reason, "summary", sum.String())
	}
}

func (s *Scheduler) watch(ctx context.Context) {
	defer s.wg.Done()
	s.probe(ctx)

	ticker := time.NewTicker(s.cfg.OnlineCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Scheduler) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PingTimeout)
	err := s.pinger.Ping(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	online := err == nil
	if s.online.Swap(online) == online {
		return
	}
	if !online {
		s.logger.Warn(ctx, "switched to offline mode", "error", err)
		return
	}
	s.logger.Info(ctx, "switched to online mode")
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// run executes Import then Export. A failed Import skips Export, so
// unmatched creates are bound by the next Import instead of sent twice.
func (s *Scheduler) run(ctx context.Context) (*Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer s.running.Store(false)

	imp, err := s.engine.Import(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	s.record(ctx, common.MetaLastImportAt)

	sum := &Summary{Import: imp}
	sum.Added, sum.Updated, sum.Skipped = imp.Added, imp.Updated, imp.Skipped
	sum.Failed, sum.Orphaned = imp.Failed, imp.Orphaned

	exp, err := s.engine.Export(ctx)
	if exp != nil {
		sum.Export = exp
		sum.Added += exp.Created + exp.Recreated
		sum.Updated += exp.Updated
		// unmatched creates are retried next cycle
		sum.Skipped += exp.Skipped + exp.Unmatched
		sum.Failed += exp.Failed
	}
	if err != nil {
		return sum, fmt.Errorf("sync: %w", err)
	}
	s.record(ctx, common.MetaLastExportAt)

	if s.purger != nil && s.cfg.TombstoneRetention > 0 {
		n, err := s.purger.PurgeTombstones(ctx, s.cfg.TombstoneRetention)
		if err != nil {
			s.logger.Error(ctx, "tombstone purge failed", "error", err)
		} else if n > 0 {
			s.logger.Info(ctx, "tombstones purged", "count", n)
		}
		sum.Purged = n
	}
	return sum, nil
}

func (s *Scheduler) record(ctx context.Context, key string) {
	if s.meta == nil {
		return
	}
	if err := metadata.SetTime(ctx, s.meta, key, s.now()); err != nil {
		s.logger.Warn(ctx, "could not record sync time", "key", key, "error", err)
	}
}

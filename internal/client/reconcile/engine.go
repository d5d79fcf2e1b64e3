package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/client"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

const (
	DefaultBatchSize   = 50
	DefaultCallTimeout = 15 * time.Second
)

// Config tunes the engine.
type Config struct {
	// BatchSize caps the number of records per create call.
	BatchSize int
	// CallTimeout bounds every single gateway call.
	CallTimeout time.Duration
}

type Engine struct {
	gateway  client.Gateway
	tracker  *syncstate.Tracker
	repo     entities.Repository
	logger   logging.Logger
	cfg      Config
	inflight *inflight
	// curator is the id the gateway is authenticated as; empty disables the owner filter.
	curator atomic.Pointer[string]
}

func NewEngine(gateway client.Gateway, tracker *syncstate.Tracker, logger logging.Logger, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Engine{
		gateway:  gateway,
		tracker:  tracker,
		repo:     tracker.Store(),
		logger:   logger.With("module", "reconcile"),
		cfg:      cfg,
		inflight: newInflight(),
	}
}

// SetCurator records the curator of the current session. Export leaves
// entities of other owners alone, since the remote refuses them.
func (e *Engine) SetCurator(id string) {
	e.curator.Store(&id)
}

// foreign reports whether l belongs to someone other than the session curator.
func (e *Engine) foreign(l *models.Entity) bool {
	id := e.curator.Load()
	return id != nil && *id != "" && l.OwnerID != *id
}

// call runs fn under the per-call timeout.
func (e *Engine) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}

// InFlight reports whether the entity is currently submitted to the gateway.
func (e *Engine) InFlight(localID string) bool {
	return e.inflight.contains(localID)
}

// DeleteRemote makes one best-effort attempt to delete the remote copy of a
// tombstone. Success, or a remote that no longer knows the record, confirms
// the tombstone. It reports whether the delete was confirmed.
func (e *Engine) DeleteRemote(ctx context.Context, tomb *models.Entity) bool {
	if tomb.RemoteID == "" || tomb.DeleteConfirmed {
		return false
	}
	if !e.inflight.acquire(tomb.LocalID) {
		return false
	}
	defer e.inflight.release(tomb.LocalID)

	err := e.call(ctx, func(ctx context.Context) error {
		return e.gateway.Delete(ctx, tomb.RemoteID)
	})
	if err != nil && !errors.Is(err, common.ErrRemoteRejected) {
		e.logger.Warn(ctx, "remote delete failed, will retry",
			"local_id", tomb.LocalID, "remote_id", tomb.RemoteID, "error", err)
		return false
	}

	if _, err := e.tracker.ConfirmDeleted(ctx, tomb.LocalID); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			e.logger.Error(ctx, "confirm delete failed", "local_id", tomb.LocalID, "error", err)
		}
		return false
	}
	return true
}

// logStoreErr logs rows the store could not decode and reports whether err
// is anything worse than that.
func (e *Engine) logStoreErr(ctx context.Context, op string, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrLocalStore) {
		e.logger.Error(ctx, "skipping unreadable local entities", "op", op, "error", err)
		return false
	}
	return true
}

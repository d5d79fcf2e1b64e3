package syncstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/google/uuid"
)

// Tracker applies state transitions to stored entities.
type Tracker struct {
	store  entities.Store
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator replaces uuid.NewString for local and group ids.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

func NewTracker(store entities.Store, logger logging.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: logger.With("module", "syncstate"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Store exposes the underlying entity store for reads.
func (t *Tracker) Store() entities.Store {
	return t.store
}

func (t *Tracker) timestamp() time.Time {
	// drop the monotonic reading so values compare equal after a round trip
	return t.now().Round(0)
}

// Create stores a new local entity owned by curatorID.
func (t *Tracker) Create(ctx context.Context, curatorID, name string, payload models.Payload) (*models.Entity, error) {
	state, err := Next(none, EventCreate)
	if err != nil {
		return nil, err
	}
	e := &models.Entity{
		LocalID:         t.newID(),
		SharedGroupID:   t.newID(),
		OwnerID:         curatorID,
		OriginalOwnerID: curatorID,
		SyncState:       state,
		LocalModifiedAt: t.timestamp(),
		Name:            name,
		Payload:         payload.Clone(),
	}
	if err := t.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return e, nil
}

// CreateFork stores a NEW copy of source owned by curatorID, in the same
// shared group and with the same original owner. It returns
// common.ErrAlreadyExists when curatorID already holds a copy in the group.
func (t *Tracker) CreateFork(ctx context.Context, source *models.Entity, curatorID, name string, payload models.Payload) (*models.Entity, error) {
	state, err := Next(none, EventCreate)
	if err != nil {
		return nil, err
	}
	e := &models.Entity{
		LocalID:         t.newID(),
		SharedGroupID:   source.SharedGroupID,
		OwnerID:         curatorID,
		OriginalOwnerID: source.OriginalOwnerID,
		SyncState:       state,
		LocalModifiedAt: t.timestamp(),
		Name:            name,
		Payload:         payload.Clone(),
	}
	if err := t.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("create fork: %w", err)
	}
	return e, nil
}

// Edit applies change to the entity and marks it DIRTY. Owner, group and
// remote id are never touched.
func (t *Tracker) Edit(ctx context.Context, localID string, change models.Change) (*models.Entity, error) {
	return t.transition(ctx, localID, EventEdit, func(e *models.Entity) error {
		e.Name, e.Payload = change.Apply(e.Name, e.Payload)
		e.LocalModifiedAt = t.timestamp()
		return nil
	})
}

// ExportSucceeded records that snapshot was accepted under remoteID. When
// the entity changed locally while the call was in flight, the remote id is
// bound but the entity stays DIRTY so the newer edit goes out next cycle.
// common.ErrNotFound means the entity was purged meanwhile.
func (t *Tracker) ExportSucceeded(ctx context.Context, snapshot *models.Entity, remoteID string) (*models.Entity, error) {
	var out *models.Entity
	err := t.store.WithTx(ctx, func(ctx context.Context, repo entities.Repository) error {
		e, err := repo.GetByLocalID(ctx, snapshot.LocalID, true)
		if err != nil {
			return err
		}
		if e.RemoteID != "" && e.RemoteID != remoteID {
			return fmt.Errorf("%w: entity %s is bound to %s, not %s",
				common.ErrInvalidTransition, e.LocalID, e.RemoteID, remoteID)
		}
		to, err := Next(e.SyncState, EventExportSucceeded)
		if err != nil {
			return err
		}
		if !e.LocalModifiedAt.Equal(snapshot.LocalModifiedAt) {
			to = models.StateDirty
		}

		now := t.timestamp()
		e.RemoteID = remoteID
		e.SyncState = to
		e.LastSyncedAt = &now
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export succeeded for %s: %w", snapshot.LocalID, err)
	}
	return out, nil
}

// ExportFailed leaves the entity untouched and logs the failure.
func (t *Tracker) ExportFailed(ctx context.Context, e *models.Entity, cause error) {
	if _, err := Next(e.SyncState, EventExportFailed); err != nil {
		t.logger.Warn(ctx, "export failed on entity in unexpected state",
			"local_id", e.LocalID, "state", e.SyncState, "error", cause)
		return
	}
	t.logger.Warn(ctx, "export failed", "local_id", e.LocalID, "remote_id", e.RemoteID, "error", cause)
}

// Delete purges an entity that never reached the remote store and
// tombstones any other. The returned tombstone is nil when the row was
// purged; the caller owns the best-effort remote delete.
func (t *Tracker) Delete(ctx context.Context, localID string) (*models.Entity, error) {
	var tomb *models.Entity
	err := t.store.WithTx(ctx, func(ctx context.Context, repo entities.Repository) error {
		e, err := repo.GetByLocalID(ctx, localID, true)
		if err != nil {
			return err
		}
		to, err := Next(e.SyncState, EventDelete)
		if err != nil {
			return err
		}
		if e.RemoteID == "" {
			return repo.Purge(ctx, e.LocalID)
		}
		e.SyncState = to
		e.DeleteConfirmed = false
		e.LocalModifiedAt = t.timestamp()
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
		tomb = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", localID, err)
	}
	return tomb, nil
}

// ImportOrphaned demotes a SYNCED entity whose remote copy disappeared.
func (t *Tracker) ImportOrphaned(ctx context.Context, localID string) (*models.Entity, error) {
	return t.transition(ctx, localID, EventImportOrphaned, func(e *models.Entity) error {
		e.RemoteID = ""
		e.LastSyncedAt = nil
		return nil
	})
}

// Demote returns an entity the remote store rejected to NEW, so it is
// recreated by the next create pass.
func (t *Tracker) Demote(ctx context.Context, localID string) (*models.Entity, error) {
	return t.transition(ctx, localID, EventDemote, func(e *models.Entity) error {
		e.RemoteID = ""
		e.LastSyncedAt = nil
		return nil
	})
}

// ConfirmDeleted marks a tombstone whose remote copy is known to be gone.
func (t *Tracker) ConfirmDeleted(ctx context.Context, localID string) (*models.Entity, error) {
	return t.transition(ctx, localID, EventConfirmDeleted, func(e *models.Entity) error {
		e.DeleteConfirmed = true
		return nil
	})
}

// ImportUpdate overwrites a SYNCED entity from its remote copy and reports
// whether anything changed. An entity that is no longer SYNCED yields
// common.ErrInvalidTransition (or common.ErrTombstoned) and is left alone.
func (t *Tracker) ImportUpdate(ctx context.Context, localID string, r models.RemoteEntity) (bool, error) {
	changed := false
	_, err := t.transition(ctx, localID, EventImportUpdate, func(e *models.Entity) error {
		changed = e.Name != r.Name || !e.Payload.Equal(r.Payload)
		e.Name = r.Name
		e.Payload = r.Payload.Clone()
		now := t.timestamp()
		e.LastSyncedAt = &now
		return nil
	})
	return changed, err
}

// ImportBind binds an unbound local entity to remote record r. The entity
// becomes SYNCED when its content equals r, otherwise it becomes DIRTY so
// the local edits are exported rather than dropped. The entity joins r's
// shared group; common.ErrAlreadyExists is returned when another live
// entity of the owner already holds that group.
func (t *Tracker) ImportBind(ctx context.Context, localID string, r models.RemoteEntity) (*models.Entity, error) {
	var out *models.Entity
	err := t.store.WithTx(ctx, func(ctx context.Context, repo entities.Repository) error {
		e, err := repo.GetByLocalID(ctx, localID, true)
		if err != nil {
			return err
		}
		if e.RemoteID != "" {
			return fmt.Errorf("%w: entity %s already bound to %s", common.ErrInvalidTransition, e.LocalID, e.RemoteID)
		}
		ev := EventImportBindDirty
		if e.Name == r.Name && e.Payload.Equal(r.Payload) {
			ev = EventImportBind
		}
		to, err := Next(e.SyncState, ev)
		if err != nil {
			return err
		}
		if r.SharedGroupID != "" && r.SharedGroupID != e.SharedGroupID {
			holder, err := repo.FindByGroupOwner(ctx, r.SharedGroupID, e.OwnerID)
			switch {
			case err == nil && holder.LocalID != e.LocalID:
				return fmt.Errorf("%w: group %s already held by %s", common.ErrAlreadyExists, r.SharedGroupID, holder.LocalID)
			case err != nil && !errors.Is(err, common.ErrNotFound):
				return err
			}
			e.SharedGroupID = r.SharedGroupID
		}
		if r.OriginalOwnerID != "" {
			e.OriginalOwnerID = r.OriginalOwnerID
		}
		now := t.timestamp()
		e.RemoteID = r.ID
		e.SyncState = to
		e.LastSyncedAt = &now
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bind %s to %s: %w", localID, r.ID, err)
	}
	return out, nil
}

// ImportCreate stores remote record r as a new SYNCED entity.
func (t *Tracker) ImportCreate(ctx context.Context, r models.RemoteEntity) (*models.Entity, error) {
	state, err := Next(none, EventImportCreate)
	if err != nil {
		return nil, err
	}
	now := t.timestamp()
	original := r.OriginalOwnerID
	if original == "" {
		original = r.OwnerID
	}
	group := r.SharedGroupID
	if group == "" {
		group = t.newID()
	}
	e := &models.Entity{
		LocalID:         t.newID(),
		RemoteID:        r.ID,
		SharedGroupID:   group,
		OwnerID:         r.OwnerID,
		OriginalOwnerID: original,
		SyncState:       state,
		LocalModifiedAt: now,
		LastSyncedAt:    &now,
		Name:            r.Name,
		Payload:         r.Payload.Clone(),
	}
	if err := t.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("import %s: %w", r.ID, err)
	}
	return e, nil
}

// PurgeTombstones removes confirmed tombstones older than retention.
func (t *Tracker) PurgeTombstones(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return t.store.PurgeTombstones(ctx, t.timestamp().Add(-retention))
}

func (t *Tracker) transition(ctx context.Context, localID string, ev Event, mutate func(e *models.Entity) error) (*models.Entity, error) {
	var out *models.Entity
	err := t.store.WithTx(ctx, func(ctx context.Context, repo entities.Repository) error {
		e, err := repo.GetByLocalID(ctx, localID, true)
		if err != nil {
			return err
		}
		to, err := Next(e.SyncState, ev)
		if err != nil {
			return err
		}
		if err := mutate(e); err != nil {
			return err
		}
		e.SyncState = to
		if err := repo.Save(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", ev, localID, err)
	}
	return out, nil
}

// IsSkippable reports errors that mean "the entity moved on, leave it".
func IsSkippable(err error) bool {
	return errors.Is(err, common.ErrTombstoned) ||
		errors.Is(err, common.ErrInvalidTransition) ||
		errors.Is(err, common.ErrNotFound)
}

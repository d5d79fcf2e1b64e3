package entities

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

// ListOptions filters List.
type ListOptions struct {
	// OwnerID limits the result to one curator when set.
	OwnerID string
	// States limits the result to the given states when non-empty.
	States []models.SyncState
	// IncludeTombstones adds TOMBSTONED rows to the result.
	IncludeTombstones bool
}

// Repository describes the persistence operations on entities.
//
// List methods skip rows that cannot be decoded: the readable rows are
// returned together with an error wrapping common.ErrLocalStore.
type Repository interface {
	// Insert stores a new entity.
	Insert(ctx context.Context, e *models.Entity) error
	// Save overwrites every mutable column of an existing entity.
	Save(ctx context.Context, e *models.Entity) error
	// Purge removes the row outright.
	Purge(ctx context.Context, localID string) error

	// GetByLocalID returns common.ErrNotFound for a missing row, and for a
	// tombstone unless includeTombstones is set.
	GetByLocalID(ctx context.Context, localID string, includeTombstones bool) (*models.Entity, error)
	// GetByRemoteID looks up the binding for remoteID, tombstones included.
	GetByRemoteID(ctx context.Context, remoteID string) (*models.Entity, error)
	// FindByGroupOwner returns the non-tombstoned entity holding the pair.
	FindByGroupOwner(ctx context.Context, groupID, ownerID string) (*models.Entity, error)
	// FindUnboundByGroupOwner is FindByGroupOwner restricted to entities without a remote id.
	FindUnboundByGroupOwner(ctx context.Context, groupID, ownerID string) (*models.Entity, error)
	// FindUnboundByName returns the oldest unbound non-tombstoned entity of
	// ownerID with exactly this name.
	FindUnboundByName(ctx context.Context, ownerID, name string) (*models.Entity, error)

	List(ctx context.Context, opts ListOptions) ([]*models.Entity, error)
	// ListPending returns NEW and DIRTY entities, oldest edit first.
	ListPending(ctx context.Context) ([]*models.Entity, error)
	// ListRemoteBound returns every entity with a remote id, tombstones included.
	ListRemoteBound(ctx context.Context) ([]*models.Entity, error)
	// ListUnconfirmedTombstones returns tombstones whose remote delete is not yet confirmed.
	ListUnconfirmedTombstones(ctx context.Context) ([]*models.Entity, error)
	// PurgeTombstones deletes confirmed tombstones last modified before the cutoff.
	PurgeTombstones(ctx context.Context, before time.Time) (int64, error)
}

// Store is a Repository that can also scope work to one transaction.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

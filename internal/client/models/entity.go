package models

import (
	"fmt"
	"time"
)

// SyncState is the per-entity synchronization state.
type SyncState string

const (
	StateNew        SyncState = "NEW"
	StateDirty      SyncState = "DIRTY"
	StateSynced     SyncState = "SYNCED"
	StateTombstoned SyncState = "TOMBSTONED"
)

// ParseSyncState validates a stored state value.
func ParseSyncState(s string) (SyncState, error) {
	switch st := SyncState(s); st {
	case StateNew, StateDirty, StateSynced, StateTombstoned:
		return st, nil
	}
	return "", fmt.Errorf("unknown sync state %q", s)
}

// Pending reports whether the state is awaiting export.
func (s SyncState) Pending() bool {
	return s == StateNew || s == StateDirty
}

// Entity is a curated record kept in the local store.
type Entity struct {
	// LocalID is assigned by the store at local creation and never reused.
	LocalID string
	// RemoteID is empty until the first successful export and never changes afterwards.
	RemoteID string
	// SharedGroupID links all forks of one logical record.
	SharedGroupID string
	// OwnerID is the curator owning this copy.
	OwnerID string
	// OriginalOwnerID is the creator of the first copy in the group.
	OriginalOwnerID string

	SyncState       SyncState
	LocalModifiedAt time.Time
	// LastSyncedAt is nil when the entity has never been reconciled.
	LastSyncedAt *time.Time

	Name    string
	Payload Payload

	// DeleteConfirmed marks a tombstone whose remote copy is known to be gone.
	DeleteConfirmed bool
}

// HasRemote reports whether the entity is bound to a remote record.
func (e *Entity) HasRemote() bool {
	return e.RemoteID != ""
}

// Tombstoned reports whether the entity has been deleted locally.
func (e *Entity) Tombstoned() bool {
	return e.SyncState == StateTombstoned
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Payload = e.Payload.Clone()
	if e.LastSyncedAt != nil {
		t := *e.LastSyncedAt
		c.LastSyncedAt = &t
	}
	return &c
}

// ToRemote builds the outgoing record for e. The remote id is left empty
// for unbound entities.
func (e *Entity) ToRemote() RemoteEntity {
	return RemoteEntity{
		ID:              e.RemoteID,
		SharedGroupID:   e.SharedGroupID,
		OwnerID:         e.OwnerID,
		OriginalOwnerID: e.OriginalOwnerID,
		Name:            e.Name,
		Payload:         e.Payload.Clone(),
	}
}

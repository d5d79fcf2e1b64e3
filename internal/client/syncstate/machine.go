// Package syncstate owns the per-entity synchronization state machine.
//
// Next is the pure transition table. Tracker applies transitions to stored
// entities, each as one read-modify-write inside a single store transaction.
package syncstate

import (
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
)

// Event triggers a state transition.
type Event string

const (
	EventCreate          Event = "create"
	EventEdit            Event = "edit"
	EventExportSucceeded Event = "export_succeeded"
	EventExportFailed    Event = "export_failed"
	EventDelete          Event = "delete"
	EventImportOrphaned  Event = "import_orphaned"
	EventDemote          Event = "demote"
	EventConfirmDeleted  Event = "confirm_deleted"

	// EventImportCreate stores a remote record not yet known locally.
	EventImportCreate Event = "import_create"
	// EventImportUpdate overwrites a SYNCED entity from its remote copy.
	EventImportUpdate Event = "import_update"
	// EventImportBind binds an unbound entity whose payload equals the remote copy.
	EventImportBind Event = "import_bind"
	// EventImportBindDirty binds an unbound entity that still differs from the remote copy.
	EventImportBindDirty Event = "import_bind_dirty"
)

// none is the state of an entity that does not exist yet.
const none models.SyncState = ""

var table = map[Event]map[models.SyncState]models.SyncState{
	EventCreate: {
		none: models.StateNew,
	},
	EventEdit: {
		models.StateNew:    models.StateDirty,
		models.StateDirty:  models.StateDirty,
		models.StateSynced: models.StateDirty,
	},
	EventExportSucceeded: {
		models.StateNew:   models.StateSynced,
		models.StateDirty: models.StateSynced,
	},
	EventExportFailed: {
		models.StateNew:   models.StateNew,
		models.StateDirty: models.StateDirty,
	},
	EventDelete: {
		models.StateNew:    models.StateTombstoned,
		models.StateDirty:  models.StateTombstoned,
		models.StateSynced: models.StateTombstoned,
	},
	EventImportOrphaned: {
		models.StateSynced: models.StateNew,
	},
	EventDemote: {
		models.StateDirty: models.StateNew,
	},
	EventConfirmDeleted: {
		models.StateTombstoned: models.StateTombstoned,
	},
	EventImportCreate: {
		none: models.StateSynced,
	},
	EventImportUpdate: {
		models.StateSynced: models.StateSynced,
	},
	EventImportBind: {
		models.StateNew:   models.StateSynced,
		models.StateDirty: models.StateSynced,
	},
	EventImportBindDirty: {
		models.StateNew:   models.StateDirty,
		models.StateDirty: models.StateDirty,
	},
}

// Next returns the state reached from `from` on event ev. Events other than
// ConfirmDeleted on a tombstone return common.ErrTombstoned; any other
// undefined pair returns common.ErrInvalidTransition.
func Next(from models.SyncState, ev Event) (models.SyncState, error) {
	row, ok := table[ev]
	if !ok {
		return "", fmt.Errorf("%w: unknown event %q", common.ErrInvalidTransition, ev)
	}
	if to, ok := row[from]; ok {
		return to, nil
	}
	if from == models.StateTombstoned {
		return "", fmt.Errorf("%w: %s", common.ErrTombstoned, ev)
	}
	return "", fmt.Errorf("%w: %s from %q", common.ErrInvalidTransition, ev, from)
}

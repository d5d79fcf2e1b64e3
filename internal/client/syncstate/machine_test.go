package syncstate

import (
	"testing"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_Table(t *testing.T) {
	tests := []struct {
		from models.SyncState
		ev   Event
		want models.SyncState
	}{
		{none, EventCreate, models.StateNew},
		{models.StateNew, EventEdit, models.StateDirty},
		{models.StateDirty, EventEdit, models.StateDirty},
		{models.StateSynced, EventEdit, models.StateDirty},
		{models.StateNew, EventExportSucceeded, models.StateSynced},
		{models.StateDirty, EventExportSucceeded, models.StateSynced},
		{models.StateNew, EventExportFailed, models.StateNew},
		{models.StateDirty, EventExportFailed, models.StateDirty},
		{models.StateNew, EventDelete, models.StateTombstoned},
		{models.StateDirty, EventDelete, models.StateTombstoned},
		{models.StateSynced, EventDelete, models.StateTombstoned},
		{models.StateSynced, EventImportOrphaned, models.StateNew},
		{models.StateDirty, EventDemote, models.StateNew},
		{models.StateTombstoned, EventConfirmDeleted, models.StateTombstoned},
		{none, EventImportCreate, models.StateSynced},
		{models.StateSynced, EventImportUpdate, models.StateSynced},
		{models.StateNew, EventImportBind, models.StateSynced},
		{models.StateDirty, EventImportBindDirty, models.StateDirty},
	}
	for _, tt := range tests {
		t.Run(string(tt.ev)+"/"+string(tt.from), func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_TombstoneIsFinal(t *testing.T) {
	for _, ev := range []Event{
		EventEdit, EventExportSucceeded, EventExportFailed, EventDelete,
		EventImportOrphaned, EventDemote, EventImportUpdate, EventImportBind, EventImportBindDirty,
	} {
		_, err := Next(models.StateTombstoned, ev)
		require.ErrorIs(t, err, common.ErrTombstoned, ev)
	}
}

func TestNext_NewIsOnlyReenteredByOrphanOrDemote(t *testing.T) {
	for ev := range table {
		for _, from := range []models.SyncState{models.StateSynced, models.StateDirty} {
			to, err := Next(from, ev)
			if err != nil || to != models.StateNew {
				continue
			}
			assert.Contains(t, []Event{EventImportOrphaned, EventDemote}, ev,
				"%s re-enters NEW from %s", ev, from)
		}
	}
}

func TestNext_Invalid(t *testing.T) {
	tests := []struct {
		from models.SyncState
		ev   Event
	}{
		{models.StateDirty, EventImportOrphaned},
		{models.StateNew, EventImportOrphaned},
		{models.StateSynced, EventExportSucceeded},
		{models.StateSynced, EventDemote},
		{models.StateNew, EventCreate},
		{models.StateDirty, EventImportUpdate},
		{models.StateSynced, Event("teleport")},
	}
	for _, tt := range tests {
		_, err := Next(tt.from, tt.ev)
		require.ErrorIs(t, err, common.ErrInvalidTransition, "%s from %s", tt.ev, tt.from)
	}
}

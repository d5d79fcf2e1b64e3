package reconcile

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/fork"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_CreatesUnknownRecords(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.gw.seed(models.RemoteEntity{SharedGroupID: "g1", OwnerID: "alice", Name: "Oak", Payload: models.Payload{"text": "old"}})
	f.gw.seed(models.RemoteEntity{SharedGroupID: "g2", OwnerID: "bob", Name: "Elm"})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	list := f.all(t)
	require.Len(t, list, 2)
	for _, e := range list {
		assert.Equal(t, models.StateSynced, e.SyncState)
		assert.NotEmpty(t, e.RemoteID)
		assert.NotNil(t, e.LastSyncedAt)
	}
}

func TestImport_Idempotent(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.gw.seed(models.RemoteEntity{SharedGroupID: "g1", OwnerID: "alice", Name: "Oak"})
	f.gw.seed(models.RemoteEntity{SharedGroupID: "g2", OwnerID: "alice", Name: "Elm"})

	_, err := f.engine.Import(ctx)
	require.NoError(t, err)
	before := f.all(t)

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Unchanged: 2}, *res)

	after := f.all(t)
	require.Len(t, after, len(before))
	byID := map[string]string{}
	for _, e := range before {
		byID[e.LocalID] = e.RemoteID
	}
	for _, e := range after {
		assert.Equal(t, byID[e.LocalID], e.RemoteID)
		assert.Equal(t, models.StateSynced, e.SyncState)
	}
}

func TestImport_UpdatesSyncedEntity(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", models.Payload{"text": "v1"})

	f.gw.set(func(g *fakeGateway) {
		r := g.records[e.RemoteID]
		r.Name = "Old oak"
		r.Payload = models.Payload{"text": "v2"}
		g.records[e.RemoteID] = r
	})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	got := f.get(t, e.LocalID)
	assert.Equal(t, "Old oak", got.Name)
	assert.Equal(t, "v2", got.Payload["text"])
	assert.Equal(t, models.StateSynced, got.SyncState)
}

func TestImport_DirtyEntityKeepsLocalEdit(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", models.Payload{"text": "v1"})

	_, err := f.tracker.Edit(ctx, e.LocalID, models.Change{Set: map[string]any{"text": "local"}})
	require.NoError(t, err)
	f.gw.set(func(g *fakeGateway) {
		r := g.records[e.RemoteID]
		r.Payload = models.Payload{"text": "remote"}
		g.records[e.RemoteID] = r
	})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	got := f.get(t, e.LocalID)
	assert.Equal(t, models.StateDirty, got.SyncState)
	assert.Equal(t, "local", got.Payload["text"])
}

// Scenario B: an edited entity missing from the listing is not orphaned.
func TestImport_DirtyEntityExemptFromOrphaning(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", nil)

	_, err := f.tracker.Edit(ctx, e.LocalID, models.Change{Set: map[string]any{"text": "pending"}})
	require.NoError(t, err)
	f.gw.remove(e.RemoteID)

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Orphaned)

	got := f.get(t, e.LocalID)
	assert.Equal(t, models.StateDirty, got.SyncState)
	assert.Equal(t, e.RemoteID, got.RemoteID)
	assert.Equal(t, "pending", got.Payload["text"])
}

func TestImport_OrphanedSyncedEntityIsRecreated(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", nil)
	f.gw.remove(e.RemoteID)

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Orphaned)

	got := f.get(t, e.LocalID)
	assert.Equal(t, models.StateNew, got.SyncState)
	assert.Empty(t, got.RemoteID)
	assert.Nil(t, got.LastSyncedAt)

	exp, err := f.engine.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, exp.Created)

	got = f.get(t, e.LocalID)
	assert.Equal(t, models.StateSynced, got.SyncState)
	assert.NotEqual(t, e.RemoteID, got.RemoteID)
}

// Scenario E: a tombstone whose remote delete failed is not resurrected.
func TestImport_TombstoneNotResurrected(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", nil)

	f.gw.set(func(g *fakeGateway) { g.deleteErr = common.ErrUnavailable })
	tomb, err := f.tracker.Delete(ctx, e.LocalID)
	require.NoError(t, err)
	require.NotNil(t, tomb)
	assert.Equal(t, models.StateTombstoned, tomb.SyncState)
	assert.False(t, f.engine.DeleteRemote(ctx, tomb))

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Added)

	list := f.all(t)
	require.Len(t, list, 1)
	assert.Equal(t, models.StateTombstoned, list[0].SyncState)
	assert.False(t, list[0].DeleteConfirmed)
}

func TestImport_MissingTombstoneIsConfirmed(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", nil)

	_, err := f.tracker.Delete(ctx, e.LocalID)
	require.NoError(t, err)
	f.gw.remove(e.RemoteID)

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Orphaned)

	got := f.get(t, e.LocalID)
	assert.Equal(t, models.StateTombstoned, got.SyncState)
	assert.True(t, got.DeleteConfirmed)
}

func TestImport_BindsUnboundEntityByGroup(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e, err := f.tracker.Create(ctx, "alice", "Oak", models.Payload{"text": "same"})
	require.NoError(t, err)
	rid := f.gw.seed(models.RemoteEntity{
		SharedGroupID: e.SharedGroupID, OwnerID: "alice", Name: "Oak", Payload: models.Payload{"text": "same"},
	})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	list := f.all(t)
	require.Len(t, list, 1)
	assert.Equal(t, e.LocalID, list[0].LocalID)
	assert.Equal(t, rid, list[0].RemoteID)
	assert.Equal(t, models.StateSynced, list[0].SyncState)
}

func TestImport_BindsByNameAndKeepsLocalContent(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e, err := f.tracker.Create(ctx, "alice", "Oak", models.Payload{"text": "local"})
	require.NoError(t, err)
	rid := f.gw.seed(models.RemoteEntity{SharedGroupID: "other", OwnerID: "alice", OriginalOwnerID: "carol", Name: "Oak", Payload: models.Payload{"text": "remote"}})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	got := f.get(t, e.LocalID)
	assert.Equal(t, rid, got.RemoteID)
	assert.Equal(t, models.StateDirty, got.SyncState)
	assert.Equal(t, "local", got.Payload["text"])
	assert.Equal(t, "other", got.SharedGroupID, "bound entity joins the remote group")
	assert.Equal(t, "carol", got.OriginalOwnerID)
	assert.Len(t, f.all(t), 1)
}

func TestImport_NameBindKeepsForkLookupInRemoteGroup(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	mine, err := f.tracker.Create(ctx, "alice", "Oak", nil)
	require.NoError(t, err)
	f.gw.seed(models.RemoteEntity{SharedGroupID: "gR", OwnerID: "alice", Name: "Oak"})
	f.gw.seed(models.RemoteEntity{SharedGroupID: "gR", OwnerID: "bob", OriginalOwnerID: "alice", Name: "Oak"})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	var bobs *models.Entity
	for _, e := range f.all(t) {
		if e.OwnerID == "bob" {
			bobs = e
		}
	}
	require.NotNil(t, bobs)

	resolver := fork.NewResolver(f.store, f.tracker, logging.NewNop())
	resolution, err := resolver.Resolve(ctx, "alice", bobs.LocalID)
	require.NoError(t, err)
	assert.Equal(t, fork.Redirect, resolution.Kind)
	assert.Equal(t, mine.LocalID, resolution.Target.LocalID)

	_, kind, err := resolver.Edit(ctx, "alice", bobs.LocalID, models.Change{Set: map[string]any{"text": "mine"}})
	require.NoError(t, err)
	assert.Equal(t, fork.Redirect, kind)

	exp, err := f.engine.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, exp.Updated)
	assert.Zero(t, exp.Created)
	assert.Equal(t, 2, f.gw.count(), "no second copy of the group for alice")
}

func TestImport_NameBindSkippedWhenGroupAlreadyHeld(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.gw.seed(models.RemoteEntity{SharedGroupID: "gR", OwnerID: "alice", Name: "Elm"})
	_, err := f.engine.Import(ctx)
	require.NoError(t, err)

	loose, err := f.tracker.Create(ctx, "alice", "Oak", nil)
	require.NoError(t, err)
	f.gw.seed(models.RemoteEntity{SharedGroupID: "gR", OwnerID: "alice", Name: "Oak"})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Unchanged)

	got := f.get(t, loose.LocalID)
	assert.Empty(t, got.RemoteID)
	assert.Equal(t, models.StateNew, got.SyncState)
	assert.Equal(t, loose.SharedGroupID, got.SharedGroupID)
}

func TestImport_SkipsRecordWhenOwnerHoldsGroup(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", nil)
	f.gw.seed(models.RemoteEntity{SharedGroupID: e.SharedGroupID, OwnerID: "alice", Name: "Oak copy"})

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Unchanged)
	assert.Len(t, f.all(t), 1)
}

func TestImport_ListFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	e := f.synced(t, "alice", "Oak", nil)
	f.gw.set(func(g *fakeGateway) { g.listErr = common.ErrUnavailable })

	res, err := f.engine.Import(ctx)
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Nil(t, res)

	got := f.get(t, e.LocalID)
	assert.Equal(t, models.StateSynced, got.SyncState)
	assert.Equal(t, e.RemoteID, got.RemoteID)
}

func TestImport_ToleratesCorruptRow(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	first := f.synced(t, "alice", "Oak", nil)
	second := f.synced(t, "alice", "Elm", nil)

	_, err := f.db.Exec(`UPDATE entities SET payload = '{broken' WHERE local_id = ?`, first.LocalID)
	require.NoError(t, err)
	f.gw.remove(first.RemoteID)

	res, err := f.engine.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Zero(t, res.Orphaned)

	got := f.get(t, second.LocalID)
	assert.Equal(t, models.StateSynced, got.SyncState)
}

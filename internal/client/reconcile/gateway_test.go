package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeGateway is an in-memory remote store. Hooks run outside the lock.
type fakeGateway struct {
	mu      sync.Mutex
	records map[string]models.RemoteEntity
	seq     int

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	rejectNames map[string]string
	dropGroup   bool

	onCreate func()
	onUpdate func()

	listCalls, createCalls, updateCalls, deleteCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{records: map[string]models.RemoteEntity{}, rejectNames: map[string]string{}}
}

// seed stores r as an existing remote record and returns its id.
func (g *fakeGateway) seed(r models.RemoteEntity) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r.ID == "" {
		g.seq++
		r.ID = fmt.Sprintf("srv-%02d", g.seq)
	}
	if r.OriginalOwnerID == "" {
		r.OriginalOwnerID = r.OwnerID
	}
	r.Payload = r.Payload.Clone()
	g.records[r.ID] = r
	return r.ID
}

func (g *fakeGateway) get(id string) (models.RemoteEntity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.records[id]
	return r, ok
}

func (g *fakeGateway) remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records, id)
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

func (g *fakeGateway) set(fn func(g *fakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

func (g *fakeGateway) List(ctx context.Context) ([]models.RemoteEntity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]models.RemoteEntity, 0, len(g.records))
	for _, r := range g.records {
		r.Payload = r.Payload.Clone()
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *fakeGateway) Create(ctx context.Context, records []models.RemoteEntity) (*models.BatchAck, error) {
	if g.onCreate != nil {
		g.onCreate()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	ack := &models.BatchAck{}
	for i, r := range records {
		if reason, ok := g.rejectNames[r.Name]; ok {
			ack.Rejected = append(ack.Rejected, models.RejectedItem{Index: i, Reason: reason})
			continue
		}
		g.seq++
		r.ID = fmt.Sprintf("srv-%02d", g.seq)
		if g.dropGroup {
			r.SharedGroupID = ""
		}
		r.Payload = r.Payload.Clone()
		r.UpdatedAt = time.Now()
		g.records[r.ID] = r
		ack.Accepted++
	}
	return ack, nil
}

func (g *fakeGateway) Update(ctx context.Context, remoteID string, record models.RemoteEntity) (*models.RemoteEntity, error) {
	if g.onUpdate != nil {
		g.onUpdate()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	r, ok := g.records[remoteID]
	if !ok {
		return nil, fmt.Errorf("%w: record %s not found", common.ErrRemoteRejected, remoteID)
	}
	r.Name = record.Name
	r.Payload = record.Payload.Clone()
	r.UpdatedAt = time.Now()
	g.records[remoteID] = r
	return &r, nil
}

func (g *fakeGateway) Delete(ctx context.Context, remoteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	if g.deleteErr != nil {
		return g.deleteErr
	}
	if _, ok := g.records[remoteID]; !ok {
		return fmt.Errorf("%w: record %s not found", common.ErrRemoteRejected, remoteID)
	}
	delete(g.records, remoteID)
	return nil
}

func (g *fakeGateway) Ping(ctx context.Context) error { return nil }

type fixture struct {
	db      *sql.DB
	store   *entities.SQLiteStore
	tracker *syncstate.Tracker
	gw      *fakeGateway
	engine  *Engine
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	store := entities.NewSQLiteStore(db)
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		start = start.Add(time.Second)
		return start
	}
	tracker := syncstate.NewTracker(store, logging.NewNop(), syncstate.WithClock(clock))
	gw := newFakeGateway()
	return &fixture{
		db:      db,
		store:   store,
		tracker: tracker,
		gw:      gw,
		engine:  NewEngine(gw, tracker, logging.NewNop(), cfg),
	}
}

func (f *fixture) get(t *testing.T, localID string) *models.Entity {
	t.Helper()
	e, err := f.store.GetByLocalID(context.Background(), localID, true)
	require.NoError(t, err)
	return e
}

func (f *fixture) all(t *testing.T) []*models.Entity {
	t.Helper()
	list, err := f.store.List(context.Background(), entities.ListOptions{IncludeTombstones: true})
	require.NoError(t, err)
	return list
}

// synced creates an entity locally and exports it.
func (f *fixture) synced(t *testing.T, owner, name string, payload models.Payload) *models.Entity {
	t.Helper()
	ctx := context.Background()
	e, err := f.tracker.Create(ctx, owner, name, payload)
	require.NoError(t, err)
	res, err := f.engine.Export(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	return f.get(t, e.LocalID)
}

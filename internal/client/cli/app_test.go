package cli

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/client"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/fork"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/scheduler"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/services"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeAuth struct {
	restoreErr error
	loginErr   error
	loggedOut  bool
	closed     bool
}

func (f *fakeAuth) Register(ctx context.Context, username, password string) (string, error) {
	return "cur-" + username, nil
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*services.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.Session{CuratorID: "cur-" + username, Username: username}, nil
}

func (f *fakeAuth) Restore(ctx context.Context) (*services.Session, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	return &services.Session{CuratorID: "cur-alice", Username: "alice"}, nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.loggedOut = true
	return nil
}

func (f *fakeAuth) Ping(ctx context.Context) error { return nil }

func (f *fakeAuth) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

type fakeSyncer struct {
	started, stopped bool
	summary          *scheduler.Summary
	err              error
}

func (f *fakeSyncer) Start(ctx context.Context) error { f.started = true; return nil }
func (f *fakeSyncer) Stop()                           { f.stopped = true }
func (f *fakeSyncer) Mode() scheduler.Mode            { return scheduler.ModeOnline }
func (f *fakeSyncer) SyncNow(ctx context.Context) (*scheduler.Summary, error) {
	return f.summary, f.err
}

type fakeCurators struct {
	ids []string
}

func (f *fakeCurators) SetCurator(id string) { f.ids = append(f.ids, id) }

type testApp struct {
	*App
	out      *bytes.Buffer
	tracker  *syncstate.Tracker
	auth     *fakeAuth
	syncer   *fakeSyncer
	curators *fakeCurators
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	store := entities.NewSQLiteStore(db)
	n := 0
	tracker := syncstate.NewTracker(store, logging.NewNop(), syncstate.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("ent-%02d", n)
	}))
	resolver := fork.NewResolver(store, tracker, logging.NewNop())
	es := services.NewEntityService(tracker, resolver, nil, nil, logging.NewNop())

	out := &bytes.Buffer{}
	auth := &fakeAuth{}
	syncer := &fakeSyncer{}
	curators := &fakeCurators{}
	app := &App{
		authService:   auth,
		entityService: es,
		sync:          syncer,
		curators:      curators,
		meta:          metadata.NewSQLiteRepository(db),
		logger:        logging.NewNop(),
		session:       &services.Session{CuratorID: "alice", Username: "alice"},
		reader:        bufio.NewReader(strings.NewReader(input)),
		out:           out,
	}
	return &testApp{App: app, out: out, tracker: tracker, auth: auth, syncer: syncer, curators: curators}
}

func (a *testApp) setInput(s string) {
	a.reader = bufio.NewReader(strings.NewReader(s))
}

func TestApp_NewAndList(t *testing.T) {
	a := newTestApp(t, "Oak\nby the river\n\ntree, old\nheight_m=21.5\n\n")
	ctx := context.Background()

	require.NoError(t, a.New(ctx))
	assert.Contains(t, a.out.String(), "Created ent-01")

	e, err := a.entityService.Get(ctx, "ent-01")
	require.NoError(t, err)
	assert.Equal(t, "Oak", e.Name)
	assert.Equal(t, "by the river", e.Payload[models.PayloadText])
	assert.Equal(t, []any{"tree", "old"}, e.Payload[models.PayloadTags])
	assert.Equal(t, map[string]any{"height_m": 21.5}, e.Payload[models.PayloadAttributes])

	a.out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.Contains(t, a.out.String(), "Oak")
	assert.Contains(t, a.out.String(), "me")
	assert.Contains(t, a.out.String(), "NEW")
}

func TestApp_CommandsRequireLogin(t *testing.T) {
	a := newTestApp(t, "")
	a.session = nil
	ctx := context.Background()

	require.ErrorIs(t, a.New(ctx), ErrLoginRequired)
	require.ErrorIs(t, a.Edit(ctx, []string{"x"}), ErrLoginRequired)
	require.ErrorIs(t, a.Delete(ctx, []string{"x"}), ErrLoginRequired)
	require.ErrorIs(t, a.Attach(ctx, []string{"x", "y"}), ErrLoginRequired)
	require.ErrorIs(t, a.Sync(ctx), ErrLoginRequired)
}

func TestApp_EditForeignEntityForks(t *testing.T) {
	a := newTestApp(t, "")
	ctx := context.Background()
	src, err := a.tracker.Create(ctx, "bob", "Elm", models.Payload{models.PayloadAttributes: map[string]any{"girth": 2.0}})
	require.NoError(t, err)

	a.setInput("\n\n\nheight=4\n\n")
	require.NoError(t, a.Edit(ctx, []string{src.LocalID}))
	assert.Contains(t, a.out.String(), "Created your own copy")

	list, err := a.entityService.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, e := range list {
		if e.OwnerID == "alice" {
			assert.Equal(t, src.SharedGroupID, e.SharedGroupID)
			assert.Equal(t, map[string]any{"girth": 2.0, "height": 4.0}, e.Payload[models.PayloadAttributes])
		} else {
			assert.Equal(t, models.StateNew, e.SyncState)
			assert.Equal(t, map[string]any{"girth": 2.0}, e.Payload[models.PayloadAttributes])
		}
	}
}

func TestApp_EditNothingToChange(t *testing.T) {
	a := newTestApp(t, "")
	ctx := context.Background()
	e, err := a.tracker.Create(ctx, "alice", "Oak", nil)
	require.NoError(t, err)

	a.setInput("Oak\n\n\n\n")
	require.NoError(t, a.Edit(ctx, []string{e.LocalID}))
	assert.Contains(t, a.out.String(), "Nothing to change")

	got, err := a.entityService.Get(ctx, e.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StateNew, got.SyncState)
}

func TestApp_DeleteAndListAll(t *testing.T) {
	a := newTestApp(t, "")
	ctx := context.Background()
	e, err := a.tracker.Create(ctx, "alice", "Oak", nil)
	require.NoError(t, err)
	_, err = a.tracker.ExportSucceeded(ctx, e, "r1")
	require.NoError(t, err)

	require.NoError(t, a.Delete(ctx, []string{e.LocalID}))
	assert.Contains(t, a.out.String(), "Deleted "+e.LocalID)

	a.out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.Contains(t, a.out.String(), "No entities")

	a.out.Reset()
	require.NoError(t, a.List(ctx, []string{"all"}))
	assert.Contains(t, a.out.String(), "TOMBSTONED")
}

func TestApp_ShowResolvesPrefix(t *testing.T) {
	a := newTestApp(t, "")
	ctx := context.Background()
	_, err := a.tracker.Create(ctx, "alice", "Oak", models.Payload{models.PayloadText: "note"})
	require.NoError(t, err)
	_, err = a.tracker.Create(ctx, "alice", "Elm", nil)
	require.NoError(t, err)

	require.NoError(t, a.Show(ctx, []string{"ent-01"}))
	assert.Contains(t, a.out.String(), "Name:           Oak")
	assert.Contains(t, a.out.String(), `"text": "note"`)

	require.ErrorIs(t, a.Show(ctx, []string{"ent-0"}), ErrAmbiguousID)
	require.ErrorIs(t, a.Show(ctx, []string{"zzz"}), common.ErrNotFound)
	require.ErrorIs(t, a.Show(ctx, []string{" "}), common.ErrValidation)
}

func TestApp_SyncPrintsSummary(t *testing.T) {
	a := newTestApp(t, "")
	a.syncer.summary = &scheduler.Summary{Added: 2, Updated: 1, Orphaned: 1}

	require.NoError(t, a.Sync(context.Background()))
	assert.Contains(t, a.out.String(), "Added 2, updated 1, skipped 0, failed 0, orphaned 1")

	a.out.Reset()
	a.syncer.summary, a.syncer.err = nil, common.ErrSyncInProgress
	require.NoError(t, a.Sync(context.Background()))
	assert.Contains(t, a.out.String(), "already running")

	a.syncer.err = common.ErrUnavailable
	require.ErrorIs(t, a.Sync(context.Background()), common.ErrUnavailable)
}

func TestApp_Status(t *testing.T) {
	a := newTestApp(t, "")
	ctx := context.Background()
	_, err := a.tracker.Create(ctx, "alice", "Oak", nil)
	require.NoError(t, err)

	require.NoError(t, a.Status(ctx))
	out := a.out.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "Last import: never")
	assert.Contains(t, out, "new=1")
}

func TestApp_LoginAndLogout(t *testing.T) {
	a := newTestApp(t, "bob\n")
	a.session = nil
	old := getPassword
	t.Cleanup(func() { getPassword = old })
	getPassword = func(w io.Writer) (string, error) { return "pw", nil }

	ctx := context.Background()
	require.NoError(t, a.Login(ctx))
	require.True(t, a.isLoggedIn())
	assert.Equal(t, "cur-bob", a.curatorID())

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())
	assert.True(t, a.auth.loggedOut)
	assert.Equal(t, []string{"cur-bob", ""}, a.curators.ids, "sync follows the session curator")
}

func TestApp_RunRestoresSessionAndShutsDown(t *testing.T) {
	a := newTestApp(t, "status\nexit\n")
	a.session = nil

	require.NoError(t, a.Run(context.Background()))
	assert.True(t, a.syncer.started)
	assert.True(t, a.syncer.stopped)
	assert.True(t, a.auth.closed)
	assert.Contains(t, a.out.String(), "Resumed session of alice")
	assert.Contains(t, a.out.String(), "Bye!")
	assert.Equal(t, []string{"cur-alice"}, a.curators.ids)
}

func TestApp_RunWithoutSession(t *testing.T) {
	a := newTestApp(t, "exit\n")
	a.session = nil
	a.auth.restoreErr = client.ErrNotLoggedIn

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, a.out.String(), "Not logged in")
	assert.False(t, a.isLoggedIn())
}

func TestApplyEdits(t *testing.T) {
	var c models.Change
	applyEdits(&c, models.Payload{}, "-", nil, nil)
	assert.Equal(t, []string{models.PayloadText}, c.Unset)
	assert.Nil(t, c.Set)

	c = models.Change{}
	applyEdits(&c, models.Payload{}, "new text", []string{"a"}, nil)
	assert.Equal(t, map[string]any{models.PayloadText: "new text", models.PayloadTags: []string{"a"}}, c.Set)
}

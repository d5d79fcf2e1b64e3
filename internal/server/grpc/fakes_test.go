package grpc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/auth"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/services"
)

const testSecret = "test-secret"

type fakeCurators struct {
	mu    sync.Mutex
	users map[string]string // username -> password
}

func newFakeCurators() *fakeCurators {
	return &fakeCurators{users: map[string]string{}}
}

func (f *fakeCurators) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: username is empty", common.ErrValidation)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; ok {
		return "", fmt.Errorf("curator %q: %w", username, common.ErrAlreadyExists)
	}
	f.users[username] = password
	return "c-" + username, nil
}

func (f *fakeCurators) Login(ctx context.Context, username, password string) (*services.Session, error) {
	f.mu.Lock()
	pw, ok := f.users[username]
	f.mu.Unlock()
	if !ok || pw != password {
		return nil, common.ErrUnauthorized
	}
	tok, err := auth.GenerateToken("c-"+username, []byte(testSecret), time.Hour)
	if err != nil {
		return nil, err
	}
	return &services.Session{CuratorID: "c-" + username, AccessToken: tok}, nil
}

type fakeRecords struct {
	mu      sync.Mutex
	byID    map[string]*models.Record
	nextID  int
	failErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{byID: map[string]*models.Record{}}
}

func (f *fakeRecords) List(ctx context.Context, cursor string, pageSize int) ([]*models.Record, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, "", f.failErr
	}
	var live []*models.Record
	for _, r := range f.byID {
		if !r.Deleted && r.ID > cursor {
			cp := *r
			live = append(live, &cp)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })
	if len(live) > pageSize {
		live = live[:pageSize]
		return live, live[pageSize-1].ID, nil
	}
	return live, "", nil
}

func (f *fakeRecords) CreateBatch(ctx context.Context, curatorID string, batch []*models.Record) (int, []services.Rejection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, nil, f.failErr
	}
	var (
		accepted int
		rejected []services.Rejection
	)
	for i, r := range batch {
		if r.OwnerID != curatorID || r.Name == "" {
			rejected = append(rejected, services.Rejection{Index: i, Reason: "invalid"})
			continue
		}
		f.nextID++
		cp := *r
		cp.ID = fmt.Sprintf("r%02d", f.nextID)
		f.byID[cp.ID] = &cp
		accepted++
	}
	return accepted, rejected, nil
}

func (f *fakeRecords) Update(ctx context.Context, curatorID string, r *models.Record) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[r.ID]
	if !ok || existing.Deleted {
		return nil, fmt.Errorf("record %s: %w", r.ID, common.ErrNotFound)
	}
	if existing.OwnerID != curatorID {
		return nil, services.ErrNotOwner
	}
	existing.Name, existing.Payload = r.Name, r.Payload
	cp := *existing
	return &cp, nil
}

func (f *fakeRecords) Delete(ctx context.Context, curatorID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[id]
	if !ok || existing.Deleted {
		return fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	if existing.OwnerID != curatorID {
		return services.ErrNotOwner
	}
	existing.Deleted = true
	return nil
}

type fakeAttachments struct{}

func (fakeAttachments) Presign(ctx context.Context, curatorID, recordID, fileName, method string) (string, string, error) {
	if method != services.MethodPut && method != services.MethodGet {
		return "", "", fmt.Errorf("%w: method", common.ErrValidation)
	}
	key := services.StorageKey(recordID, fileName)
	return key, "http://blobs.test/" + key + "?by=" + curatorID, nil
}

func newTestServer() (*GRPCServer, *fakeRecords) {
	recs := newFakeRecords()
	return NewGRPCServer("127.0.0.1:0", logging.NewNop(), newFakeCurators(), recs, fakeAttachments{}, testSecret), recs
}

func withCurator(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, curatorIDKey, id)
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/curators"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/records"
)

// memManager is an in-memory RepositoryManager.
type memManager struct {
	curators *memCurators
	records  *memRecords
}

func newMemManager() *memManager {
	return &memManager{
		curators: &memCurators{byName: map[string]*models.Curator{}},
		records:  &memRecords{byID: map[string]*models.Record{}},
	}
}

func (m *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memManager) Curators(dbx.DBTX) curators.Repository       { return m.curators }
func (m *memManager) Records(dbx.DBTX) records.Repository         { return m.records }

type memCurators struct {
	mu     sync.Mutex
	byName map[string]*models.Curator
}

func (r *memCurators) Create(ctx context.Context, c *models.Curator) (*models.Curator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[c.Username]; ok {
		return nil, fmt.Errorf("curator %q: %w", c.Username, common.ErrAlreadyExists)
	}
	cp := *c
	r.byName[c.Username] = &cp
	return c, nil
}

func (r *memCurators) GetByUsername(ctx context.Context, username string) (*models.Curator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byName[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type memRecords struct {
	mu      sync.Mutex
	byID    map[string]*models.Record
	failErr error
}

func (r *memRecords) List(ctx context.Context, afterID string, limit int) ([]*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	var out []*models.Record
	for _, rec := range r.byID {
		if !rec.Deleted && rec.ID > afterID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRecords) Get(ctx context.Context, id string) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *memRecords) Create(ctx context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	for _, existing := range r.byID {
		if !existing.Deleted && existing.SharedGroupID == rec.SharedGroupID && existing.OwnerID == rec.OwnerID {
			return fmt.Errorf("duplicate: %w", common.ErrAlreadyExists)
		}
	}
	cp := *rec
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	r.byID[rec.ID] = &cp
	return nil
}

func (r *memRecords) Update(ctx context.Context, rec *models.Record) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[rec.ID]
	if !ok || existing.Deleted {
		return nil, fmt.Errorf("record %s: %w", rec.ID, common.ErrNotFound)
	}
	existing.Name = rec.Name
	existing.Payload = rec.Payload
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (r *memRecords) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.Deleted {
		return fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	existing.Deleted = true
	return nil
}

func (r *memRecords) seed(recs ...*models.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		cp := *rec
		r.byID[rec.ID] = &cp
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.S3BaseEndpoint = "http://127.0.0.1:9000"
	cfg.MaxBatchSize = 3
	cfg.MaxPageSize = 2
	return cfg
}

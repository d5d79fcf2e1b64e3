package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ErrNotOwner is returned when a curator touches a record owned by someone else.
var ErrNotOwner = errors.New("record belongs to another curator")

const defaultPageSize = 100

// Rejection reports a batch item that was not stored.
type Rejection struct {
	Index  int
	Reason string
}

// RecordService serves the shared record catalog.
type RecordService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	maxBatchSize int
	maxPageSize  int
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *RecordService {
	return &RecordService{
		db:           db,
		repomanager:  m,
		maxBatchSize: cfg.MaxBatchSize,
		maxPageSize:  cfg.MaxPageSize,
	}
}

// List returns one page of live records after cursor and the cursor of the
// next page, which is empty once the listing is exhausted.
func (s *RecordService) List(ctx context.Context, cursor string, pageSize int) ([]*models.Record, string, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	// one extra row tells whether another page exists
	list, err := s.repomanager.Records(s.db).List(ctx, cursor, pageSize+1)
	if err != nil {
		return nil, "", err
	}
	if len(list) <= pageSize {
		return list, "", nil
	}
	list = list[:pageSize]
	return list, list[pageSize-1].ID, nil
}

// CreateBatch stores every valid record owned by curatorID and reports the
// rest by index. Accepted records are committed one by one. New ids are not
// returned; callers find their records through List.
func (s *RecordService) CreateBatch(ctx context.Context, curatorID string, batch []*models.Record) (int, []Rejection, error) {
	if len(batch) == 0 {
		return 0, nil, nil
	}
	if len(batch) > s.maxBatchSize {
		return 0, nil, fmt.Errorf("%w: batch of %d exceeds %d", common.ErrValidation, len(batch), s.maxBatchSize)
	}

	repo := s.repomanager.Records(s.db)
	var (
		accepted int
		rejected []Rejection
	)
	for i, r := range batch {
		if reason := validateNew(curatorID, r); reason != "" {
			rejected = append(rejected, Rejection{Index: i, Reason: reason})
			continue
		}
		rec := *r
		rec.ID = uuid.NewString()
		if rec.OriginalOwnerID == "" {
			rec.OriginalOwnerID = curatorID
		}

		err := repo.Create(ctx, &rec)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, common.ErrAlreadyExists):
			rejected = append(rejected, Rejection{Index: i, Reason: "curator already holds a record in this group"})
		default:
			return accepted, rejected, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return accepted, rejected, nil
}

func validateNew(curatorID string, r *models.Record) string {
	switch {
	case r == nil:
		return "record is empty"
	case strings.TrimSpace(r.Name) == "":
		return "name is empty"
	case r.SharedGroupID == "":
		return "shared group id is empty"
	case r.OwnerID != curatorID:
		return "owner does not match the caller"
	}
	return ""
}

// Update rewrites name and payload of a live record owned by curatorID.
func (s *RecordService) Update(ctx context.Context, curatorID string, r *models.Record) (*models.Record, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("%w: id is empty", common.ErrValidation)
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("%w: name is empty", common.ErrValidation)
	}
	repo := s.repomanager.Records(s.db)
	if _, err := s.ownedLive(ctx, curatorID, r.ID); err != nil {
		return nil, err
	}
	return repo.Update(ctx, r)
}

// Delete soft-deletes a live record owned by curatorID.
func (s *RecordService) Delete(ctx context.Context, curatorID, id string) error {
	if _, err := s.ownedLive(ctx, curatorID, id); err != nil {
		return err
	}
	return s.repomanager.Records(s.db).SoftDelete(ctx, id)
}

// Get returns a live record.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.repomanager.Records(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	return rec, nil
}

func (s *RecordService) ownedLive(ctx context.Context, curatorID, id string) (*models.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != curatorID {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotOwner)
	}
	return rec, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/fork"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/filex"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/dmitrijs2005/fieldkeeper/internal/netx"
)

// ErrNotSynced is returned for operations that need the entity's remote copy.
var ErrNotSynced = errors.New("entity has not been synced yet")

// RemoteDeleter makes one best-effort remote delete for a tombstone.
type RemoteDeleter interface {
	DeleteRemote(ctx context.Context, tomb *models.Entity) bool
}

// Presigner issues upload URLs for attachment blobs.
type Presigner interface {
	PresignAttachment(ctx context.Context, recordID, fileName, method string) (key, url string, err error)
}

// Attachment is the payload entry describing an uploaded file.
type Attachment struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type EntityService interface {
	Create(ctx context.Context, curatorID, name string, payload models.Payload) (*models.Entity, error)
	// Edit applies change on behalf of curatorID, forking when the entity belongs to someone else.
	Edit(ctx context.Context, curatorID, localID string, change models.Change) (*models.Entity, fork.Kind, error)
	Delete(ctx context.Context, curatorID, localID string) error
	List(ctx context.Context, includeTombstones bool) ([]*models.Entity, error)
	Get(ctx context.Context, localID string) (*models.Entity, error)
	// Attach uploads the file at path and records it on the curator's copy of the entity.
	Attach(ctx context.Context, curatorID, localID, path string) (*models.Entity, error)
	Stats(ctx context.Context) (map[models.SyncState]int, error)
	// Close waits for pending remote deletes.
	Close()
}

type entityService struct {
	tracker   *syncstate.Tracker
	repo      entities.Repository
	resolver  *fork.Resolver
	deleter   RemoteDeleter
	presigner Presigner
	logger    logging.Logger

	wg sync.WaitGroup
}

func NewEntityService(tracker *syncstate.Tracker, resolver *fork.Resolver, deleter RemoteDeleter, presigner Presigner, logger logging.Logger) EntityService {
	return &entityService{
		tracker:   tracker,
		repo:      tracker.Store(),
		resolver:  resolver,
		deleter:   deleter,
		presigner: presigner,
		logger:    logger.With("module", "entities"),
	}
}

func (s *entityService) Create(ctx context.Context, curatorID, name string, payload models.Payload) (*models.Entity, error) {
	if curatorID == "" {
		return nil, fmt.Errorf("%w: curator is not set", common.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is empty", common.ErrValidation)
	}
	e, err := s.tracker.Create(ctx, curatorID, name, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "entity created", "local_id", e.LocalID)
	return e, nil
}

func (s *entityService) Edit(ctx context.Context, curatorID, localID string, change models.Change) (*models.Entity, fork.Kind, error) {
	return s.resolver.Edit(ctx, curatorID, localID, change)
}

// Delete removes the curator's own entity locally at once. The remote
// delete runs in the background; a failure is retried by the next export.
func (s *entityService) Delete(ctx context.Context, curatorID, localID string) error {
	e, err := s.repo.GetByLocalID(ctx, localID, false)
	if err != nil {
		return fmt.Errorf("delete %s: %w", localID, err)
	}
	if e.OwnerID != curatorID {
		return fmt.Errorf("%w: entity %s belongs to another curator", common.ErrValidation, localID)
	}

	tomb, err := s.tracker.Delete(ctx, localID)
	if err != nil {
		return err
	}
	if tomb == nil || s.deleter == nil {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.WithoutCancel(ctx)
		if s.deleter.DeleteRemote(ctx, tomb) {
			s.logger.Debug(ctx, "remote copy deleted", "local_id", tomb.LocalID, "remote_id", tomb.RemoteID)
		}
	}()
	return nil
}

func (s *entityService) List(ctx context.Context, includeTombstones bool) ([]*models.Entity, error) {
	list, err := s.repo.List(ctx, entities.ListOptions{IncludeTombstones: includeTombstones})
	if err != nil && errors.Is(err, common.ErrLocalStore) {
		s.logger.Error(ctx, "skipping unreadable entities", "error", err)
		return list, nil
	}
	return list, err
}

func (s *entityService) Get(ctx context.Context, localID string) (*models.Entity, error) {
	return s.repo.GetByLocalID(ctx, localID, true)
}

func (s *entityService) Attach(ctx context.Context, curatorID, localID, path string) (*models.Entity, error) {
	if s.presigner == nil {
		return nil, fmt.Errorf("attach: %w", common.ErrUnavailable)
	}
	res, err := s.resolver.Resolve(ctx, curatorID, localID)
	if err != nil {
		return nil, err
	}
	target := res.Source
	if res.Target != nil {
		target = res.Target
	}
	if res.Kind == fork.NeedsFork || !target.HasRemote() {
		return nil, fmt.Errorf("attach to %s: %w", localID, ErrNotSynced)
	}

	name, data, err := filex.ReadAttachment(path)
	if err != nil {
		return nil, err
	}
	key, url, err := s.presigner.PresignAttachment(ctx, target.RemoteID, name, http.MethodPut)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	if err := netx.UploadToPresignedURL(ctx, url, "", data); err != nil {
		return nil, err
	}

	items := attachmentsOf(target.Payload)
	items = append(items, Attachment{Key: key, Name: name, Size: len(data)})
	e, _, err := s.resolver.Edit(ctx, curatorID, target.LocalID, models.Change{
		Set: map[string]any{models.PayloadAttachments: items},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "attachment uploaded", "local_id", e.LocalID, "key", key, "size", len(data))
	return e, nil
}

func attachmentsOf(p models.Payload) []any {
	raw, ok := p[models.PayloadAttachments].([]any)
	if !ok {
		return nil
	}
	return append([]any(nil), raw...)
}

func (s *entityService) Stats(ctx context.Context) (map[models.SyncState]int, error) {
	list, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make(map[models.SyncState]int, 4)
	for _, e := range list {
		out[e.SyncState]++
	}
	return out, nil
}

func (s *entityService) Close() {
	s.wg.Wait()
}

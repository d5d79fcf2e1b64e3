package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
)

// Import folds the full remote listing into the local store. A listing
// failure aborts the pass before any local change.
func (e *Engine) Import(ctx context.Context) (*ImportResult, error) {
	var remote []models.RemoteEntity
	err := e.call(ctx, func(ctx context.Context) error {
		var err error
		remote, err = e.gateway.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("import: list remote: %w", err)
	}

	// tombstones included, so a deleted entity is recognised and never re-created
	bound, err := e.repo.ListRemoteBound(ctx)
	if e.logStoreErr(ctx, "import", err) {
		return nil, fmt.Errorf("import: list local: %w", err)
	}
	byRemote := make(map[string]*models.Entity, len(bound))
	for _, l := range bound {
		byRemote[l.RemoteID] = l
	}

	res := &ImportResult{}
	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		seen[r.ID] = struct{}{}

		if l, ok := byRemote[r.ID]; ok {
			e.importMatched(ctx, l, r, res)
			continue
		}
		e.importUnmatched(ctx, r, res)
	}

	e.demoteOrphans(ctx, bound, seen, res)

	e.logger.Info(ctx, "import finished", "remote", len(remote), "result", res.String())
	return res, nil
}

func (e *Engine) importMatched(ctx context.Context, l *models.Entity, r models.RemoteEntity, res *ImportResult) {
	switch l.SyncState {
	case models.StateDirty:
		// local wins until exported
		e.logger.Debug(ctx, "import skipped dirty entity", "local_id", l.LocalID, "remote_id", r.ID)
		res.Skipped++
		return
	case models.StateTombstoned:
		e.logger.Debug(ctx, "import skipped tombstone", "local_id", l.LocalID, "remote_id", r.ID)
		res.Skipped++
		return
	}

	changed, err := e.tracker.ImportUpdate(ctx, l.LocalID, r)
	switch {
	case err == nil && changed:
		res.Updated++
	case err == nil:
		res.Unchanged++
	case syncstate.IsSkippable(err):
		res.Skipped++
	default:
		e.logger.Error(ctx, "import update failed", "local_id", l.LocalID, "remote_id", r.ID, "error", err)
		res.Failed++
	}
}

func (e *Engine) importUnmatched(ctx context.Context, r models.RemoteEntity, res *ImportResult) {
	candidate, err := e.findUnbound(ctx, r)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		e.logger.Error(ctx, "import secondary lookup failed", "remote_id", r.ID, "error", err)
		res.Failed++
		return
	}

	if candidate != nil {
		if _, err := e.tracker.ImportBind(ctx, candidate.LocalID, r); err != nil {
			if syncstate.IsSkippable(err) || errors.Is(err, common.ErrAlreadyExists) {
				res.Skipped++
				return
			}
			e.logger.Error(ctx, "import bind failed", "local_id", candidate.LocalID, "remote_id", r.ID, "error", err)
			res.Failed++
			return
		}
		e.logger.Debug(ctx, "import bound local entity", "local_id", candidate.LocalID, "remote_id", r.ID)
		res.Added++
		return
	}

	if r.SharedGroupID != "" && r.OwnerID != "" {
		holder, err := e.repo.FindByGroupOwner(ctx, r.SharedGroupID, r.OwnerID)
		if err == nil {
			e.logger.Warn(ctx, "import skipped record: owner already holds a copy of the group",
				"remote_id", r.ID, "group", r.SharedGroupID, "owner", r.OwnerID,
				"local_id", holder.LocalID, "bound_to", holder.RemoteID)
			res.Skipped++
			return
		}
		if !errors.Is(err, common.ErrNotFound) {
			e.logger.Error(ctx, "import group lookup failed", "remote_id", r.ID, "error", err)
			res.Failed++
			return
		}
	}

	if _, err := e.tracker.ImportCreate(ctx, r); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			res.Skipped++
			return
		}
		e.logger.Error(ctx, "import create failed", "remote_id", r.ID, "error", err)
		res.Failed++
		return
	}
	res.Added++
}

// findUnbound looks for an unbound local entity of r's owner, first by
// shared group and then by exact name.
func (e *Engine) findUnbound(ctx context.Context, r models.RemoteEntity) (*models.Entity, error) {
	if r.OwnerID == "" {
		return nil, common.ErrNotFound
	}
	if r.SharedGroupID != "" {
		l, err := e.repo.FindUnboundByGroupOwner(ctx, r.SharedGroupID, r.OwnerID)
		if err == nil || !errors.Is(err, common.ErrNotFound) {
			return l, err
		}
	}
	if r.Name == "" {
		return nil, common.ErrNotFound
	}
	return e.repo.FindUnboundByName(ctx, r.OwnerID, r.Name)
}

// demoteOrphans handles bound entities whose remote id is absent from the
// listing. Only SYNCED entities are demoted; DIRTY ones keep their pending
// edits and tombstones are only marked as confirmed.
func (e *Engine) demoteOrphans(ctx context.Context, bound []*models.Entity, seen map[string]struct{}, res *ImportResult) {
	for _, l := range bound {
		if _, ok := seen[l.RemoteID]; ok {
			continue
		}
		switch l.SyncState {
		case models.StateSynced:
			if _, err := e.tracker.ImportOrphaned(ctx, l.LocalID); err != nil {
				if syncstate.IsSkippable(err) {
					continue
				}
				e.logger.Error(ctx, "orphan demotion failed", "local_id", l.LocalID, "error", err)
				res.Failed++
				continue
			}
			e.logger.Info(ctx, "entity orphaned", "local_id", l.LocalID, "remote_id", l.RemoteID)
			res.Orphaned++
		case models.StateTombstoned:
			if l.DeleteConfirmed {
				continue
			}
			if _, err := e.tracker.ConfirmDeleted(ctx, l.LocalID); err != nil && !syncstate.IsSkippable(err) {
				e.logger.Error(ctx, "confirm delete failed", "local_id", l.LocalID, "error", err)
			}
		default:
			e.logger.Debug(ctx, "dirty entity absent remotely, kept", "local_id", l.LocalID, "remote_id", l.RemoteID)
		}
	}
}

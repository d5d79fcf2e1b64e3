package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/syncstate"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
)

type createItem struct {
	entity    *models.Entity
	recreated bool
}

// Export pushes local changes to the remote store: pending remote deletes
// first, then updates of bound entities, then batched creates matched back
// through one reconciling listing.
func (e *Engine) Export(ctx context.Context) (*ExportResult, error) {
	res := &ExportResult{}

	if err := e.retryDeletes(ctx, res); err != nil {
		return res, err
	}

	pending, err := e.repo.ListPending(ctx)
	if e.logStoreErr(ctx, "export", err) {
		return res, fmt.Errorf("export: list pending: %w", err)
	}

	var (
		updates []*models.Entity
		creates []createItem
	)
	for _, p := range pending {
		if e.foreign(p) {
			e.logger.Debug(ctx, "export skipped entity of another curator", "local_id", p.LocalID, "owner", p.OwnerID)
			res.Skipped++
			continue
		}
		if p.HasRemote() {
			updates = append(updates, p)
		} else {
			creates = append(creates, createItem{entity: p})
		}
	}

	for _, u := range updates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if demoted := e.exportUpdate(ctx, u, res); demoted != nil {
			creates = append(creates, createItem{entity: demoted, recreated: true})
		}
	}

	if err := e.exportCreates(ctx, creates, res); err != nil {
		return res, err
	}

	e.logger.Info(ctx, "export finished", "pending", len(pending), "result", res.String())
	return res, nil
}

func (e *Engine) retryDeletes(ctx context.Context, res *ExportResult) error {
	tombs, err := e.repo.ListUnconfirmedTombstones(ctx)
	if e.logStoreErr(ctx, "export deletes", err) {
		return fmt.Errorf("export: list tombstones: %w", err)
	}
	for _, t := range tombs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.foreign(t) {
			continue
		}
		if e.DeleteRemote(ctx, t) {
			res.DeletesConfirmed++
		}
	}
	return nil
}

// exportUpdate sends one bound entity. It returns the demoted entity when
// the remote rejected it, so the create pass can recreate it.
func (e *Engine) exportUpdate(ctx context.Context, u *models.Entity, res *ExportResult) *models.Entity {
	if !e.inflight.acquire(u.LocalID) {
		res.Skipped++
		return nil
	}
	defer e.inflight.release(u.LocalID)

	err := e.call(ctx, func(ctx context.Context) error {
		_, err := e.gateway.Update(ctx, u.RemoteID, u.ToRemote())
		return err
	})

	switch {
	case err == nil:
		if _, err := e.tracker.ExportSucceeded(ctx, u, u.RemoteID); err != nil {
			if syncstate.IsSkippable(err) {
				e.logger.Debug(ctx, "entity changed during update", "local_id", u.LocalID, "error", err)
				return nil
			}
			e.logger.Error(ctx, "recording update failed", "local_id", u.LocalID, "error", err)
			res.Failed++
			return nil
		}
		res.Updated++
		return nil

	case errors.Is(err, common.ErrRemoteRejected):
		demoted, derr := e.tracker.Demote(ctx, u.LocalID)
		if derr != nil {
			e.logger.Error(ctx, "demotion after rejected update failed", "local_id", u.LocalID, "error", derr)
			res.Failed++
			return nil
		}
		e.logger.Info(ctx, "remote rejected update, recreating", "local_id", u.LocalID, "remote_id", u.RemoteID)
		return demoted

	default:
		e.tracker.ExportFailed(ctx, u, err)
		res.Failed++
		return nil
	}
}

func (e *Engine) exportCreates(ctx context.Context, items []createItem, res *ExportResult) error {
	var held []createItem
	for _, it := range items {
		if !e.inflight.acquire(it.entity.LocalID) {
			res.Skipped++
			continue
		}
		held = append(held, it)
	}
	defer func() {
		for _, it := range held {
			e.inflight.release(it.entity.LocalID)
		}
	}()
	if len(held) == 0 {
		return nil
	}

	var submitted []createItem
	for start := 0; start < len(held); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+e.cfg.BatchSize, len(held))
		submitted = append(submitted, e.submitBatch(ctx, held[start:end], res)...)
	}
	if len(submitted) == 0 {
		return nil
	}

	var remote []models.RemoteEntity
	err := e.call(ctx, func(ctx context.Context) error {
		var err error
		remote, err = e.gateway.List(ctx)
		return err
	})
	if err != nil {
		// the next Import binds these by group and owner
		e.logger.Warn(ctx, "reconciling list failed", "submitted", len(submitted), "error", err)
		res.Unmatched += len(submitted)
		return nil
	}

	e.matchCreated(ctx, submitted, remote, res)
	return nil
}

// submitBatch sends one create call and returns the items the remote accepted.
func (e *Engine) submitBatch(ctx context.Context, batch []createItem, res *ExportResult) []createItem {
	records := make([]models.RemoteEntity, len(batch))
	for i, it := range batch {
		records[i] = it.entity.ToRemote()
	}

	var ack *models.BatchAck
	err := e.call(ctx, func(ctx context.Context) error {
		var err error
		ack, err = e.gateway.Create(ctx, records)
		return err
	})
	if err != nil {
		for _, it := range batch {
			e.tracker.ExportFailed(ctx, it.entity, err)
		}
		res.Failed += len(batch)
		return nil
	}

	rejected := ack.RejectedSet()
	accepted := make([]createItem, 0, len(batch))
	for i, it := range batch {
		if reason, ok := rejected[i]; ok {
			e.tracker.ExportFailed(ctx, it.entity, fmt.Errorf("%w: %s", common.ErrRemoteRejected, reason))
			res.Failed++
			continue
		}
		accepted = append(accepted, it)
	}
	return accepted
}

type groupOwner struct{ group, owner string }
type ownerName struct{ owner, name string }

// matchCreated binds each submitted entity to an unclaimed remote record,
// first by (shared group, owner) and then by a unique exact name of the owner.
func (e *Engine) matchCreated(ctx context.Context, submitted []createItem, remote []models.RemoteEntity, res *ExportResult) {
	claimed := make(map[string]struct{})
	bound, err := e.repo.ListRemoteBound(ctx)
	e.logStoreErr(ctx, "export match", err)
	for _, b := range bound {
		claimed[b.RemoteID] = struct{}{}
	}

	byGroup := make(map[groupOwner]*models.RemoteEntity)
	byName := make(map[ownerName][]*models.RemoteEntity)
	for i := range remote {
		r := &remote[i]
		if _, ok := claimed[r.ID]; ok {
			continue
		}
		if r.SharedGroupID != "" {
			byGroup[groupOwner{r.SharedGroupID, r.OwnerID}] = r
		}
		byName[ownerName{r.OwnerID, r.Name}] = append(byName[ownerName{r.OwnerID, r.Name}], r)
	}
	namesSubmitted := make(map[ownerName]int)
	for _, it := range submitted {
		namesSubmitted[ownerName{it.entity.OwnerID, it.entity.Name}]++
	}

	unclaimed := func(r *models.RemoteEntity) bool {
		if r == nil {
			return false
		}
		_, ok := claimed[r.ID]
		return !ok
	}

	for _, it := range submitted {
		l := it.entity
		match := byGroup[groupOwner{l.SharedGroupID, l.OwnerID}]
		if !unclaimed(match) {
			match = nil
			key := ownerName{l.OwnerID, l.Name}
			var candidates []*models.RemoteEntity
			for _, r := range byName[key] {
				if unclaimed(r) {
					candidates = append(candidates, r)
				}
			}
			if len(candidates) == 1 && namesSubmitted[key] == 1 {
				match = candidates[0]
			}
		}
		if match == nil {
			e.logger.Warn(ctx, "created entity not found in listing, retrying next cycle", "local_id", l.LocalID)
			res.Unmatched++
			continue
		}
		claimed[match.ID] = struct{}{}

		if _, err := e.tracker.ExportSucceeded(ctx, l, match.ID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				e.logger.Info(ctx, "entity removed during create, deleting remote copy",
					"local_id", l.LocalID, "remote_id", match.ID)
				e.deleteOrphanRemote(ctx, match.ID)
				continue
			}
			e.logger.Error(ctx, "recording create failed", "local_id", l.LocalID, "remote_id", match.ID, "error", err)
			res.Failed++
			continue
		}
		if it.recreated {
			res.Recreated++
		} else {
			res.Created++
		}
	}
}

func (e *Engine) deleteOrphanRemote(ctx context.Context, remoteID string) {
	err := e.call(ctx, func(ctx context.Context) error {
		return e.gateway.Delete(ctx, remoteID)
	})
	if err != nil && !errors.Is(err, common.ErrRemoteRejected) {
		e.logger.Warn(ctx, "remote cleanup failed", "remote_id", remoteID, "error", err)
	}
}
